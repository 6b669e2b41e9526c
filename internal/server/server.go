package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/muurk/adax/internal/adax"
	"github.com/muurk/adax/internal/logging"
)

const (
	maxHeaderBytes    = 1 << 20 // 1 MB
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 60 * time.Second

	// A setpoint request waits for its flush, which may wait out the rate limit
	writeTimeout = 60 * time.Second

	// DefaultStreamInterval is the room stream period when ?interval is absent
	DefaultStreamInterval = 30 * time.Second
)

// Backend is the account the bridge serves. *adax.Client implements it.
type Backend interface {
	GetHomes(ctx context.Context) []adax.Home
	GetRooms(ctx context.Context) []adax.Room
	GetDevices(ctx context.Context) []adax.Device
	GetEnergy(ctx context.Context) map[int]adax.EnergyLog
	SetRoom(ctx context.Context, u adax.RoomUpdate) error
	WritePending() bool
}

// Config holds the bridge configuration
type Config struct {
	Host           string
	Port           int
	CertPath       string        // Serve HTTPS when both CertPath and KeyPath are set
	KeyPath        string
	StreamInterval time.Duration // Default room stream period (default: DefaultStreamInterval)
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, fmt.Sprint(c.Port))
}

// Server is the local HTTP and WebSocket bridge in front of one Adax account
type Server struct {
	config    *Config
	backend   Backend
	registry  *prometheus.Registry
	metrics   *bridgeMetrics
	router    *gin.Engine
	tlsConfig *tls.Config

	httpServer *http.Server
	listener   net.Listener

	wg          sync.WaitGroup
	mu          sync.Mutex
	activeConns map[string]*websocket.Conn
	closing     chan struct{}
	closeOnce   sync.Once
}

// New creates a new Server. Bridge metrics are registered with registry,
// which is also what /metrics serves; a nil registry gets a private one.
func New(config *Config, backend Backend, registry *prometheus.Registry) (*Server, error) {
	if config.StreamInterval <= 0 {
		config.StreamInterval = DefaultStreamInterval
	}
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	metrics, err := newBridgeMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to register bridge metrics: %w", err)
	}

	var tlsConfig *tls.Config
	if config.CertPath != "" && config.KeyPath != "" {
		tlsConfig, err = NewTLSConfig(config.CertPath, config.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config: %w", err)
		}
	}

	s := &Server{
		config:      config,
		backend:     backend,
		registry:    registry,
		metrics:     metrics,
		tlsConfig:   tlsConfig,
		activeConns: make(map[string]*websocket.Conn),
		closing:     make(chan struct{}),
	}
	s.router = s.initRoutes()
	return s, nil
}

// Handler returns the bridge's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves the bridge and blocks until ctx ends, a shutdown signal
// arrives, or the listener fails.
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.Addr()

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	if s.tlsConfig != nil {
		logging.Info("TLS Configuration", zap.Any("tls_info", GetTLSInfo(s.tlsConfig)))
		listener = tls.NewListener(listener, s.tlsConfig)
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.router,
		MaxHeaderBytes:    maxHeaderBytes,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	logging.Info("Starting Adax bridge",
		zap.String("addr", listener.Addr().String()),
		zap.Bool("tls", s.tlsConfig != nil),
		zap.Duration("stream_interval", s.config.StreamInterval),
	)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		errChan <- s.httpServer.Serve(listener)
	}()

	select {
	case <-sigChan:
		logging.Info("Shutdown signal received, stopping bridge...")
	case <-ctx.Done():
		logging.Info("Context cancelled, stopping bridge...")
	case err := <-errChan:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Shutdown(shutdownCtx)
}

// Shutdown stops the room streams and gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	logging.Info("Shutting down bridge...")

	s.closeOnce.Do(func() { close(s.closing) })

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}

	// Hijacked stream connections are not tracked by http.Server
	s.mu.Lock()
	for addr, conn := range s.activeConns {
		logging.Info("Closing active stream", zap.String("remote_addr", addr))
		_ = conn.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		logging.Info("All streams closed gracefully")
	case <-ctx.Done():
		logging.Warn("Shutdown timeout, forcing close")
	}

	logging.Sync()
	return err
}

// GetActiveConnections returns the number of open room streams
func (s *Server) GetActiveConnections() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activeConns)
}

func (s *Server) trackConn(addr string, conn *websocket.Conn) {
	s.mu.Lock()
	s.activeConns[addr] = conn
	s.mu.Unlock()
	s.metrics.streams.Inc()
}

func (s *Server) untrackConn(addr string) {
	s.mu.Lock()
	delete(s.activeConns, addr)
	s.mu.Unlock()
	s.metrics.streams.Dec()
}
