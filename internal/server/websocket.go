package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/adax/internal/logging"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1 << 12

	// Bounds for ?interval
	minStreamInterval = time.Second
	maxStreamInterval = 10 * time.Minute
)

// wsEnvelope is the frame sent on the room stream
type wsEnvelope struct {
	Type    string `json:"type"`
	Data    any    `json:"data,omitempty"`
	Pending bool   `json:"pending"`
	Error   string `json:"error,omitempty"`
}

var upgrader = websocket.Upgrader{
	// The bridge is meant for the local network
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRooms streams the rooms every interval. Reads inside the rate limit serve
// the last snapshot, so a short interval never adds API traffic.
func (s *Server) wsRooms(c *gin.Context) {
	interval := s.parseInterval(c)
	remoteAddr := c.Request.RemoteAddr

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logging.Error("WebSocket upgrade failed",
			zap.String("remote_addr", remoteAddr),
			zap.Error(err),
		)
		return
	}

	s.wg.Add(1)
	s.trackConn(remoteAddr, conn)
	logging.LogConnection(remoteAddr, "stream_opened")
	defer func() {
		_ = conn.Close()
		s.untrackConn(remoteAddr)
		logging.LogConnection(remoteAddr, "stream_closed")
		s.wg.Done()
	}()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go startReader(conn, remoteAddr, done)

	ticker := time.NewTicker(interval)
	ping := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		ping.Stop()
	}()

	ctx := c.Request.Context()
	if err := s.sendRooms(ctx, conn); err != nil {
		logging.Info("Initial stream write failed", zap.String("remote_addr", remoteAddr), zap.Error(err))
		return
	}

	for {
		select {
		case <-done:
			return
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "bridge shutting down"),
				time.Now().Add(writeWait))
			return
		case <-ctx.Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				logging.Info("Stream ping failed", zap.String("remote_addr", remoteAddr), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := s.sendRooms(ctx, conn); err != nil {
				logging.Info("Stream write failed", zap.String("remote_addr", remoteAddr), zap.Error(err))
				return
			}
		}
	}
}

// parseInterval reads ?interval=30s or ?interval_ms=30000 within bounds
func (s *Server) parseInterval(c *gin.Context) time.Duration {
	if v := c.Query("interval"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d >= minStreamInterval && d <= maxStreamInterval {
			return d
		}
	}
	if v := c.Query("interval_ms"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			d := time.Duration(ms) * time.Millisecond
			if d >= minStreamInterval && d <= maxStreamInterval {
				return d
			}
		}
	}
	return s.config.StreamInterval
}

// startReader drains incoming messages to handle control frames and detect closure
func startReader(conn *websocket.Conn, remoteAddr string, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			logging.Debug("Stream reader closed", zap.String("remote_addr", remoteAddr), zap.Error(err))
			return
		}
	}
}

func (s *Server) sendRooms(ctx context.Context, conn *websocket.Conn) error {
	rooms := s.backend.GetRooms(ctx)
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(wsEnvelope{
		Type:    "rooms",
		Data:    rooms,
		Pending: s.backend.WritePending(),
	})
}
