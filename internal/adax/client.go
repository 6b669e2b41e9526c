package adax

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/muurk/adax/internal/logging"
)

// DefaultBaseURL is the Adax client API root
const DefaultBaseURL = "https://api-1.adax.no/client-api"

var errStopped = errors.New("adax: client stopped before the write was sent")

// Config describes one Adax account
type Config struct {
	// BaseURL is the API root (default: DefaultBaseURL)
	BaseURL string

	// AccountID and Password are used for the password grant
	AccountID string
	Password  string

	// WithEnergy asks the content endpoint to include energy counters
	WithEnergy bool

	// SkipEnergyLogs turns off the per-room energy_log fetches on Update
	SkipEnergyLogs bool

	// Timeout bounds each HTTP call (default: DefaultTimeout)
	Timeout time.Duration
}

// Option customizes a Client
type Option func(*Client)

// WithHTTPClient sets the HTTP client used for all calls
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithMetrics records request, token and flush metrics
func WithMetrics(m *Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// WithBackOff sets the delay policy between retries. The default policy
// retries immediately.
func WithBackOff(newBackOff func() backoff.BackOff) Option {
	return func(c *Client) {
		c.newBackOff = newBackOff
	}
}

// withMinInterval shortens the request spacing. Only tests use it; the Adax
// API requires MinInterval.
func withMinInterval(d time.Duration) Option {
	return func(c *Client) {
		c.minInterval = d
	}
}

// WithUserAgent sets the User-Agent header sent on every call
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// Client is a stateful client for one Adax account.
//
// Reads go through Update, which is skipped while the rate limit has not
// elapsed or a write is pending. Writes are coalesced per account and sent
// in one control request once the rate limit allows.
type Client struct {
	baseURL    string
	withEnergy bool
	fetchLogs  bool

	httpClient *http.Client
	metrics    *Metrics
	newBackOff func() backoff.BackOff
	userAgent  string

	minInterval time.Duration

	tokens   *TokenManager
	governor *Governor
	exec     *executor
	writes   *coalescer
	snapshot *Snapshot
}

// New creates a Client for cfg
func New(cfg Config, opts ...Option) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	c := &Client{
		baseURL:    baseURL,
		withEnergy: cfg.WithEnergy,
		fetchLogs:  !cfg.SkipEnergyLogs,
		httpClient: &http.Client{},
		newBackOff: func() backoff.BackOff { return &backoff.ZeroBackOff{} },
		snapshot:   NewSnapshot(),

		minInterval: MinInterval,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.governor = NewGovernor(c.minInterval)

	c.tokens = NewTokenManager(baseURL, cfg.AccountID, cfg.Password)
	c.tokens.HTTPClient = c.httpClient
	c.tokens.Timeout = timeout
	c.tokens.metrics = c.metrics
	c.tokens.UserAgent = c.userAgent

	c.exec = &executor{
		httpClient: c.httpClient,
		tokens:     c.tokens,
		governor:   c.governor,
		timeout:    timeout,
		newBackOff: c.newBackOff,
		metrics:    c.metrics,
		userAgent:  c.userAgent,
	}
	c.writes = newCoalescer(c.governor, c.flushWrites, c.metrics)

	return c
}

// Execute performs a single API call with the client's retry policy. Paths
// are relative to the base URL.
func (c *Client) Execute(ctx context.Context, method, path string, body any, retries int) (*Response, error) {
	return c.exec.Execute(ctx, method, c.baseURL+path, body, retries)
}

// Update refreshes the snapshot. It is a no-op, returning false, while the
// rate limit has not elapsed since the last request or a write is pending or
// in flight. Fetch failures are logged and leave the snapshot as it was.
func (c *Client) Update(ctx context.Context) bool {
	if c.writes.Busy() || !c.governor.TryAcquire() {
		c.metrics.skipped()
		logging.Debug("Skip update")
		return false
	}

	if err := c.fetchContent(ctx); err != nil {
		logging.Warn("Failed to fetch rooms info", zap.Error(err))
	}
	if c.fetchLogs {
		if err := c.fetchEnergy(ctx); err != nil {
			logging.Warn("Failed to fetch energy info", zap.Error(err))
		}
	}
	return true
}

// GetHomes updates and returns the homes
func (c *Client) GetHomes(ctx context.Context) []Home {
	c.Update(ctx)
	return c.snapshot.Homes()
}

// GetRooms updates and returns the rooms
func (c *Client) GetRooms(ctx context.Context) []Room {
	c.Update(ctx)
	return c.snapshot.Rooms()
}

// GetDevices updates and returns the devices
func (c *Client) GetDevices(ctx context.Context) []Device {
	c.Update(ctx)
	return c.snapshot.Devices()
}

// GetEnergy updates and returns the energy logs keyed by room id
func (c *Client) GetEnergy(ctx context.Context) map[int]EnergyLog {
	c.Update(ctx)
	return c.snapshot.Energy()
}

// SetRoomTargetTemperature sets the target temperature (°C) and heating flag
// of a room. It returns once the flush carrying the edit has completed.
func (c *Client) SetRoomTargetTemperature(ctx context.Context, roomID int, temperature float64, heatingEnabled bool) error {
	return c.SetRoom(ctx, RoomUpdate{
		ID:                roomID,
		TargetTemperature: temperature,
		HeatingEnabled:    &heatingEnabled,
	})
}

// SetRoom queues u for the next flush and waits for it.
func (c *Client) SetRoom(ctx context.Context, u RoomUpdate) error {
	if err := c.writes.Submit(ctx, u); err != nil {
		return fmt.Errorf("failed to set room %d: %w", u.ID, err)
	}
	return nil
}

// Snapshot returns the last fetched state without touching the network
func (c *Client) Snapshot() *Snapshot {
	return c.snapshot
}

// Room returns one room from the last snapshot without touching the network
func (c *Client) Room(id int) (Room, bool) {
	return c.snapshot.Room(id)
}

// Governor returns the client's rate governor
func (c *Client) Governor() *Governor {
	return c.governor
}

// WritePending reports whether a write is pending or in flight
func (c *Client) WritePending() bool {
	return c.writes.Busy()
}

// Close drops any scheduled, unsent write and releases its waiters.
func (c *Client) Close() {
	c.writes.Stop()
}

func (c *Client) fetchContent(ctx context.Context) error {
	path := "/rest/v1/content/"
	if c.withEnergy {
		path += "?withEnergy=1"
	}

	resp, err := c.Execute(ctx, http.MethodGet, path, nil, FetchRetries)
	if err != nil {
		return err
	}

	var content *contentResponse
	if err := resp.JSON(&content); err != nil {
		return err
	}
	// null or a body without rooms keeps the previous snapshot
	if content == nil || content.Rooms == nil {
		return NewParseError("content response carries no rooms", nil)
	}

	rooms := make([]Room, 0, len(content.Rooms))
	for _, r := range content.Rooms {
		rooms = append(rooms, r.toRoom())
	}
	c.snapshot.ReplaceContent(content.Homes, rooms, content.Devices)
	return nil
}

// fetchEnergy fetches every room's energy log in turn. The mapping is only
// committed if all of them succeed.
func (c *Client) fetchEnergy(ctx context.Context) error {
	rooms := c.snapshot.Rooms()
	energy := make(map[int]EnergyLog, len(rooms))

	for _, room := range rooms {
		resp, err := c.Execute(ctx, http.MethodGet, fmt.Sprintf("/rest/v1/energy_log/%d", room.ID), nil, FetchRetries)
		if err != nil {
			return fmt.Errorf("energy log for room %d: %w", room.ID, err)
		}
		var log EnergyLog
		if err := resp.JSON(&log); err != nil {
			return fmt.Errorf("energy log for room %d: %w", room.ID, err)
		}
		if string(log) == "null" {
			return fmt.Errorf("energy log for room %d: empty response", room.ID)
		}
		energy[room.ID] = log
	}

	c.snapshot.ReplaceEnergy(energy)
	return nil
}

// flushWrites sends one control batch and patches the snapshot on success.
func (c *Client) flushWrites(ctx context.Context, batch []pendingRoom) error {
	if _, err := c.Execute(ctx, http.MethodPost, "/rest/v1/control/", controlRequest{Rooms: batch}, DefaultRetries); err != nil {
		return err
	}
	for _, p := range batch {
		c.snapshot.PatchRoom(p.ID, fromHundredths(p.TargetTemperature), p.HeatingEnabled)
	}
	return nil
}
