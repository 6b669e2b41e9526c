package adax

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"go.uber.org/zap"

	"github.com/muurk/adax/internal/logging"
)

const (
	// DefaultTimeout bounds each individual HTTP call
	DefaultTimeout = 10 * time.Second

	// DefaultRetries is the retry budget for data calls
	DefaultRetries = 3

	// FetchRetries is the retry budget for the opportunistic fetches behind Update
	FetchRetries = 1
)

// Response is a completed API response with its body already read.
type Response struct {
	StatusCode int
	Reason     string
	Body       []byte
}

// JSON decodes the body into v
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return NewParseError("failed to parse JSON response", err)
	}
	return nil
}

// Text returns the raw body
func (r *Response) Text() string {
	return string(r.Body)
}

// executor issues single API calls with the shared retry policy. It keeps
// the governor informed and invalidates the credential on any failure.
type executor struct {
	httpClient *http.Client
	tokens     *TokenManager
	governor   *Governor
	timeout    time.Duration
	newBackOff func() backoff.BackOff
	metrics    *Metrics
	userAgent  string
}

// Execute performs method on rawURL with an optional JSON body.
//
// Non-200 answers are retried while budget remains, except 429 which is
// returned at once. Transport failures and timeouts are retried the same way;
// once the budget is spent they come back as hard errors (see IsHard). Every
// other failure means "no data for this call".
func (e *executor) Execute(ctx context.Context, method, rawURL string, body any, retries int) (*Response, error) {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	endpoint := endpointLabel(rawURL)
	policy := e.newBackOff()
	policy.Reset()

	for {
		e.governor.Mark()
		logging.LogRequest(method, rawURL, retries, payload)

		token, err := e.tokens.Token(ctx)
		if err != nil {
			e.metrics.request(method, endpoint, "auth_failed")
			return nil, err
		}

		// the exchange above may have taken a while
		e.governor.Mark()
		start := time.Now()
		resp, err := e.do(ctx, method, rawURL, token, payload)
		e.metrics.observe(endpoint, time.Since(start).Seconds())

		if err != nil {
			e.tokens.Invalidate()
			if retries > 0 && !mentions429(err) && ctx.Err() == nil {
				if wait, ok := nextBackOff(policy); ok {
					retries--
					e.metrics.retry(endpoint)
					if err := sleep(ctx, wait); err != nil {
						return nil, ClassifyTransportError(err, rawURL)
					}
					continue
				}
			}
			e.metrics.request(method, endpoint, "transport_error")
			logging.Error("Error connecting to Adax",
				zap.String("method", method),
				zap.String("url", rawURL),
				zap.Error(err),
			)
			return nil, err
		}

		logging.LogResponse(method, rawURL, resp.StatusCode, resp.Reason)

		if resp.StatusCode != http.StatusOK {
			e.tokens.Invalidate()
			if resp.StatusCode == http.StatusTooManyRequests {
				e.metrics.request(method, endpoint, "rate_limited")
				logging.Warn("Too many requests",
					zap.String("method", method),
					zap.String("url", rawURL),
				)
				return nil, NewRateLimitedError(rawURL)
			}
			if retries > 0 {
				if wait, ok := nextBackOff(policy); ok {
					retries--
					e.metrics.retry(endpoint)
					if err := sleep(ctx, wait); err != nil {
						return nil, ClassifyTransportError(err, rawURL)
					}
					continue
				}
			}
			e.metrics.request(method, endpoint, "http_error")
			logging.Error("Error connecting to Adax",
				zap.String("method", method),
				zap.String("url", rawURL),
				zap.Int("status_code", resp.StatusCode),
				zap.String("reason", resp.Reason),
			)
			return nil, NewHTTPError(resp.StatusCode, resp.Reason, rawURL)
		}

		e.governor.Mark()
		e.metrics.request(method, endpoint, "success")
		return resp, nil
	}
}

// do performs a single call under the per-call timeout. The body is read
// before the timeout context is released.
func (e *executor) do(ctx context.Context, method, rawURL, token string, payload []byte) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s request: %w", method, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if e.userAgent != "" {
		req.Header.Set("User-Agent", e.userAgent)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, ClassifyTransportError(err, rawURL)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ClassifyTransportError(err, rawURL)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Reason:     http.StatusText(resp.StatusCode),
		Body:       body,
	}, nil
}

func nextBackOff(policy backoff.BackOff) (time.Duration, bool) {
	wait := policy.NextBackOff()
	if wait == backoff.Stop {
		return 0, false
	}
	return wait, true
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// endpointLabel reduces a URL to a low-cardinality metric label
func endpointLabel(rawURL string) string {
	switch {
	case strings.Contains(rawURL, "/rest/v1/content"):
		return "content"
	case strings.Contains(rawURL, "/rest/v1/energy_log"):
		return "energy_log"
	case strings.Contains(rawURL, "/rest/v1/control"):
		return "control"
	default:
		return "other"
	}
}
