package adax

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/muurk/adax/internal/logging"
)

const (
	// DefaultTokenRetries is the number of extra attempts after a transport failure
	DefaultTokenRetries = 3

	// tokenExpirySkew treats a JWT as expired slightly before its exp claim
	tokenExpirySkew = 30 * time.Second
)

// TokenManager owns the account's bearer credential. It acquires one through
// the password grant when none is cached and forgets it on Invalidate.
type TokenManager struct {
	// TokenURL is the password-grant endpoint ({base}/auth/token)
	TokenURL string

	// AccountID and Password are the grant credentials
	AccountID string
	Password  string

	// HTTPClient is the underlying HTTP client
	HTTPClient *http.Client

	// Timeout bounds each exchange attempt
	Timeout time.Duration

	// MaxRetries is the number of immediate retries after a transport failure
	MaxRetries int

	// UserAgent is sent when non-empty
	UserAgent string

	metrics *Metrics
	now     func() time.Time

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// NewTokenManager creates a token manager for the given base URL and account
func NewTokenManager(baseURL, accountID, password string) *TokenManager {
	return &TokenManager{
		TokenURL:   strings.TrimRight(baseURL, "/") + "/auth/token",
		AccountID:  accountID,
		Password:   password,
		HTTPClient: &http.Client{},
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultTokenRetries,
		now:        time.Now,
	}
}

// Token returns the cached credential, acquiring a new one if none is cached
// or the cached JWT has expired.
func (m *TokenManager) Token(ctx context.Context) (string, error) {
	m.mu.Lock()
	if m.token != "" && (m.expiry.IsZero() || m.now().Before(m.expiry.Add(-tokenExpirySkew))) {
		token := m.token
		m.mu.Unlock()
		return token, nil
	}
	m.token = ""
	m.mu.Unlock()

	token, err := m.Acquire(ctx)
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	m.token = token
	m.expiry = jwtExpiry(token)
	m.mu.Unlock()
	return token, nil
}

// Invalidate forgets the cached credential so the next request re-authenticates.
func (m *TokenManager) Invalidate() {
	m.mu.Lock()
	m.token = ""
	m.expiry = time.Time{}
	m.mu.Unlock()
}

// Cached reports whether a credential is currently held
func (m *TokenManager) Cached() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token != ""
}

// Acquire performs the password-grant exchange. Transport failures and
// timeouts are retried immediately up to MaxRetries times; a non-200 answer
// fails at once.
func (m *TokenManager) Acquire(ctx context.Context) (string, error) {
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= m.MaxRetries; attempt++ {
		attempts++
		token, err := m.acquireAttempt(ctx)
		if err == nil {
			m.metrics.token("success")
			return token, nil
		}
		lastErr = err

		if !IsHard(err) {
			m.metrics.token("rejected")
			return "", err
		}
		if ctx.Err() != nil {
			break
		}
	}

	m.metrics.token("failed")
	logging.Error("Error getting Adax token",
		zap.String("url", m.TokenURL),
		zap.Int("attempts", attempts),
		zap.Error(lastErr),
	)
	if err := ctx.Err(); err != nil {
		return "", NewAuthError(fmt.Sprintf("token exchange aborted after %d attempt(s): %v", attempts, err), 0, lastErr)
	}
	return "", NewAuthError(fmt.Sprintf("token exchange failed after %d attempts", attempts), 0, lastErr)
}

// acquireAttempt performs a single exchange
func (m *TokenManager) acquireAttempt(ctx context.Context) (string, error) {
	form := url.Values{
		"grant_type": {"password"},
		"username":   {m.AccountID},
		"password":   {m.Password},
	}

	ctx, cancel := context.WithTimeout(ctx, m.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", NewAuthError("failed to create token request", 0, err)
	}
	req.Header.Set("Content-type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	if m.UserAgent != "" {
		req.Header.Set("User-Agent", m.UserAgent)
	}

	resp, err := m.HTTPClient.Do(req)
	if err != nil {
		return "", ClassifyTransportError(err, m.TokenURL)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", ClassifyTransportError(err, m.TokenURL)
	}

	if resp.StatusCode != http.StatusOK {
		logging.Error("Failed to login to retrieve Adax token",
			zap.Int("status_code", resp.StatusCode),
			zap.String("reason", http.StatusText(resp.StatusCode)),
		)
		return "", NewAuthError(fmt.Sprintf("login rejected: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)), resp.StatusCode, nil)
	}

	var tokenData struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.Unmarshal(body, &tokenData); err != nil {
		return "", NewAuthError("failed to parse token response", resp.StatusCode, err)
	}
	if tokenData.AccessToken == "" {
		return "", NewAuthError("token response has no access_token", resp.StatusCode, nil)
	}

	return tokenData.AccessToken, nil
}

// jwtExpiry returns the exp claim of a JWT access token, or the zero time
// if the token is opaque or carries no expiry. The signature is not checked;
// the server remains the authority on validity.
func jwtExpiry(token string) time.Time {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
