package adax

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
)

// ErrorType represents the category of error that occurred talking to the Adax API
type ErrorType int

const (
	// ErrTypeNetwork indicates a network-level error (connection reset, unreachable host, etc.)
	ErrTypeNetwork ErrorType = iota
	// ErrTypeTimeout indicates the per-call timeout elapsed
	ErrTypeTimeout
	// ErrTypeConnectionRefused indicates the API endpoint refused the connection
	ErrTypeConnectionRefused
	// ErrTypeDNS indicates a DNS resolution failure
	ErrTypeDNS
	// ErrTypeAuth indicates the credential exchange failed
	ErrTypeAuth
	// ErrTypeRateLimited indicates the API answered 429 Too Many Requests
	ErrTypeRateLimited
	// ErrTypeHTTP indicates a non-200 status after the retry budget was spent
	ErrTypeHTTP
	// ErrTypeParse indicates a malformed response body
	ErrTypeParse
)

// String returns a human-readable name for the error type
func (et ErrorType) String() string {
	switch et {
	case ErrTypeNetwork:
		return "Network Error"
	case ErrTypeTimeout:
		return "Timeout"
	case ErrTypeConnectionRefused:
		return "Connection Refused"
	case ErrTypeDNS:
		return "DNS Error"
	case ErrTypeAuth:
		return "Authentication Error"
	case ErrTypeRateLimited:
		return "Rate Limited"
	case ErrTypeHTTP:
		return "HTTP Error"
	case ErrTypeParse:
		return "Parse Error"
	default:
		return fmt.Sprintf("ErrorType(%d)", et)
	}
}

// APIError represents an error that occurred during a call to the Adax API
type APIError struct {
	Type       ErrorType // Category of error
	Message    string    // Human-readable error message
	StatusCode int       // HTTP status code (if applicable)
	URL        string    // Request URL (for context)
	Err        error     // Underlying error (if any)
	Retryable  bool      // Whether another attempt may succeed
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error for error chain inspection
func (e *APIError) Unwrap() error {
	return e.Err
}

// ClassifyTransportError maps an error returned by the HTTP transport onto an APIError.
func ClassifyTransportError(err error, rawURL string) *APIError {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || os.IsTimeout(err) {
		return &APIError{
			Type:      ErrTypeTimeout,
			Message:   "request timed out",
			URL:       rawURL,
			Err:       err,
			Retryable: true,
		}
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &APIError{
			Type:      ErrTypeDNS,
			Message:   fmt.Sprintf("DNS resolution failed for %s", dnsErr.Name),
			URL:       rawURL,
			Err:       err,
			Retryable: true,
		}
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && errors.Is(opErr.Err, syscall.ECONNREFUSED) {
		return &APIError{
			Type:      ErrTypeConnectionRefused,
			Message:   "connection refused",
			URL:       rawURL,
			Err:       err,
			Retryable: true,
		}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != err {
		return ClassifyTransportError(urlErr.Err, rawURL)
	}

	return &APIError{
		Type:      ErrTypeNetwork,
		Message:   "network error occurred",
		URL:       rawURL,
		Err:       err,
		Retryable: true,
	}
}

// NewAuthError creates an authentication error
func NewAuthError(message string, statusCode int, err error) *APIError {
	return &APIError{
		Type:       ErrTypeAuth,
		Message:    message,
		StatusCode: statusCode,
		Err:        err,
	}
}

// NewRateLimitedError creates a 429 error. It is never retried.
func NewRateLimitedError(rawURL string) *APIError {
	return &APIError{
		Type:       ErrTypeRateLimited,
		Message:    "too many requests",
		StatusCode: http.StatusTooManyRequests,
		URL:        rawURL,
	}
}

// NewHTTPError creates an HTTP-level error
func NewHTTPError(statusCode int, reason, rawURL string) *APIError {
	return &APIError{
		Type:       ErrTypeHTTP,
		Message:    fmt.Sprintf("unexpected response %d %s", statusCode, reason),
		StatusCode: statusCode,
		URL:        rawURL,
		Retryable:  true,
	}
}

// NewParseError creates a parsing error
func NewParseError(message string, err error) *APIError {
	return &APIError{
		Type:    ErrTypeParse,
		Message: message,
		Err:     err,
	}
}

func asAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsAuthError checks if an error is an authentication error
func IsAuthError(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.Type == ErrTypeAuth
}

// IsRateLimited checks if an error is a 429 response
func IsRateLimited(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.Type == ErrTypeRateLimited
}

// IsHTTPError checks if an error is an HTTP status error
func IsHTTPError(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.Type == ErrTypeHTTP
}

// IsHard reports whether err is a transport or timeout failure that survived the
// whole retry budget. These are the only failures Execute surfaces as hard errors;
// everything else means "no data this cycle".
func IsHard(err error) bool {
	apiErr, ok := asAPIError(err)
	if !ok {
		return false
	}
	switch apiErr.Type {
	case ErrTypeNetwork, ErrTypeTimeout, ErrTypeConnectionRefused, ErrTypeDNS:
		return true
	}
	return false
}

// IsRetryable checks if an error should be retried
func IsRetryable(err error) bool {
	apiErr, ok := asAPIError(err)
	return ok && apiErr.Retryable
}

// mentions429 mirrors the transport's habit of reporting throttling inside
// the error text rather than as a status.
func mentions429(err error) bool {
	return err != nil && strings.Contains(err.Error(), "429")
}

// ShortMessage returns a concise, user-friendly error message
func ShortMessage(err error) string {
	apiErr, ok := asAPIError(err)
	if !ok {
		return err.Error()
	}

	switch apiErr.Type {
	case ErrTypeTimeout:
		return "Adax API not responding (timeout)"
	case ErrTypeConnectionRefused:
		return "Adax API refused connection"
	case ErrTypeDNS:
		return "Cannot resolve Adax API hostname"
	case ErrTypeAuth:
		return "Authentication failed - check account id and password"
	case ErrTypeRateLimited:
		return "Rate limited by Adax API - try again in a few seconds"
	case ErrTypeHTTP:
		return fmt.Sprintf("Adax API error (HTTP %d)", apiErr.StatusCode)
	case ErrTypeParse:
		return "Failed to parse Adax API response"
	case ErrTypeNetwork:
		return "Network error - check connection"
	default:
		return apiErr.Message
	}
}
