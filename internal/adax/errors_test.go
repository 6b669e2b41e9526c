package adax

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testURL = "https://api-1.adax.no/client-api/rest/v1/content/"

func TestClassifyTransportError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"deadline", context.DeadlineExceeded, ErrTypeTimeout},
		{"os timeout", os.ErrDeadlineExceeded, ErrTypeTimeout},
		{"dns", &net.DNSError{Name: "api-1.adax.no", Err: "no such host"}, ErrTypeDNS},
		{"refused", &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}, ErrTypeConnectionRefused},
		{"reset", errors.New("connection reset by peer"), ErrTypeNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			apiErr := ClassifyTransportError(tt.err, testURL)
			require.NotNil(t, apiErr)
			assert.Equal(t, tt.want, apiErr.Type)
			assert.Equal(t, testURL, apiErr.URL)
			assert.True(t, apiErr.Retryable)
			assert.True(t, IsHard(apiErr))
			assert.ErrorIs(t, apiErr, tt.err)
		})
	}

	assert.Nil(t, ClassifyTransportError(nil, testURL))
}

func TestErrorPredicates(t *testing.T) {
	auth := NewAuthError("login rejected", http.StatusUnauthorized, nil)
	limited := NewRateLimitedError(testURL)
	status := NewHTTPError(http.StatusBadGateway, "Bad Gateway", testURL)
	parse := NewParseError("bad json", errors.New("unexpected EOF"))

	assert.True(t, IsAuthError(auth))
	assert.True(t, IsRateLimited(limited))
	assert.True(t, IsHTTPError(status))

	for _, err := range []error{auth, limited, status, parse} {
		assert.False(t, IsHard(err), err.Error())
	}
	assert.True(t, IsRetryable(status))
	assert.False(t, IsRetryable(limited))

	wrapped := fmt.Errorf("failed to set room 1: %w", limited)
	assert.True(t, IsRateLimited(wrapped))
	assert.False(t, IsHard(errors.New("plain")))
}

func TestAPIError_Error(t *testing.T) {
	err := NewParseError("bad json", errors.New("unexpected EOF"))
	assert.Equal(t, "Parse Error: bad json (caused by: unexpected EOF)", err.Error())

	status := NewHTTPError(http.StatusBadGateway, "Bad Gateway", testURL)
	assert.Equal(t, "HTTP Error: unexpected response 502 Bad Gateway", status.Error())
}

func TestMentions429(t *testing.T) {
	assert.True(t, mentions429(errors.New("upstream said 429 Too Many Requests")))
	assert.False(t, mentions429(errors.New("connection reset")))
	assert.False(t, mentions429(nil))
}

func TestShortMessage(t *testing.T) {
	assert.Equal(t, "Adax API error (HTTP 502)", ShortMessage(NewHTTPError(502, "Bad Gateway", testURL)))
	assert.Equal(t, "Rate limited by Adax API - try again in a few seconds", ShortMessage(NewRateLimitedError(testURL)))
	assert.Equal(t, "plain", ShortMessage(errors.New("plain")))
}
