package llm

import (
	"math"
	"net/http"
	"time"
)

const (
	defaultMaxRetries     = 3
	defaultInitialBackoff = 1 * time.Second
	defaultMaxBackoff     = 30 * time.Second
)

// RetryConfig bounds the retry loop around a completion call.
// MaxRetries counts attempts after the first one.
type RetryConfig struct {
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryConfig returns the default retry configuration.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:     defaultMaxRetries,
		InitialBackoff: defaultInitialBackoff,
		MaxBackoff:     defaultMaxBackoff,
	}
}

// ShouldRetryStatus reports whether an HTTP status is worth another attempt.
// Rate limits and server-side failures are transient; everything else is not.
func ShouldRetryStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// Backoff returns the wait before retry attempt n (0-based):
// InitialBackoff * 2^n, capped at MaxBackoff.
func (c RetryConfig) Backoff(attempt int) time.Duration {
	backoff := float64(c.InitialBackoff) * math.Pow(2, float64(attempt))
	if limit := float64(c.MaxBackoff); backoff > limit {
		backoff = limit
	}
	return time.Duration(backoff)
}
