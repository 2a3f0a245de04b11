package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
)

// IsTransient reports whether a completion error is worth retrying:
// timeouts, connection failures, HTTP 429 and 5xx. Everything else
// (auth failures, bad requests, malformed replies) fails fast.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	// Caller cancelled; retrying cannot help
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return isRetryableStatus(statusErr.StatusCode)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	for _, pattern := range []string{
		"timeout",
		"connection refused",
		"connection reset",
		"too many requests",
	} {
		if strings.Contains(msg, pattern) {
			return true
		}
	}

	return false
}

func isRetryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}
