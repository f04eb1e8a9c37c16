package ailink

import (
	"context"
	"errors"

	"github.com/scoutline/scoutline/internal/ailink/driver"
)

// Failure kinds reported by FailureKind.
const (
	FailureTimeout       = "timeout"
	FailureAuth          = "auth"
	FailureRateLimit     = "rate_limit"
	FailureUnavailable   = "unavailable"
	FailureBadRequest    = "bad_request"
	FailureNotConfigured = "not_configured"
	FailureError         = "error"
)

// FailureKind classifies a call error into a short label for logs and metrics.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotConfigured):
		return FailureNotConfigured
	case errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	}

	var perr *driver.ProviderError
	if !errors.As(err, &perr) {
		return FailureError
	}
	switch {
	case perr.Unauthorized():
		return FailureAuth
	case perr.RateLimited():
		return FailureRateLimit
	case perr.ServerSide():
		return FailureUnavailable
	case perr.StatusCode >= 400 && perr.StatusCode <= 499:
		return FailureBadRequest
	default:
		return FailureError
	}
}
