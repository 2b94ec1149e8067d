// internal/common/errors/handler.go
package errors

import (
	"context"
	"errors"
	"time"
)

// Logger is the subset of the logging interface this package needs.
type Logger interface {
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// RetryPolicy bounds a single external call's retry loop. Distinct from the
// workflow revision loop: this covers transient infrastructure failures on
// one call only.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// DefaultRetryPolicy matches the per-code budgets in GetRetryCount.
var DefaultRetryPolicy = RetryPolicy{
	MaxRetries: 3,
	BaseDelay:  100 * time.Millisecond,
	MaxDelay:   2 * time.Second,
}

// Retry runs op with exponential backoff until it succeeds, returns a
// non-retryable error, or the budget is exhausted. Context cancellation is
// honored between attempts; the last error is returned unwrapped so callers
// can inspect codes with errors.As.
func Retry(ctx context.Context, policy RetryPolicy, log Logger, operation string, op func() error) error {
	var lastErr error
	delay := policy.BaseDelay

	for attempt := 0; attempt <= policy.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
			if delay > policy.MaxDelay {
				delay = policy.MaxDelay
			}
		}

		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if log != nil {
			log.Warn("retrying after transient failure", map[string]interface{}{
				"operation": operation,
				"attempt":   attempt + 1,
				"error":     lastErr.Error(),
			})
		}
	}

	return lastErr
}

// IsRetryable reports whether err carries a retryable StandardError. Plain
// errors are treated as non-retryable.
func IsRetryable(err error) bool {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Retryable
	}
	return false
}

// CodeOf extracts the ErrorCode from err, or "" when it is not a
// StandardError.
func CodeOf(err error) ErrorCode {
	var stdErr *StandardError
	if errors.As(err, &stdErr) {
		return stdErr.Code
	}
	return ""
}
