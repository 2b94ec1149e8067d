// Package errors provides the standardized error taxonomy for the triage
// workflow. Codes map one-to-one onto terminal workflow behavior: taxonomy
// resolution failures and exhausted completion calls end a run as failed,
// degraded grounding is annotated and tolerated, quality rejects drive the
// revision loop and never surface as errors.
package errors

import (
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeClassificationFailed ErrorCode = "CLASSIFICATION_FAILED"

	ErrCodeCompletionTimeout ErrorCode = "COMPLETION_TIMEOUT"
	ErrCodeCompletionFailed  ErrorCode = "COMPLETION_FAILED"

	ErrCodeSearchQueryFailed ErrorCode = "SEARCH_QUERY_FAILED"
	ErrCodeSearchTimeout     ErrorCode = "SEARCH_TIMEOUT"
	ErrCodeIndexNotFound     ErrorCode = "INDEX_NOT_FOUND"

	ErrCodeFleetLookupFailed  ErrorCode = "FLEET_LOOKUP_FAILED"
	ErrCodeFleetEntityUnknown ErrorCode = "FLEET_ENTITY_UNKNOWN"

	ErrCodeResultStoreFailed  ErrorCode = "RESULT_STORE_FAILED"
	ErrCodeNotificationFailed ErrorCode = "NOTIFICATION_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewClassificationFailedError is unrecoverable: taxonomy resolution was
// impossible, and mis-classification risk rules out a silent retry.
func NewClassificationFailedError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeClassificationFailed,
		Message:   "Could not resolve message to the category taxonomy",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewCompletionTimeoutError creates a retryable completion timeout error.
func NewCompletionTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeCompletionTimeout,
		Message:   "Completion service timeout",
		Details:   "call exceeded timeout threshold",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewCompletionFailedError creates a retryable completion service error.
func NewCompletionFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeCompletionFailed,
		Message:   "Completion service error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchQueryFailedError creates a retryable knowledge-base query error.
func NewSearchQueryFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchQueryFailed,
		Message:   "Knowledge-base query error",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewSearchTimeoutError creates a retryable knowledge-base timeout error.
func NewSearchTimeoutError() *StandardError {
	return &StandardError{
		Code:      ErrCodeSearchTimeout,
		Message:   "Knowledge-base query timeout",
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewIndexNotFoundError creates a non-retryable missing index error.
func NewIndexNotFoundError(indexName string) *StandardError {
	return &StandardError{
		Code:      ErrCodeIndexNotFound,
		Message:   "Knowledge-base index not found",
		Details:   fmt.Sprintf("indexName: %s", indexName),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewFleetLookupFailedError is per-entity: the resolver records the entity
// as unresolved and carries on.
func NewFleetLookupFailedError(entityID string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeFleetLookupFailed,
		Message:   "Fleet-data lookup failed",
		Details:   fmt.Sprintf("entityId: %s, error: %s", entityID, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewFleetEntityUnknownError creates a non-retryable not-found error.
func NewFleetEntityUnknownError(entityID string) *StandardError {
	return &StandardError{
		Code:      ErrCodeFleetEntityUnknown,
		Message:   "Fleet entity not found",
		Details:   fmt.Sprintf("entityId: %s", entityID),
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewResultStoreFailedError creates a retryable outcome-store error.
func NewResultStoreFailedError(err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeResultStoreFailed,
		Message:   "Workflow result persistence failed",
		Details:   err.Error(),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewNotificationFailedError creates a retryable notification error.
func NewNotificationFailedError(channel string, err error) *StandardError {
	return &StandardError{
		Code:      ErrCodeNotificationFailed,
		Message:   "Escalation notification failed",
		Details:   fmt.Sprintf("channel: %s, error: %s", channel, err.Error()),
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// GetRetryCount returns the local retry budget for a code. These bound the
// per-call retry loop, not the workflow-level revision loop.
func GetRetryCount(code ErrorCode) int {
	switch code {
	case ErrCodeCompletionFailed,
		ErrCodeSearchQueryFailed,
		ErrCodeFleetLookupFailed,
		ErrCodeResultStoreFailed,
		ErrCodeNotificationFailed:
		return 3

	case ErrCodeCompletionTimeout,
		ErrCodeSearchTimeout:
		return 2

	default:
		return 0
	}
}

// IsRetryableErrorCode checks if an error code is retryable.
func IsRetryableErrorCode(code ErrorCode) bool {
	return GetRetryCount(code) > 0
}
