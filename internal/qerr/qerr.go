// Package qerr defines the stable error taxonomy for mq-mcp.
// Selection errors abort a call before any dispatch; per-file errors
// become outcomes inside a batch and never abort sibling tasks.
package qerr

import (
	"errors"
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// SelectionInvalid indicates a bad selection input (e.g. sample size <= 0)
	SelectionInvalid ErrorCode = "SELECTION_INVALID"
	// RegexCompile indicates the selection regex failed to compile
	RegexCompile ErrorCode = "REGEX_COMPILE"
	// PathEscapesRoot indicates a path resolves outside the served root
	PathEscapesRoot ErrorCode = "PATH_ESCAPES_ROOT"
	// FileRead indicates a file could not be read
	FileRead ErrorCode = "FILE_READ"
	// ModelQuery indicates the remote model call failed terminally
	ModelQuery ErrorCode = "MODEL_QUERY"
	// RateLimited indicates the remote model rejected the call transiently
	RateLimited ErrorCode = "RATE_LIMITED"
	// NotFound indicates a navigation path does not exist
	NotFound ErrorCode = "NOT_FOUND"
	// OverviewFailed indicates overview synthesis could not complete
	OverviewFailed ErrorCode = "OVERVIEW_FAILED"
	// Internal indicates an unexpected error
	Internal ErrorCode = "INTERNAL_ERROR"
)

// QueryError represents an mq-mcp error with a stable code and optional cause
type QueryError struct {
	Code    ErrorCode   `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
	cause   error       // Underlying error (not exported to JSON)
}

// New creates a new QueryError
func New(code ErrorCode, message string, cause error) *QueryError {
	return &QueryError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Newf creates a new QueryError with a formatted message and no cause
func Newf(code ErrorCode, format string, args ...interface{}) *QueryError {
	return &QueryError{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface
func (e *QueryError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *QueryError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *QueryError) WithDetails(details interface{}) *QueryError {
	e.Details = details
	return e
}

// CodeOf extracts the ErrorCode from any error in err's chain.
// Returns Internal for errors that carry no code.
func CodeOf(err error) ErrorCode {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code
	}
	return Internal
}

// IsRetryable reports whether the dispatcher should retry after err.
// Only rate-limit conditions are retryable; everything else is terminal.
func IsRetryable(err error) bool {
	return CodeOf(err) == RateLimited
}

// IsSelection reports whether err aborts a whole call before dispatch.
func IsSelection(err error) bool {
	switch CodeOf(err) {
	case SelectionInvalid, RegexCompile:
		return true
	}
	return false
}
