// internal/core/errors.go
package core

import "fmt"

// Error represents a structured error with code and optional cause.
type Error struct {
	Code    string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is matching by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WrapError creates a new error with the same code but with a cause.
func WrapError(base *Error, cause error) *Error {
	return &Error{
		Code:    base.Code,
		Message: base.Message,
		Cause:   cause,
	}
}

// Predefined errors
var (
	// Ledger and engine contract violations
	ErrInvalidState   = &Error{Code: "INVALID_STATE", Message: "position is not open"}
	ErrTickOutOfOrder = &Error{Code: "TICK_OUT_OF_ORDER", Message: "tick number must strictly increase"}
	ErrTickInvalid    = &Error{Code: "TICK_INVALID", Message: "tick needs a non-negative number and a positive price"}

	// Execution outcomes
	ErrExecutionRejected = &Error{Code: "EXECUTION_REJECTED", Message: "execution not filled"}

	// Feed errors
	ErrFeedExhausted = &Error{Code: "FEED_EXHAUSTED", Message: "tick feed exhausted"}
	ErrNoData        = &Error{Code: "NO_DATA", Message: "no data available"}

	// Storage errors
	ErrRunNotFound = &Error{Code: "RUN_NOT_FOUND", Message: "backtest run not found"}

	// Config errors
	ErrConfigInvalid = &Error{Code: "CONFIG_INVALID", Message: "configuration invalid"}
	ErrConfigMissing = &Error{Code: "CONFIG_MISSING", Message: "required configuration missing"}
)
