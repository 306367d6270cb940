package domain

import (
	"errors"
	"fmt"
)

// Application error codes
const (
	EINVALID      = "invalid"      // Invalid input or validation failure
	EUNAUTHORIZED = "unauthorized" // Authentication required
	EFORBIDDEN    = "forbidden"    // Permission denied
	ENOTFOUND     = "not_found"    // Resource not found
	ECONFLICT     = "conflict"     // Resource conflict (e.g., duplicate, wrong state)
	ERATELIMIT    = "rate_limit"   // Quota or rate limit exceeded
	EINTERNAL     = "internal"     // Internal server error
	EPAYMENT      = "payment"      // Payment required (insufficient credits)
)

// Error represents an application error with structured information.
type Error struct {
	Code    string // Machine-readable error code
	Op      string // Operation that failed (e.g., "booking.confirm")
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Errorf creates a new Error with the given code, operation, and formatted message.
func Errorf(code, op, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Op:      op,
		Message: fmt.Sprintf(format, args...),
	}
}

// ErrorCode returns the code of the root error, or EINTERNAL if none.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage returns the human-readable message of the error.
// Internal errors get a generic message so infrastructure details never
// reach the end user.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		if e.Code == EINTERNAL {
			return "An internal error occurred. Please try again later."
		}
		return e.Message
	}
	return "An internal error occurred. Please try again later."
}

// ErrorOp returns the operation of the root error, if any.
func ErrorOp(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Op
	}
	return ""
}

// Convenience constructors for common error types

// NotFound creates a not found error.
func NotFound(op, resource, id string) *Error {
	return &Error{
		Code:    ENOTFOUND,
		Op:      op,
		Message: fmt.Sprintf("%s with ID %q not found", resource, id),
	}
}

// Invalid creates a validation error.
func Invalid(op, message string) *Error {
	return &Error{
		Code:    EINVALID,
		Op:      op,
		Message: message,
	}
}

// Conflict creates a conflict error.
func Conflict(op, message string) *Error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: message,
	}
}

// Internal creates an internal error, wrapping the underlying error.
func Internal(err error, op, message string) *Error {
	return &Error{
		Code:    EINTERNAL,
		Op:      op,
		Message: message,
		Err:     err,
	}
}

// InsufficientFunds creates a payment error naming the exact shortfall so the
// caller can surface it verbatim (the user can top up the difference).
func InsufficientFunds(op string, need, have Credits) *Error {
	return &Error{
		Code: EPAYMENT,
		Op:   op,
		Message: fmt.Sprintf("Insufficient credits: this requires %s credits but the account balance is %s (short %s).",
			need, have, need-have),
	}
}

// QuotaExceeded creates a rate limit error naming the daily ceiling so the
// denial message is directly displayable.
func QuotaExceeded(op string, kind FeatureKind, used, limit int) *Error {
	return &Error{
		Code: ERATELIMIT,
		Op:   op,
		Message: fmt.Sprintf("Daily %s limit of %d reached (%d used today). The counter resets at midnight.",
			kind.Label(), limit, used),
	}
}

// InvalidTransition creates a conflict error for a session lifecycle action
// attempted from the wrong status. The message is deliberately phrased as
// "already handled" rather than a technical state dump.
func InvalidTransition(op string, current SessionStatus) *Error {
	return &Error{
		Code:    ECONFLICT,
		Op:      op,
		Message: fmt.Sprintf("This session has already been handled (current status: %s).", current),
	}
}

// ValidationError represents field-level validation errors.
type ValidationError struct {
	Op     string
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: validation failed", e.Op)
}

// NewValidationError creates a new validation error with the first field error.
func NewValidationError(op, field, message string) *ValidationError {
	return &ValidationError{
		Op: op,
		Fields: map[string]string{
			field: message,
		},
	}
}
