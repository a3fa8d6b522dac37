// Package errors provides structured error types for the interview engine.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Error codes for interview engine operations.
const (
	// State errors: the continuation token is unusable.
	CodeStateInvalid = "STATE_001" // Undecryptable, expired or wrong version

	// Validation errors: a submitted response is malformed or out of bounds.
	CodeValidationShape = "VALIDATE_001" // Response body has the wrong shape
	CodeValidationField = "VALIDATE_002" // A field value violates constraints

	// Configuration errors, raised at load time.
	CodeConfigParse    = "CONFIG_001" // YAML/TOML parse failure
	CodeConfigInvalid  = "CONFIG_002" // Structural problem (bad id, field, regex)
	CodeConfigQuestion = "CONFIG_003" // Ask step references an unknown question

	// Step errors.
	CodeNoQuestion = "STEP_001" // No question provides an undefined location

	// Hook errors.
	CodeHookFailed = "HOOK_001" // Hook returned non-2xx / non-zero / bad body
)

// Error is the structured error type for interview engine operations.
type Error struct {
	Code    string         `json:"code"`              // Error code (e.g. "STATE_001")
	Message string         `json:"message"`           // Human-readable message
	Details map[string]any `json:"details,omitempty"` // Context (field, question id, etc.)
	Cause   error          `json:"-"`                 // Wrapped error (not serialized)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// WithDetail adds a detail to the error.
func (e *Error) WithDetail(key string, value any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// WithCause wraps an underlying error.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// MarshalJSON implements json.Marshaler with the cause error message.
func (e *Error) MarshalJSON() ([]byte, error) {
	type alias Error
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// New creates a new Error.
func New(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Newf creates a new Error with a formatted message.
func Newf(code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap wraps an error with an Error.
func Wrap(code, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with a formatted Error.
func Wrapf(code string, err error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   err,
	}
}

// InvalidState creates an error for an unusable state token.
func InvalidState(err error) *Error {
	return Wrap(CodeStateInvalid, "interview state is not valid", err)
}

// ValidationShape creates an error for a malformed response body.
func ValidationShape(reason string) *Error {
	return Newf(CodeValidationShape, "invalid response: %s", reason)
}

// ValidationField creates an error for a field constraint violation.
func ValidationField(field, reason string) *Error {
	return Newf(CodeValidationField, "%s: %s", field, reason).
		WithDetail("field", field)
}

// NoQuestion creates an error for an unresolvable location.
func NoQuestion(loc fmt.Stringer) *Error {
	return Newf(CodeNoQuestion, "no question provides %s", loc).
		WithDetail("location", loc.String())
}

// HookFailed creates an error for a failed hook invocation.
func HookFailed(kind string, err error) *Error {
	return Wrapf(CodeHookFailed, err, "%s hook failed", kind).
		WithDetail("kind", kind)
}

// HasCode checks if an error is an Error with the given code.
// It handles wrapped errors by unwrapping to find an Error.
func HasCode(err error, code string) bool {
	var ierr *Error
	if errors.As(err, &ierr) {
		return ierr.Code == code
	}
	return false
}

// Code returns the error code if err is an Error, empty string otherwise.
func Code(err error) string {
	var ierr *Error
	if errors.As(err, &ierr) {
		return ierr.Code
	}
	return ""
}

// IsValidation reports whether err is a user-recoverable validation error.
func IsValidation(err error) bool {
	c := Code(err)
	return c == CodeValidationShape || c == CodeValidationField
}
