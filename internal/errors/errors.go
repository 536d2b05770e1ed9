package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies a reminder error.
type ErrorCode string

const (
	ErrMissingField   ErrorCode = "MISSING_FIELD"   // required shorthand key absent
	ErrInvalidValue   ErrorCode = "INVALID_VALUE"   // key present but malformed
	ErrNotFound       ErrorCode = "NOT_FOUND"       // rule or template lookup missed
	ErrDeliveryFailed ErrorCode = "DELIVERY_FAILED" // notification capability refused
	ErrStore          ErrorCode = "STORE"           // persistence failure
)

// Error is the structured error returned across package boundaries.
type Error struct {
	Code    ErrorCode
	Message string
	Field   string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same code, so that
// errors.Is(err, &Error{Code: ErrNotFound}) matches any not-found error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// Sentinels usable with errors.Is.
var (
	MissingField   = &Error{Code: ErrMissingField}
	InvalidValue   = &Error{Code: ErrInvalidValue}
	NotFound       = &Error{Code: ErrNotFound}
	DeliveryFailed = &Error{Code: ErrDeliveryFailed}
	Store          = &Error{Code: ErrStore}
)

// NewMissingField creates a validation error for an absent required field.
func NewMissingField(field string) *Error {
	return &Error{
		Code:    ErrMissingField,
		Field:   field,
		Message: fmt.Sprintf("required field %q is missing", field),
	}
}

// NewInvalidValue creates a validation error for a malformed field value.
func NewInvalidValue(field, value, reason string) *Error {
	return &Error{
		Code:    ErrInvalidValue,
		Field:   field,
		Message: fmt.Sprintf("invalid %s %q: %s", field, value, reason),
	}
}

// NewNotFound creates an error for a missing rule or template.
func NewNotFound(kind, id string) *Error {
	return &Error{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
	}
}

// NewDeliveryFailure wraps a notification error.
func NewDeliveryFailure(recipient int64, err error) *Error {
	return &Error{
		Code:    ErrDeliveryFailed,
		Message: fmt.Sprintf("delivery to %d failed", recipient),
		Err:     err,
	}
}

// NewStoreError wraps a persistence error for the named operation.
func NewStoreError(op string, err error) *Error {
	return &Error{
		Code:    ErrStore,
		Message: op,
		Err:     err,
	}
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return ""
}
