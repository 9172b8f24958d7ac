// Package errs defines the typed errors returned by confkit.
//
// Every failure surfaced to callers is an *Error carrying a stable code, a
// human-readable message naming the key and an optional cause. Errors compare
// by code, so errors.Is(err, errs.ErrMissingValue) holds for any missing-value
// error regardless of the key it names.
package errs

import (
	"errors"
	"fmt"
)

// Error is a resolution error with a structured error code.
type Error struct {
	Code    string // Error code (e.g., "CK-VARS-4040")
	Message string // Human-readable message
	Key     string // Schema key the error relates to, if any
	Details string // Optional additional details
	Cause   error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap returns the underlying error for errors.Unwrap() support.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// New creates a new Error with the given code and message.
func New(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

func (e *Error) clone() *Error {
	c := *e
	return &c
}

// WithDetails returns a copy of the error with additional details.
func (e *Error) WithDetails(details string) *Error {
	c := e.clone()
	c.Details = details
	return c
}

// WithCause returns a copy of the error wrapping the given cause.
func (e *Error) WithCause(cause error) *Error {
	c := e.clone()
	c.Cause = cause
	return c
}

// WithKey returns a copy of the error bound to a schema key.
func (e *Error) WithKey(key string) *Error {
	c := e.clone()
	c.Key = key
	return c
}

// Code extracts the error code from err if it is an *Error.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Has reports whether err is an *Error with the given code.
// An empty code matches any *Error.
func Has(err error, code string) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return code == "" || e.Code == code
}

var (
	// ErrKeyNotDefined indicates a lookup for a key missing from the schema.
	ErrKeyNotDefined = New("CK-SCHM-4040", "key is not defined in schema")

	// ErrSchemaConflict indicates an invalid schema declaration.
	ErrSchemaConflict = New("CK-SCHM-4090", "invalid schema declaration")

	// ErrMissingValue indicates a required key resolved to nothing.
	ErrMissingValue = New("CK-VARS-4040", "missing required value")

	// ErrInvalidValue indicates a raw value failed type conversion.
	ErrInvalidValue = New("CK-VARS-4000", "invalid value")

	// ErrValidation indicates a parsed value was rejected by a validation rule.
	ErrValidation = New("CK-VARS-4220", "value validation failed")

	// ErrLoader indicates a backend failure while looking up a key.
	ErrLoader = New("CK-LOAD-5000", "loader failure")

	// ErrTypeMismatch indicates a typed accessor was used with the wrong type.
	ErrTypeMismatch = New("CK-VARS-4001", "value type mismatch")
)

// KeyNotDefined returns the schema error for an undeclared key.
func KeyNotDefined(key string) *Error {
	e := ErrKeyNotDefined.WithKey(key)
	e.Message = fmt.Sprintf("Key %q is not defined in schema", key)
	return e
}

// SchemaConflict returns the schema error for an invalid field declaration.
func SchemaConflict(key, reason string) *Error {
	e := ErrSchemaConflict.WithKey(key)
	e.Message = fmt.Sprintf("Key %q %s", key, reason)
	return e
}

// MissingValue returns the error for a required key without a value.
func MissingValue(key string) *Error {
	e := ErrMissingValue.WithKey(key)
	e.Message = "Missing required value for key: " + key
	return e
}

// InvalidValue returns the parse error for a raw value of the named type.
func InvalidValue(typeName, raw string) *Error {
	e := ErrInvalidValue.clone()
	e.Message = fmt.Sprintf("Invalid %s value: %q", typeName, raw)
	return e
}

// Validation wraps a validation rule failure.
func Validation(typeName string, cause error) *Error {
	e := ErrValidation.WithCause(cause)
	e.Message = fmt.Sprintf("Invalid %s value", typeName)
	return e
}

// Loader wraps a backend failure raised while resolving key.
func Loader(loaderType, key string, cause error) *Error {
	e := ErrLoader.WithKey(key).WithCause(cause)
	e.Message = fmt.Sprintf("loader %s failed for key %s", loaderType, key)
	return e
}

// TypeMismatch returns the error for a typed accessor used with the wrong type.
func TypeMismatch(key string, want, got any) *Error {
	e := ErrTypeMismatch.WithKey(key)
	e.Message = fmt.Sprintf("Key %q holds %T, not %T", key, got, want)
	return e
}

// InvalidKeyValue wraps a parse failure of the value found for key.
func InvalidKeyValue(key string, cause error) *Error {
	e := ErrInvalidValue.WithKey(key).WithCause(cause)
	e.Message = "Invalid value for key: " + key
	return e
}
