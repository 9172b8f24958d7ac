// Package parser converts raw configuration strings into typed values and back.
//
// Every Parser offers three renderings of a value: the parsed form, the
// canonical string form (ToString) and a redacted form for logs
// (ToLogString). Parse(ToString(v)) recovers v for every built-in parser.
//
// Parse failures are *errs.Error values of code errs.ErrInvalidValue or
// errs.ErrValidation; the message names the parser type and the raw input.
package parser

import (
	"context"
)

// Parser converts between raw strings and values of type T.
type Parser[T any] interface {
	// Name is the type name used in error messages ("Integer", "URL", ...).
	Name() string
	Parse(ctx context.Context, raw string) (T, error)
	ToString(v T) string
	ToLogString(v T, format LogFormat) string
}
