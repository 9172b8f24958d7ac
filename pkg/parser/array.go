package parser

import (
	"context"
	"fmt"
	"strings"

	"github.com/yndnr/confkit-go/pkg/errs"
)

// DefaultSeparator separates array elements and semicolon pairs.
const DefaultSeparator = ";"

// ArrayParser splits the input and parses every element with an element
// parser. The first failing element fails the whole value.
type ArrayParser[T any] struct {
	elem      Parser[T]
	separator string
}

// ArrayOption configures an ArrayParser.
type ArrayOption func(*arrayConfig)

type arrayConfig struct {
	separator string
}

// WithSeparator sets the element separator.
func WithSeparator(sep string) ArrayOption {
	return func(c *arrayConfig) {
		if sep != "" {
			c.separator = sep
		}
	}
}

// Array creates an array parser over elem.
func Array[T any](elem Parser[T], opts ...ArrayOption) *ArrayParser[T] {
	cfg := arrayConfig{separator: DefaultSeparator}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &ArrayParser[T]{elem: elem, separator: cfg.separator}
}

func (p *ArrayParser[T]) Name() string { return "Array" }

func (p *ArrayParser[T]) Parse(ctx context.Context, raw string) ([]T, error) {
	parts := strings.Split(raw, p.separator)
	out := make([]T, 0, len(parts))
	for i, part := range parts {
		v, err := p.elem.Parse(ctx, part)
		if err != nil {
			return nil, errs.InvalidValue(p.Name(), raw).WithCause(fmt.Errorf("element %d: %w", i, err))
		}
		out = append(out, v)
	}
	return out, nil
}

func (p *ArrayParser[T]) ToString(v []T) string {
	parts := make([]string, len(v))
	for i, e := range v {
		parts[i] = p.elem.ToString(e)
	}
	return strings.Join(parts, p.separator)
}

func (p *ArrayParser[T]) ToLogString(v []T, format LogFormat) string {
	return BuildLogValue(p.ToString(v), format)
}
