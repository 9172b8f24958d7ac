package confkit

import (
	"context"

	"github.com/yndnr/confkit-go/pkg/loadable"
	"github.com/yndnr/confkit-go/pkg/parser"
)

// Schema maps every configuration key to its declaration.
type Schema map[string]FieldSpec

// FieldSpec is a schema entry. It is implemented by Field.
type FieldSpec interface {
	spec() fieldSpec
}

// Field declares one typed key.
type Field[T any] struct {
	Parser parser.Parser[T]
	// Default is used when no loader has a value. A deferred default is
	// computed on every resolution that needs it.
	Default loadable.Loadable[T]
	// Required keys without a value and without a default fail to resolve.
	Required bool
	// LogFormat controls how the value is rendered in resolution logs.
	LogFormat parser.LogFormat
}

type fieldSpec struct {
	typeName   string
	hasParser  bool
	required   bool
	logFormat  parser.LogFormat
	parse      func(ctx context.Context, raw string) (any, error)
	toString   func(v any) string
	toLog      func(v any, f parser.LogFormat) string
	defaultVal func(ctx context.Context) (any, error)
}

func (f Field[T]) spec() fieldSpec {
	s := fieldSpec{
		hasParser: f.Parser != nil,
		required:  f.Required,
		logFormat: f.LogFormat,
	}
	if s.logFormat == "" {
		s.logFormat = parser.LogPlain
	}
	if f.Parser == nil {
		return s
	}

	p := f.Parser
	s.typeName = p.Name()
	s.parse = func(ctx context.Context, raw string) (any, error) {
		return p.Parse(ctx, raw)
	}
	s.toString = func(v any) string {
		tv, ok := v.(T)
		if !ok {
			return ""
		}
		return p.ToString(tv)
	}
	s.toLog = func(v any, format parser.LogFormat) string {
		tv, ok := v.(T)
		if !ok {
			return ""
		}
		return p.ToLogString(tv, format)
	}
	if f.Default != nil {
		d := f.Default
		s.defaultVal = func(ctx context.Context) (any, error) {
			return d.Resolve(ctx)
		}
	}
	return s
}
