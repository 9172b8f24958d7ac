package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/yndnr/confkit-go/pkg/errs"
)

// ObjectOption configures the JSON and SemiColon parsers.
type ObjectOption[T any] func(*objectConfig[T])

type objectConfig[T any] struct {
	rules     []Rule[T]
	protected []string
	keyFormat KeyFormat
}

// WithRules adds validation rules applied after decoding.
func WithRules[T any](rules ...Rule[T]) ObjectOption[T] {
	return func(c *objectConfig[T]) {
		c.rules = append(c.rules, rules...)
	}
}

// WithProtectedKeys lists object keys whose values are redacted in logs.
func WithProtectedKeys[T any](keys ...string) ObjectOption[T] {
	return func(c *objectConfig[T]) {
		c.protected = append(c.protected, keys...)
	}
}

// WithKeyFormat sets the case transformation for SemiColon keys.
func WithKeyFormat[T any](f KeyFormat) ObjectOption[T] {
	return func(c *objectConfig[T]) {
		c.keyFormat = f
	}
}

func newObjectConfig[T any](opts []ObjectOption[T]) objectConfig[T] {
	var cfg objectConfig[T]
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// protectedLogString renders v as a JSON object with the protected keys
// redacted. Values that are not objects are redacted as a whole.
func protectedLogString(v any, protected []string, format LogFormat) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return BuildLogValue(fmt.Sprint(v), format)
	}

	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return BuildLogValue(string(raw), format)
	}
	for _, key := range protected {
		val, ok := obj[key]
		if !ok || val == nil {
			continue
		}
		s, isString := val.(string)
		if !isString {
			b, _ := json.Marshal(val)
			s = string(b)
		}
		obj[key] = BuildLogValue(s, format)
	}

	out, err := json.Marshal(obj)
	if err != nil {
		return BuildLogValue(string(raw), format)
	}
	return string(out)
}

// JSONParser decodes JSON documents into T.
type JSONParser[T any] struct {
	cfg objectConfig[T]
}

// JSON creates a JSON parser.
func JSON[T any](opts ...ObjectOption[T]) *JSONParser[T] {
	return &JSONParser[T]{cfg: newObjectConfig(opts)}
}

func (p *JSONParser[T]) Name() string { return "JSON" }

func (p *JSONParser[T]) Parse(ctx context.Context, raw string) (T, error) {
	var v T
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	if err := dec.Decode(&v); err != nil {
		var zero T
		return zero, errs.InvalidValue(p.Name(), raw).WithCause(err)
	}
	if dec.More() {
		var zero T
		return zero, errs.InvalidValue(p.Name(), raw).WithDetails("trailing data")
	}
	if err := applyRules(ctx, p.Name(), v, p.cfg.rules); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

func (p *JSONParser[T]) ToString(v T) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

func (p *JSONParser[T]) ToLogString(v T, format LogFormat) string {
	return protectedLogString(v, p.cfg.protected, format)
}

// ParseSemiColon splits "k1=v1;k2;k3=v3" into a map. A key without '='
// maps to "true", keys and values are trimmed, values are URI-decoded and
// empty keys are dropped.
func ParseSemiColon(raw string, format KeyFormat) (map[string]string, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, DefaultSeparator) {
		k, v, found := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if k == "" {
			continue
		}
		if !found {
			out[FormatKey(k, format)] = "true"
			continue
		}
		decoded, err := url.PathUnescape(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("decode value of %q: %w", k, err)
		}
		out[FormatKey(k, format)] = decoded
	}
	return out, nil
}

// SemiColonParser decodes "k=v;..." strings into T. T is either
// map[string]string or a type JSON-decodable from one.
type SemiColonParser[T any] struct {
	cfg objectConfig[T]
}

// SemiColon creates a semicolon parser for T.
func SemiColon[T any](opts ...ObjectOption[T]) *SemiColonParser[T] {
	return &SemiColonParser[T]{cfg: newObjectConfig(opts)}
}

// SemiColonMap creates a semicolon parser producing plain maps.
func SemiColonMap(opts ...ObjectOption[map[string]string]) *SemiColonParser[map[string]string] {
	return SemiColon(opts...)
}

func (p *SemiColonParser[T]) Name() string { return "SemiColon" }

func (p *SemiColonParser[T]) Parse(ctx context.Context, raw string) (T, error) {
	var zero T
	m, err := ParseSemiColon(raw, p.cfg.keyFormat)
	if err != nil {
		return zero, errs.InvalidValue(p.Name(), raw).WithCause(err)
	}

	var v T
	if direct, ok := any(&v).(*map[string]string); ok {
		*direct = m
	} else {
		b, err := json.Marshal(m)
		if err != nil {
			return zero, errs.InvalidValue(p.Name(), raw).WithCause(err)
		}
		if err := json.Unmarshal(b, &v); err != nil {
			return zero, errs.InvalidValue(p.Name(), raw).WithCause(err)
		}
	}

	if err := applyRules(ctx, p.Name(), v, p.cfg.rules); err != nil {
		return zero, err
	}
	return v, nil
}

func (p *SemiColonParser[T]) ToString(v T) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return ""
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		val := m[k]
		if val == nil {
			continue
		}
		s, ok := val.(string)
		if !ok {
			raw, _ := json.Marshal(val)
			s = string(raw)
		}
		parts = append(parts, k+"="+url.PathEscape(s))
	}
	return strings.Join(parts, DefaultSeparator)
}

func (p *SemiColonParser[T]) ToLogString(v T, format LogFormat) string {
	return protectedLogString(v, p.cfg.protected, format)
}
