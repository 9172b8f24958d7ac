package parser

import (
	"context"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/yndnr/confkit-go/pkg/errs"
)

// StringParser returns the raw value, optionally checked by rules.
type StringParser struct {
	rules []Rule[string]
}

// String creates a string parser.
func String(rules ...Rule[string]) *StringParser {
	return &StringParser{rules: rules}
}

func (p *StringParser) Name() string { return "String" }

func (p *StringParser) Parse(ctx context.Context, raw string) (string, error) {
	if err := applyRules(ctx, p.Name(), raw, p.rules); err != nil {
		return "", err
	}
	return raw, nil
}

func (p *StringParser) ToString(v string) string { return v }

func (p *StringParser) ToLogString(v string, format LogFormat) string {
	return BuildLogValue(v, format)
}

// BoolParser accepts true/1/yes/y/on and false/0/no/n/off, case-insensitively.
// Surrounding whitespace is rejected.
type BoolParser struct{}

// Boolean creates a boolean parser.
func Boolean() *BoolParser {
	return &BoolParser{}
}

func (p *BoolParser) Name() string { return "Boolean" }

func (p *BoolParser) Parse(_ context.Context, raw string) (bool, error) {
	switch strings.ToLower(raw) {
	case "true", "1", "yes", "y", "on":
		return true, nil
	case "false", "0", "no", "n", "off":
		return false, nil
	default:
		return false, errs.InvalidValue(p.Name(), raw)
	}
}

func (p *BoolParser) ToString(v bool) string { return strconv.FormatBool(v) }

func (p *BoolParser) ToLogString(v bool, format LogFormat) string {
	return BuildLogValue(p.ToString(v), format)
}

// IntParser reads the leading base-10 integer of the input, so "3.14" is 3
// and "8080/tcp" is 8080. Input without leading digits is rejected.
type IntParser struct {
	rules []Rule[int]
}

// Integer creates an integer parser.
func Integer(rules ...Rule[int]) *IntParser {
	return &IntParser{rules: rules}
}

func (p *IntParser) Name() string { return "Integer" }

func (p *IntParser) Parse(ctx context.Context, raw string) (int, error) {
	s := strings.TrimLeftFunc(raw, unicode.IsSpace)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, errs.InvalidValue(p.Name(), raw)
	}

	v, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, errs.InvalidValue(p.Name(), raw).WithCause(err)
	}
	if err := applyRules(ctx, p.Name(), v, p.rules); err != nil {
		return 0, err
	}
	return v, nil
}

func (p *IntParser) ToString(v int) string { return strconv.Itoa(v) }

func (p *IntParser) ToLogString(v int, format LogFormat) string {
	return BuildLogValue(p.ToString(v), format)
}

var floatPrefix = regexp.MustCompile(`^[+-]?(?:Infinity|(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)`)

// FloatParser reads the leading decimal number of the input, including
// exponent notation ("1e5" is 100000).
type FloatParser struct {
	rules []Rule[float64]
}

// Float creates a float parser.
func Float(rules ...Rule[float64]) *FloatParser {
	return &FloatParser{rules: rules}
}

func (p *FloatParser) Name() string { return "Float" }

func (p *FloatParser) Parse(ctx context.Context, raw string) (float64, error) {
	m := floatPrefix.FindString(strings.TrimLeftFunc(raw, unicode.IsSpace))
	if m == "" {
		return 0, errs.InvalidValue(p.Name(), raw)
	}
	m = strings.Replace(m, "Infinity", "Inf", 1)

	v, err := strconv.ParseFloat(m, 64)
	if err != nil && !math.IsInf(v, 0) {
		return 0, errs.InvalidValue(p.Name(), raw).WithCause(err)
	}
	if err := applyRules(ctx, p.Name(), v, p.rules); err != nil {
		return 0, err
	}
	return v, nil
}

func (p *FloatParser) ToString(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	case math.Abs(v) < 1e21:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return strconv.FormatFloat(v, 'g', -1, 64)
	}
}

func (p *FloatParser) ToLogString(v float64, format LogFormat) string {
	return BuildLogValue(p.ToString(v), format)
}

// BigIntParser accepts arbitrary-precision integers in decimal or with a
// 0x, 0o or 0b prefix. Fractions are rejected.
type BigIntParser struct{}

// BigInt creates a big integer parser.
func BigInt() *BigIntParser {
	return &BigIntParser{}
}

func (p *BigIntParser) Name() string { return "BigInt" }

func (p *BigIntParser) Parse(_ context.Context, raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(raw), 0)
	if !ok {
		return nil, errs.InvalidValue(p.Name(), raw)
	}
	return v, nil
}

func (p *BigIntParser) ToString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}

func (p *BigIntParser) ToLogString(v *big.Int, format LogFormat) string {
	return BuildLogValue(p.ToString(v), format)
}
