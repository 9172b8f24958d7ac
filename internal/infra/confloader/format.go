package confloader

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/knadh/koanf/parsers/dotenv"
	kjson "github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Format is a configuration document format.
type Format string

// Supported formats.
const (
	FormatYAML   Format = "yaml"
	FormatJSON   Format = "json"
	FormatDotenv Format = "dotenv"
)

// DetectFormat guesses the format of path from its name. Anything that is
// not recognizably YAML or JSON is read as dotenv.
func DetectFormat(path string) Format {
	base := strings.ToLower(filepath.Base(path))
	switch filepath.Ext(base) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	}
	return FormatDotenv
}

// ParseFormat validates a format name. "" and "auto" yield "".
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(s)); f {
	case "", "auto":
		return "", nil
	case FormatYAML, FormatJSON, FormatDotenv:
		return f, nil
	case "yml":
		return FormatYAML, nil
	case "env":
		return FormatDotenv, nil
	}
	return "", fmt.Errorf("unknown file format %q", s)
}

// Parser returns the koanf parser for f.
func Parser(f Format) (koanf.Parser, error) {
	switch f {
	case FormatYAML:
		return yaml.Parser(), nil
	case FormatJSON:
		return kjson.Parser(), nil
	case FormatDotenv:
		return dotenv.Parser(), nil
	}
	return nil, fmt.Errorf("unknown file format %q", f)
}

// ReadFile reads and parses the document at path. An empty format is
// detected from the file name.
func ReadFile(path string, format Format) (map[string]any, error) {
	if format == "" {
		format = DetectFormat(path)
	}
	p, err := Parser(format)
	if err != nil {
		return nil, err
	}

	raw, err := file.Provider(path).ReadBytes()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	data, err := p.Unmarshal(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s as %s: %w", path, format, err)
	}
	return data, nil
}

// Stringify converts the top level of a parsed document into string
// values. Scalars use their natural text form, nested values are encoded
// as JSON and nulls are dropped.
func Stringify(data map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(data))
	for k, v := range data {
		switch tv := v.(type) {
		case nil:
			continue
		case string:
			out[k] = tv
		case bool:
			out[k] = strconv.FormatBool(tv)
		case int:
			out[k] = strconv.Itoa(tv)
		case int64:
			out[k] = strconv.FormatInt(tv, 10)
		case uint64:
			out[k] = strconv.FormatUint(tv, 10)
		case float64:
			out[k] = strconv.FormatFloat(tv, 'f', -1, 64)
		default:
			b, err := json.Marshal(normalize(v))
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", k, err)
			}
			out[k] = string(b)
		}
	}
	return out, nil
}

// normalize rewrites map[any]any, which encoding/json rejects, into
// map[string]any.
func normalize(v any) any {
	switch tv := v.(type) {
	case map[any]any:
		m := make(map[string]any, len(tv))
		for k, e := range tv {
			m[fmt.Sprint(k)] = normalize(e)
		}
		return m
	case map[string]any:
		m := make(map[string]any, len(tv))
		for k, e := range tv {
			m[k] = normalize(e)
		}
		return m
	case []any:
		s := make([]any, len(tv))
		for i, e := range tv {
			s[i] = normalize(e)
		}
		return s
	}
	return v
}
