package parser

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// KeyFormat is a case transformation applied to object keys.
type KeyFormat string

const (
	KeyAsIs   KeyFormat = ""
	KeyUpper  KeyFormat = "UPPERCASE"
	KeyLower  KeyFormat = "lowercase"
	KeyCamel  KeyFormat = "camelCase"
	KeyPascal KeyFormat = "PascalCase"
)

// ParseKeyFormat converts a name to a KeyFormat.
func ParseKeyFormat(s string) (KeyFormat, error) {
	switch strings.ToLower(s) {
	case "":
		return KeyAsIs, nil
	case "uppercase", "upper":
		return KeyUpper, nil
	case "lowercase", "lower":
		return KeyLower, nil
	case "camelcase", "camel":
		return KeyCamel, nil
	case "pascalcase", "pascal":
		return KeyPascal, nil
	default:
		return "", fmt.Errorf("unknown key format %q", s)
	}
}

// FormatKey applies format to key. Camel and Pascal only change the first
// character.
func FormatKey(key string, format KeyFormat) string {
	switch format {
	case KeyUpper:
		return cases.Upper(language.Und).String(key)
	case KeyLower:
		return cases.Lower(language.Und).String(key)
	case KeyCamel:
		return mapFirst(key, unicode.ToLower)
	case KeyPascal:
		return mapFirst(key, unicode.ToUpper)
	default:
		return key
	}
}

func mapFirst(s string, fn func(rune) rune) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(fn(r)) + s[size:]
}
