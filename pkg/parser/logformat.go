package parser

import (
	"fmt"
	"math"
	"strings"
)

// LogFormat selects how a value is rendered in logs.
type LogFormat string

const (
	// LogPlain logs the value unchanged.
	LogPlain LogFormat = "plain"
	// LogHidden renders nothing; callers omit the value from the line.
	LogHidden LogFormat = "hidden"
	// LogMasked replaces every character with '*'.
	LogMasked LogFormat = "masked"
	// LogPrefix keeps a few leading characters.
	LogPrefix LogFormat = "prefix"
	// LogSuffix keeps a few trailing characters.
	LogSuffix LogFormat = "suffix"
	// LogPartial keeps a few characters at both ends.
	LogPartial LogFormat = "partial"
)

// ParseLogFormat converts a name to a LogFormat. The empty string is LogPlain.
func ParseLogFormat(s string) (LogFormat, error) {
	switch f := LogFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return LogPlain, nil
	case LogPlain, LogHidden, LogMasked, LogPrefix, LogSuffix, LogPartial:
		return f, nil
	default:
		return "", fmt.Errorf("unknown log format %q", s)
	}
}

// visibleCount is the number of characters a redacted rendering may reveal.
func visibleCount(n int) int {
	return min(3, max(1, int(math.Floor(float64(n)*0.2))))
}

func stars(n int) string {
	return strings.Repeat("*", max(0, n))
}

// BuildLogValue redacts value according to format.
func BuildLogValue(value string, format LogFormat) string {
	if value == "" {
		return ""
	}
	runes := []rune(value)
	n := len(runes)

	switch format {
	case LogHidden:
		return ""
	case LogMasked:
		return stars(n)
	case LogPrefix:
		visible := min(visibleCount(n), n)
		return string(runes[:visible]) + stars(n-visible)
	case LogSuffix:
		visible := min(visibleCount(n), n)
		return stars(n-visible) + string(runes[n-visible:])
	case LogPartial:
		half := max(1, int(math.Ceil(float64(visibleCount(n))/2)))
		if half*2 >= n {
			return stars(n)
		}
		return string(runes[:half]) + stars(n-half*2) + string(runes[n-half:])
	default:
		return value
	}
}
