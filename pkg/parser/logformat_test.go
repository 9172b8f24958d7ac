package parser

import (
	"strings"
	"testing"
)

func TestBuildLogValue(t *testing.T) {
	const alphabet = "abcdefghijklmnopqrstuvwxyz"

	tests := []struct {
		name   string
		value  string
		format LogFormat
		want   string
	}{
		{"plain", alphabet, LogPlain, alphabet},
		{"hidden", alphabet, LogHidden, ""},
		{"masked", alphabet, LogMasked, strings.Repeat("*", 26)},
		{"prefix", alphabet, LogPrefix, "abc" + strings.Repeat("*", 23)},
		{"suffix", alphabet, LogSuffix, strings.Repeat("*", 23) + "xyz"},
		{"partial", alphabet, LogPartial, "ab" + strings.Repeat("*", 22) + "yz"},
		{"prefix short", "secret", LogPrefix, "s*****"},
		{"suffix short", "secret", LogSuffix, "*****t"},
		{"partial short", "secret", LogPartial, "s****t"},
		{"partial two chars", "ab", LogPartial, "**"},
		{"prefix single char", "a", LogPrefix, "a"},
		{"empty", "", LogMasked, ""},
		{"unicode", "päßwörd", LogMasked, "*******"},
		{"unknown format", "value", LogFormat("other"), "value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := BuildLogValue(tt.value, tt.format); got != tt.want {
				t.Errorf("BuildLogValue(%q, %s) = %q, want %q", tt.value, tt.format, got, tt.want)
			}
		})
	}
}

func TestParseLogFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    LogFormat
		wantErr bool
	}{
		{"", LogPlain, false},
		{"plain", LogPlain, false},
		{"HIDDEN", LogHidden, false},
		{" partial ", LogPartial, false},
		{"redacted", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLogFormat(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLogFormat(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLogFormat(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestFormatKey(t *testing.T) {
	tests := []struct {
		key    string
		format KeyFormat
		want   string
	}{
		{"apiKey", KeyUpper, "APIKEY"},
		{"ApiKey", KeyLower, "apikey"},
		{"ApiKey", KeyCamel, "apiKey"},
		{"apiKey", KeyPascal, "ApiKey"},
		{"apiKey", KeyAsIs, "apiKey"},
		{"", KeyPascal, ""},
	}

	for _, tt := range tests {
		t.Run(string(tt.format)+"/"+tt.key, func(t *testing.T) {
			if got := FormatKey(tt.key, tt.format); got != tt.want {
				t.Errorf("FormatKey(%q, %q) = %q, want %q", tt.key, tt.format, got, tt.want)
			}
		})
	}
}

func TestParseKeyFormat(t *testing.T) {
	if f, err := ParseKeyFormat("camelCase"); err != nil || f != KeyCamel {
		t.Errorf("ParseKeyFormat(camelCase) = %q, %v", f, err)
	}
	if _, err := ParseKeyFormat("snake"); err == nil {
		t.Error("ParseKeyFormat(snake) error = nil, want error")
	}
}
