package confloader

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// DefaultEnvPrefix is the default environment variable prefix.
const DefaultEnvPrefix = "CONFKIT_"

// Loader layers settings from a file, the environment and maps.
type Loader struct {
	k          *koanf.Koanf
	envPrefix  string
	filePath   string
	fileFormat Format
	loaded     bool
}

// Option configures a Loader.
type Option func(*Loader)

// WithEnvPrefix sets the environment variable prefix. An empty prefix
// disables environment loading.
func WithEnvPrefix(prefix string) Option {
	return func(l *Loader) {
		l.envPrefix = prefix
	}
}

// WithConfigFile sets the settings file and, optionally, its format.
func WithConfigFile(path string, format ...Format) Option {
	return func(l *Loader) {
		l.filePath = path
		if len(format) > 0 {
			l.fileFormat = format[0]
		}
	}
}

// NewLoader creates a settings loader.
func NewLoader(opts ...Option) *Loader {
	l := &Loader{
		k:         koanf.New("."),
		envPrefix: DefaultEnvPrefix,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load reads the settings file and the environment, then unmarshals the
// result into target.
func (l *Loader) Load(target any) error {
	if l.filePath != "" {
		if err := l.LoadFile(l.filePath, l.fileFormat); err != nil {
			return err
		}
	}

	if err := l.LoadEnv(); err != nil {
		return err
	}

	if err := l.Unmarshal(target); err != nil {
		return fmt.Errorf("unmarshal settings: %w", err)
	}

	l.loaded = true
	return nil
}

// LoadFile merges the document at path. An empty format is detected from
// the file name.
func (l *Loader) LoadFile(path string, format Format) error {
	if path == "" {
		return nil
	}
	if format == "" {
		format = DetectFormat(path)
	}
	p, err := Parser(format)
	if err != nil {
		return err
	}

	if err := l.k.Load(file.Provider(path), p); err != nil {
		return fmt.Errorf("load file %s: %w", path, err)
	}
	return nil
}

// LoadEnv merges environment variables. CONFKIT_CACHE_TTL becomes
// cache.ttl.
func (l *Loader) LoadEnv() error {
	if l.envPrefix == "" {
		return nil
	}

	transform := func(s string) string {
		s = strings.TrimPrefix(s, l.envPrefix)
		s = strings.ToLower(s)
		return strings.ReplaceAll(s, "_", ".")
	}

	if err := l.k.Load(env.Provider(l.envPrefix, ".", transform), nil); err != nil {
		return fmt.Errorf("load env: %w", err)
	}
	return nil
}

// LoadMap merges data. Keys may be dotted paths.
func (l *Loader) LoadMap(data map[string]any) error {
	if err := l.k.Load(mapProvider(data), nil); err != nil {
		return fmt.Errorf("load map: %w", err)
	}
	return nil
}

// Unmarshal decodes the merged settings into target using koanf tags.
func (l *Loader) Unmarshal(target any) error {
	return l.k.Unmarshal("", target)
}

// Get returns the value at a dotted path.
func (l *Loader) Get(path string) any {
	return l.k.Get(path)
}

// GetString returns the string at a dotted path.
func (l *Loader) GetString(path string) string {
	return l.k.String(path)
}

// GetInt returns the int at a dotted path.
func (l *Loader) GetInt(path string) int {
	return l.k.Int(path)
}

// GetBool returns the bool at a dotted path.
func (l *Loader) GetBool(path string) bool {
	return l.k.Bool(path)
}

// IsLoaded reports whether Load has completed.
func (l *Loader) IsLoaded() bool {
	return l.loaded
}

// All returns the merged settings flattened to dotted paths.
func (l *Loader) All() map[string]any {
	return l.k.All()
}

// Keys returns the flattened dotted paths.
func (l *Loader) Keys() []string {
	return l.k.Keys()
}
