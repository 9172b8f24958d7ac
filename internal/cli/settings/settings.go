package settings

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/multierr"

	"github.com/yndnr/confkit-go/internal/infra/confloader"
	"github.com/yndnr/confkit-go/pkg/parser"
)

// Loader types accepted in the settings file.
const (
	LoaderEnv        = "env"
	LoaderDotenv     = "dotenv"
	LoaderJSON       = "json"
	LoaderYAML       = "yaml"
	LoaderMemory     = "memory"
	LoaderFetch      = "fetch"
	LoaderSecretsDir = "secrets-dir"
	LoaderStore      = "store"
)

// Key types accepted in the settings file.
const (
	TypeString      = "string"
	TypeBool        = "bool"
	TypeInt         = "int"
	TypeFloat       = "float"
	TypeBigInt      = "bigint"
	TypeURL         = "url"
	TypeJSON        = "json"
	TypeSemiColon   = "semicolon"
	TypeStringArray = "string-array"
	TypeIntArray    = "int-array"
)

// Settings is the CLI settings file.
type Settings struct {
	Namespace string `koanf:"namespace"`
	// LoaderErrors is "log" (default) or "throw".
	LoaderErrors string                 `koanf:"loader_errors" validate:"omitempty,oneof=log throw"`
	Log          LogSettings            `koanf:"log"`
	Loaders      []LoaderSettings       `koanf:"loaders" validate:"required,min=1,dive"`
	Keys         map[string]KeySettings `koanf:"keys" validate:"required,min=1,dive"`
}

// LogSettings configures the CLI logger.
type LogSettings struct {
	Level  string `koanf:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `koanf:"format" validate:"omitempty,oneof=text json"`
}

// LoaderSettings declares one loader. Which fields apply depends on Type.
type LoaderSettings struct {
	Type         string            `koanf:"type" validate:"required,oneof=env dotenv json yaml memory fetch secrets-dir store"`
	Disabled     bool              `koanf:"disabled"`
	OverrideKeys map[string]string `koanf:"override_keys"`

	// env
	Prefix string `koanf:"prefix"`

	// dotenv, json, yaml; store (database directory)
	Path     string `koanf:"path" validate:"required_if=Type dotenv,required_if=Type json,required_if=Type yaml"`
	Watch    bool   `koanf:"watch"`
	Optional bool   `koanf:"optional"`
	Strict   bool   `koanf:"strict"`

	// memory
	Data map[string]string `koanf:"data"`

	// fetch
	URL         string            `koanf:"url" validate:"required_if=Type fetch,omitempty,url"`
	Headers     map[string]string `koanf:"headers"`
	MinInterval time.Duration     `koanf:"min_interval"`
	Retries     int               `koanf:"retries" validate:"gte=0"`
	CAFile      string            `koanf:"ca_file"`
	CertFile    string            `koanf:"cert_file" validate:"required_with=KeyFile"`
	KeyFile     string            `koanf:"key_file" validate:"required_with=CertFile"`
	Insecure    bool              `koanf:"insecure"`

	// secrets-dir
	Dir   string   `koanf:"dir"`
	Names []string `koanf:"names"`
	Lower bool     `koanf:"lower"`

	// store
	InMemory bool   `koanf:"in_memory"`
	Cipher   string `koanf:"cipher" validate:"omitempty,oneof=aes-gcm chacha20-poly1305 auto"`
	// KeyEnv names the environment variable holding the hex cipher key.
	KeyEnv string `koanf:"key_env" validate:"required_with=Cipher"`
}

// KeySettings declares one schema key.
type KeySettings struct {
	Type          string   `koanf:"type" validate:"omitempty,oneof=string bool int float bigint url json semicolon string-array int-array"`
	Default       *string  `koanf:"default"`
	Required      bool     `koanf:"required"`
	LogFormat     string   `koanf:"log_format" validate:"omitempty,oneof=plain hidden masked prefix suffix partial"`
	Separator     string   `koanf:"separator"`
	KeyFormat     string   `koanf:"key_format"`
	ProtectedKeys []string `koanf:"protected_keys"`
}

// Load reads the settings file at path, layers CONFKIT_* environment
// variables over it and validates the result.
func Load(path string) (*Settings, error) {
	l := confloader.NewLoader(confloader.WithConfigFile(path))

	var s Settings
	if err := l.Load(&s); err != nil {
		return nil, fmt.Errorf("load settings %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("invalid settings %s: %w", path, err)
	}
	return &s, nil
}

// Validate checks the settings. All problems are reported together.
func (s *Settings) Validate() error {
	if err := validator.New().Struct(s); err != nil {
		return err
	}

	var errs error
	for key, ks := range s.Keys {
		if ks.Required && ks.Default != nil {
			errs = multierr.Append(errs, fmt.Errorf("key %s: required keys cannot have a default", key))
		}
		if _, err := parser.ParseKeyFormat(ks.KeyFormat); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("key %s: %w", key, err))
		}
	}
	return errs
}
