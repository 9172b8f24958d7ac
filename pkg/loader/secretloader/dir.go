package secretloader

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/yndnr/confkit-go/pkg/loader"
)

// DirClient reads secrets from files in a directory, one file per secret,
// as mounted by Docker and Kubernetes.
type DirClient struct {
	Dir string
}

// GetSecret returns the file content without trailing line breaks.
func (c DirClient) GetSecret(_ context.Context, name string) (string, error) {
	b, err := os.ReadFile(c.Path(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", ErrNotFound
		}
		return "", err
	}
	return strings.TrimRight(string(b), "\r\n"), nil
}

// Location returns the directory.
func (c DirClient) Location() string {
	return c.Dir
}

// Path returns the file of the named secret.
func (c DirClient) Path(name string) string {
	return filepath.Join(c.Dir, name)
}

// DirConfig configures a directory secret loader.
type DirConfig struct {
	Dir string
	// Keys are served from files of the same name.
	Keys []string
	// Lower maps each key to a lower-case file name.
	Lower bool
}

// NewDirLoader creates a "docker-secrets" loader over a directory.
func NewDirLoader(cfg DirConfig, opts ...loader.Option) *Loader {
	if cfg.Dir == "" {
		cfg.Dir = "/run/secrets"
	}
	keys := make(map[string]string, len(cfg.Keys))
	for _, k := range cfg.Keys {
		name := k
		if cfg.Lower {
			name = strings.ToLower(k)
		}
		keys[k] = name
	}

	sc := DefaultConfig()
	sc.Type = "docker-secrets"
	sc.Keys = keys
	sc.MaxRetries = 0
	return New(DirClient{Dir: cfg.Dir}, sc, opts...)
}
