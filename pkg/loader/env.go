package loader

import (
	"context"
	"os"
)

// EnvConfig configures an EnvLoader.
type EnvConfig struct {
	// Prefix is prepended to every variable name, e.g. "REACT_APP_".
	Prefix string
	// LookupEnv replaces os.LookupEnv.
	LookupEnv func(key string) (string, bool)
}

// EnvLoader reads process environment variables. It never caches.
type EnvLoader struct {
	*Base
	prefix    string
	lookupEnv func(string) (string, bool)
}

// NewEnvLoader creates an environment loader. Its type is "env", or
// "prefixed-env" when a prefix is set.
func NewEnvLoader(cfg EnvConfig, opts ...Option) *EnvLoader {
	l := &EnvLoader{
		prefix:    cfg.Prefix,
		lookupEnv: cfg.LookupEnv,
	}
	if l.lookupEnv == nil {
		l.lookupEnv = os.LookupEnv
	}

	loaderType := "env"
	if l.prefix != "" {
		loaderType = "prefixed-env"
	}
	l.Base = NewBase(loaderType, l.lookup, opts...)
	return l
}

func (l *EnvLoader) lookup(_ context.Context, key string) (*ValueResult, error) {
	name := l.prefix + key
	v, ok := l.lookupEnv(name)
	return &ValueResult{Value: v, Found: ok, Path: "env:" + name}, nil
}
