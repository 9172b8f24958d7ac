// Package secretloader provides a caching loader over a secret store.
//
// Only keys listed in Config.Keys are ever fetched, each under its mapped
// secret name. A failed fetch is logged and the key is served as absent.
// Successful values expire after Config.TTL and failures after
// Config.ErrorTTL; an expired key is fetched again on its next access.
package secretloader

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/quartz"

	"github.com/yndnr/confkit-go/pkg/cmap"
	"github.com/yndnr/confkit-go/pkg/loader"
)

// ErrNotFound is returned by clients for secrets that do not exist. It is
// never retried.
var ErrNotFound = errors.New("secret not found")

// Client reads secrets from a store.
type Client interface {
	// GetSecret returns the value of the named secret.
	GetSecret(ctx context.Context, name string) (string, error)
	// Location names the store in log lines, e.g. a vault URL.
	Location() string
	// Path returns the provenance path of the named secret.
	Path(name string) string
}

// Config configures a secret loader.
type Config struct {
	// Type defaults to "secrets".
	Type string
	// Keys maps lookup keys to secret names.
	Keys map[string]string
	// TTL is the lifetime of a fetched value. Zero never expires.
	TTL time.Duration
	// ErrorTTL is how long a failed fetch is remembered. Zero retries on
	// the next access.
	ErrorTTL time.Duration
	// MaxRetries bounds the retries of one fetch. ErrNotFound is never
	// retried.
	MaxRetries uint64
	// RetryInterval is the initial backoff interval.
	RetryInterval time.Duration
	// Strict fails the whole load when any secret cannot be fetched.
	Strict bool
	// Clock drives expiry.
	Clock quartz.Clock
}

// DefaultConfig returns the default retry and expiry policy.
func DefaultConfig() Config {
	return Config{
		Type:          "secrets",
		MaxRetries:    2,
		RetryInterval: 100 * time.Millisecond,
	}
}

// Loader serves secrets by lookup key.
type Loader struct {
	*loader.MapLoader
	cfg    Config
	client Client
	// expires holds the deadline of each fetched key. A zero time never
	// expires.
	expires *cmap.Map[time.Time]
}

// New creates a secret loader over client.
func New(client Client, cfg Config, opts ...loader.Option) *Loader {
	def := DefaultConfig()
	if cfg.Type == "" {
		cfg.Type = def.Type
	}
	if cfg.RetryInterval == 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	cfg.Keys = maps.Clone(cfg.Keys)

	l := &Loader{
		cfg:     cfg,
		client:  client,
		expires: cmap.New[time.Time](),
	}
	l.MapLoader = loader.NewMapLoader(cfg.Type, l.loadData, opts...)
	l.SetPathFunc(func(key string) string {
		if name, ok := l.cfg.Keys[key]; ok {
			return client.Path(name)
		}
		return "key:" + key
	})
	return l
}

// ValueResult fetches the key again when its cached entry has expired,
// then serves it from the cache.
func (l *Loader) ValueResult(ctx context.Context, key string) (*loader.ValueResult, error) {
	disabled, err := l.Disabled(ctx)
	if err != nil || disabled {
		return nil, err
	}

	lk := l.LookupKey(key)
	if l.Loaded() && l.expired(lk) {
		if err := l.refresh(ctx, lk); err != nil {
			return nil, err
		}
	}
	return l.MapLoader.ValueResult(ctx, key)
}

func (l *Loader) expired(key string) bool {
	if _, declared := l.cfg.Keys[key]; !declared {
		return false
	}
	deadline, ok := l.expires.Get(key)
	if !ok {
		return true
	}
	return !deadline.IsZero() && !l.cfg.Clock.Now().Before(deadline)
}

func (l *Loader) refresh(ctx context.Context, key string) error {
	value, err := l.fetch(ctx, l.cfg.Keys[key])
	l.remember(key, err)
	if err != nil {
		if l.cfg.Strict {
			return err
		}
		return l.Unset(ctx, key)
	}
	return l.Set(ctx, key, value)
}

func (l *Loader) loadData(ctx context.Context) (bool, error) {
	data := make(map[string]string, len(l.cfg.Keys))
	for key, name := range l.cfg.Keys {
		value, err := l.fetch(ctx, name)
		l.remember(key, err)
		if err != nil {
			if l.cfg.Strict || ctx.Err() != nil {
				return false, err
			}
			continue
		}
		data[key] = value
	}
	l.InitData(data)
	return true, nil
}

func (l *Loader) remember(key string, err error) {
	ttl := l.cfg.TTL
	if err != nil {
		ttl = l.cfg.ErrorTTL
		if ttl == 0 {
			l.expires.Delete(key)
			return
		}
	}

	var deadline time.Time
	if ttl > 0 {
		deadline = l.cfg.Clock.Now().Add(ttl)
	}
	l.expires.Set(key, deadline)
}

func (l *Loader) fetch(ctx context.Context, name string) (string, error) {
	location := l.client.Location()
	l.LogEvent(loader.EventLoad, "getting %s from %s", name, location)

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = l.cfg.RetryInterval
	eb.MaxElapsedTime = 0
	bkoff := backoff.WithContext(backoff.WithMaxRetries(eb, l.cfg.MaxRetries), ctx)

	var value string
	err := backoff.RetryNotify(func() error {
		v, err := l.client.GetSecret(ctx, name)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return backoff.Permanent(err)
			}
			return err
		}
		value = v
		return nil
	}, bkoff, func(err error, wait time.Duration) {
		l.LogEvent(loader.EventLoad, "retrying secret %s in %s: %v", name, wait, err)
	})
	if err != nil {
		l.LogEvent(loader.EventLoadError, "error loading secret %q from %s: %v", name, location, err)
		return "", fmt.Errorf("secret %s: %w", name, err)
	}

	l.LogEvent(loader.EventLoad, "loaded secret %s from %s", name, location)
	return value, nil
}
