package loader

import (
	"context"
	"fmt"

	"github.com/yndnr/confkit-go/pkg/loadable"
	"github.com/yndnr/confkit-go/pkg/logger"
	"github.com/yndnr/confkit-go/pkg/metric"
)

// ValueResult is a raw lookup result with its provenance.
type ValueResult struct {
	Value string
	Found bool
	// Path names the physical location that was consulted.
	Path string
}

// Loader supplies raw values for lookup keys from one backing source.
type Loader interface {
	// Type is a short lowercase tag used in logs and as the source label.
	Type() string
	// ValueResult returns nil, nil when the loader is disabled.
	ValueResult(ctx context.Context, key string) (*ValueResult, error)
	Disabled(ctx context.Context) (bool, error)
}

// Initializer is implemented by loaders that accept a logger and announce
// their state once before first use.
type Initializer interface {
	Init(ctx context.Context, l logger.Logger) error
}

// Notifying is implemented by loaders that publish content changes.
type Notifying interface {
	OnUpdate(fn func()) Subscription
}

// LookupFunc performs the backend lookup for an already-renamed key.
type LookupFunc func(ctx context.Context, key string) (*ValueResult, error)

// Options are shared by every loader.
type Options struct {
	Disabled     loadable.Loadable[bool]
	OverrideKeys map[string]string
	Logger       logger.Logger
	Metrics      *metric.Recorder
	LogLevels    logger.LevelMap
}

// Option configures a loader.
type Option func(*Options)

// WithDisabled sets the disabled flag, which is resolved on every lookup.
func WithDisabled(d loadable.Loadable[bool]) Option {
	return func(o *Options) {
		o.Disabled = d
	}
}

// WithOverrideKeys renames canonical keys for this loader only.
func WithOverrideKeys(keys map[string]string) Option {
	return func(o *Options) {
		o.OverrideKeys = keys
	}
}

// WithLogger sets the loader logger. Without it the loader adopts the
// logger passed to Init, falling back to logger.Default.
func WithLogger(l logger.Logger) Option {
	return func(o *Options) {
		o.Logger = l
	}
}

// WithMetrics records backend loads in r.
func WithMetrics(r *metric.Recorder) Option {
	return func(o *Options) {
		o.Metrics = r
	}
}

// WithLogLevels overrides the level of individual log events.
func WithLogLevels(levels logger.LevelMap) Option {
	return func(o *Options) {
		o.LogLevels = levels
	}
}

// NewOptions applies opts over the defaults.
func NewOptions(opts ...Option) Options {
	var o Options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Base implements Loader on top of a LookupFunc.
type Base struct {
	loaderType string
	opts       Options
	lookup     LookupFunc
}

// NewBase creates a Base loader.
func NewBase(loaderType string, lookup LookupFunc, opts ...Option) *Base {
	return &Base{
		loaderType: loaderType,
		opts:       NewOptions(opts...),
		lookup:     lookup,
	}
}

// Type returns the loader type.
func (b *Base) Type() string {
	return b.loaderType
}

// Options returns the resolved loader options.
func (b *Base) Options() Options {
	return b.opts
}

// Disabled resolves the disabled flag.
func (b *Base) Disabled(ctx context.Context) (bool, error) {
	disabled, err := loadable.Resolve(ctx, b.opts.Disabled)
	if err != nil {
		return false, fmt.Errorf("resolve disabled flag of %s loader: %w", b.loaderType, err)
	}
	return disabled, nil
}

// LookupKey returns the backend name of key.
func (b *Base) LookupKey(key string) string {
	if k, ok := b.opts.OverrideKeys[key]; ok && k != "" {
		return k
	}
	return key
}

// ValueResult implements Loader.
func (b *Base) ValueResult(ctx context.Context, key string) (*ValueResult, error) {
	disabled, err := b.Disabled(ctx)
	if err != nil {
		return nil, err
	}
	if disabled {
		return nil, nil
	}
	return b.lookup(ctx, b.LookupKey(key))
}

// Message formats a loader diagnostic.
func (b *Base) Message(format string, args ...any) string {
	return fmt.Sprintf("ConfigLoader[%s]: ", b.loaderType) + fmt.Sprintf(format, args...)
}
