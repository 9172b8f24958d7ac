package confkit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"reflect"
	"slices"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"

	"github.com/yndnr/confkit-go/pkg/errs"
	"github.com/yndnr/confkit-go/pkg/loader"
	"github.com/yndnr/confkit-go/pkg/logger"
	"github.com/yndnr/confkit-go/pkg/metric"
	"github.com/yndnr/confkit-go/pkg/parser"
)

// LoaderErrorPolicy decides what a loader failure does to a resolution.
type LoaderErrorPolicy int

const (
	// LoaderErrorsLog logs the failure and moves on to the next loader.
	LoaderErrorsLog LoaderErrorPolicy = iota
	// LoaderErrorsThrow fails the resolution with the loader error.
	LoaderErrorsThrow
)

// Entry is a resolved key with its provenance.
type Entry struct {
	Key string `json:"key"`
	// LoaderType is empty for defaults and absent values.
	LoaderType string `json:"loader,omitempty"`
	Path       string `json:"path,omitempty"`
	Value      any    `json:"value,omitempty"`
	Found      bool   `json:"found"`
	Default    bool   `json:"default,omitempty"`
}

// ResultEntry is one loader's raw answer for a key.
type ResultEntry struct {
	LoaderType string `json:"loader"`
	Path       string `json:"path,omitempty"`
	Value      string `json:"value,omitempty"`
	Found      bool   `json:"found"`
	Disabled   bool   `json:"disabled,omitempty"`
	Err        error  `json:"-"`
}

// Option configures a Kit.
type Option func(*Kit)

// WithLogger sets the logger used for resolution lines and handed to
// loaders on Init.
func WithLogger(l logger.Logger) Option {
	return func(k *Kit) {
		k.logger = l
	}
}

// WithNamespace tags resolution log lines as "ConfigVariables:<ns>".
func WithNamespace(ns string) Option {
	return func(k *Kit) {
		k.namespace = ns
	}
}

// WithLoaderErrors sets the loader failure policy.
func WithLoaderErrors(p LoaderErrorPolicy) Option {
	return func(k *Kit) {
		k.loaderErrors = p
	}
}

// WithMetrics records resolutions in r.
func WithMetrics(r *metric.Recorder) Option {
	return func(k *Kit) {
		k.metrics = r
	}
}

// Kit resolves schema keys against an ordered loader list. The schema and
// the loader list are fixed at construction.
type Kit struct {
	fields       map[string]fieldSpec
	keys         []string
	loaders      []loader.Loader
	logger       logger.Logger
	namespace    string
	loaderErrors LoaderErrorPolicy
	metrics      *metric.Recorder

	initOnce sync.Once
	initErr  error
}

// New validates schema and creates a Kit.
func New(schema Schema, loaders []loader.Loader, opts ...Option) (*Kit, error) {
	k := &Kit{
		fields:  make(map[string]fieldSpec, len(schema)),
		loaders: slices.Clone(loaders),
		logger:  logger.Default(),
	}
	for _, opt := range opts {
		opt(k)
	}
	if k.logger == nil {
		k.logger = logger.Nop()
	}

	var err error
	for key, f := range schema {
		if isNilSpec(f) {
			err = multierr.Append(err, errs.SchemaConflict(key, "has no declaration"))
			continue
		}
		s := f.spec()
		switch {
		case !s.hasParser:
			err = multierr.Append(err, errs.SchemaConflict(key, "has no parser"))
			continue
		case s.required && s.defaultVal != nil:
			err = multierr.Append(err, errs.SchemaConflict(key, "is both required and defaulted"))
			continue
		}
		if _, perr := parser.ParseLogFormat(string(s.logFormat)); perr != nil {
			err = multierr.Append(err, errs.SchemaConflict(key, perr.Error()))
			continue
		}
		k.fields[key] = s
		k.keys = append(k.keys, key)
	}
	for i, l := range k.loaders {
		if l == nil {
			err = multierr.Append(err, fmt.Errorf("loader %d is nil", i))
		}
	}
	if err != nil {
		return nil, err
	}

	slices.Sort(k.keys)
	return k, nil
}

// isNilSpec also catches a nil *Field[T], whose value methods would panic.
func isNilSpec(f FieldSpec) bool {
	if f == nil {
		return true
	}
	v := reflect.ValueOf(f)
	return v.Kind() == reflect.Pointer && v.IsNil()
}

// Keys returns the declared keys in sorted order.
func (k *Kit) Keys() []string {
	return slices.Clone(k.keys)
}

// Loaders returns the loaders in query order.
func (k *Kit) Loaders() []loader.Loader {
	return slices.Clone(k.loaders)
}

func (k *Kit) prefix() string {
	if k.namespace == "" {
		return "ConfigVariables"
	}
	return "ConfigVariables:" + k.namespace
}

func (k *Kit) field(key string) (fieldSpec, error) {
	f, ok := k.fields[key]
	if !ok {
		return fieldSpec{}, errs.KeyNotDefined(key)
	}
	return f, nil
}

// GetEntry resolves key and returns the value with its provenance. A
// logger carried by ctx replaces the Kit logger for the resolution lines.
// Loaders are initialized on the first call.
func (k *Kit) GetEntry(ctx context.Context, key string) (Entry, error) {
	f, err := k.field(key)
	if err != nil {
		return Entry{}, err
	}
	_ = k.Init(ctx)
	log := logger.FromContext(ctx, k.logger)

	start := time.Now()
	entry, source, err := k.resolve(ctx, log, key, f)
	outcome := metric.OutcomeLoader
	switch {
	case err != nil:
		outcome = metric.OutcomeError
	case entry.Default:
		outcome = metric.OutcomeDefault
	case !entry.Found:
		outcome = metric.OutcomeAbsent
	}
	k.metrics.ObserveResolution(source, outcome, time.Since(start))
	if err != nil {
		return Entry{}, err
	}

	k.logEntry(log, f, entry)
	return entry, nil
}

func (k *Kit) resolve(ctx context.Context, log logger.Logger, key string, f fieldSpec) (Entry, string, error) {
	for _, l := range k.loaders {
		res, err := l.ValueResult(ctx, key)
		if err != nil {
			k.metrics.LoaderError(l.Type())
			if k.loaderErrors == LoaderErrorsThrow {
				return Entry{}, l.Type(), errs.Loader(l.Type(), key, err)
			}
			log.Warn(fmt.Sprintf("%s[%s]: loader error for %s: %v", k.prefix(), l.Type(), key, err),
				"loader", l.Type(),
				"variable", key,
			)
			continue
		}
		if res == nil || !res.Found || res.Value == "" {
			continue
		}

		v, err := f.parse(ctx, res.Value)
		if err != nil {
			return Entry{}, l.Type(), errs.InvalidKeyValue(key, err)
		}
		return Entry{
			Key:        key,
			LoaderType: l.Type(),
			Path:       res.Path,
			Value:      v,
			Found:      true,
		}, l.Type(), nil
	}

	if f.defaultVal != nil {
		v, err := f.defaultVal(ctx)
		if err != nil {
			return Entry{}, "default", errs.Loader("default", key, err)
		}
		return Entry{Key: key, Path: "key:" + key, Value: v, Found: true, Default: true}, "default", nil
	}
	if f.required {
		return Entry{}, "none", errs.MissingValue(key)
	}
	return Entry{Key: key}, "none", nil
}

func (k *Kit) logEntry(log logger.Logger, f fieldSpec, e Entry) {
	var b strings.Builder
	b.WriteString(k.prefix())
	if e.LoaderType != "" {
		b.WriteString("[" + e.LoaderType + "]")
	}
	b.WriteString(": " + e.Key)
	if e.Found && f.logFormat != parser.LogHidden {
		if s := f.toLog(e.Value, f.logFormat); s != "" {
			b.WriteString(" [" + s + "]")
		}
	}
	if e.LoaderType != "" {
		b.WriteString(" from " + e.Path)
	}
	log.Info(b.String(), "variable", e.Key)
}

// Get resolves key to its typed value, or nil when it resolves to nothing.
func (k *Kit) Get(ctx context.Context, key string) (any, error) {
	e, err := k.GetEntry(ctx, key)
	if err != nil {
		return nil, err
	}
	return e.Value, nil
}

// GetString resolves key and returns the parser's string form of the
// value, or "" when it resolves to nothing.
func (k *Kit) GetString(ctx context.Context, key string) (string, error) {
	f, err := k.field(key)
	if err != nil {
		return "", err
	}
	e, err := k.GetEntry(ctx, key)
	if err != nil || !e.Found {
		return "", err
	}
	return f.toString(e.Value), nil
}

// Render returns the parser's string form of e.Value, or "" when e holds
// no value.
func (k *Kit) Render(e Entry) string {
	f, ok := k.fields[e.Key]
	if !ok || !e.Found || f.toString == nil {
		return ""
	}
	return f.toString(e.Value)
}

// RenderLog returns e.Value as resolution logs show it.
func (k *Kit) RenderLog(e Entry) string {
	f, ok := k.fields[e.Key]
	if !ok || !e.Found || f.toLog == nil || f.logFormat == parser.LogHidden {
		return ""
	}
	return f.toLog(e.Value, f.logFormat)
}

// LogFormat returns the log format declared for key.
func (k *Kit) LogFormat(key string) (parser.LogFormat, error) {
	f, err := k.field(key)
	if err != nil {
		return "", err
	}
	return f.logFormat, nil
}

// ResultEntries enumerates each loader's raw answer for key without
// parsing. Every range over the sequence queries the loaders again.
func (k *Kit) ResultEntries(ctx context.Context, key string) (iter.Seq[ResultEntry], error) {
	if _, err := k.field(key); err != nil {
		return nil, err
	}
	_ = k.Init(ctx)
	return func(yield func(ResultEntry) bool) {
		for _, l := range k.loaders {
			e := ResultEntry{LoaderType: l.Type()}
			res, err := l.ValueResult(ctx, key)
			switch {
			case err != nil:
				e.Err = err
			case res == nil:
				e.Disabled = true
			default:
				e.Path, e.Value, e.Found = res.Path, res.Value, res.Found
			}
			if !yield(e) {
				return
			}
		}
	}, nil
}

// Check resolves every key and returns all failures combined.
func (k *Kit) Check(ctx context.Context) error {
	var err error
	for _, key := range k.keys {
		if _, rerr := k.GetEntry(ctx, key); rerr != nil {
			err = multierr.Append(err, rerr)
		}
	}
	return err
}

// Init initializes every loader that supports it with the Kit logger. It
// runs once; GetEntry and ResultEntries call it on first use, and later
// calls return the first result.
func (k *Kit) Init(ctx context.Context) error {
	k.initOnce.Do(func() {
		for _, l := range k.loaders {
			if in, ok := l.(loader.Initializer); ok {
				k.initErr = multierr.Append(k.initErr, in.Init(ctx, k.logger))
			}
		}
		if k.initErr != nil {
			k.logger.Warn(fmt.Sprintf("%s: loader init failed: %v", k.prefix(), k.initErr))
		}
	})
	return k.initErr
}

// OnUpdate subscribes fn to every loader that publishes changes.
func (k *Kit) OnUpdate(fn func()) loader.Subscription {
	var n loader.Notifier
	sub := n.OnUpdate(fn)
	group := &subscriptionGroup{Subscription: sub}
	for _, l := range k.loaders {
		if nl, ok := l.(loader.Notifying); ok {
			group.subs = append(group.subs, nl.OnUpdate(n.Notify))
		}
	}
	return group
}

type subscriptionGroup struct {
	loader.Subscription
	subs []loader.Subscription
}

func (g *subscriptionGroup) Unsubscribe() {
	for _, s := range g.subs {
		s.Unsubscribe()
	}
	g.Subscription.Unsubscribe()
}

// Close closes every loader that holds resources.
func (k *Kit) Close() error {
	var err error
	for _, l := range k.loaders {
		if c, ok := l.(io.Closer); ok {
			err = multierr.Append(err, c.Close())
		}
	}
	return err
}

// Get resolves key as a T. A key that resolves to nothing yields the zero
// value of T.
func Get[T any](ctx context.Context, k *Kit, key string) (T, error) {
	var zero T
	e, err := k.GetEntry(ctx, key)
	if err != nil || !e.Found {
		return zero, err
	}
	v, ok := e.Value.(T)
	if !ok {
		return zero, errs.TypeMismatch(key, zero, e.Value)
	}
	return v, nil
}

// MustGet is like Get but panics on error. It is meant for bootstrap code.
func MustGet[T any](ctx context.Context, k *Kit, key string) T {
	v, err := Get[T](ctx, k, key)
	if err != nil {
		panic(err)
	}
	return v
}

// IsMissing reports whether err is a missing required value error.
func IsMissing(err error) bool {
	return errors.Is(err, errs.ErrMissingValue)
}
