package loader

import (
	"context"
	"fmt"
	"maps"
	"sync"

	"github.com/yndnr/confkit-go/pkg/logger"
)

// Log events emitted by MapLoader.
const (
	EventInit      = "init"
	EventLoad      = "load"
	EventLoadError = "load-error"
	EventGet       = "get"
	EventMissing   = "missing"
	EventSet       = "set"
	EventReload    = "reload"
)

// DefaultLogLevels are the MapLoader event levels.
func DefaultLogLevels() logger.LevelMap {
	return logger.LevelMap{
		EventInit:      logger.LevelDebug,
		EventLoad:      logger.LevelDebug,
		EventLoadError: logger.LevelWarn,
		EventGet:       logger.LevelDebug,
		EventMissing:   logger.LevelDebug,
		EventSet:       logger.LevelDebug,
		EventReload:    logger.LevelInfo,
	}
}

// LoadFunc fills a MapLoader, normally by calling InitData. Returning false
// without calling InitData leaves the loader unloaded so that the next
// access tries again.
type LoadFunc func(ctx context.Context) (bool, error)

// MapLoader is a caching Loader over a key/value snapshot of its backend.
//
// The first access loads the backend exactly once; concurrent callers wait
// for that load. Reload discards the cache and loads again.
type MapLoader struct {
	*Base

	load     LoadFunc
	pathFunc func(key string) string
	log      *logger.KeyLogger
	notifier Notifier

	loadMu sync.Mutex

	mu          sync.RWMutex
	data        map[string]string
	loaded      bool
	initialized bool
}

// NewMapLoader creates a caching loader around load.
func NewMapLoader(loaderType string, load LoadFunc, opts ...Option) *MapLoader {
	m := &MapLoader{
		load: load,
		data: make(map[string]string),
	}
	m.Base = NewBase(loaderType, m.lookup, opts...)

	levels := DefaultLogLevels()
	maps.Copy(levels, m.opts.LogLevels)
	l := m.opts.Logger
	if l == nil {
		l = logger.Default()
	}
	m.log = logger.NewKeyLogger(l, levels)
	return m
}

// SetPathFunc replaces the default "key:<key>" provenance path.
func (m *MapLoader) SetPathFunc(fn func(key string) string) {
	m.pathFunc = fn
}

// Logger returns the active logger.
func (m *MapLoader) Logger() logger.Logger {
	return m.log.Logger()
}

// LogEvent logs a formatted loader diagnostic at the level of event.
func (m *MapLoader) LogEvent(event, format string, args ...any) {
	m.log.LogKey(event, m.Message(format, args...), "loader", m.loaderType)
}

func (m *MapLoader) path(key string) string {
	if m.pathFunc != nil {
		return m.pathFunc(key)
	}
	return "key:" + key
}

// Init adopts l unless a logger was configured explicitly and announces
// whether the loader is enabled. Only the first call has an effect; the
// first Get, Set, Reload or Size runs it with a nil l when nobody has.
func (m *MapLoader) Init(ctx context.Context, l logger.Logger) error {
	m.mu.Lock()
	if m.initialized {
		m.mu.Unlock()
		return nil
	}
	m.initialized = true
	m.mu.Unlock()

	if m.opts.Logger == nil && l != nil {
		m.log.SetLogger(l)
	}

	disabled, err := m.Disabled(ctx)
	if err != nil {
		return err
	}
	if disabled {
		m.LogEvent(EventInit, "loader of type %s is disabled", m.loaderType)
	} else {
		m.LogEvent(EventInit, "loader of type %s is initialized", m.loaderType)
	}
	return nil
}

// Initialized reports whether Init has run.
func (m *MapLoader) Initialized() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.initialized
}

// Loaded reports whether the cache holds a loaded snapshot.
func (m *MapLoader) Loaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// ensureInit runs Init with the configured logger when no caller has.
func (m *MapLoader) ensureInit(ctx context.Context) {
	if !m.Initialized() {
		_ = m.Init(ctx, nil)
	}
}

func (m *MapLoader) ensureLoaded(ctx context.Context) error {
	m.ensureInit(ctx)
	if m.Loaded() {
		return nil
	}
	disabled, err := m.Disabled(ctx)
	if err != nil || disabled {
		return err
	}

	m.loadMu.Lock()
	defer m.loadMu.Unlock()
	if m.Loaded() {
		return nil
	}
	return m.runLoad(ctx)
}

// runLoad must be called with loadMu held.
func (m *MapLoader) runLoad(ctx context.Context) error {
	ok, err := m.load(ctx)
	if err != nil {
		m.opts.Metrics.Load(m.loaderType, 0, err)
		m.LogEvent(EventLoadError, "load failed: %v", err)
		return fmt.Errorf("load %s loader: %w", m.loaderType, err)
	}

	m.mu.Lock()
	if ok && !m.loaded {
		m.loaded = true
	}
	size := len(m.data)
	m.mu.Unlock()

	if ok {
		m.opts.Metrics.Load(m.loaderType, size, nil)
		m.LogEvent(EventLoad, "loaded %d entries", size)
	}
	return nil
}

// InitData replaces the whole cache, marks it loaded and notifies
// subscribers.
func (m *MapLoader) InitData(data map[string]string) {
	m.mu.Lock()
	m.data = maps.Clone(data)
	if m.data == nil {
		m.data = make(map[string]string)
	}
	m.loaded = true
	m.mu.Unlock()

	m.notifier.Notify()
}

func (m *MapLoader) get(ctx context.Context, key string) (string, bool, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return "", false, err
	}

	m.mu.RLock()
	v, ok := m.data[key]
	m.mu.RUnlock()

	if ok {
		m.LogEvent(EventGet, "key %s", key)
	} else {
		m.LogEvent(EventMissing, "key %s not found", key)
	}
	return v, ok, nil
}

func (m *MapLoader) lookup(ctx context.Context, key string) (*ValueResult, error) {
	v, ok, err := m.get(ctx, key)
	if err != nil {
		return nil, err
	}
	return &ValueResult{Value: v, Found: ok, Path: m.path(key)}, nil
}

// Get returns the cached value of key, loading the backend first if needed.
// A missing key is not an error.
func (m *MapLoader) Get(ctx context.Context, key string) (string, bool, error) {
	return m.get(ctx, m.LookupKey(key))
}

// Set writes key into the cache.
func (m *MapLoader) Set(ctx context.Context, key, value string) error {
	if err := m.ensureLoaded(ctx); err != nil {
		return err
	}
	key = m.LookupKey(key)

	m.mu.Lock()
	m.data[key] = value
	m.loaded = true
	m.mu.Unlock()

	m.LogEvent(EventSet, "set key %s", key)
	m.notifier.Notify()
	return nil
}

// Unset removes key from the cache.
func (m *MapLoader) Unset(ctx context.Context, key string) error {
	if err := m.ensureLoaded(ctx); err != nil {
		return err
	}
	key = m.LookupKey(key)

	m.mu.Lock()
	delete(m.data, key)
	m.loaded = true
	m.mu.Unlock()

	m.LogEvent(EventSet, "clear key %s", key)
	m.notifier.Notify()
	return nil
}

// Clear empties the cache and keeps it marked as loaded.
func (m *MapLoader) Clear(ctx context.Context) error {
	m.ensureInit(ctx)
	m.mu.Lock()
	m.data = make(map[string]string)
	m.loaded = true
	m.mu.Unlock()

	m.LogEvent(EventSet, "clear all keys")
	m.notifier.Notify()
	return nil
}

// Reload drops the cache and loads the backend again.
func (m *MapLoader) Reload(ctx context.Context) error {
	m.ensureInit(ctx)
	m.loadMu.Lock()
	defer m.loadMu.Unlock()

	m.mu.Lock()
	m.data = make(map[string]string)
	m.loaded = false
	m.mu.Unlock()

	disabled, err := m.Disabled(ctx)
	if err != nil || disabled {
		return err
	}
	m.LogEvent(EventReload, "reloading")
	return m.runLoad(ctx)
}

// Size returns the number of cached entries.
func (m *MapLoader) Size(ctx context.Context) (int, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return 0, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data), nil
}

// Snapshot returns a copy of the cache, loading it first if needed.
func (m *MapLoader) Snapshot(ctx context.Context) (map[string]string, error) {
	if err := m.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return maps.Clone(m.data), nil
}

// OnUpdate subscribes fn to cache changes.
func (m *MapLoader) OnUpdate(fn func()) Subscription {
	return m.notifier.OnUpdate(fn)
}
