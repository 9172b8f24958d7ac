// Package fileloader provides caching loaders over dotenv, JSON and YAML
// files, with optional reload on change.
package fileloader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/yndnr/confkit-go/internal/infra/confloader"
	"github.com/yndnr/confkit-go/pkg/loader"
)

// Config configures a file loader.
type Config struct {
	// Path is the file to read. Defaults to ".env".
	Path string
	// Format is detected from Path when empty.
	Format confloader.Format
	// Type overrides the loader type derived from the format.
	Type string
	// Watch reloads the file when it changes.
	Watch bool
	// Debounce is the watch coalescing window. Defaults to 200ms.
	Debounce time.Duration
	// Optional treats a missing file as empty instead of failing the load.
	Optional bool
	// Strict fails the load on malformed content. By default malformed
	// content is logged and the file contributes no values.
	Strict bool
	// Clock drives the watch debounce.
	Clock quartz.Clock
}

// DefaultConfig returns the configuration of a plain ".env" loader.
func DefaultConfig() Config {
	return Config{
		Path:     ".env",
		Debounce: confloader.DefaultDebounce,
	}
}

// Loader serves the top-level entries of a file. Nested values are served
// as JSON text.
type Loader struct {
	*loader.MapLoader
	cfg Config

	watchMu sync.Mutex
	watcher *confloader.Watcher
	closed  bool
}

// New creates a file loader. An invalid format is reported on first load.
func New(cfg Config, opts ...loader.Option) *Loader {
	def := DefaultConfig()
	if cfg.Path == "" {
		cfg.Path = def.Path
	}
	if cfg.Debounce == 0 {
		cfg.Debounce = def.Debounce
	}
	if cfg.Format == "" {
		cfg.Format = confloader.DetectFormat(cfg.Path)
	}
	if cfg.Clock == nil {
		cfg.Clock = quartz.NewReal()
	}
	if cfg.Type == "" {
		cfg.Type = TypeFor(cfg.Format)
	}

	l := &Loader{cfg: cfg}
	l.MapLoader = loader.NewMapLoader(cfg.Type, l.loadData, opts...)
	l.SetPathFunc(func(key string) string {
		return fmt.Sprintf("file:%s#%s", cfg.Path, key)
	})
	return l
}

// TypeFor returns the default loader type for a format.
func TypeFor(f confloader.Format) string {
	switch f {
	case confloader.FormatJSON:
		return "json-file"
	case confloader.FormatYAML:
		return "yaml-file"
	}
	return "dotenv"
}

// Path returns the file path.
func (l *Loader) Path() string {
	return l.cfg.Path
}

func (l *Loader) loadData(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if _, err := os.Stat(l.cfg.Path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && l.cfg.Optional {
			l.LogEvent(loader.EventLoad, "file %s not found, using no values", l.cfg.Path)
			l.InitData(nil)
			return true, l.startWatch()
		}
		return false, fmt.Errorf("file %s not found: %w", l.cfg.Path, err)
	}

	l.LogEvent(loader.EventLoad, "loading file %s", l.cfg.Path)
	values, err := l.read()
	if err != nil {
		if l.cfg.Strict {
			return false, err
		}
		l.LogEvent(loader.EventLoadError, "%v", err)
		values = nil
	}

	l.InitData(values)
	return true, l.startWatch()
}

func (l *Loader) read() (map[string]string, error) {
	data, err := confloader.ReadFile(l.cfg.Path, l.cfg.Format)
	if err != nil {
		return nil, err
	}
	return confloader.Stringify(data)
}

func (l *Loader) startWatch() error {
	if !l.cfg.Watch {
		return nil
	}

	l.watchMu.Lock()
	defer l.watchMu.Unlock()
	if l.watcher != nil || l.closed {
		return nil
	}

	w, err := confloader.NewWatcher(
		confloader.WithWatcherLogger(l.Logger()),
		confloader.WithDebounce(l.cfg.Debounce),
		confloader.WithClock(l.cfg.Clock),
	)
	if err != nil {
		return fmt.Errorf("watch %s: %w", l.cfg.Path, err)
	}
	if err := w.Watch(l.cfg.Path); err != nil {
		_ = w.Stop()
		return fmt.Errorf("watch %s: %w", l.cfg.Path, err)
	}
	w.OnChange(func(string) { l.handleChange() })
	w.StartAsync()

	l.watcher = w
	l.LogEvent(loader.EventInit, "watching file %s", l.cfg.Path)
	return nil
}

func (l *Loader) handleChange() {
	if err := l.Reload(context.Background()); err != nil {
		l.LogEvent(loader.EventLoadError, "error reloading file %s due to change: %v", l.cfg.Path, err)
		return
	}
	l.LogEvent(loader.EventReload, "reloaded file %s due to change", l.cfg.Path)
}

// Watching reports whether a file watcher is running.
func (l *Loader) Watching() bool {
	l.watchMu.Lock()
	defer l.watchMu.Unlock()
	return l.watcher != nil
}

// Close stops the file watcher. A closed loader keeps serving its cache
// but never starts watching again.
func (l *Loader) Close() error {
	l.watchMu.Lock()
	defer l.watchMu.Unlock()

	l.closed = true
	if l.watcher == nil {
		return nil
	}
	l.LogEvent(loader.EventInit, "closing file watcher for %s", l.cfg.Path)
	err := l.watcher.Stop()
	l.watcher = nil
	return err
}
