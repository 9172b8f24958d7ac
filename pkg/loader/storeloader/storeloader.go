// Package storeloader provides a loader persisted through a Driver.
//
// The cache is hydrated from the driver on first access. Set, Unset and
// Clear change the cache and then write the whole document back. When the
// driver reports a change the cache is reloaded in the background.
package storeloader

import (
	"context"
	"fmt"
	"sync"

	"github.com/yndnr/confkit-go/pkg/loader"
)

// DefaultType is the loader type of store loaders.
const DefaultType = "store"

// Loader is a caching loader backed by a Driver.
type Loader struct {
	*loader.MapLoader
	driver Driver
	sub    loader.Subscription

	// writeMu orders write-through and background reloads.
	writeMu sync.Mutex

	mu      sync.Mutex
	closed  bool
	reloads sync.WaitGroup
}

// New creates a loader of type "store" over driver.
func New(driver Driver, opts ...loader.Option) *Loader {
	return NewWithType(DefaultType, driver, opts...)
}

// NewWithType creates a store loader with a custom type tag.
func NewWithType(loaderType string, driver Driver, opts ...loader.Option) *Loader {
	l := &Loader{driver: driver}
	l.MapLoader = loader.NewMapLoader(loaderType, l.loadData, opts...)
	l.sub = driver.OnUpdate(l.handleUpdate)
	return l
}

func (l *Loader) loadData(ctx context.Context) (bool, error) {
	doc, err := l.driver.Hydrate(ctx)
	if err != nil {
		return false, fmt.Errorf("hydrate store: %w", err)
	}
	var data map[string]string
	if doc != nil {
		data = doc.Data
	}
	l.InitData(data)
	l.LogEvent(loader.EventLoad, "loaded %d entries from store", len(data))
	return true, nil
}

func (l *Loader) handleUpdate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	l.reloads.Add(1)
	go func() {
		defer l.reloads.Done()
		l.writeMu.Lock()
		defer l.writeMu.Unlock()
		if err := l.MapLoader.Reload(context.Background()); err != nil {
			l.LogEvent(loader.EventLoadError, "reload after store update failed: %v", err)
		}
	}()
}

// Reload hydrates the cache from the driver again.
func (l *Loader) Reload(ctx context.Context) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	return l.MapLoader.Reload(ctx)
}

// Set writes key into the cache and persists the document.
func (l *Loader) Set(ctx context.Context, key, value string) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if err := l.MapLoader.Set(ctx, key, value); err != nil {
		return err
	}
	return l.writeStore(ctx)
}

// Unset removes key from the cache and persists the document.
func (l *Loader) Unset(ctx context.Context, key string) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	if err := l.MapLoader.Unset(ctx, key); err != nil {
		return err
	}
	return l.writeStore(ctx)
}

// Clear empties the cache and persists the empty document.
func (l *Loader) Clear(ctx context.Context) error {
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	// Hydrate first so a load cannot later resurrect cleared entries.
	if _, err := l.MapLoader.Size(ctx); err != nil {
		return err
	}
	if err := l.MapLoader.Clear(ctx); err != nil {
		return err
	}
	return l.writeStore(ctx)
}

// writeStore must be called with writeMu held.
func (l *Loader) writeStore(ctx context.Context) error {
	data, err := l.Snapshot(ctx)
	if err != nil {
		return err
	}
	if err := l.driver.Store(ctx, &Document{Version: DocumentVersion, Data: data}); err != nil {
		l.LogEvent(loader.EventLoadError, "store failed: %v", err)
		return fmt.Errorf("write store: %w", err)
	}
	l.LogEvent(loader.EventSet, "stored %d entries to store", len(data))
	return nil
}

// Close stops listening to the driver, waits for pending reloads and
// closes the driver.
func (l *Loader) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	l.mu.Unlock()

	l.sub.Unsubscribe()
	l.reloads.Wait()
	return l.driver.Close()
}
