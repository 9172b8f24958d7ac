package storeloader

import (
	"context"
	"errors"
	"sync"

	"github.com/yndnr/confkit-go/pkg/loader"
)

// DocumentVersion is written into every stored document.
const DocumentVersion = 1

// ErrClosed is returned by drivers after Close.
var ErrClosed = errors.New("store: driver closed")

// Document is the persisted form of a store loader.
type Document struct {
	Version int               `json:"_v"`
	Data    map[string]string `json:"data"`
}

// Driver persists one document.
type Driver interface {
	// Hydrate returns the stored document, or nil when nothing is stored.
	Hydrate(ctx context.Context) (*Document, error)
	// Store replaces the stored document.
	Store(ctx context.Context, doc *Document) error
	// OnUpdate subscribes fn to changes of the stored document.
	OnUpdate(fn func()) loader.Subscription
	Close() error
}

// MemoryDriver keeps the encoded document in process memory. Every Store
// notifies all subscribers, so loaders sharing a driver see each other's
// writes.
type MemoryDriver struct {
	codec    Codec
	notifier loader.Notifier

	mu      sync.RWMutex
	payload []byte
	closed  bool
}

// NewMemoryDriver creates an empty in-memory driver.
func NewMemoryDriver(codec Codec) *MemoryDriver {
	return &MemoryDriver{codec: codec}
}

func (d *MemoryDriver) Hydrate(context.Context) (*Document, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return nil, ErrClosed
	}
	if d.payload == nil {
		return nil, nil
	}
	return d.codec.Decode(d.payload)
}

func (d *MemoryDriver) Store(_ context.Context, doc *Document) error {
	b, err := d.codec.Encode(doc)
	if err != nil {
		return err
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return ErrClosed
	}
	d.payload = b
	d.mu.Unlock()

	d.notifier.Notify()
	return nil
}

// Payload returns a copy of the encoded document.
func (d *MemoryDriver) Payload() []byte {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]byte(nil), d.payload...)
}

func (d *MemoryDriver) OnUpdate(fn func()) loader.Subscription {
	return d.notifier.OnUpdate(fn)
}

func (d *MemoryDriver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	return nil
}
