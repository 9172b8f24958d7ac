package storeloader

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v3"
	"github.com/dgraph-io/badger/v3/pb"

	"github.com/yndnr/confkit-go/pkg/loader"
	"github.com/yndnr/confkit-go/pkg/logger"
)

// DefaultBadgerKey is the key the document is stored under.
const DefaultBadgerKey = "confkit/document"

// BadgerConfig configures a Badger driver.
type BadgerConfig struct {
	// Dir is the database directory. It is ignored when InMemory is set.
	Dir      string
	InMemory bool
	// Key defaults to DefaultBadgerKey.
	Key        string
	SyncWrites bool
}

// BadgerDriver stores the document in a Badger database and publishes
// every write to that key, including writes by other handles on the same
// database.
type BadgerDriver struct {
	db       *badger.DB
	key      []byte
	codec    Codec
	log      logger.Logger
	notifier loader.Notifier

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// OpenBadger opens the database and starts the change subscription.
func OpenBadger(cfg BadgerConfig, codec Codec, log logger.Logger) (*BadgerDriver, error) {
	if cfg.Dir == "" && !cfg.InMemory {
		return nil, fmt.Errorf("badger: dir is required")
	}
	if cfg.Key == "" {
		cfg.Key = DefaultBadgerKey
	}
	if log == nil {
		log = logger.Default()
	}

	opts := badger.DefaultOptions(cfg.Dir).
		WithLogger(&badgerLogger{logger: log}).
		WithSyncWrites(cfg.SyncWrites)
	if cfg.InMemory {
		opts = opts.WithDir("").WithValueDir("").WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open db: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &BadgerDriver{
		db:     db,
		key:    []byte(cfg.Key),
		codec:  codec,
		log:    log,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	go d.subscribe(ctx)

	log.Info("badger store opened", "path", cfg.Dir, "in_memory", cfg.InMemory)
	return d, nil
}

func (d *BadgerDriver) subscribe(ctx context.Context) {
	defer close(d.done)

	match := []pb.Match{{Prefix: d.key}}
	err := d.db.Subscribe(ctx, func(kv *badger.KVList) error {
		for _, e := range kv.GetKv() {
			if string(e.GetKey()) == string(d.key) {
				d.notifier.Notify()
				return nil
			}
		}
		return nil
	}, match)
	if err != nil && !errors.Is(err, context.Canceled) {
		d.log.Warn("badger subscription ended", "error", err)
	}
}

func (d *BadgerDriver) Hydrate(context.Context) (*Document, error) {
	var payload []byte
	err := d.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(d.key)
		if err != nil {
			return err
		}
		payload, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("badger: read document: %w", err)
	}
	return d.codec.Decode(payload)
}

func (d *BadgerDriver) Store(_ context.Context, doc *Document) error {
	payload, err := d.codec.Encode(doc)
	if err != nil {
		return err
	}
	err = d.db.Update(func(txn *badger.Txn) error {
		return txn.Set(d.key, payload)
	})
	if err != nil {
		return fmt.Errorf("badger: write document: %w", err)
	}
	return nil
}

func (d *BadgerDriver) OnUpdate(fn func()) loader.Subscription {
	return d.notifier.OnUpdate(fn)
}

// Close stops the subscription and closes the database.
func (d *BadgerDriver) Close() error {
	var err error
	d.closeOnce.Do(func() {
		d.cancel()
		<-d.done
		if cerr := d.db.Close(); cerr != nil {
			err = fmt.Errorf("badger: close db: %w", cerr)
		}
	})
	return err
}

// badgerLogger adapts Logger to Badger's logger. Badger is chatty at info
// level, so its info lines are logged at debug.
type badgerLogger struct {
	logger logger.Logger
}

func (l *badgerLogger) Errorf(format string, args ...interface{}) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l *badgerLogger) Warningf(format string, args ...interface{}) {
	l.logger.Warn(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l *badgerLogger) Infof(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}

func (l *badgerLogger) Debugf(format string, args ...interface{}) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, args...)), "component", "badger")
}
