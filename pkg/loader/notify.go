package loader

import (
	"sync"

	"github.com/oklog/ulid/v2"
)

// Subscription is a registered update callback.
type Subscription interface {
	ID() string
	Unsubscribe()
}

// Notifier fans update notifications out to subscribers.
// The zero value is ready to use.
type Notifier struct {
	mu   sync.Mutex
	subs map[string]func()
}

type subscription struct {
	id string
	n  *Notifier
}

func (s *subscription) ID() string { return s.id }

func (s *subscription) Unsubscribe() {
	s.n.mu.Lock()
	defer s.n.mu.Unlock()
	delete(s.n.subs, s.id)
}

// OnUpdate registers fn. Callbacks run synchronously on the goroutine that
// changed the data, so they must not call Reload on the same loader.
func (n *Notifier) OnUpdate(fn func()) Subscription {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.subs == nil {
		n.subs = make(map[string]func())
	}
	id := ulid.Make().String()
	n.subs[id] = fn
	return &subscription{id: id, n: n}
}

// Notify invokes every subscriber.
func (n *Notifier) Notify() {
	n.mu.Lock()
	fns := make([]func(), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// Len returns the number of active subscriptions.
func (n *Notifier) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.subs)
}
