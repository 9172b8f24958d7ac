// Package loadable provides option values that are either known up front or
// produced on demand.
//
// A Loadable declares its kind at construction time through Value or
// Deferred; consumers never probe the value itself. Both kinds are read
// through the same Resolve call.
package loadable

import "context"

// Kind identifies how a Loadable produces its value.
type Kind uint8

const (
	// KindImmediate values are fixed at construction.
	KindImmediate Kind = iota + 1
	// KindDeferred values are computed on every Resolve.
	KindDeferred
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindImmediate:
		return "immediate"
	case KindDeferred:
		return "deferred"
	default:
		return "unknown"
	}
}

// Loadable is a value that may need to be produced before use.
type Loadable[T any] interface {
	Kind() Kind
	Resolve(ctx context.Context) (T, error)
}

// Func produces a deferred value.
type Func[T any] func(ctx context.Context) (T, error)

type immediate[T any] struct {
	v T
}

func (i immediate[T]) Kind() Kind { return KindImmediate }

func (i immediate[T]) Resolve(context.Context) (T, error) { return i.v, nil }

type deferred[T any] struct {
	fn Func[T]
}

func (d deferred[T]) Kind() Kind { return KindDeferred }

func (d deferred[T]) Resolve(ctx context.Context) (T, error) {
	if err := ctx.Err(); err != nil {
		var zero T
		return zero, err
	}
	return d.fn(ctx)
}

// Value wraps a value that is already known.
func Value[T any](v T) Loadable[T] {
	return immediate[T]{v: v}
}

// Deferred wraps a producer that is invoked on every Resolve.
func Deferred[T any](fn Func[T]) Loadable[T] {
	return deferred[T]{fn: fn}
}

// Resolve resolves l, returning the zero value when l is nil.
func Resolve[T any](ctx context.Context, l Loadable[T]) (T, error) {
	if l == nil {
		var zero T
		return zero, nil
	}
	return l.Resolve(ctx)
}
