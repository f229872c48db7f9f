package state

import (
	"context"
	"sync"

	"github.com/vango-dev/minstate/pkg/events"
)

// Future is the result of Next and Until. It resolves at most once, on the
// emission that satisfies it, and never fails: if that emission never
// happens (for example after Clear) it simply stays pending.
type Future[T any] struct {
	done  chan struct{}
	once  sync.Once
	value T

	mu     sync.Mutex
	cancel events.Unsubscribe
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// NewFuture creates a Future for a subscription made elsewhere. subscribe
// receives the resolve function and returns the handle that Cancel calls.
// resolve may run before subscribe returns.
func NewFuture[T any](subscribe func(resolve func(T)) events.Unsubscribe) *Future[T] {
	f := newFuture[T]()
	f.setCancel(subscribe(f.resolve))
	return f
}

func (f *Future[T]) resolve(v T) {
	f.once.Do(func() {
		f.value = v
		close(f.done)
	})
}

func (f *Future[T]) setCancel(cancel events.Unsubscribe) {
	f.mu.Lock()
	f.cancel = cancel
	f.mu.Unlock()
}

// Done is closed when the future resolves.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Value returns the resolved value without blocking.
func (f *Future[T]) Value() (T, bool) {
	select {
	case <-f.done:
		return f.value, true
	default:
		var zero T
		return zero, false
	}
}

// Wait blocks until the future resolves or ctx ends. The pending listener
// stays registered when ctx ends; call Cancel to drop it.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, nil
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Cancel unregisters the pending listener. A cancelled future that has not
// resolved yet never resolves.
func (f *Future[T]) Cancel() {
	f.mu.Lock()
	cancel := f.cancel
	f.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
