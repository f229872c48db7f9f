package state

import (
	"sync"

	"github.com/vango-dev/minstate/pkg/events"
)

// slot is the only key of an Atom.
const slot = 0

// Atom is a single-slot State holding one value of type T.
//
// Writes emit (value, old) on the slot channel and then (value, old) on the
// wildcard channel; there is no key argument since there is only one slot.
type Atom[T any] struct {
	mu    sync.RWMutex
	value T

	events *events.Registry[int]
	opts   options
}

// NewAtom creates an Atom holding initial.
func NewAtom[T any](initial T, opts ...Option) *Atom[T] {
	o := buildOptions("atom", opts)
	return &Atom[T]{
		value:  initial,
		events: events.NewRegistry[int](o.registryOptions()...),
		opts:   o,
	}
}

// Name returns the name given with WithName.
func (a *Atom[T]) Name() string {
	return a.opts.name
}

// Get returns the current value.
func (a *Atom[T]) Get() T {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.value
}

// Set writes v and notifies listeners.
func (a *Atom[T]) Set(v T) {
	a.write(func(T) T { return v })
}

// SetFunc computes the new value from the current one.
func (a *Atom[T]) SetFunc(fn func(old T) T) {
	a.write(fn)
}

func (a *Atom[T]) write(fn func(T) T) {
	old := a.Get()
	value := fn(old)

	if a.opts.equal != nil && a.opts.equal(old, value) {
		return
	}

	a.mu.Lock()
	a.value = value
	a.mu.Unlock()

	a.dispatch(value, old)
}

// Update re-emits the current value, after an in-place mutation.
func (a *Atom[T]) Update() {
	v := a.Get()
	a.dispatch(v, v)
}

// Emit sends an application event on the slot channel.
func (a *Atom[T]) Emit(args ...any) {
	a.events.Emit(slot, args...)
}

func (a *Atom[T]) dispatch(value, old T) {
	if a.opts.debug {
		a.opts.logger.Info("update", "atom", a.opts.name, "value", value)
	}
	a.events.Emit(slot, value, old)
	a.events.EmitAny(value, old)
}

// WatchAtom adapts fn to an Atom listener. Arguments that are not of type
// T arrive as the zero value.
func WatchAtom[T any](fn func(value, old T)) *events.Listener {
	return events.NewListener(func(args ...any) {
		v, _ := arg(args, 0).(T)
		o, _ := arg(args, 1).(T)
		fn(v, o)
	})
}

// On registers l on the slot channel.
func (a *Atom[T]) On(l *events.Listener) events.Unsubscribe {
	return a.events.On(slot, l)
}

// OnAny registers l on the wildcard channel.
func (a *Atom[T]) OnAny(l *events.Listener) events.Unsubscribe {
	return a.events.OnAny(l)
}

// Off removes l from the slot channel.
func (a *Atom[T]) Off(l *events.Listener) {
	a.events.Off(slot, l)
}

// OffAny removes l from the wildcard channel.
func (a *Atom[T]) OffAny(l *events.Listener) {
	a.events.OffAny(l)
}

// Once registers l for the next slot emission only.
func (a *Atom[T]) Once(l *events.Listener) events.Unsubscribe {
	return a.events.On(slot, events.Once(l, a.Off))
}

// Next resolves with the value of the next slot emission.
func (a *Atom[T]) Next() *Future[T] {
	f := newFuture[T]()
	f.setCancel(a.Once(events.NewListener(func(args ...any) {
		v, _ := arg(args, 0).(T)
		f.resolve(v)
	})))
	return f
}

// Until resolves once the value satisfies pred, immediately if it already
// does. A nil pred means Truthy.
func (a *Atom[T]) Until(pred func(v T) bool) *Future[struct{}] {
	if pred == nil {
		pred = func(v T) bool { return Truthy(v) }
	}

	f := newFuture[struct{}]()
	var l *events.Listener
	l = events.NewListener(func(args ...any) {
		v, ok := arg(args, 0).(T)
		if ok && pred(v) {
			a.Off(l)
			f.resolve(struct{}{})
		}
	})
	off := a.On(l)
	f.setCancel(off)

	if pred(a.Get()) {
		off()
		f.resolve(struct{}{})
	}
	return f
}

// Clear drops every listener.
func (a *Atom[T]) Clear() {
	a.events.Clear()
}

// ListenerCount returns the number of registrations on both channels.
func (a *Atom[T]) ListenerCount() int {
	return a.events.Total()
}
