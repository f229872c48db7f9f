package events

import "sync/atomic"

// globalIDCounter is the source of unique listener IDs.
var globalIDCounter uint64

// emitCounter numbers emissions across all registries.
var emitCounter atomic.Uint64

// nextID returns the next unique ID. IDs are never reused.
func nextID() uint64 {
	return atomic.AddUint64(&globalIDCounter, 1)
}

// Listener is a callback registered on a Registry channel.
//
// Identity is the pointer: the same *Listener must be passed to Off to
// remove it, and registering it twice on one channel keeps a single
// membership.
type Listener struct {
	id uint64
	fn func(args ...any)
}

// NewListener wraps fn as a Listener.
func NewListener(fn func(args ...any)) *Listener {
	return &Listener{id: nextID(), fn: fn}
}

// ID returns the unique identifier for this listener.
func (l *Listener) ID() uint64 {
	return l.id
}

// Call invokes the listener directly, bypassing any registry.
func (l *Listener) Call(args ...any) {
	if l == nil || l.fn == nil {
		return
	}
	l.fn(args...)
}

// Unsubscribe removes a registration. Calling it more than once is safe.
type Unsubscribe func()

// Once wraps l so that it runs at most once. The wrapper calls off with
// itself before invoking l, so l is unregistered before its body runs even
// if it panics.
func Once(l *Listener, off func(*Listener)) *Listener {
	var fired atomic.Bool
	var wrapper *Listener
	wrapper = NewListener(func(args ...any) {
		if fired.Swap(true) {
			return
		}
		off(wrapper)
		l.Call(args...)
	})
	return wrapper
}
