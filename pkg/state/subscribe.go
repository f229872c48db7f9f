package state

import (
	"slices"

	"github.com/vango-dev/minstate/pkg/events"
)

// Change is the decoded form of a wildcard emission. Key, Value and Old are
// set only for writes, which emit (key, value, old). Args always holds the
// arguments exactly as emitted, so EmitAny and UpdateAll emissions arrive
// intact.
type Change struct {
	Key   string
	Value any
	Old   any
	Args  []any
}

// IsWrite reports whether the emission has the (key, value, old) shape of a
// field write.
func (c Change) IsWrite() bool {
	return isWrite(c.Args)
}

func isWrite(args []any) bool {
	if len(args) != 3 {
		return false
	}
	_, ok := args[0].(string)
	return ok
}

// arg returns args[i], or nil when the emission carried fewer arguments.
func arg(args []any, i int) any {
	if i < len(args) {
		return args[i]
	}
	return nil
}

func changeFromArgs(args []any) Change {
	c := Change{Args: slices.Clone(args)}
	if isWrite(args) {
		c.Key = args[0].(string)
		c.Value, c.Old = args[1], args[2]
	}
	return c
}

// Watch adapts fn to a keyed listener receiving (value, old).
func Watch(fn func(value, old any)) *events.Listener {
	return events.NewListener(func(args ...any) {
		fn(arg(args, 0), arg(args, 1))
	})
}

// WatchAny adapts fn to a wildcard listener.
func WatchAny(fn func(c Change)) *events.Listener {
	return events.NewListener(func(args ...any) {
		fn(changeFromArgs(args))
	})
}

// On registers l for changes of key.
func (s *State) On(key string, l *events.Listener) events.Unsubscribe {
	return s.events.On(key, l)
}

// OnAny registers l on the wildcard channel.
func (s *State) OnAny(l *events.Listener) events.Unsubscribe {
	return s.events.OnAny(l)
}

// OnMany registers l for each of keys. The returned handle removes all of
// those registrations.
func (s *State) OnMany(keys []string, l *events.Listener) events.Unsubscribe {
	offs := make([]events.Unsubscribe, 0, len(keys))
	for _, k := range keys {
		offs = append(offs, s.events.On(k, l))
	}
	return func() {
		for _, off := range offs {
			off()
		}
	}
}

// Off removes l from key.
func (s *State) Off(key string, l *events.Listener) {
	s.events.Off(key, l)
}

// OffAny removes l from the wildcard channel.
func (s *State) OffAny(l *events.Listener) {
	s.events.OffAny(l)
}

// Once registers l for the next emission on key only.
func (s *State) Once(key string, l *events.Listener) events.Unsubscribe {
	return s.events.On(key, events.Once(l, func(w *events.Listener) {
		s.events.Off(key, w)
	}))
}

// OnceAny registers l for the next wildcard emission only.
func (s *State) OnceAny(l *events.Listener) events.Unsubscribe {
	return s.events.OnAny(events.Once(l, s.events.OffAny))
}

// Next resolves with the first argument of the next emission on key,
// which for writes is the new value.
func (s *State) Next(key string) *Future[any] {
	f := newFuture[any]()
	f.setCancel(s.Once(key, events.NewListener(func(args ...any) {
		f.resolve(arg(args, 0))
	})))
	return f
}

// NextAny resolves with the next wildcard emission, whatever arguments it
// carries.
func (s *State) NextAny() *Future[Change] {
	f := newFuture[Change]()
	f.setCancel(s.OnceAny(events.NewListener(func(args ...any) {
		f.resolve(changeFromArgs(args))
	})))
	return f
}

// Until resolves once the value of key satisfies pred: immediately if the
// current value already does, otherwise on the first emission whose value
// does. A nil pred means Truthy.
func (s *State) Until(key string, pred func(v any) bool) *Future[struct{}] {
	if pred == nil {
		pred = Truthy
	}

	f := newFuture[struct{}]()
	var l *events.Listener
	l = events.NewListener(func(args ...any) {
		if pred(arg(args, 0)) {
			s.events.Off(key, l)
			f.resolve(struct{}{})
		}
	})
	off := s.events.On(key, l)
	f.setCancel(off)

	if pred(s.Get(key)) {
		off()
		f.resolve(struct{}{})
	}
	return f
}

// Clear drops every listener. Pending futures never resolve afterwards.
func (s *State) Clear() {
	s.events.Clear()
}

// ListenerCount returns the number of listeners on key.
func (s *State) ListenerCount(key string) int {
	return s.events.Len(key)
}

// AnyListenerCount returns the number of wildcard listeners.
func (s *State) AnyListenerCount() int {
	return s.events.LenAny()
}

// TotalListeners returns the number of registrations on all channels.
func (s *State) TotalListeners() int {
	return s.events.Total()
}
