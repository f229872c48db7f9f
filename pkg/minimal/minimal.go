package minimal

import (
	"maps"
	"slices"

	"github.com/vango-dev/minstate/pkg/events"
	"github.com/vango-dev/minstate/pkg/state"
)

// Get returns the value of field on obj. Unknown fields and unsupported
// objects read as (nil, false).
func Get[T any](obj *T, name string) (any, bool) {
	f, err := resolve(obj, name)
	if err != nil {
		return nil, false
	}
	return f.get()
}

// Set writes value to field and notifies listeners: (value, old) on the
// field channel, then (field, value, old) on the wildcard channel.
func Set[T any](obj *T, name string, value any) error {
	return write(obj, name, func(any) any { return value })
}

// SetFunc computes the new value of field from the current one.
func SetFunc[T any](obj *T, name string, fn func(old any) any) error {
	return write(obj, name, fn)
}

func write[T any](obj *T, name string, fn func(any) any) error {
	f, err := resolve(obj, name)
	if err != nil {
		return err
	}
	e := acquire(obj, nil)

	old, _ := f.get()
	value := fn(old)
	if e.opts.equal != nil && e.opts.equal(old, value) {
		return nil
	}
	if err := f.set(value); err != nil {
		return err
	}

	e.dispatch(name, value, old)
	return nil
}

// Merge writes several fields at once. Every field is checked first, so a
// merge that fails changes nothing. Listeners run after all writes, field
// by field in sorted order, and see the fully merged object.
func Merge[T any](obj *T, partial map[string]any) error {
	names := slices.Sorted(maps.Keys(partial))
	fields := make([]field, len(names))
	for i, name := range names {
		f, err := resolve(obj, name)
		if err != nil {
			return err
		}
		if err := f.check(partial[name]); err != nil {
			return err
		}
		fields[i] = f
	}
	e := acquire(obj, nil)

	type change struct {
		name       string
		value, old any
	}
	changes := make([]change, 0, len(names))
	for i, f := range fields {
		old, _ := f.get()
		value := partial[names[i]]
		if e.opts.equal != nil && e.opts.equal(old, value) {
			continue
		}
		if err := f.set(value); err != nil {
			return err
		}
		changes = append(changes, change{names[i], value, old})
	}

	for _, c := range changes {
		e.dispatch(c.name, c.value, c.old)
	}
	return nil
}

// Pure returns a shallow copy of the data fields of obj, keyed the way Get
// addresses them. Unsupported objects yield nil.
func Pure[T any](obj *T) map[string]any {
	return snapshot(obj)
}

// Update re-emits the current value of field after an in-place mutation.
func Update[T any](obj *T, name string) error {
	f, err := resolve(obj, name)
	if err != nil {
		return err
	}
	v, _ := f.get()
	acquire(obj, nil).dispatch(name, v, v)
	return nil
}

// UpdateAll emits on the wildcard channel without arguments.
func UpdateAll[T any](obj *T) {
	if e := lookup(obj); e != nil {
		e.events.EmitAny()
	}
}

func (e *entry) dispatch(name string, value, old any) {
	if e.opts.debug {
		e.opts.logger.Info("update", "object", e.opts.name, "key", name, "value", value)
	}
	e.events.Emit(name, value, old)
	e.events.EmitAny(name, value, old)
}

// On registers l for changes of field on obj.
//
// The side table holds listeners strongly. A listener that captures obj
// keeps it alive until Off, Clear or Release.
func On[T any](obj *T, name string, l *events.Listener) events.Unsubscribe {
	e := acquire(obj, nil)
	if e == nil {
		return func() {}
	}
	return e.events.On(name, l)
}

// OnAny registers l on the wildcard channel of obj.
func OnAny[T any](obj *T, l *events.Listener) events.Unsubscribe {
	e := acquire(obj, nil)
	if e == nil {
		return func() {}
	}
	return e.events.OnAny(l)
}

// Off removes l from field. Untracked objects are ignored.
func Off[T any](obj *T, name string, l *events.Listener) {
	if e := lookup(obj); e != nil {
		e.events.Off(name, l)
	}
}

// OffAny removes l from the wildcard channel of obj.
func OffAny[T any](obj *T, l *events.Listener) {
	if e := lookup(obj); e != nil {
		e.events.OffAny(l)
	}
}

// Once registers l for the next emission on field only.
func Once[T any](obj *T, name string, l *events.Listener) events.Unsubscribe {
	e := acquire(obj, nil)
	if e == nil {
		return func() {}
	}
	return e.events.On(name, events.Once(l, func(w *events.Listener) {
		e.events.Off(name, w)
	}))
}

// Next resolves with the first argument of the next emission on field,
// which for writes is the new value.
func Next[T any](obj *T, name string) *state.Future[any] {
	return state.NewFuture(func(resolve func(any)) events.Unsubscribe {
		return Once(obj, name, events.NewListener(func(args ...any) {
			resolve(first(args))
		}))
	})
}

// Until resolves once field satisfies pred, immediately if its current
// value already does. A nil pred means state.Truthy.
func Until[T any](obj *T, name string, pred func(v any) bool) *state.Future[struct{}] {
	if pred == nil {
		pred = state.Truthy
	}

	return state.NewFuture(func(resolve func(struct{})) events.Unsubscribe {
		e := acquire(obj, nil)
		if e == nil {
			return func() {}
		}

		var l *events.Listener
		l = events.NewListener(func(args ...any) {
			if pred(first(args)) {
				e.events.Off(name, l)
				resolve(struct{}{})
			}
		})
		off := e.events.On(name, l)

		if v, _ := Get(obj, name); pred(v) {
			off()
			resolve(struct{}{})
		}
		return off
	})
}

func first(args []any) any {
	if len(args) > 0 {
		return args[0]
	}
	return nil
}

// Emit sends an application event on the channel of field.
func Emit[T any](obj *T, name string, args ...any) {
	if e := lookup(obj); e != nil {
		e.events.Emit(name, args...)
	}
}

// EmitAny sends an application event on the wildcard channel.
func EmitAny[T any](obj *T, args ...any) {
	if e := lookup(obj); e != nil {
		e.events.EmitAny(args...)
	}
}

// Clear drops every listener of obj but keeps it tracked.
func Clear[T any](obj *T) {
	if e := lookup(obj); e != nil {
		e.events.Clear()
	}
}

// ListenerCount returns the number of registrations on obj.
func ListenerCount[T any](obj *T) int {
	if e := lookup(obj); e != nil {
		return e.events.Total()
	}
	return 0
}
