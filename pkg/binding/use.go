package binding

import (
	"slices"
	"sync/atomic"

	"github.com/vango-dev/minstate/pkg/events"
	"github.com/vango-dev/minstate/pkg/state"
)

// subscription is the hook slot of one Use* call.
type subscription struct {
	source   any
	keys     []string
	listener *events.Listener
	unsub    events.Unsubscribe
}

func (sub *subscription) teardown() {
	if sub.unsub != nil {
		sub.unsub()
		sub.unsub = nil
		sub.listener = nil
	}
}

// bind makes sure the current hook slot of c is subscribed to keys of
// source. An existing subscription is kept as long as source is the same
// and keys has the same elements; otherwise it is torn down and replaced.
func bind(c *Component, ht HookType, source any, keys []string, subscribe func(*events.Listener) events.Unsubscribe) {
	c.TrackHook(ht)

	sub, _ := c.UseHookSlot().(*subscription)
	if sub == nil {
		sub = &subscription{}
		c.SetHookSlot(sub)
		c.OnCleanup(sub.teardown)
	}
	if c.IsDisposed() {
		return
	}

	keys = StableArray(sub.keys, keys)
	if sub.unsub != nil && sub.source == source && ArrayEqual(sub.keys, keys) {
		return
	}
	sub.teardown()

	var off atomic.Bool
	l := events.NewListener(func(...any) {
		if !off.Load() {
			c.MarkDirty()
		}
	})
	unsub := subscribe(l)

	sub.source = source
	sub.keys = slices.Clone(keys)
	sub.listener = l
	sub.unsub = func() {
		off.Store(true)
		unsub()
	}
}

// Use subscribes c to every change of s and returns a snapshot of its
// fields.
func Use(c *Component, s *state.State) map[string]any {
	bind(c, HookUse, s, nil, s.OnAny)
	return s.Pure()
}

// UseKey subscribes c to key of s and returns its current value.
func UseKey(c *Component, s *state.State, key string) any {
	bind(c, HookUseKey, s, []string{key}, func(l *events.Listener) events.Unsubscribe {
		return s.On(key, l)
	})
	return s.Get(key)
}

// UseKeys subscribes c to each of keys and returns their values in the
// same order. Passing an equal key list on every render, even a freshly
// built one, keeps the existing subscription.
func UseKeys(c *Component, s *state.State, keys []string) []any {
	bind(c, HookUseKeys, s, keys, func(l *events.Listener) events.Unsubscribe {
		return s.OnMany(keys, l)
	})

	values := make([]any, len(keys))
	for i, k := range keys {
		values[i] = s.Get(k)
	}
	return values
}

// UseAtom subscribes c to a and returns its current value.
func UseAtom[T any](c *Component, a *state.Atom[T]) T {
	bind(c, HookUseAtom, a, nil, a.On)
	return a.Get()
}
