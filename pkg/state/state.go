package state

import (
	"sort"
	"sync"

	"github.com/vango-dev/minstate/pkg/events"
)

// State is a mutable mapping from field name to value whose writes notify
// listeners.
//
// Every write emits on the field's own channel with (value, old) and then
// on the wildcard channel with (key, value, old). Listeners run
// synchronously on the writer's goroutine and no lock is held while they
// run, so a listener may read or write the state again.
type State struct {
	mu     sync.RWMutex
	fields map[string]any

	events *events.Registry[string]
	opts   options
}

// New creates a State holding a shallow copy of initial. A nil map is
// allowed.
func New(initial map[string]any, opts ...Option) *State {
	o := buildOptions("state", opts)

	fields := make(map[string]any, len(initial))
	for k, v := range initial {
		fields[k] = v
	}

	return &State{
		fields: fields,
		events: events.NewRegistry[string](o.registryOptions()...),
		opts:   o,
	}
}

// Name returns the name given with WithName.
func (s *State) Name() string {
	return s.opts.name
}

// Get returns the value of key, or nil if the key was never set.
func (s *State) Get(key string) any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.fields[key]
}

// Lookup returns the value of key and whether it exists.
func (s *State) Lookup(key string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.fields[key]
	return v, ok
}

// Keys returns the field names in sorted order.
func (s *State) Keys() []string {
	s.mu.RLock()
	keys := make([]string, 0, len(s.fields))
	for k := range s.fields {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Strings(keys)
	return keys
}

// Len returns the number of fields.
func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fields)
}

// Set writes value to key and notifies listeners. Keys do not need to
// exist beforehand.
func (s *State) Set(key string, value any) {
	s.write(key, func(any) any { return value })
}

// SetFunc computes the new value of key from its current value.
//
// Example:
//
//	st.SetFunc("count", func(old any) any {
//	    n, _ := old.(int)
//	    return n + 1
//	})
func (s *State) SetFunc(key string, fn func(old any) any) {
	s.write(key, fn)
}

func (s *State) write(key string, fn func(any) any) {
	// fn runs without the lock so it may read the state.
	old := s.Get(key)
	value := fn(old)

	if s.opts.equal != nil && s.opts.equal(old, value) {
		return
	}

	s.mu.Lock()
	s.fields[key] = value
	s.mu.Unlock()

	s.dispatch(key, value, old)
}

// Merge writes every entry of partial before notifying anyone, then emits
// once per changed key in sorted key order. Each listener therefore sees
// the fully merged state.
func (s *State) Merge(partial map[string]any) {
	keys := make([]string, 0, len(partial))
	for k := range partial {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	type change struct {
		key        string
		value, old any
	}
	changes := make([]change, 0, len(keys))

	s.mu.Lock()
	for _, k := range keys {
		old, v := s.fields[k], partial[k]
		if s.opts.equal != nil && s.opts.equal(old, v) {
			continue
		}
		s.fields[k] = v
		changes = append(changes, change{key: k, value: v, old: old})
	}
	s.mu.Unlock()

	for _, c := range changes {
		s.dispatch(c.key, c.value, c.old)
	}
}

// Update re-emits the current value of key without changing it. Use it
// after mutating a slice, map or struct held by the state in place.
// Listeners receive the current value as both value and old.
func (s *State) Update(key string) {
	value := s.Get(key)
	s.dispatch(key, value, value)
}

// UpdateAll emits on the wildcard channel with no arguments.
func (s *State) UpdateAll() {
	if s.opts.debug {
		s.opts.logger.Info("update", "state", s.opts.name)
	}
	s.events.EmitAny()
}

// Emit sends an application event on key. It does not touch the fields.
func (s *State) Emit(key string, args ...any) {
	s.events.Emit(key, args...)
}

// EmitAny sends an application event on the wildcard channel.
func (s *State) EmitAny(args ...any) {
	s.events.EmitAny(args...)
}

func (s *State) dispatch(key string, value, old any) {
	if s.opts.debug {
		s.opts.logger.Info("update", "state", s.opts.name, "key", key, "value", value)
	}
	s.events.Emit(key, value, old)
	s.events.EmitAny(key, value, old)
}

// Pure returns a shallow copy of the fields. The copy carries no way to
// mutate or subscribe to the state.
func (s *State) Pure() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]any, len(s.fields))
	for k, v := range s.fields {
		out[k] = v
	}
	return out
}
