// Package state provides a minimal observable-state container.
//
// A State is a mutable map of named fields. Writing a field notifies the
// listeners of that field and then the wildcard listeners:
//
//	st := state.New(map[string]any{"todos": []string{}})
//
//	st.On("todos", state.Watch(func(value, old any) {
//	    fmt.Println("todos:", value)
//	}))
//	st.OnAny(state.WatchAny(func(c state.Change) {
//	    fmt.Println(c.Key, "changed")
//	}))
//
//	st.Set("todos", []string{"milk"})
//
// # Writes
//
// Set and SetFunc write one field, Merge writes several and only notifies
// once every field is in place, and Update re-announces a field that was
// mutated in place. WithNoChangeNoop suppresses writes that would store an
// identical value.
//
// # Waiting
//
// Next and Until return a Future that resolves on a later emission:
//
//	ready := st.Until("count", func(v any) bool { return v.(int) > 5 })
//	<-ready.Done()
//
// A Future never fails. If the awaited emission never comes it stays
// pending; use Wait with a context or Cancel to stop waiting.
//
// # Atoms
//
// Atom[T] is the single-slot variant holding one typed value. Its wildcard
// listeners receive (value, old) without a key.
//
// # Concurrency
//
// The container is meant to be driven from one event loop. Internal maps
// are locked so snapshots and futures may be read from other goroutines,
// but interleaved writers get no ordering guarantee.
package state
