// Package events implements the listener registry behind minstate.
//
// A Registry maps keys to ordered sets of listeners and keeps one extra
// wildcard channel that is notified independently of any key:
//
//	reg := events.NewRegistry[string]()
//	l := events.NewListener(func(args ...any) {
//	    fmt.Println("todos changed:", args...)
//	})
//	off := reg.On("todos", l)
//	reg.Emit("todos", []string{"milk"})
//	off()
//
// # Emission
//
// Emit is synchronous. The set of listeners is captured when the call
// starts: a listener registered during the pass is not invoked, and one
// removed during the pass is skipped if it has not run yet. A panicking
// listener is recovered and logged; the remaining listeners still run and
// the caller of Emit never sees the panic.
//
// # Identity
//
// Listeners are compared by pointer. Keep the *Listener returned by
// NewListener to call Off later, or use the Unsubscribe handle returned by
// On.
package events
