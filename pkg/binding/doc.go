// Package binding connects state containers to a component model.
//
// A Component stands for one UI unit. Inside Render, the Use hooks read
// from a State or Atom and subscribe the component to what they read:
//
//	c := binding.NewComponent(func() { redraw() })
//
//	c.Render(func() {
//	    todos := binding.UseKey(c, st, "todos")
//	    draw(todos)
//	})
//
// A later write to "todos" calls MarkDirty on c, which calls redraw.
// Subscriptions are made on the first render, kept across renders while
// the same state and keys are used, and removed by Dispose.
//
// Hooks must be called in the same order on every render. Set DebugMode
// to panic when they are not.
package binding
