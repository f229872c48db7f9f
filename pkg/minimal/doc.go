// Package minimal is the free-function form of the state container. It
// makes plain data objects observable without wrapping them:
//
//	type Todo struct {
//	    Text string `state:"text"`
//	    Done bool   `state:"done"`
//	}
//
//	t := &Todo{Text: "milk"}
//	minimal.On(t, "done", state.Watch(func(value, old any) {
//	    fmt.Println("done:", value)
//	}))
//	_ = minimal.Set(t, "done", true)
//
// A data object is a pointer to a struct, whose exported fields are
// addressed by their `state` tag or their Go name, or a pointer to a
// map[string]any.
//
// Listeners live in a side table keyed by the object's identity. The entry
// goes away when the object is garbage collected or when Release is
// called. Listeners are held strongly, so a listener that refers to its own
// object keeps the entry alive until it is released.
package minimal
