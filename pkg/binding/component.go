package binding

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// DebugMode enables hook order validation. When set, a component whose
// hooks are called in a different order than on its first render panics.
var DebugMode = false

// HookType identifies the type of hook call for order validation.
type HookType uint8

const (
	HookUse HookType = iota + 1
	HookUseKey
	HookUseKeys
	HookUseAtom
)

// String returns a human-readable name for the hook type.
func (h HookType) String() string {
	switch h {
	case HookUse:
		return "Use"
	case HookUseKey:
		return "UseKey"
	case HookUseKeys:
		return "UseKeys"
	case HookUseAtom:
		return "UseAtom"
	default:
		return "Unknown"
	}
}

var componentIDCounter uint64

// Component is the UI unit that hooks bind to. It owns the subscriptions
// made by its hooks and asks to be rendered again through its rerender
// callback when one of them fires.
//
// A Component is driven by one goroutine: Render, the hooks called inside
// it and Dispose must not run concurrently.
type Component struct {
	id       uint64
	rerender func()

	// updates counts MarkDirty calls.
	updates atomic.Uint64

	cleanups   []func()
	cleanupsMu sync.Mutex

	disposed atomic.Bool

	// Hook order tracking (only used when DebugMode is true)
	hookOrder   []HookType
	hookIndex   int
	renderCount int

	// Hook slots give each hook call stable storage across renders.
	hookSlots   []any
	hookSlotIdx int
}

// NewComponent creates a Component. rerender is called on every MarkDirty
// and may be nil.
func NewComponent(rerender func()) *Component {
	return &Component{
		id:       atomic.AddUint64(&componentIDCounter, 1),
		rerender: rerender,
	}
}

// ID returns the unique identifier for this Component.
func (c *Component) ID() uint64 {
	return c.id
}

// IsDisposed returns true if this Component has been disposed.
func (c *Component) IsDisposed() bool {
	return c.disposed.Load()
}

// Updates returns how many times the component was marked dirty.
func (c *Component) Updates() uint64 {
	return c.updates.Load()
}

// MarkDirty forces an update: it is what a hook subscription calls when
// the state it watches changes. Disposed components ignore it.
func (c *Component) MarkDirty() {
	if c.disposed.Load() {
		return
	}
	c.updates.Add(1)
	if c.rerender != nil {
		c.rerender()
	}
}

// OnCleanup registers fn to run when the Component is disposed.
func (c *Component) OnCleanup(fn func()) {
	if c.disposed.Load() {
		// Already disposed, run cleanup immediately
		fn()
		return
	}

	c.cleanupsMu.Lock()
	defer c.cleanupsMu.Unlock()
	c.cleanups = append(c.cleanups, fn)
}

// Dispose unmounts the Component. Cleanups run in reverse registration
// order, which tears down every hook subscription.
func (c *Component) Dispose() {
	if c.disposed.Swap(true) {
		return
	}

	c.cleanupsMu.Lock()
	cleanups := c.cleanups
	c.cleanups = nil
	c.cleanupsMu.Unlock()

	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

// Render runs fn between StartRender and EndRender. EndRender is skipped
// when fn panics.
func (c *Component) Render(fn func()) {
	c.StartRender()
	fn()
	c.EndRender()
}

// StartRender is called at the beginning of a render. It resets the hook
// slot index and, in debug mode, the hook order index.
func (c *Component) StartRender() {
	c.hookSlotIdx = 0
	if DebugMode {
		c.hookIndex = 0
	}
}

// EndRender is called at the end of a render. In debug mode it checks that
// every hook of the first render was called again.
func (c *Component) EndRender() {
	if !DebugMode {
		return
	}
	if c.renderCount == 0 {
		c.renderCount = 1
	} else if c.hookIndex < len(c.hookOrder) {
		panic(fmt.Sprintf("[minstate] hook order changed: expected %d hooks, got %d",
			len(c.hookOrder), c.hookIndex))
	}
}

// TrackHook records a hook call for order validation in debug mode.
func (c *Component) TrackHook(ht HookType) {
	if !DebugMode {
		return
	}

	if c.renderCount == 0 {
		c.hookOrder = append(c.hookOrder, ht)
	} else {
		if c.hookIndex >= len(c.hookOrder) {
			panic(fmt.Sprintf("[minstate] hook order changed: extra %s hook at index %d",
				ht, c.hookIndex))
		}
		if expected := c.hookOrder[c.hookIndex]; expected != ht {
			panic(fmt.Sprintf("[minstate] hook order changed at index %d: expected %s, got %s",
				c.hookIndex, expected, ht))
		}
	}
	c.hookIndex++
}

// UseHookSlot returns the value stored for the current hook call, or nil
// on the first render. The caller then creates the value and stores it
// with SetHookSlot.
func (c *Component) UseHookSlot() any {
	idx := c.hookSlotIdx
	c.hookSlotIdx++

	if idx < len(c.hookSlots) {
		return c.hookSlots[idx]
	}
	return nil
}

// SetHookSlot stores a value in the current hook slot.
// Must be called after UseHookSlot returns nil.
func (c *Component) SetHookSlot(value any) {
	c.hookSlots = append(c.hookSlots, value)
}
