package minimal

import (
	"log/slog"
	"runtime"
	"sync"
	"weak"

	"github.com/vango-dev/minstate/pkg/events"
)

// entry is the bookkeeping attached to one tracked object.
type entry struct {
	events  *events.Registry[string]
	opts    options
	cleanup runtime.Cleanup
}

// table maps weak.Pointer[T] (boxed) to the object's entry. Holding only a
// weak pointer lets the object be collected; the cleanup then drops the
// entry.
var table = struct {
	sync.Mutex
	entries map[any]*entry
}{entries: make(map[any]*entry)}

// Track attaches a listener registry to obj, configured by opts. Tracking
// an object that is already tracked does nothing. The other functions of
// this package track objects on demand with default options.
func Track[T any](obj *T, opts ...Option) {
	acquire(obj, opts)
}

// Tracked reports whether obj has a side-table entry.
func Tracked[T any](obj *T) bool {
	return lookup(obj) != nil
}

// Release drops the entry of obj along with all of its listeners.
func Release[T any](obj *T) {
	if obj == nil {
		return
	}
	key := weak.Make(obj)

	table.Lock()
	e, ok := table.entries[key]
	delete(table.entries, key)
	table.Unlock()

	if ok {
		e.cleanup.Stop()
		e.events.Clear()
	}
}

// Count returns the number of tracked objects.
func Count() int {
	table.Lock()
	defer table.Unlock()
	return len(table.entries)
}

func lookup[T any](obj *T) *entry {
	if obj == nil {
		return nil
	}
	table.Lock()
	defer table.Unlock()
	return table.entries[weak.Make(obj)]
}

func acquire[T any](obj *T, opts []Option) *entry {
	if obj == nil {
		return nil
	}
	key := weak.Make(obj)

	table.Lock()
	defer table.Unlock()

	if e, ok := table.entries[key]; ok {
		return e
	}

	o := options{name: "minimal"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}

	e := &entry{
		events: events.NewRegistry[string](
			events.WithName(o.name),
			events.WithLogger(o.logger),
			events.WithObserver(o.observer),
		),
		opts: o,
	}
	e.cleanup = runtime.AddCleanup(obj, forget[T], key)
	table.entries[key] = e
	return e
}

func forget[T any](key weak.Pointer[T]) {
	table.Lock()
	delete(table.entries, key)
	table.Unlock()
}
