package events

import "time"

// WildcardLabel is the channel label reported for wildcard emissions.
const WildcardLabel = "*"

// EmitInfo describes one completed emission.
type EmitInfo struct {
	// Seq identifies the emission. It is unique across all registries and
	// matches the Seq of the panics recovered during the emission.
	Seq uint64

	// Registry is the name given with WithName.
	Registry string

	// Channel is the key rendered with fmt, or WildcardLabel.
	Channel string

	// Wildcard reports whether the wildcard channel was emitted.
	Wildcard bool

	// Listeners is the number of listeners actually invoked.
	Listeners int

	// Panics is the number of listeners that panicked.
	Panics int

	Start    time.Time
	Duration time.Duration
}

// PanicInfo describes a recovered listener panic.
type PanicInfo struct {
	Seq        uint64
	Registry   string
	Channel    string
	ListenerID uint64
	Value      any
}

// Observer receives emission telemetry. Implementations must not block and
// must not call back into the registry that reports to them.
type Observer interface {
	ObserveEmit(info EmitInfo)
	ObservePanic(info PanicInfo)
}

// multiObserver fans out to several observers.
type multiObserver []Observer

func (m multiObserver) ObserveEmit(info EmitInfo) {
	for _, o := range m {
		o.ObserveEmit(info)
	}
}

func (m multiObserver) ObservePanic(info PanicInfo) {
	for _, o := range m {
		o.ObservePanic(info)
	}
}

// MultiObserver combines observers. Nil entries are skipped; if nothing is
// left it returns nil.
func MultiObserver(observers ...Observer) Observer {
	out := make(multiObserver, 0, len(observers))
	for _, o := range observers {
		if o != nil {
			out = append(out, o)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	}
	return out
}
