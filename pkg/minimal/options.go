package minimal

import (
	"log/slog"

	"github.com/vango-dev/minstate/pkg/events"
	"github.com/vango-dev/minstate/pkg/state"
)

// Option configures the side-table entry of a data object. Options only
// take effect when the entry is created.
type Option func(*options)

type options struct {
	name     string
	debug    bool
	logger   *slog.Logger
	equal    func(a, b any) bool
	observer events.Observer
}

// WithName names the object in logs and metrics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithDebug logs every write with its field and value.
func WithDebug(debug bool) Option {
	return func(o *options) {
		o.debug = debug
	}
}

// WithLogger sets the logger for debug output and listener panics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithNoChangeNoop skips writes of identical values. See state.Identical.
func WithNoChangeNoop() Option {
	return func(o *options) {
		o.equal = state.Identical
	}
}

// WithObserver reports emissions to an observer.
func WithObserver(observer events.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}
