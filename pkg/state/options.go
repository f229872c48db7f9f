package state

import (
	"log/slog"

	"github.com/vango-dev/minstate/pkg/events"
)

// Option configures a State or an Atom.
type Option func(*options)

type options struct {
	name     string
	debug    bool
	logger   *slog.Logger
	equal    func(a, b any) bool
	observer events.Observer
}

// WithName names the container in logs and metrics.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithDebug logs every write with its key and value before listeners run.
func WithDebug(debug bool) Option {
	return func(o *options) {
		o.debug = debug
	}
}

// WithLogger sets the logger used for debug output and listener panics.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithNoChangeNoop skips the write and both emissions when the new value
// is identical to the old one. See Identical.
func WithNoChangeNoop() Option {
	return func(o *options) {
		o.equal = Identical
	}
}

// WithEqual is WithNoChangeNoop with a custom equality function.
// Passing nil turns no-op suppression off.
func WithEqual(equal func(a, b any) bool) Option {
	return func(o *options) {
		o.equal = equal
	}
}

// WithObserver reports emissions to an observer (metrics, tracing).
func WithObserver(observer events.Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

func buildOptions(defaultName string, opts []Option) options {
	o := options{name: defaultName}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return o
}

func (o options) registryOptions() []events.Option {
	return []events.Option{
		events.WithName(o.name),
		events.WithLogger(o.logger),
		events.WithObserver(o.observer),
	}
}
