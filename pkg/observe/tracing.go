package observe

import (
	"context"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/minstate/pkg/events"
)

// Default tracer name.
const defaultTracerName = "minstate"

// TracingConfig configures the OpenTelemetry observer.
type TracingConfig struct {
	// TracerName is the name of the tracer (default: "minstate").
	TracerName string

	// Provider supplies the tracer.
	// Default: the global provider from otel.GetTracerProvider()
	Provider trace.TracerProvider

	// Filter determines which emissions to trace. If nil, all are.
	Filter func(info events.EmitInfo) bool
}

// TracingOption configures the OpenTelemetry observer.
type TracingOption func(*TracingConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracingOption {
	return func(c *TracingConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(provider trace.TracerProvider) TracingOption {
	return func(c *TracingConfig) {
		c.Provider = provider
	}
}

// WithEmitFilter sets a filter function for emissions.
func WithEmitFilter(filter func(info events.EmitInfo) bool) TracingOption {
	return func(c *TracingConfig) {
		c.Filter = filter
	}
}

// Tracing is an events.Observer that records one span per emission. The
// span covers the time the listeners ran; recovered panics are attached as
// span events and set the span status to error.
type Tracing struct {
	tracer trace.Tracer
	filter func(events.EmitInfo) bool

	mu      sync.Mutex
	pending map[uint64][]events.PanicInfo
}

// NewTracing creates the observer.
func NewTracing(opts ...TracingOption) *Tracing {
	config := TracingConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Provider == nil {
		config.Provider = otel.GetTracerProvider()
	}

	return &Tracing{
		tracer:  config.Provider.Tracer(config.TracerName),
		filter:  config.Filter,
		pending: make(map[uint64][]events.PanicInfo),
	}
}

// ObservePanic implements events.Observer. The panic is held until the
// emission with the same Seq completes.
func (t *Tracing) ObservePanic(info events.PanicInfo) {
	t.mu.Lock()
	t.pending[info.Seq] = append(t.pending[info.Seq], info)
	t.mu.Unlock()
}

// ObserveEmit implements events.Observer.
func (t *Tracing) ObserveEmit(info events.EmitInfo) {
	t.mu.Lock()
	panics := t.pending[info.Seq]
	delete(t.pending, info.Seq)
	t.mu.Unlock()

	if t.filter != nil && !t.filter(info) {
		return
	}

	_, span := t.tracer.Start(
		context.Background(),
		fmt.Sprintf("minstate.emit %s", info.Channel),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("minstate.registry", info.Registry),
			attribute.String("minstate.channel", info.Channel),
			attribute.Bool("minstate.wildcard", info.Wildcard),
			attribute.Int("minstate.listeners", info.Listeners),
		),
		trace.WithTimestamp(info.Start),
	)

	for _, p := range panics {
		span.AddEvent("listener panic", trace.WithAttributes(
			attribute.Int64("minstate.listener_id", int64(p.ListenerID)),
			attribute.String("minstate.panic", fmt.Sprint(p.Value)),
		))
	}

	if info.Panics > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d listener(s) panicked", info.Panics))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End(trace.WithTimestamp(info.Start.Add(info.Duration)))
}
