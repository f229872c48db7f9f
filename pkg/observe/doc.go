// Package observe provides events.Observer implementations that export
// emission telemetry to Prometheus and OpenTelemetry.
//
//	m := observe.NewMetrics(observe.WithNamespace("myapp"))
//	tr := observe.NewTracing()
//
//	st := state.New(nil, state.WithName("cart"),
//	    state.WithObserver(events.MultiObserver(m, tr)))
//
// Observers run on the emitting goroutine after the listeners, so they add
// to the cost of every write.
package observe
