// Package inspect serves a read-only HTTP view of live state containers,
// for debugging.
//
//	ins := inspect.New(inspect.WithGatherer(registry))
//	_ = ins.Register(st)
//	go ins.ListenAndServe(ctx, "localhost:7070")
//
// GET /states/{name}/events upgrades to a websocket that first sends a
// snapshot and then one JSON message per change. Each client has a bounded
// queue; when it is full new events are dropped rather than slowing down
// the writer that caused them.
package inspect
