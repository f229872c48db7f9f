package events

import (
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

// channel identifies a listener bucket: a concrete key or the wildcard.
type channel[K comparable] struct {
	key      K
	wildcard bool
}

// entry is one membership in a listener set. seq is the registration
// sequence, used to tell a listener registered during an emission apart
// from the one captured when the emission started.
type entry struct {
	listener *Listener
	seq      uint64
}

// listenerSet keeps registration order with O(1) membership checks.
type listenerSet struct {
	order []entry
	index map[uint64]uint64 // listener ID -> seq
}

func newListenerSet() *listenerSet {
	return &listenerSet{index: make(map[uint64]uint64)}
}

func (s *listenerSet) add(l *Listener, seq uint64) bool {
	if _, ok := s.index[l.id]; ok {
		return false
	}
	s.index[l.id] = seq
	s.order = append(s.order, entry{listener: l, seq: seq})
	return true
}

func (s *listenerSet) remove(l *Listener) bool {
	if _, ok := s.index[l.id]; !ok {
		return false
	}
	delete(s.index, l.id)
	for i, e := range s.order {
		if e.listener.id == l.id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *listenerSet) holds(e entry) bool {
	seq, ok := s.index[e.listener.id]
	return ok && seq == e.seq
}

// Registry maps keys, plus one wildcard channel, to listener sets.
//
// Emission is synchronous and never holds the registry lock while a
// listener runs, so listeners may register, unregister and emit freely.
type Registry[K comparable] struct {
	mu   sync.Mutex
	sets map[channel[K]]*listenerSet
	seq  uint64

	name     string
	logger   *slog.Logger
	observer Observer
}

// Option configures a Registry.
type Option func(*options)

type options struct {
	name     string
	logger   *slog.Logger
	observer Observer
}

// WithName sets the name reported to logs and observers.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger sets the logger used for listener panics.
// Default: slog.Default()
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver attaches an emission observer.
func WithObserver(observer Observer) Option {
	return func(o *options) {
		o.observer = observer
	}
}

// NewRegistry creates an empty registry.
func NewRegistry[K comparable](opts ...Option) *Registry[K] {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	return &Registry[K]{
		sets:     make(map[channel[K]]*listenerSet),
		name:     o.name,
		logger:   o.logger,
		observer: o.observer,
	}
}

// Name returns the registry name.
func (r *Registry[K]) Name() string {
	return r.name
}

// On registers l under key and returns a handle removing exactly this
// listener/key pair.
func (r *Registry[K]) On(key K, l *Listener) Unsubscribe {
	return r.on(channel[K]{key: key}, l)
}

// OnAny registers l on the wildcard channel.
func (r *Registry[K]) OnAny(l *Listener) Unsubscribe {
	return r.on(channel[K]{wildcard: true}, l)
}

// Off removes l from key. Removing an absent listener is a no-op.
func (r *Registry[K]) Off(key K, l *Listener) {
	r.off(channel[K]{key: key}, l)
}

// OffAny removes l from the wildcard channel.
func (r *Registry[K]) OffAny(l *Listener) {
	r.off(channel[K]{wildcard: true}, l)
}

// Emit invokes every listener registered on key when the call starts.
func (r *Registry[K]) Emit(key K, args ...any) {
	r.emit(channel[K]{key: key}, args)
}

// EmitAny invokes every listener registered on the wildcard channel.
func (r *Registry[K]) EmitAny(args ...any) {
	r.emit(channel[K]{wildcard: true}, args)
}

// Clear drops every channel and listener.
func (r *Registry[K]) Clear() {
	r.mu.Lock()
	r.sets = make(map[channel[K]]*listenerSet)
	r.mu.Unlock()
}

// Len returns the number of listeners on key.
func (r *Registry[K]) Len(key K) int {
	return r.size(channel[K]{key: key})
}

// LenAny returns the number of wildcard listeners.
func (r *Registry[K]) LenAny() int {
	return r.size(channel[K]{wildcard: true})
}

// Total returns the number of registrations across all channels.
func (r *Registry[K]) Total() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, set := range r.sets {
		n += len(set.order)
	}
	return n
}

// Has reports whether l is registered on key.
func (r *Registry[K]) Has(key K, l *Listener) bool {
	return r.has(channel[K]{key: key}, l)
}

// HasAny reports whether l is registered on the wildcard channel.
func (r *Registry[K]) HasAny(l *Listener) bool {
	return r.has(channel[K]{wildcard: true}, l)
}

// Keys returns the keys that currently have listeners. The wildcard
// channel is not included.
func (r *Registry[K]) Keys() []K {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]K, 0, len(r.sets))
	for ch := range r.sets {
		if !ch.wildcard {
			keys = append(keys, ch.key)
		}
	}
	return keys
}

func (r *Registry[K]) on(ch channel[K], l *Listener) Unsubscribe {
	if l == nil {
		return func() {}
	}

	r.mu.Lock()
	set, ok := r.sets[ch]
	if !ok {
		set = newListenerSet()
		r.sets[ch] = set
	}
	r.seq++
	set.add(l, r.seq)
	r.mu.Unlock()

	return func() { r.off(ch, l) }
}

func (r *Registry[K]) off(ch channel[K], l *Listener) {
	if l == nil {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.sets[ch]
	if !ok {
		return
	}
	set.remove(l)
	if len(set.order) == 0 {
		delete(r.sets, ch)
	}
}

func (r *Registry[K]) size(ch channel[K]) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.sets[ch]; ok {
		return len(set.order)
	}
	return 0
}

func (r *Registry[K]) has(ch channel[K], l *Listener) bool {
	if l == nil {
		return false
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sets[ch]
	if !ok {
		return false
	}
	_, ok = set.index[l.id]
	return ok
}

// stillRegistered reports whether e is the same membership that was
// captured when the emission started.
func (r *Registry[K]) stillRegistered(ch channel[K], e entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sets[ch]
	return ok && set.holds(e)
}

func (r *Registry[K]) emit(ch channel[K], args []any) {
	// Copy the set while holding the lock, notify without it.
	r.mu.Lock()
	set, ok := r.sets[ch]
	if !ok {
		r.mu.Unlock()
		return
	}
	snapshot := make([]entry, len(set.order))
	copy(snapshot, set.order)
	r.mu.Unlock()

	seq := emitCounter.Add(1)
	label := r.label(ch)
	start := time.Now()
	invoked, panics := 0, 0
	for _, e := range snapshot {
		if !r.stillRegistered(ch, e) {
			continue
		}
		invoked++
		if !r.invoke(seq, label, e.listener, args) {
			panics++
		}
	}

	if r.observer != nil {
		r.observer.ObserveEmit(EmitInfo{
			Seq:       seq,
			Registry:  r.name,
			Channel:   label,
			Wildcard:  ch.wildcard,
			Listeners: invoked,
			Panics:    panics,
			Start:     start,
			Duration:  time.Since(start),
		})
	}
}

// invoke runs one listener, recovering a panic. It reports whether the
// listener returned normally.
func (r *Registry[K]) invoke(seq uint64, label string, l *Listener, args []any) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			ok = false
			r.logger.Error("listener panicked",
				"registry", r.name,
				"channel", label,
				"listener", l.id,
				"panic", p,
				"stack", string(debug.Stack()),
			)
			if r.observer != nil {
				r.observer.ObservePanic(PanicInfo{
					Seq:        seq,
					Registry:   r.name,
					Channel:    label,
					ListenerID: l.id,
					Value:      p,
				})
			}
		}
	}()
	l.Call(args...)
	return true
}

func (r *Registry[K]) label(ch channel[K]) string {
	if ch.wildcard {
		return WildcardLabel
	}
	return fmt.Sprint(ch.key)
}
