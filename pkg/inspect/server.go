package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/minstate/pkg/events"
)

// ErrDuplicate is returned by Register for a name already in use.
var ErrDuplicate = errors.New("inspect: state already registered")

// Source is a state container the inspector can read. *state.State
// implements it.
type Source interface {
	Name() string
	Keys() []string
	Lookup(key string) (any, bool)
	Pure() map[string]any
	OnAny(l *events.Listener) events.Unsubscribe
}

// Server is a read-only HTTP view of registered states:
//
//	GET /states                      names and keys of every state
//	GET /states/{name}               snapshot of one state
//	GET /states/{name}/keys/{key}    one field
//	GET /states/{name}/events        websocket stream of changes
//	GET /metrics                     Prometheus metrics
type Server struct {
	config   Config
	router   chi.Router
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	sources map[string]Source
	clients map[*client]struct{}

	dropped atomic.Uint64
}

// New creates an inspector with no registered states.
func New(opts ...Option) *Server {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.EventBuffer < 1 {
		config.EventBuffer = 1
	}

	s := &Server{
		config: config,
		upgrader: websocket.Upgrader{
			CheckOrigin: config.CheckOrigin,
		},
		sources: make(map[string]Source),
		clients: make(map[*client]struct{}),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/states", s.handleList)
	r.Route("/states/{name}", func(r chi.Router) {
		r.Get("/", s.handleState)
		r.Get("/keys/{key}", s.handleKey)
		r.Get("/events", s.handleEvents)
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(config.Gatherer, promhttp.HandlerOpts{}))
	s.router = r

	return s
}

// Register makes src visible under src.Name().
func (s *Server) Register(src Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sources[src.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, src.Name())
	}
	s.sources[src.Name()] = src
	return nil
}

// Unregister removes the state registered under name. Open event streams
// keep running until their clients disconnect.
func (s *Server) Unregister(name string) {
	s.mu.Lock()
	delete(s.sources, name)
	s.mu.Unlock()
}

// Dropped returns the number of events dropped because a client queue was
// full.
func (s *Server) Dropped() uint64 {
	return s.dropped.Load()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("inspect: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down and closes every
// event stream.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	s.config.Logger.Info("inspector listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	s.Close()
	<-errCh
	return err
}

// Close disconnects every event stream.
func (s *Server) Close() {
	s.mu.Lock()
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
}

func (s *Server) source(r *http.Request) (Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, ok := s.sources[chi.URLParam(r, "name")]
	return src, ok
}

type stateSummary struct {
	Name string   `json:"name"`
	Keys []string `json:"keys"`
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	list := make([]stateSummary, 0, len(s.sources))
	for name, src := range s.sources {
		list = append(list, stateSummary{Name: name, Keys: src.Keys()})
	}
	s.mu.RUnlock()

	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	s.writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	src, ok := s.source(r)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown state")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"name":   src.Name(),
		"fields": src.Pure(),
	})
}

func (s *Server) handleKey(w http.ResponseWriter, r *http.Request) {
	src, ok := s.source(r)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown state")
		return
	}
	key := chi.URLParam(r, "key")
	value, ok := src.Lookup(key)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown key")
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"key":   key,
		"value": value,
	})
}

// writeJSON encodes v before writing anything, so an unencodable value
// turns into a 500 instead of a truncated body.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		s.config.Logger.Error("inspect: encode response", "error", err)
		s.writeError(w, http.StatusInternalServerError, "value cannot be encoded as JSON")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(data, '\n'))
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
