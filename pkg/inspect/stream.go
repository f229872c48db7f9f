package inspect

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/vango-dev/minstate/pkg/state"
)

// Event is one message of the event stream. The first message of every
// stream is a snapshot; each later one describes a change.
type Event struct {
	Type   string         `json:"type"`
	State  string         `json:"state"`
	Key    string         `json:"key,omitempty"`
	Value  any            `json:"value,omitempty"`
	Old    any            `json:"old,omitempty"`
	Fields map[string]any `json:"fields,omitempty"`
	Args   []any          `json:"args,omitempty"`
	Time   time.Time      `json:"time"`
}

// Event types. An emit event carries the raw arguments of a wildcard
// emission that is not a field write, such as EmitAny or UpdateAll.
const (
	EventSnapshot = "snapshot"
	EventChange   = "change"
	EventEmit     = "emit"
)

// client is one websocket subscriber.
type client struct {
	conn   *websocket.Conn
	events chan Event
	done   chan struct{}
	once   sync.Once
}

func newClient(conn *websocket.Conn, buffer int) *client {
	return &client{
		conn:   conn,
		events: make(chan Event, buffer),
		done:   make(chan struct{}),
	}
}

// offer queues ev without blocking. It reports false when the queue is
// full or the client is gone.
func (c *client) offer(ev Event) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.events <- ev:
		return true
	default:
		return false
	}
}

func (c *client) close() {
	c.once.Do(func() {
		close(c.done)
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// readLoop discards incoming messages and closes the client when the peer
// goes away.
func (c *client) readLoop() {
	defer c.close()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	src, ok := s.source(r)
	if !ok {
		s.writeError(w, http.StatusNotFound, "unknown state")
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader already replied with an HTTP error.
		s.config.Logger.Warn("inspect: websocket upgrade failed", "error", err)
		return
	}

	c := newClient(conn, s.config.EventBuffer)
	s.mu.Lock()
	s.clients[c] = struct{}{}
	s.mu.Unlock()

	name := src.Name()
	off := src.OnAny(state.WatchAny(func(ch state.Change) {
		ev := Event{Type: EventEmit, State: name, Args: ch.Args, Time: time.Now()}
		if ch.IsWrite() {
			ev = Event{
				Type:  EventChange,
				State: name,
				Key:   ch.Key,
				Value: ch.Value,
				Old:   ch.Old,
				Time:  ev.Time,
			}
		}
		if !c.offer(ev) {
			s.dropped.Add(1)
		}
	}))

	defer func() {
		off()
		c.close()
		s.mu.Lock()
		delete(s.clients, c)
		s.mu.Unlock()
	}()

	go c.readLoop()

	snapshot := Event{Type: EventSnapshot, State: name, Fields: src.Pure(), Time: time.Now()}
	if !s.write(c, snapshot) {
		return
	}

	for {
		select {
		case <-c.done:
			return
		case ev := <-c.events:
			if !s.write(c, ev) {
				return
			}
		}
	}
}

// write sends one event. Events whose values cannot be encoded are logged
// and skipped; a failed write ends the stream.
func (s *Server) write(c *client, ev Event) bool {
	data, err := json.Marshal(ev)
	if err != nil {
		s.config.Logger.Warn("inspect: event not encodable", "state", ev.State, "key", ev.Key, "error", err)
		return true
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		s.config.Logger.Debug("inspect: websocket write failed", "error", err)
		return false
	}
	return true
}
