package inspect

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/goleak"

	"github.com/vango-dev/minstate/pkg/observe"
	"github.com/vango-dev/minstate/pkg/state"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *state.State, *httptest.Server) {
	t.Helper()

	st := state.New(map[string]any{"count": 1, "name": "milk"}, state.WithName("todo"))
	s := New(append([]Option{WithLogger(quietLogger())}, opts...)...)
	if err := s.Register(st); err != nil {
		t.Fatalf("Register: %v", err)
	}

	ts := httptest.NewServer(s)
	t.Cleanup(func() {
		s.Close()
		ts.Close()
	})
	return s, st, ts
}

func getJSON(t *testing.T, url string, v any) int {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	if v != nil {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestListStates(t *testing.T) {
	s, _, ts := newTestServer(t)
	if err := s.Register(state.New(nil, state.WithName("another"))); err != nil {
		t.Fatal(err)
	}

	var list []stateSummary
	if code := getJSON(t, ts.URL+"/states", &list); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if len(list) != 2 || list[0].Name != "another" || list[1].Name != "todo" {
		t.Fatalf("list = %+v", list)
	}
	if strings.Join(list[1].Keys, ",") != "count,name" {
		t.Errorf("keys = %v", list[1].Keys)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	s, st, _ := newTestServer(t)
	if err := s.Register(st); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate, got %v", err)
	}

	s.Unregister("todo")
	if err := s.Register(st); err != nil {
		t.Errorf("register after unregister: %v", err)
	}
}

func TestStateSnapshot(t *testing.T) {
	_, st, ts := newTestServer(t)
	st.Set("count", 2)

	var body struct {
		Name   string         `json:"name"`
		Fields map[string]any `json:"fields"`
	}
	if code := getJSON(t, ts.URL+"/states/todo", &body); code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	if body.Name != "todo" || body.Fields["count"] != float64(2) || body.Fields["name"] != "milk" {
		t.Errorf("body = %+v", body)
	}
}

func TestKeyEndpoint(t *testing.T) {
	_, st, ts := newTestServer(t)
	st.Set("fn", func() {})

	tests := []struct {
		name string
		path string
		code int
		want string
	}{
		{"field", "/states/todo/keys/name", http.StatusOK, `"value":"milk"`},
		{"unknown key", "/states/todo/keys/nope", http.StatusNotFound, "unknown key"},
		{"unknown state", "/states/nope/keys/name", http.StatusNotFound, "unknown state"},
		{"unknown state snapshot", "/states/nope", http.StatusNotFound, "unknown state"},
		{"unencodable", "/states/todo/keys/fn", http.StatusInternalServerError, "cannot be encoded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			body, _ := io.ReadAll(resp.Body)

			if resp.StatusCode != tt.code {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.code)
			}
			if !strings.Contains(string(body), tt.want) {
				t.Errorf("body %q does not contain %q", body, tt.want)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := observe.NewMetrics(observe.WithRegistry(reg))

	s := New(WithGatherer(reg), WithLogger(quietLogger()))
	st := state.New(nil, state.WithName("cart"), state.WithObserver(m))
	st.OnAny(state.WatchAny(func(state.Change) {}))
	st.Set("items", 1)
	_ = s.Register(st)

	ts := httptest.NewServer(s)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if !strings.Contains(string(body), `minstate_emits_total{channel="*",registry="cart"} 1`) {
		t.Errorf("metrics output missing emission counter:\n%s", body)
	}
}

func dial(t *testing.T, ts *httptest.Server, path string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + path
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read event: %v", err)
	}
	return ev
}

func TestEventStream(t *testing.T) {
	_, st, ts := newTestServer(t)
	conn := dial(t, ts, "/states/todo/events")

	snap := readEvent(t, conn)
	if snap.Type != EventSnapshot || snap.State != "todo" || snap.Fields["name"] != "milk" {
		t.Fatalf("snapshot = %+v", snap)
	}

	// The subscription exists before the snapshot is written.
	st.Set("count", 5)
	st.Set("name", "eggs")

	first := readEvent(t, conn)
	if first.Type != EventChange || first.Key != "count" || first.Value != float64(5) || first.Old != float64(1) {
		t.Errorf("first change = %+v", first)
	}
	second := readEvent(t, conn)
	if second.Key != "name" || second.Value != "eggs" {
		t.Errorf("second change = %+v", second)
	}
}

func TestEventStreamCustomEmission(t *testing.T) {
	_, st, ts := newTestServer(t)
	conn := dial(t, ts, "/states/todo/events")
	readEvent(t, conn)

	st.EmitAny(42, "x")

	ev := readEvent(t, conn)
	if ev.Type != EventEmit || ev.Key != "" || ev.Value != nil {
		t.Errorf("custom emission = %+v", ev)
	}
	if !reflect.DeepEqual(ev.Args, []any{float64(42), "x"}) {
		t.Errorf("args = %v", ev.Args)
	}
}

func TestEventStreamUnknownState(t *testing.T) {
	_, _, ts := newTestServer(t)
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/states/nope/events"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("expected dial error")
	}
	if resp == nil || resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 response, got %+v", resp)
	}
}

func TestEventStreamUnsubscribesOnDisconnect(t *testing.T) {
	_, st, ts := newTestServer(t)
	conn := dial(t, ts, "/states/todo/events")
	readEvent(t, conn)

	if st.AnyListenerCount() != 1 {
		t.Fatalf("expected a stream listener, got %d", st.AnyListenerCount())
	}
	_ = conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for st.AnyListenerCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("stream listener not removed after disconnect")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestClientDropsWhenFull(t *testing.T) {
	c := newClient(nil, 1)

	if !c.offer(Event{Key: "a"}) {
		t.Fatal("first event should be queued")
	}
	if c.offer(Event{Key: "b"}) {
		t.Error("second event should be dropped")
	}

	<-c.events
	c.close()
	if c.offer(Event{Key: "c"}) {
		t.Error("closed client accepted an event")
	}
	c.close()
}

func TestServeShutsDown(t *testing.T) {
	s := New(WithLogger(quietLogger()))
	_ = s.Register(state.New(nil, state.WithName("todo")))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	url := "ws://" + ln.Addr().String() + "/states/todo/events"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	readEvent(t, conn)

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Serve did not return")
	}

	// The server side closed the stream.
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("expected the stream to be closed")
	}
}
