package todo

import (
	"bytes"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/vango-dev/minstate/pkg/events"
	"github.com/vango-dev/minstate/pkg/state"
)

var fixed = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newApp(out io.Writer) *App {
	return New(out,
		WithClock(func() time.Time { return fixed }),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
}

func lastFrame(out, name string) string {
	marker := "--- " + name + "\n"
	i := strings.LastIndex(out, marker)
	if i < 0 {
		return ""
	}
	rest := out[i+len(marker):]
	if j := strings.Index(rest, "--- "); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

func TestAddTodo(t *testing.T) {
	var out bytes.Buffer
	app := newApp(&out)
	app.Mount()
	defer app.Unmount()

	app.Type("milk")
	if got := lastFrame(out.String(), "input"); got != "> milk\n" {
		t.Errorf("input frame = %q", got)
	}

	app.Enter()

	todos := app.Todos()
	if len(todos) != 1 || todos[0].Name != "milk" {
		t.Fatalf("todos = %+v", todos)
	}
	if got := lastFrame(out.String(), "list"); got != "Todos (1)\n  [ ] milk\n" {
		t.Errorf("list frame = %q", got)
	}
	if got := lastFrame(out.String(), "input"); got != "> \n" {
		t.Errorf("input not cleared: %q", got)
	}
	footer := lastFrame(out.String(), "footer")
	if !strings.Contains(footer, "0 of 1 done") || !strings.Contains(footer, "Last edited: 2024-03-01 12:00:00") {
		t.Errorf("footer frame = %q", footer)
	}
}

func TestEnterWithoutPending(t *testing.T) {
	var out bytes.Buffer
	app := newApp(&out)

	app.Enter()
	if len(app.Todos()) != 0 {
		t.Error("empty input added a todo")
	}
	if !app.State.Get(KeyLastEdit).(time.Time).IsZero() {
		t.Error("lastEdit changed without a todos write")
	}
}

func TestFirstTodoListenerRemovesItself(t *testing.T) {
	var out bytes.Buffer
	app := newApp(&out)

	before := app.State.ListenerCount(KeyTodos)

	app.Type("a")
	app.Enter()
	app.Type("b")
	app.Enter()

	if n := strings.Count(out.String(), "Congrats!"); n != 1 {
		t.Errorf("congratulated %d times", n)
	}
	if !app.Congratulated() {
		t.Error("Congratulated() = false")
	}
	if after := app.State.ListenerCount(KeyTodos); after != before-1 {
		t.Errorf("listener count %d -> %d", before, after)
	}
}

func TestToggleAndClearDone(t *testing.T) {
	var out bytes.Buffer
	app := newApp(&out)
	app.Mount()
	defer app.Unmount()

	for _, name := range []string{"a", "b", "c"} {
		app.Type(name)
		app.Enter()
	}

	app.Toggle(1, true)
	app.Toggle(9, true)
	if got := lastFrame(out.String(), "list"); got != "Todos (3)\n  [ ] a\n  [x] b\n  [ ] c\n" {
		t.Errorf("list frame = %q", got)
	}
	if footer := lastFrame(out.String(), "footer"); !strings.Contains(footer, "1 of 3 done") {
		t.Errorf("footer frame = %q", footer)
	}

	app.ClearDone()
	if got := lastFrame(out.String(), "list"); got != "Todos (2)\n  [ ] a\n  [ ] c\n" {
		t.Errorf("list frame = %q", got)
	}
}

func TestMouseDown(t *testing.T) {
	var out bytes.Buffer
	app := newApp(&out)
	app.Mount()
	defer app.Unmount()

	app.MouseDown()
	app.MouseDown()

	if app.Clicks.Get() != 2 {
		t.Errorf("clicks = %d", app.Clicks.Get())
	}
	if footer := lastFrame(out.String(), "footer"); !strings.Contains(footer, "2 clicks") {
		t.Errorf("footer frame = %q", footer)
	}
	if v := app.State.Get(KeyMousedown); v != nil {
		t.Errorf("emit must not write the field, got %v", v)
	}
}

func TestClicksShareStateOptions(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, nil))
	obs := &countingObserver{}

	app := New(io.Discard,
		WithLogger(logger),
		WithStateOptions(state.WithDebug(true), state.WithLogger(logger), state.WithObserver(obs)),
	)
	app.Clicks.OnAny(state.WatchAtom(func(int, int) {}))

	app.MouseDown()

	if !strings.Contains(logs.String(), "atom=clicks") {
		t.Errorf("click write not logged: %q", logs.String())
	}
	if obs.registries["clicks"] == 0 {
		t.Errorf("click emissions not observed: %v", obs.registries)
	}
}

type countingObserver struct {
	registries map[string]int
}

func (o *countingObserver) ObserveEmit(info events.EmitInfo) {
	if o.registries == nil {
		o.registries = make(map[string]int)
	}
	o.registries[info.Registry]++
}

func (o *countingObserver) ObservePanic(events.PanicInfo) {}

func TestUnmount(t *testing.T) {
	var out bytes.Buffer
	app := newApp(&out)
	app.Mount()
	app.Unmount()

	if n := app.State.TotalListeners(); n != 0 {
		t.Errorf("expected no listeners, got %d", n)
	}
	if n := app.Clicks.ListenerCount(); n != 0 {
		t.Errorf("expected no atom listeners, got %d", n)
	}

	out.Reset()
	app.Type("x")
	if out.Len() != 0 {
		t.Errorf("unmounted app rendered %q", out.String())
	}
}
