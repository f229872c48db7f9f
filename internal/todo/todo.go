package todo

import (
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/vango-dev/minstate/pkg/binding"
	"github.com/vango-dev/minstate/pkg/events"
	"github.com/vango-dev/minstate/pkg/state"
)

// Field names of the todo state.
const (
	KeyTodos     = "todos"
	KeyNewTodo   = "newTodo"
	KeyLastEdit  = "lastEdit"
	KeyMousedown = "mousedown"
)

// Todo is one item of the list.
type Todo struct {
	Name string `json:"name"`
	Done bool   `json:"done"`
}

// Option configures an App.
type Option func(*App)

// WithLogger sets the logger for application events.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *App) {
		a.now = now
	}
}

// WithStateOptions passes options to the underlying State.
func WithStateOptions(opts ...state.Option) Option {
	return func(a *App) {
		a.stateOpts = append(a.stateOpts, opts...)
	}
}

// App is the todo list: a State with a few listeners wired to it and three
// components rendering it as text.
type App struct {
	State  *state.State
	Clicks *state.Atom[int]

	out       io.Writer
	logger    *slog.Logger
	now       func() time.Time
	stateOpts []state.Option

	list, input, footer *binding.Component
	offs                []events.Unsubscribe
	congratulated       bool
}

// New creates the app. Rendered frames are written to out.
func New(out io.Writer, opts ...Option) *App {
	a := &App{
		out:    out,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	a.State = state.New(map[string]any{
		KeyTodos:     []*Todo{},
		KeyNewTodo:   (*Todo)(nil),
		KeyLastEdit:  time.Time{},
		KeyMousedown: nil,
	}, a.stateOpts...)
	// The atom shares debug, logger and observer settings with the state.
	a.Clicks = state.NewAtom(0, append(slices.Clone(a.stateOpts), state.WithName("clicks"))...)

	a.wire()
	return a
}

// wire registers the application listeners.
func (a *App) wire() {
	st := a.State

	// lastEdit is derived from every change of todos.
	a.offs = append(a.offs, st.On(KeyTodos, events.NewListener(func(...any) {
		st.Set(KeyLastEdit, a.now())
	})))

	// Fires once, on the first non-empty list, and then removes itself.
	var first *events.Listener
	first = events.NewListener(func(args ...any) {
		if todos, _ := st.Get(KeyTodos).([]*Todo); len(todos) > 0 {
			a.congratulated = true
			fmt.Fprintln(a.out, "Congrats! You added your first todo!")
			st.Off(KeyTodos, first)
		}
	})
	a.offs = append(a.offs, st.On(KeyTodos, first))

	a.offs = append(a.offs, st.On(KeyMousedown, events.NewListener(func(args ...any) {
		if len(args) > 0 {
			a.logger.Info("mouse down", "time", args[0])
		}
		a.Clicks.SetFunc(func(n int) int { return n + 1 })
	})))
}

// Congratulated reports whether the first-todo listener has fired.
func (a *App) Congratulated() bool {
	return a.congratulated
}

// Todos returns the current list.
func (a *App) Todos() []*Todo {
	todos, _ := a.State.Get(KeyTodos).([]*Todo)
	return todos
}

// Type replaces the text of the pending todo.
func (a *App) Type(name string) {
	a.State.Set(KeyNewTodo, &Todo{Name: name})
}

// Enter appends the pending todo, if any, and clears the input.
func (a *App) Enter() {
	pending, _ := a.State.Get(KeyNewTodo).(*Todo)
	if pending == nil {
		return
	}
	a.State.SetFunc(KeyTodos, func(old any) any {
		todos, _ := old.([]*Todo)
		return append(todos, pending)
	})
	a.State.Set(KeyNewTodo, (*Todo)(nil))
}

// Toggle marks todo i done or not. The item is changed in place and the
// list re-announced.
func (a *App) Toggle(i int, done bool) {
	todos := a.Todos()
	if i < 0 || i >= len(todos) {
		return
	}
	todos[i].Done = done
	a.State.Update(KeyTodos)
}

// ClearDone removes finished todos.
func (a *App) ClearDone() {
	a.State.SetFunc(KeyTodos, func(old any) any {
		todos, _ := old.([]*Todo)
		kept := make([]*Todo, 0, len(todos))
		for _, t := range todos {
			if !t.Done {
				kept = append(kept, t)
			}
		}
		return kept
	})
}

// MouseDown emits an application event carrying the current time.
func (a *App) MouseDown() {
	a.State.Emit(KeyMousedown, a.now())
}

// Mount creates the components and renders each of them once.
func (a *App) Mount() {
	a.list = a.mount(a.renderList)
	a.input = a.mount(a.renderInput)
	a.footer = a.mount(a.renderFooter)
}

// mount creates a component that renders itself again whenever one of its
// hooks fires.
func (a *App) mount(render func(*binding.Component)) *binding.Component {
	var c *binding.Component
	c = binding.NewComponent(func() {
		c.Render(func() { render(c) })
	})
	c.Render(func() { render(c) })
	return c
}

// Unmount disposes the components and the application listeners.
func (a *App) Unmount() {
	for _, c := range []*binding.Component{a.footer, a.input, a.list} {
		if c != nil {
			c.Dispose()
		}
	}
	for _, off := range a.offs {
		off()
	}
	a.offs = nil
}

func (a *App) renderList(c *binding.Component) {
	fields := binding.Use(c, a.State)
	todos, _ := fields[KeyTodos].([]*Todo)

	var b strings.Builder
	fmt.Fprintf(&b, "Todos (%d)\n", len(todos))
	for _, t := range todos {
		mark := " "
		if t.Done {
			mark = "x"
		}
		fmt.Fprintf(&b, "  [%s] %s\n", mark, t.Name)
	}
	a.frame("list", b.String())
}

func (a *App) renderInput(c *binding.Component) {
	pending, _ := binding.UseKey(c, a.State, KeyNewTodo).(*Todo)
	text := ""
	if pending != nil {
		text = pending.Name
	}
	a.frame("input", fmt.Sprintf("> %s\n", text))
}

func (a *App) renderFooter(c *binding.Component) {
	values := binding.UseKeys(c, a.State, []string{KeyTodos, KeyLastEdit})
	clicks := binding.UseAtom(c, a.Clicks)

	todos, _ := values[0].([]*Todo)
	done := 0
	for _, t := range todos {
		if t.Done {
			done++
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d of %d done, %d clicks\n", done, len(todos), clicks)
	if last, _ := values[1].(time.Time); !last.IsZero() {
		fmt.Fprintf(&b, "Last edited: %s\n", last.Format(time.DateTime))
	}
	a.frame("footer", b.String())
}

func (a *App) frame(name, body string) {
	fmt.Fprintf(a.out, "--- %s\n%s", name, body)
}
