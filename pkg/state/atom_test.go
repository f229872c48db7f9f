package state

import (
	"reflect"
	"testing"

	"github.com/vango-dev/minstate/pkg/events"
)

func TestAtomBasic(t *testing.T) {
	count := NewAtom(0)

	if count.Get() != 0 {
		t.Errorf("expected initial value 0, got %d", count.Get())
	}

	count.Set(5)
	if count.Get() != 5 {
		t.Errorf("expected value 5, got %d", count.Get())
	}

	count.SetFunc(func(n int) int { return n * 2 })
	if count.Get() != 10 {
		t.Errorf("expected value 10, got %d", count.Get())
	}
}

func TestAtomEmissionShape(t *testing.T) {
	name := NewAtom("a")

	var slotArgs, wildArgs []any
	name.On(events.NewListener(func(args ...any) { slotArgs = args }))
	name.OnAny(events.NewListener(func(args ...any) { wildArgs = args }))

	name.Set("b")

	if !reflect.DeepEqual(slotArgs, []any{"b", "a"}) {
		t.Errorf("slot args = %v", slotArgs)
	}
	// No key argument on the wildcard channel.
	if !reflect.DeepEqual(wildArgs, []any{"b", "a"}) {
		t.Errorf("wildcard args = %v", wildArgs)
	}
}

func TestAtomWatch(t *testing.T) {
	count := NewAtom(1)

	var value, old int
	count.On(WatchAtom(func(v, o int) { value, old = v, o }))
	count.Set(2)

	if value != 2 || old != 1 {
		t.Errorf("got (%d, %d), want (2, 1)", value, old)
	}
}

func TestAtomUpdate(t *testing.T) {
	items := NewAtom([]string{"a"})

	calls := 0
	items.On(WatchAtom(func(v, o []string) {
		calls++
		if v[0] != "z" || o[0] != "z" {
			t.Errorf("expected mutated slice in both arguments, got %v %v", v, o)
		}
	}))

	items.Get()[0] = "z"
	items.Update()

	if calls != 1 {
		t.Errorf("expected 1 emission, got %d", calls)
	}
}

func TestAtomNoChangeNoop(t *testing.T) {
	flag := NewAtom(true, WithNoChangeNoop())
	calls := 0
	flag.OnAny(WatchAtom(func(bool, bool) { calls++ }))

	flag.Set(true)
	flag.Set(false)

	if calls != 1 {
		t.Errorf("expected 1 emission, got %d", calls)
	}
}

func TestAtomOnceAndOff(t *testing.T) {
	n := NewAtom(0)

	calls := 0
	n.Once(WatchAtom(func(int, int) { calls++ }))
	l := WatchAtom(func(int, int) { calls += 10 })
	n.On(l)
	n.Off(l)

	n.Set(1)
	n.Set(2)

	if calls != 1 {
		t.Errorf("expected 1, got %d", calls)
	}
	if n.ListenerCount() != 0 {
		t.Errorf("expected no listeners, got %d", n.ListenerCount())
	}
}

func TestAtomNext(t *testing.T) {
	n := NewAtom(0)
	f := n.Next()
	n.Set(3)
	n.Set(4)

	v, ok := f.Value()
	if !ok || v != 3 {
		t.Errorf("expected 3, got %d (resolved=%v)", v, ok)
	}
}

func TestAtomUntil(t *testing.T) {
	n := NewAtom(0)
	f := n.Until(func(v int) bool { return v > 5 })

	for _, v := range []int{1, 3, 4} {
		n.Set(v)
	}
	if _, ok := f.Value(); ok {
		t.Fatal("resolved early")
	}

	n.Set(7)
	if _, ok := f.Value(); !ok {
		t.Error("expected resolution on 7")
	}

	already := n.Until(func(v int) bool { return v == 7 })
	if _, ok := already.Value(); !ok {
		t.Error("expected immediate resolution")
	}
}

func TestAtomUntilDefaultsToTruthy(t *testing.T) {
	name := NewAtom("")
	f := name.Until(nil)
	if _, ok := f.Value(); ok {
		t.Fatal("empty string must not satisfy the default predicate")
	}

	name.Set("milk")
	if _, ok := f.Value(); !ok {
		t.Error("expected resolution on a non-empty value")
	}
	if name.ListenerCount() != 0 {
		t.Errorf("expected Until to unsubscribe, %d left", name.ListenerCount())
	}

	if _, ok := NewAtom(1).Until(nil).Value(); !ok {
		t.Error("expected immediate resolution for a truthy value")
	}
}

func TestAtomEmitAndClear(t *testing.T) {
	n := NewAtom(0)

	var got []any
	n.On(events.NewListener(func(args ...any) { got = args }))
	n.Emit("tick")
	if !reflect.DeepEqual(got, []any{"tick"}) {
		t.Errorf("unexpected args %v", got)
	}

	f := n.Next()
	n.Clear()
	n.Set(9)
	if _, ok := f.Value(); ok {
		t.Error("future resolved after Clear")
	}
}
