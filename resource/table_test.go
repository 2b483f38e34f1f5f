package resource

import (
	stderrors "errors"
	"sync"
	"testing"

	"github.com/wippyai/hostbridge/errors"
)

type testObserver struct {
	events []Event
	mu     sync.Mutex
}

func (o *testObserver) OnResourceEvent(e Event) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, e)
}

type dropCounter struct {
	drops int
}

func (d *dropCounter) Drop() { d.drops++ }

func TestTable_Basic(t *testing.T) {
	table := NewTable()

	h, err := table.Insert("User", "alice")
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if h == 0 {
		t.Fatal("Expected non-zero handle")
	}

	val, ok := table.Get(h)
	if !ok || val != "alice" {
		t.Fatalf("Get = %v, %v", val, ok)
	}

	if _, err := table.Lookup(h, "User"); err != nil {
		t.Fatalf("Lookup with correct class failed: %v", err)
	}
	if _, err := table.Lookup(h, ""); err != nil {
		t.Fatalf("Lookup without class failed: %v", err)
	}

	_, err = table.Lookup(h, "Renderer")
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindTypeMismatch {
		t.Fatalf("Lookup with wrong class: got %v", err)
	}
	if e.Expected() != "Renderer" || e.Actual() != "User" {
		t.Errorf("expected/actual = %q/%q", e.Expected(), e.Actual())
	}

	val, err = table.Remove(h)
	if err != nil || val != "alice" {
		t.Fatalf("Remove = %v, %v", val, err)
	}
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Remove")
	}
}

func TestTable_MissingHandles(t *testing.T) {
	table := NewTable()

	for _, h := range []Handle{0, 1, 99} {
		if _, err := table.Lookup(h, ""); !stderrors.Is(err, errors.ErrMissingObject) {
			t.Errorf("Lookup(%d): got %v, want missing object", h, err)
		}
		if _, err := table.Remove(h); !stderrors.Is(err, errors.ErrMissingObject) {
			t.Errorf("Remove(%d): got %v, want missing object", h, err)
		}
	}

	h, _ := table.Insert("User", 1)
	if _, err := table.Remove(h); err != nil {
		t.Fatal(err)
	}
	if _, err := table.Lookup(h, "User"); !stderrors.Is(err, errors.ErrMissingObject) {
		t.Errorf("Lookup after Remove: got %v", err)
	}
	if _, err := table.Remove(h); !stderrors.Is(err, errors.ErrMissingObject) {
		t.Errorf("double Remove: got %v", err)
	}
}

func TestTable_HandleReuse(t *testing.T) {
	table := NewTable()

	h1, _ := table.Insert("A", 1)
	h2, _ := table.Insert("A", 2)
	if h1 == h2 {
		t.Fatal("live handles must differ")
	}

	if _, err := table.Remove(h1); err != nil {
		t.Fatal(err)
	}
	h3, _ := table.Insert("B", 3)
	if h3 != h1 {
		t.Errorf("expected freed handle %d to be reused, got %d", h1, h3)
	}
	if v, _ := table.Lookup(h3, "B"); v != 3 {
		t.Errorf("reused slot holds %v", v)
	}
}

func TestTable_Borrow(t *testing.T) {
	table := NewTable()
	h, _ := table.Insert("User", "bob")

	v, err := table.Borrow(h, "User")
	if err != nil || v != "bob" {
		t.Fatalf("Borrow = %v, %v", v, err)
	}

	if _, err := table.Remove(h); !errors.IsKind(err, errors.KindInvalidInput) {
		t.Fatalf("Remove while borrowed: got %v", err)
	}

	if !table.Return(h) {
		t.Fatal("Return failed")
	}
	if table.Return(h) {
		t.Fatal("Return without borrow should fail")
	}

	if _, err := table.Borrow(h, "Other"); err == nil {
		t.Fatal("Borrow with wrong class should fail")
	}
	if _, err := table.Remove(h); err != nil {
		t.Fatalf("Remove after failed typed borrow should succeed: %v", err)
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	table.Subscribe(obs)

	var fn []EventType
	table.Subscribe(ObserverFunc(func(e Event) { fn = append(fn, e.Type) }))

	h, _ := table.Insert("User", "x")
	if _, err := table.Remove(h); err != nil {
		t.Fatal(err)
	}

	if len(obs.events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(obs.events))
	}
	if obs.events[0].Type != EventInserted || obs.events[0].Class != "User" {
		t.Errorf("first event = %+v", obs.events[0])
	}
	if obs.events[1].Type != EventRemoved || obs.events[1].Handle != h {
		t.Errorf("second event = %+v", obs.events[1])
	}
	if len(fn) != 2 || fn[1].String() != "removed" {
		t.Errorf("ObserverFunc saw %v", fn)
	}
}

func TestTable_DropperAndClose(t *testing.T) {
	table := NewTable()

	removed := &dropCounter{}
	kept := &dropCounter{}
	h, _ := table.Insert("Swap", removed)
	_, _ = table.Insert("Swap", kept)

	if _, err := table.Remove(h); err != nil {
		t.Fatal(err)
	}
	if removed.drops != 1 {
		t.Errorf("removed value dropped %d times", removed.drops)
	}

	if err := table.Close(); err != nil {
		t.Fatal(err)
	}
	if kept.drops != 1 {
		t.Errorf("live value dropped %d times on Close", kept.drops)
	}
	if err := table.Close(); err != nil {
		t.Fatal(err)
	}
	if kept.drops != 1 {
		t.Error("second Close must not drop again")
	}

	if _, err := table.Insert("Swap", 1); !errors.IsKind(err, errors.KindClosed) {
		t.Errorf("Insert after Close: got %v", err)
	}
}

func TestTable_ClearAndEach(t *testing.T) {
	table := NewTable()
	for i := 0; i < 5; i++ {
		_, _ = table.Insert("N", i)
	}

	var seen []any
	table.Each(func(_ Handle, class string, v any) bool {
		if class != "N" {
			t.Errorf("class = %q", class)
		}
		seen = append(seen, v)
		return len(seen) < 3
	})
	if len(seen) != 3 {
		t.Errorf("Each should stop early, saw %d", len(seen))
	}

	table.Clear()
	if table.Len() != 0 {
		t.Errorf("Len after Clear = %d", table.Len())
	}
}

func TestTable_Concurrent(t *testing.T) {
	table := NewTable()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				h, err := table.Insert("N", i)
				if err != nil {
					t.Error(err)
					return
				}
				if _, err := table.Borrow(h, "N"); err != nil {
					t.Error(err)
					return
				}
				table.Return(h)
				if _, err := table.Remove(h); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()

	if table.Len() != 0 {
		t.Errorf("Len = %d, want 0", table.Len())
	}
}
