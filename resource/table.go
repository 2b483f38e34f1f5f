package resource

import (
	"strconv"
	"sync"

	"github.com/wippyai/hostbridge/errors"
)

// Table maps integer handles to host objects for guests that cannot hold Go
// references. Each handle records the class it was inserted as.
//
// Table is safe for concurrent use.
type Table struct {
	store     *store
	observers []Observer
	obsMu     sync.RWMutex
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{store: newStore()}
}

func describe(h Handle) string {
	return "handle " + strconv.FormatUint(uint64(h), 10)
}

// Insert adds value under class and returns its handle.
func (t *Table) Insert(class string, value any) (Handle, error) {
	handle, ok := t.store.create(class, value)
	if !ok {
		return 0, errors.Closed("handle table")
	}

	t.notify(Event{
		Type:   EventInserted,
		Handle: handle,
		Class:  class,
		Value:  value,
	})
	return handle, nil
}

// Get retrieves a value by handle.
func (t *Table) Get(handle Handle) (any, bool) {
	v, _, ok := t.store.get(handle)
	return v, ok
}

// Lookup retrieves a value of the given class. An unknown handle fails with
// a MissingObject error, a handle of another class with a type mismatch.
func (t *Table) Lookup(handle Handle, class string) (any, error) {
	v, actual, ok := t.store.get(handle)
	if !ok {
		return nil, errors.MissingObject(describe(handle))
	}
	if class != "" && actual != class {
		return nil, errors.New(errors.PhaseHost, errors.KindTypeMismatch).
			GoType(class).
			ScriptType(actual).
			Detail(describe(handle)).
			Build()
	}
	return v, nil
}

// Borrow pins a handle for the duration of a call. Remove fails while a
// handle is borrowed. Every successful Borrow must be matched by Return.
func (t *Table) Borrow(handle Handle, class string) (any, error) {
	v, actual, ok := t.store.borrow(handle)
	if !ok {
		return nil, errors.MissingObject(describe(handle))
	}
	if class != "" && actual != class {
		t.store.returnBorrow(handle)
		return nil, errors.New(errors.PhaseHost, errors.KindTypeMismatch).
			GoType(class).
			ScriptType(actual).
			Detail(describe(handle)).
			Build()
	}
	return v, nil
}

// Return releases one borrow of handle.
func (t *Table) Return(handle Handle) bool {
	return t.store.returnBorrow(handle)
}

// Remove drops a handle and returns its value. Values implementing Dropper
// are dropped.
func (t *Table) Remove(handle Handle) (any, error) {
	value, class, ok, borrowed := t.store.drop(handle)
	if borrowed {
		return nil, errors.InvalidInput(errors.PhaseHost, describe(handle)+" is borrowed")
	}
	if !ok {
		return nil, errors.MissingObject(describe(handle))
	}

	if d, ok := value.(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{
		Type:   EventRemoved,
		Handle: handle,
		Class:  class,
		Value:  value,
	})
	return value, nil
}

// Subscribe adds an observer for lifecycle events.
func (t *Table) Subscribe(o Observer) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.observers = append(t.observers, o)
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	return t.store.len()
}

// Each visits every live handle in handle order.
func (t *Table) Each(fn func(Handle, string, any) bool) {
	t.store.each(fn)
}

// Clear removes every handle that is not borrowed.
func (t *Table) Clear() {
	// collect first, Remove takes the store lock
	var handles []Handle
	t.store.each(func(h Handle, _ string, _ any) bool {
		handles = append(handles, h)
		return true
	})
	for _, h := range handles {
		_, _ = t.Remove(h)
	}
}

// Close drops every live value and rejects further inserts.
func (t *Table) Close() error {
	for _, v := range t.store.close() {
		if d, ok := v.(Dropper); ok {
			d.Drop()
		}
	}
	return nil
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, o := range t.observers {
		o.OnResourceEvent(e)
	}
}
