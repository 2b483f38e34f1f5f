package convert

import (
	"reflect"
	"sync"

	"github.com/dop251/goja"

	"github.com/wippyai/hostbridge/liveness"
)

// Runtime is the scripting runtime a conversion happens in.
// Values produced for one runtime must never be handed to another.
type Runtime interface {
	ID() liveness.RuntimeID
	VM() *goja.Runtime
}

// Converter translates values of one Go type to and from script values.
type Converter interface {
	// ToScript converts a Go value to a script value in rt.
	ToScript(rt Runtime, v reflect.Value) (goja.Value, error)

	// FromScript converts a script value to a Go value of type t.
	// It fails with errors.KindTypeMismatch when the script value's type
	// does not match t.
	FromScript(rt Runtime, v goja.Value, t reflect.Type) (reflect.Value, error)
}

// Call is the raw form of a script call, received by passthrough handlers
// declared as func(convert.Call) (goja.Value, error).
type Call struct {
	Runtime   Runtime
	This      goja.Value
	Arguments []goja.Value
}

// Argument returns the i-th argument or undefined.
func (c Call) Argument(i int) goja.Value {
	if i < 0 || i >= len(c.Arguments) {
		return goja.Undefined()
	}
	return c.Arguments[i]
}

// VM returns the goja runtime the call runs in.
func (c Call) VM() *goja.Runtime {
	return c.Runtime.VM()
}

type ifaceConverter struct {
	iface reflect.Type
	conv  Converter
}

// Table resolves converters by Go type: exact registrations first, then the
// first registered interface the type implements, then built-in kind rules.
//
// Table is safe for concurrent use.
type Table struct {
	exact  map[reflect.Type]Converter
	ifaces []ifaceConverter
	mu     sync.RWMutex
}

var (
	installersMu sync.Mutex
	installers   []func(*Table)

	defaultTable     *Table
	defaultTableOnce sync.Once
)

// Install adds a registration step applied to every Table created by
// NewTable from now on. Packages that define bridged types call it from init.
func Install(fn func(*Table)) {
	installersMu.Lock()
	defer installersMu.Unlock()
	installers = append(installers, fn)
}

// Default returns the process-wide table.
func Default() *Table {
	defaultTableOnce.Do(func() {
		defaultTable = NewTable()
	})
	return defaultTable
}

// NewTable creates a table with the built-in converters and every installed
// extension.
func NewTable() *Table {
	t := &Table{exact: make(map[reflect.Type]Converter)}
	registerBuiltins(t)

	installersMu.Lock()
	steps := make([]func(*Table), len(installers))
	copy(steps, installers)
	installersMu.Unlock()

	for _, step := range steps {
		step(t)
	}
	return t
}

// Register sets the converter for exactly typ.
func (t *Table) Register(typ reflect.Type, c Converter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.exact[typ] = c
}

// RegisterInterface sets the converter for every type implementing iface.
func (t *Table) RegisterInterface(iface reflect.Type, c Converter) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, ic := range t.ifaces {
		if ic.iface == iface {
			t.ifaces[i].conv = c
			return
		}
	}
	t.ifaces = append(t.ifaces, ifaceConverter{iface: iface, conv: c})
}

// Clone returns an independent copy of the table.
func (t *Table) Clone() *Table {
	t.mu.RLock()
	defer t.mu.RUnlock()

	c := &Table{
		exact:  make(map[reflect.Type]Converter, len(t.exact)),
		ifaces: make([]ifaceConverter, len(t.ifaces)),
	}
	for typ, conv := range t.exact {
		c.exact[typ] = conv
	}
	copy(c.ifaces, t.ifaces)
	return c
}

// Lookup returns the registered converter for typ, ignoring kind rules.
func (t *Table) Lookup(typ reflect.Type) (Converter, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if c, ok := t.exact[typ]; ok {
		return c, true
	}
	for _, ic := range t.ifaces {
		if typ.Implements(ic.iface) {
			return ic.conv, true
		}
	}
	return nil, false
}

// ToScript converts v using the converter registered for its type.
func (t *Table) ToScript(rt Runtime, v reflect.Value) (goja.Value, error) {
	return t.toScript(rt, v, nil)
}

// FromScript converts v to a Go value of type typ.
func (t *Table) FromScript(rt Runtime, v goja.Value, typ reflect.Type) (reflect.Value, error) {
	return t.fromScript(rt, v, typ, nil)
}

// RegisterFunc registers a converter for T built from two functions.
func RegisterFunc[T any](t *Table, to func(Runtime, T) (goja.Value, error), from func(Runtime, goja.Value) (T, error)) {
	t.Register(reflect.TypeFor[T](), funcConverter[T]{to: to, from: from})
}

type funcConverter[T any] struct {
	to   func(Runtime, T) (goja.Value, error)
	from func(Runtime, goja.Value) (T, error)
}

func (c funcConverter[T]) ToScript(rt Runtime, v reflect.Value) (goja.Value, error) {
	x, _ := v.Interface().(T)
	return c.to(rt, x)
}

func (c funcConverter[T]) FromScript(rt Runtime, v goja.Value, typ reflect.Type) (reflect.Value, error) {
	x, err := c.from(rt, v)
	if err != nil {
		return reflect.Value{}, err
	}
	out := reflect.New(typ).Elem()
	out.Set(reflect.ValueOf(&x).Elem())
	return out, nil
}
