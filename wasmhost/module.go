package wasmhost

import (
	"context"
	"fmt"
	"reflect"
	"strconv"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"
	"go.uber.org/zap"

	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/hybrid"
	"github.com/wippyai/hostbridge/liveness"
	"github.com/wippyai/hostbridge/member"
	"github.com/wippyai/hostbridge/resource"
)

// Option configures a Module.
type Option func(*Module)

// WithLogger sets the module's logger. Defaults to the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Module) {
		m.logger = l
	}
}

// WithTable shares a resource table between modules. By default every
// module owns its table and closes it on Close.
func WithTable(t *resource.Table) Option {
	return func(m *Module) {
		m.table = t
		m.sharedTable = true
	}
}

// export is one host function of the module.
type export struct {
	result  *valueType
	name    string
	class   string
	object  string
	member  string
	params  []valueType
	kind    member.Kind
	drop    bool
	retErr  bool
}

func (e *export) coreTypes() (params, results []api.ValueType) {
	params = append(params, api.ValueTypeI32)
	for _, p := range e.params {
		t, _ := coreType(p)
		params = append(params, t)
	}
	if e.result != nil {
		t, _ := coreType(*e.result)
		results = append(results, t)
	}
	return params, results
}

// Module exports host object members to WebAssembly guests as wazero host
// functions. Guests address objects through resource handles: every export
// takes the handle as its first parameter.
//
// Members whose Go signatures are not core wasm numbers or host objects are
// not exported; Describe still lists them.
type Module struct {
	guard       *liveness.Guard
	table       *resource.Table
	logger      *zap.Logger
	instance    api.Module
	classes     map[string]string
	types       map[reflect.Type]string
	exports     []*export
	name        string
	id          liveness.RuntimeID
	mu          sync.Mutex
	closed      bool
	sharedTable bool
}

// NewModule creates a module named name. It registers with guard when
// instantiated.
func NewModule(name string, guard *liveness.Guard, opts ...Option) *Module {
	m := &Module{
		guard:   guard,
		name:    name,
		id:      liveness.NewID("wasm:" + name),
		classes: make(map[string]string),
		types:   make(map[reflect.Type]string),
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = Logger()
	}
	if m.table == nil {
		m.table = resource.NewTable()
	}
	return m
}

// ID returns the module's runtime identity.
func (m *Module) ID() liveness.RuntimeID {
	return m.id
}

// Name returns the host module name guests import from.
func (m *Module) Name() string {
	return m.name
}

// Table returns the handle table backing the module.
func (m *Module) Table() *resource.Table {
	return m.table
}

func (m *Module) classOf(t reflect.Type) string {
	if class, ok := m.types[t]; ok {
		return class
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return kebab(t.Name())
}

// Define exports the members of proto's class under the resource name class:
// [method]class.name, [get]class.name and [set]class.name, plus
// [resource-drop]class. Every object of the same Go type and object name
// shares the exports; calls dispatch to the handle's own members.
func (m *Module) Define(class string, proto hybrid.Exposer) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return errors.Closed("wasm module " + m.name)
	}
	if m.instance != nil {
		return errors.InvalidInput(errors.PhaseDeclare, "module "+m.name+" is already instantiated")
	}
	obj := proto.HostObject()
	if obj == nil {
		return errors.InvalidInput(errors.PhaseDeclare, "prototype has no host object")
	}
	class = kebab(class)
	if _, ok := m.classes[class]; ok {
		return errors.Registration(errors.PhaseDeclare, "resource "+class+" already defined", nil)
	}

	reg, err := obj.Registry()
	if err != nil {
		return err
	}

	m.classes[class] = obj.Name()
	m.types[reflect.TypeOf(proto)] = class

	var exports []*export
	reg.Each(func(d *member.Descriptor) bool {
		ex, ok := m.newExport(class, obj.Name(), d)
		if !ok {
			m.logger.Debug("member not exported",
				zap.String("class", class),
				zap.String("member", d.Name),
				zap.Stringer("kind", d.Kind))
			return true
		}
		exports = append(exports, ex)
		return true
	})
	exports = append(exports, &export{
		name:   "[resource-drop]" + class,
		class:  class,
		object: obj.Name(),
		drop:   true,
	})
	m.exports = append(m.exports, exports...)

	m.logger.Debug("resource defined",
		zap.String("module", m.name),
		zap.String("class", class),
		zap.Int("exports", len(exports)))
	return nil
}

func (m *Module) newExport(class, object string, d *member.Descriptor) (*export, bool) {
	if d.Variadic() {
		return nil, false
	}
	if _, ok := d.Handler.(hybrid.CallHandler); ok {
		return nil, false
	}

	ex := &export{
		class:  class,
		object: object,
		member: d.Name,
		kind:   d.Kind,
		retErr: d.ReturnsError(),
	}
	switch d.Kind {
	case member.KindMethod:
		ex.name = "[method]" + class + "." + kebab(d.Name)
	case member.KindGetter:
		ex.name = "[get]" + class + "." + kebab(d.Name)
	case member.KindSetter:
		ex.name = "[set]" + class + "." + kebab(d.Name)
	}

	for _, p := range d.Params() {
		vt, ok := m.witType(p)
		if !ok {
			return nil, false
		}
		if _, ok := coreType(vt); !ok {
			return nil, false
		}
		ex.params = append(ex.params, vt)
	}
	if r := d.Result(); r != nil {
		vt, ok := m.witType(r)
		if !ok {
			return nil, false
		}
		if _, ok := coreType(vt); !ok {
			return nil, false
		}
		if vt.handle() {
			vt.wit = &wit.TypeDef{Kind: &wit.Own{}}
		}
		ex.result = &vt
	}
	return ex, true
}

// Exports returns the names of the exported host functions.
func (m *Module) Exports() []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	names := make([]string, len(m.exports))
	for i, ex := range m.exports {
		names[i] = ex.name
	}
	return names
}

// Insert places obj in the module's table and returns its handle.
func (m *Module) Insert(obj hybrid.Exposer) (resource.Handle, error) {
	h := obj.HostObject()
	if h == nil {
		return 0, errors.InvalidInput(errors.PhaseHost, "value has no host object")
	}
	if h.Released() {
		return 0, errors.MissingObject("host object " + h.Name())
	}
	return m.table.Insert(h.Name(), obj)
}

// Remove drops the handle from the module's table.
func (m *Module) Remove(h resource.Handle) error {
	_, err := m.table.Remove(h)
	return err
}

// Instantiate registers the module as a background runtime and
// instantiates its host functions in r.
func (m *Module) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil, errors.Closed("wasm module " + m.name)
	}
	if m.instance != nil {
		return nil, errors.InvalidInput(errors.PhaseRuntime, "module "+m.name+" is already instantiated")
	}
	if err := m.guard.Register(m.id); err != nil {
		return nil, err
	}

	builder := r.NewHostModuleBuilder(m.name)
	for _, ex := range m.exports {
		params, results := ex.coreTypes()
		builder.NewFunctionBuilder().
			WithGoModuleFunction(m.handler(ex), params, results).
			Export(ex.name)
	}

	inst, err := builder.Instantiate(ctx)
	if err != nil {
		m.guard.Unregister(m.id)
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindRegistration, err, "instantiate host module "+m.name)
	}
	m.instance = inst

	m.logger.Debug("host module instantiated",
		zap.String("module", m.name),
		zap.Stringer("runtime", m.id),
		zap.Int("exports", len(m.exports)))
	return inst, nil
}

// Close unregisters the module, drops the callables cached for it and closes
// the module instance. An owned table is closed too.
func (m *Module) Close(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.guard.Unregister(m.id)

	m.table.Each(func(_ resource.Handle, _ string, v any) bool {
		if e, ok := v.(hybrid.Exposer); ok && e.HostObject() != nil {
			e.HostObject().Forget(m.id)
		}
		return true
	})

	var err error
	if m.instance != nil {
		err = m.instance.Close(ctx)
	}
	if !m.sharedTable {
		if cerr := m.table.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

// handler traps by panicking with the call's error.
func (m *Module) handler(ex *export) api.GoModuleFunc {
	return func(ctx context.Context, _ api.Module, stack []uint64) {
		if err := m.call(ex, stack); err != nil {
			m.logger.Debug("host call trapped",
				zap.String("export", ex.name),
				zap.Error(err))
			panic(err)
		}
	}
}

func (m *Module) call(ex *export, stack []uint64) error {
	if !m.guard.IsAlive(m.id) {
		return errors.StaleRuntime(m.id.String(), ex.name)
	}

	self := resource.Handle(api.DecodeU32(stack[0]))
	if ex.drop {
		if _, err := m.table.Lookup(self, ex.object); err != nil {
			return err
		}
		_, err := m.table.Remove(self)
		return err
	}

	v, err := m.table.Borrow(self, ex.object)
	if err != nil {
		return err
	}
	defer m.table.Return(self)

	e, ok := v.(hybrid.Exposer)
	if !ok || e.HostObject() == nil {
		return errors.MissingObject(fmt.Sprintf("host object for handle %d", self))
	}
	obj := e.HostObject()
	if obj.Released() {
		return errors.MissingObject("host object " + obj.Name())
	}

	cached, err := obj.CachedCallable(m.id, ex.member, ex.kind, func() (any, error) {
		return resolve(obj, ex)
	})
	if err != nil {
		return err
	}
	d := cached.(*member.Descriptor)

	in := make([]reflect.Value, len(ex.params))
	for i, p := range ex.params {
		path := []string{ex.object, ex.member, strconv.Itoa(i)}
		raw := stack[1+i]
		if p.handle() {
			arg, err := m.lookupArg(resource.Handle(api.DecodeU32(raw)), p.goType, path)
			if err != nil {
				return err
			}
			in[i] = arg
			continue
		}
		arg, err := decode(raw, p.goType, path)
		if err != nil {
			return err
		}
		in[i] = arg
	}

	out, err := d.Call(in)
	if err != nil {
		return err
	}
	if ex.result == nil {
		return nil
	}
	if ex.result.handle() {
		h, err := m.ownResult(out)
		if err != nil {
			return err
		}
		stack[0] = api.EncodeU32(uint32(h))
		return nil
	}
	stack[0] = encode(out)
	return nil
}

// resolve finds obj's own descriptor for ex and checks it has the exported
// signature.
func resolve(obj *hybrid.Object, ex *export) (*member.Descriptor, error) {
	entry, ok, err := obj.Lookup(ex.member)
	if err != nil {
		return nil, err
	}
	var d *member.Descriptor
	if ok {
		switch ex.kind {
		case member.KindMethod:
			d = entry.Method
		case member.KindGetter:
			d = entry.Getter
		case member.KindSetter:
			d = entry.Setter
		}
	}
	if d == nil {
		return nil, errors.NotFound(errors.PhaseHost, ex.kind.String(), ex.object+"."+ex.member)
	}

	params := d.Params()
	if len(params) != len(ex.params) {
		return nil, errors.Arity(d.Path(), len(ex.params), len(params))
	}
	for i, p := range params {
		if p != ex.params[i].goType {
			return nil, errors.TypeConversion(errors.PhaseHost, d.Path(), ex.params[i].goType.String(), p.String())
		}
	}
	return d, nil
}

func (m *Module) lookupArg(h resource.Handle, t reflect.Type, path []string) (reflect.Value, error) {
	if h == 0 {
		return reflect.Zero(t), nil
	}
	v, err := m.table.Lookup(h, "")
	if err != nil {
		return reflect.Value{}, errors.WithPath(err, path...)
	}
	rv := reflect.ValueOf(v)
	if !rv.Type().AssignableTo(t) {
		return reflect.Value{}, errors.TypeConversion(errors.PhaseDecode, path, t.String(), rv.Type().String())
	}
	return rv, nil
}

// ownResult inserts a returned host object and hands its handle to the
// guest, which owns it until [resource-drop]. A nil object is handle 0.
func (m *Module) ownResult(out reflect.Value) (resource.Handle, error) {
	if (out.Kind() == reflect.Pointer || out.Kind() == reflect.Interface) && out.IsNil() {
		return 0, nil
	}
	e, ok := out.Interface().(hybrid.Exposer)
	if !ok || e.HostObject() == nil {
		return 0, nil
	}
	return m.Insert(e)
}
