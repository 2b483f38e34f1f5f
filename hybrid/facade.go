package hybrid

import (
	"reflect"

	"github.com/dop251/goja"

	"github.com/wippyai/hostbridge/convert"
	"github.com/wippyai/hostbridge/errors"
)

// facade is what a goja runtime sees of a host object. One facade exists per
// (object, runtime) pair.
type facade struct {
	obj *Object
	rt  convert.Runtime
}

var _ goja.DynamicObject = (*facade)(nil)

// Bind returns the script object exposing o in rt. Repeated calls for the
// same runtime return the same script object.
func (o *Object) Bind(rt convert.Runtime) (*goja.Object, error) {
	v, err := o.CachedCallable(rt.ID(), "", facadeKind, func() (any, error) {
		return rt.VM().NewDynamicObject(&facade{obj: o, rt: rt}), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*goja.Object), nil
}

func (f *facade) throw(err error) {
	panic(Throw(f.rt.VM(), err))
}

// Get reads a member: methods yield their cached function, getters their
// current value. Unknown names yield nil, which goja treats as absent.
func (f *facade) Get(key string) goja.Value {
	entry, ok, err := f.obj.Lookup(key)
	if err != nil {
		f.throw(err)
	}
	if !ok {
		if key == "toString" {
			return f.toStringFunc()
		}
		return nil
	}

	switch {
	case entry.Method != nil:
		fn, err := f.obj.Function(f.rt, entry.Method)
		if err != nil {
			f.throw(err)
		}
		return fn
	case entry.Getter != nil:
		v, err := f.obj.Invoke(f.rt, entry.Getter, nil, nil)
		if err != nil {
			f.throw(err)
		}
		return v
	}
	// write-only property
	return goja.Undefined()
}

// Set writes through a declared setter. Any other name reports false and
// goja applies its default assignment rules.
func (f *facade) Set(key string, val goja.Value) bool {
	entry, ok, err := f.obj.Lookup(key)
	if err != nil {
		f.throw(err)
	}
	if !ok || entry.Setter == nil {
		return false
	}
	if _, err := f.obj.Invoke(f.rt, entry.Setter, nil, []goja.Value{val}); err != nil {
		f.throw(err)
	}
	return true
}

func (f *facade) Has(key string) bool {
	_, ok, err := f.obj.Lookup(key)
	if err != nil {
		f.throw(err)
	}
	return ok
}

// Delete always refuses; members are fixed after declaration.
func (f *facade) Delete(string) bool {
	return false
}

func (f *facade) Keys() []string {
	names, err := f.obj.Members()
	if err != nil {
		f.throw(err)
	}
	return names
}

func (f *facade) toStringFunc() goja.Value {
	return f.rt.VM().ToValue(func(goja.FunctionCall) goja.Value {
		return f.rt.VM().ToValue(f.obj.String())
	})
}

var exposerType = reflect.TypeOf((*Exposer)(nil)).Elem()

func init() {
	convert.Install(func(t *convert.Table) {
		t.RegisterInterface(exposerType, exposerConverter{})
	})
}

// exposerConverter turns host objects into their facade in the calling
// runtime and facades back into the native object.
type exposerConverter struct{}

func (exposerConverter) ToScript(rt convert.Runtime, v reflect.Value) (goja.Value, error) {
	if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
		return goja.Null(), nil
	}
	obj := v.Interface().(Exposer).HostObject()
	if obj == nil {
		return goja.Null(), nil
	}
	return obj.Bind(rt)
}

func (exposerConverter) FromScript(_ convert.Runtime, v goja.Value, t reflect.Type) (reflect.Value, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return reflect.Zero(t), nil
	}

	jsObj, ok := v.(*goja.Object)
	if !ok {
		return reflect.Value{}, errors.TypeConversion(errors.PhaseDecode, nil, t.String(), convert.TypeName(v))
	}
	f, ok := jsObj.Export().(*facade)
	if !ok {
		return reflect.Value{}, errors.TypeConversion(errors.PhaseDecode, nil, t.String(), convert.TypeName(v))
	}

	owner, err := f.obj.Owner()
	if err != nil {
		return reflect.Value{}, err
	}

	if ov := reflect.ValueOf(owner); ov.Type().AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(ov)
		return out, nil
	}
	if ov := reflect.ValueOf(f.obj); ov.Type().AssignableTo(t) {
		out := reflect.New(t).Elem()
		out.Set(ov)
		return out, nil
	}
	return reflect.Value{}, errors.TypeConversion(errors.PhaseDecode, nil, t.String(), "host object "+f.obj.Name())
}
