package member

import (
	"reflect"

	"github.com/wippyai/hostbridge/errors"
)

// Kind is the namespace a member is declared in.
type Kind uint8

const (
	KindMethod Kind = iota
	KindGetter
	KindSetter
)

func (k Kind) String() string {
	switch k {
	case KindMethod:
		return "method"
	case KindGetter:
		return "getter"
	case KindSetter:
		return "setter"
	default:
		return "unknown"
	}
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Descriptor is one declared member. It is immutable once created.
type Descriptor struct {
	Handler any
	fn      reflect.Value
	result  reflect.Type
	Object  string
	Name    string
	params  []reflect.Type
	Arity   int
	Kind    Kind
	retErr  bool
	varargs bool
}

func newDescriptor(object, name string, kind Kind, handler any, cfg config) (*Descriptor, error) {
	fn := reflect.ValueOf(handler)
	if !fn.IsValid() || fn.Kind() != reflect.Func || fn.IsNil() {
		goType := "nil"
		if handler != nil {
			goType = reflect.TypeOf(handler).String()
		}
		return nil, errors.New(errors.PhaseDeclare, errors.KindTypeMismatch).
			Path(object, name).
			GoType(goType).
			Detail("%s handler must be a non-nil function", kind).
			Build()
	}

	t := fn.Type()
	d := &Descriptor{
		Handler: handler,
		fn:      fn,
		Object:  object,
		Name:    name,
		Kind:    kind,
		varargs: t.IsVariadic(),
	}

	d.params = make([]reflect.Type, t.NumIn())
	for i := range d.params {
		d.params[i] = t.In(i)
	}

	switch t.NumOut() {
	case 0:
	case 1:
		if t.Out(0) == errorType {
			d.retErr = true
		} else {
			d.result = t.Out(0)
		}
	case 2:
		if t.Out(1) != errorType {
			return nil, invalidSignature(object, name, t, "second result must be error")
		}
		d.result = t.Out(0)
		d.retErr = true
	default:
		return nil, invalidSignature(object, name, t, "at most one value and one error may be returned")
	}

	switch kind {
	case KindGetter:
		if t.NumIn() != 0 || d.result == nil {
			return nil, invalidSignature(object, name, t, "getter must take no arguments and return a value")
		}
	case KindSetter:
		if t.NumIn() != 1 || t.IsVariadic() || d.result != nil {
			return nil, invalidSignature(object, name, t, "setter must take one argument and return nothing or error")
		}
	}

	switch {
	case cfg.arity >= 0:
		d.Arity = cfg.arity
	case d.varargs:
		d.Arity = t.NumIn() - 1
	default:
		d.Arity = t.NumIn()
	}

	return d, nil
}

func invalidSignature(object, name string, t reflect.Type, detail string) *errors.Error {
	return errors.New(errors.PhaseDeclare, errors.KindTypeMismatch).
		Path(object, name).
		GoType(t.String()).
		Detail(detail).
		Build()
}

// Params returns the handler's parameter types.
func (d *Descriptor) Params() []reflect.Type {
	return d.params
}

// Result returns the handler's value result type, or nil for void handlers.
func (d *Descriptor) Result() reflect.Type {
	return d.result
}

// ReturnsError reports whether the handler's last result is an error.
func (d *Descriptor) ReturnsError() bool {
	return d.retErr
}

// Variadic reports whether the handler's last parameter is variadic.
func (d *Descriptor) Variadic() bool {
	return d.varargs
}

// Path returns the object/member path used in errors.
func (d *Descriptor) Path() []string {
	return []string{d.Object, d.Name}
}

// Call invokes the handler with already converted arguments.
// The returned value is invalid for void handlers. A panic inside the
// handler is recovered and returned as an errors.KindPanic error.
func (d *Descriptor) Call(args []reflect.Value) (result reflect.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			result = reflect.Value{}
			err = errors.Panic(d.Path(), p)
		}
	}()

	out := d.fn.Call(args)

	if d.retErr {
		if e, _ := out[len(out)-1].Interface().(error); e != nil {
			return reflect.Value{}, e
		}
	}
	if d.result == nil {
		return reflect.Value{}, nil
	}
	return out[0], nil
}
