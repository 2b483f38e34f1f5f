package hybrid

import (
	stderrors "errors"
	"reflect"
	"strconv"

	"github.com/dop251/goja"

	"github.com/wippyai/hostbridge/convert"
	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/member"
)

// CallHandler is the whole-call passthrough handler shape. It receives the
// raw script arguments and returns a raw script value.
type CallHandler = func(convert.Call) (goja.Value, error)

// Invoke converts args, calls the descriptor's handler and converts the
// result back. Void handlers yield undefined.
func (o *Object) Invoke(rt convert.Runtime, d *member.Descriptor, this goja.Value, args []goja.Value) (goja.Value, error) {
	if o.released.Load() {
		return nil, errors.MissingObject("host object " + o.name)
	}

	if h, ok := d.Handler.(CallHandler); ok {
		v, err := callPassthrough(d, h, convert.Call{Runtime: rt, This: this, Arguments: args})
		if err != nil {
			return nil, err
		}
		if v == nil {
			return goja.Undefined(), nil
		}
		return v, nil
	}

	in, err := o.decodeArgs(rt, d, args)
	if err != nil {
		return nil, err
	}

	out, err := d.Call(in)
	if err != nil {
		return nil, err
	}
	if !out.IsValid() {
		return goja.Undefined(), nil
	}

	v, err := o.converters.ToScript(rt, out)
	if err != nil {
		return nil, errors.WithPath(err, d.Path()...)
	}
	return v, nil
}

func callPassthrough(d *member.Descriptor, h CallHandler, call convert.Call) (v goja.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			// goja exceptions raised by the handler keep propagating as script errors
			if _, ok := p.(goja.Value); ok {
				panic(p)
			}
			if _, ok := p.(*goja.Exception); ok {
				panic(p)
			}
			err = errors.Panic(d.Path(), p)
		}
	}()
	return h(call)
}

func (o *Object) decodeArgs(rt convert.Runtime, d *member.Descriptor, args []goja.Value) ([]reflect.Value, error) {
	params := d.Params()

	if len(args) < d.Arity || (!d.Variadic() && len(args) > len(params)) {
		return nil, errors.Arity(d.Path(), d.Arity, len(args))
	}

	fixed := len(params)
	if d.Variadic() {
		fixed--
	}

	in := make([]reflect.Value, 0, len(args))
	for i := 0; i < fixed; i++ {
		var arg goja.Value
		if i < len(args) {
			arg = args[i]
		}
		v, err := o.converters.FromScript(rt, arg, params[i])
		if err != nil {
			return nil, errors.WithPath(err, o.name, d.Name, strconv.Itoa(i))
		}
		in = append(in, v)
	}

	if d.Variadic() {
		elem := params[fixed].Elem()
		for i := fixed; i < len(args); i++ {
			v, err := o.converters.FromScript(rt, args[i], elem)
			if err != nil {
				return nil, errors.WithPath(err, o.name, d.Name, strconv.Itoa(i))
			}
			in = append(in, v)
		}
	}
	return in, nil
}

// Throw converts err into a script exception value for vm, following the
// runtime's error convention: conversion and arity errors become TypeError,
// everything else a GoError carrying err.
func Throw(vm *goja.Runtime, err error) goja.Value {
	var e *errors.Error
	if stderrors.As(err, &e) {
		switch e.Kind {
		case errors.KindTypeMismatch, errors.KindOverflow, errors.KindArity:
			return vm.NewTypeError(err.Error())
		}
	}
	return vm.NewGoError(err)
}

// Function returns the script function for a method descriptor in rt.
func (o *Object) Function(rt convert.Runtime, d *member.Descriptor) (goja.Value, error) {
	v, err := o.CachedCallable(rt.ID(), d.Name, d.Kind, func() (any, error) {
		vm := rt.VM()
		fn := func(call goja.FunctionCall) goja.Value {
			v, err := o.Invoke(rt, d, call.This, call.Arguments)
			if err != nil {
				panic(Throw(vm, err))
			}
			return v
		}
		return vm.ToValue(fn), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(goja.Value), nil
}
