package runtime

import (
	"context"
	"reflect"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/wippyai/hostbridge/convert"
	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/liveness"
)

// Callback is a script function captured together with the runtime it was
// created on. It may be invoked from any goroutine; the function always runs
// on its origin runtime.
type Callback struct {
	origin *Runtime
	fn     goja.Callable
	value  goja.Value
	name   string
}

// NewCallback captures fn, which must be a function of rt.
func NewCallback(rt *Runtime, fn goja.Value) (*Callback, error) {
	call, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, errors.TypeConversion(errors.PhaseDecode, nil, "function", convert.TypeName(fn))
	}
	name := ""
	if obj, ok := fn.(*goja.Object); ok {
		if n := obj.Get("name"); n != nil && !goja.IsUndefined(n) {
			name = n.String()
		}
	}
	return &Callback{origin: rt, fn: call, value: fn, name: name}, nil
}

// Origin returns the identity of the runtime the callback belongs to.
func (c *Callback) Origin() liveness.RuntimeID {
	return c.origin.id
}

func (c *Callback) String() string {
	name := c.name
	if name == "" {
		name = "anonymous"
	}
	return "callback " + name + " on " + c.origin.id.String()
}

// Invoke schedules the callback on its origin runtime and returns at once.
// If the origin runtime has been destroyed the call is dropped and exactly one
// StaleRuntime error goes to the host's reporter. Errors thrown by the
// callback are reported the same way, since there is no caller to see them.
func (c *Callback) Invoke(args ...any) {
	rt := c.origin
	if !rt.host.guard.IsAlive(rt.id) {
		c.stale()
		return
	}

	posted := rt.Post(func() {
		if !rt.host.guard.IsAlive(rt.id) {
			c.stale()
			return
		}
		if _, err := c.call(args); err != nil {
			rt.host.logger.Warn("callback failed",
				zap.Stringer("callback", c),
				zap.Error(err))
			rt.host.report(err)
		}
	})
	if !posted {
		c.stale()
	}
}

// Call runs the callback on its origin runtime and waits for the exported
// result. A destroyed origin yields a StaleRuntime error.
func (c *Callback) Call(ctx context.Context, args ...any) (any, error) {
	rt := c.origin
	if !rt.host.guard.IsAlive(rt.id) {
		return nil, c.staleErr()
	}

	var out any
	err := rt.Do(ctx, func(*goja.Runtime) error {
		if !rt.host.guard.IsAlive(rt.id) {
			return c.staleErr()
		}
		v, err := c.call(args)
		if err != nil {
			return err
		}
		out = export(v)
		return nil
	})
	if errors.IsKind(err, errors.KindClosed) {
		return nil, c.staleErr()
	}
	return out, err
}

func (c *Callback) call(args []any) (goja.Value, error) {
	rt := c.origin
	in := make([]goja.Value, len(args))
	for i, a := range args {
		v, err := rt.host.converters.ToScript(rt, reflect.ValueOf(a))
		if err != nil {
			return nil, err
		}
		in[i] = v
	}
	return c.fn(goja.Undefined(), in...)
}

func (c *Callback) staleErr() error {
	return errors.StaleRuntime(c.origin.id.String(), c.String())
}

func (c *Callback) stale() {
	err := c.staleErr()
	c.origin.host.logger.Debug("dropping stale callback", zap.Stringer("callback", c))
	c.origin.host.report(err)
}

var callbackType = reflect.TypeOf((*Callback)(nil))

func init() {
	convert.Install(func(t *convert.Table) {
		t.Register(callbackType, callbackConverter{})
	})
}

// callbackConverter captures script functions passed to native handlers.
type callbackConverter struct{}

func (callbackConverter) ToScript(rt convert.Runtime, v reflect.Value) (goja.Value, error) {
	if v.IsNil() {
		return goja.Null(), nil
	}
	c := v.Interface().(*Callback)
	if c.origin.id != rt.ID() {
		return nil, errors.New(errors.PhaseEncode, errors.KindUnsupported).
			GoType(callbackType.String()).
			Detail("%s cannot cross into runtime %s", c, rt.ID()).
			Build()
	}
	return c.value, nil
}

func (callbackConverter) FromScript(rt convert.Runtime, v goja.Value, t reflect.Type) (reflect.Value, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return reflect.Zero(t), nil
	}
	origin, ok := rt.(*Runtime)
	if !ok {
		return reflect.Value{}, errors.Unsupported(errors.PhaseDecode, "callbacks require a hosted runtime")
	}
	c, err := NewCallback(origin, v)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(c), nil
}
