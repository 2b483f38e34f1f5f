package runtime

import (
	"context"
	"reflect"
	"sync"

	"github.com/dop251/goja"
	"go.uber.org/zap"

	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/liveness"
)

// Runtime is one goja execution context driven by its own goroutine.
// Every access to the VM happens on that goroutine, through Do or Post.
type Runtime struct {
	host    *Host
	vm      *goja.Runtime
	wake    chan struct{}
	stopped chan struct{}
	queue   []func()
	name    string
	id      liveness.RuntimeID
	mu      sync.Mutex
	closed  bool
	main    bool
}

func newRuntime(h *Host, id liveness.RuntimeID, name string, main bool) *Runtime {
	r := &Runtime{
		host:    h,
		vm:      goja.New(),
		wake:    make(chan struct{}, 1),
		stopped: make(chan struct{}),
		name:    name,
		id:      id,
		main:    main,
	}
	go r.loop()
	return r
}

// ID returns the runtime identity.
func (r *Runtime) ID() liveness.RuntimeID {
	return r.id
}

// Name returns the runtime's label.
func (r *Runtime) Name() string {
	return r.name
}

// IsMain reports whether this is the host's main runtime.
func (r *Runtime) IsMain() bool {
	return r.main
}

// VM returns the goja runtime. It may only be used from inside Do or Post.
func (r *Runtime) VM() *goja.Runtime {
	return r.vm
}

// Host returns the owning host.
func (r *Runtime) Host() *Host {
	return r.host
}

func (r *Runtime) String() string {
	return r.id.String()
}

func (r *Runtime) loop() {
	defer close(r.stopped)
	for {
		r.mu.Lock()
		batch := r.queue
		r.queue = nil
		closed := r.closed
		r.mu.Unlock()

		for _, fn := range batch {
			r.exec(fn)
		}

		if len(batch) == 0 {
			if closed {
				return
			}
			<-r.wake
		}
	}
}

func (r *Runtime) exec(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			r.host.logger.Error("runtime job panicked",
				zap.Stringer("runtime", r.id),
				zap.Any("panic", p))
		}
	}()
	fn()
}

// Post queues fn on the runtime's goroutine without waiting. It reports
// false once the runtime is closed; fn then never runs.
func (r *Runtime) Post(fn func()) bool {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return false
	}
	r.queue = append(r.queue, fn)
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the runtime's goroutine and waits for it. Cancelling ctx
// interrupts running script code and returns ctx.Err().
//
// Do must not be called from the runtime's own goroutine, and a handler
// running on one runtime must not Do on another while the other may be
// waiting on it.
func (r *Runtime) Do(ctx context.Context, fn func(vm *goja.Runtime) error) error {
	done := make(chan error, 1)
	posted := r.Post(func() {
		defer r.vm.ClearInterrupt()
		done <- r.protect(fn)
	})
	if !posted {
		return errors.Closed("runtime " + r.id.String())
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		r.vm.Interrupt(ctx.Err())
		return ctx.Err()
	}
}

func (r *Runtime) protect(fn func(vm *goja.Runtime) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			if v, ok := p.(goja.Value); ok {
				err = errors.Wrap(errors.PhaseRuntime, errors.KindPanic, nil, "uncaught script exception: "+v.String())
				return
			}
			err = errors.Panic([]string{r.name}, p)
		}
	}()
	return fn(r.vm)
}

// RunString evaluates src and returns the exported result.
func (r *Runtime) RunString(ctx context.Context, src string) (any, error) {
	var out any
	err := r.Do(ctx, func(vm *goja.Runtime) error {
		v, err := vm.RunString(src)
		if err != nil {
			return err
		}
		out = export(v)
		return nil
	})
	return out, err
}

// Set converts value with the host's converters and binds it as a global.
func (r *Runtime) Set(ctx context.Context, name string, value any) error {
	return r.Do(ctx, func(*goja.Runtime) error {
		return r.set(name, value)
	})
}

func (r *Runtime) set(name string, value any) error {
	v, err := r.host.converters.ToScript(r, reflect.ValueOf(value))
	if err != nil {
		return errors.WithPath(err, name)
	}
	return r.vm.Set(name, v)
}

// Close destroys a background runtime. The identity is unregistered from the
// guard first, so callbacks that fire afterwards are reported stale. Jobs
// already queued still run. Closing the main runtime is done by Host.Close.
func (r *Runtime) Close(ctx context.Context) error {
	if r.main {
		return errors.InvalidInput(errors.PhaseRuntime, "main runtime is closed with its host")
	}
	if r.host.guard.Unregister(r.id) {
		r.host.forget(r)
		r.host.logger.Debug("runtime destroyed", zap.Stringer("runtime", r.id))
	}
	return r.stop(ctx)
}

func (r *Runtime) stop(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	select {
	case r.wake <- struct{}{}:
	default:
	}

	select {
	case <-r.stopped:
		return nil
	case <-ctx.Done():
		r.vm.Interrupt(ctx.Err())
		return ctx.Err()
	}
}

// Done is closed when the runtime's goroutine has exited.
func (r *Runtime) Done() <-chan struct{} {
	return r.stopped
}

func export(v goja.Value) any {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil
	}
	return v.Export()
}
