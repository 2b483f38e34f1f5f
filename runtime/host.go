package runtime

import (
	"context"
	"sort"
	"sync"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/hostbridge/convert"
	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/hybrid"
	"github.com/wippyai/hostbridge/liveness"
)

// Option configures a Host.
type Option func(*Host)

// WithLogger sets the host's logger. Defaults to the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Host) {
		h.logger = l
	}
}

// WithReporter sets where non-fatal errors such as stale callbacks go.
// Defaults to a zap-backed liveness.LogReporter.
func WithReporter(r liveness.Reporter) Option {
	return func(h *Host) {
		h.reporter = r
	}
}

// WithGuard shares a liveness guard with other hosts or frontends.
func WithGuard(g *liveness.Guard) Option {
	return func(h *Host) {
		h.guard = g
	}
}

// WithConverters sets the conversion table used for globals and callbacks.
func WithConverters(t *convert.Table) Option {
	return func(h *Host) {
		h.converters = t
	}
}

type global struct {
	value any
	name  string
}

// Host owns a main runtime and any number of background runtimes, all
// registered with one liveness guard.
type Host struct {
	guard      *liveness.Guard
	reporter   liveness.Reporter
	converters *convert.Table
	logger     *zap.Logger
	frames     *FrameScheduler
	main       *Runtime
	runtimes   map[liveness.RuntimeID]*Runtime
	globals    []global
	mu         sync.Mutex
	closed     bool
}

// NewHost creates a host and starts its main runtime.
func NewHost(ctx context.Context, opts ...Option) (*Host, error) {
	h := &Host{
		runtimes: make(map[liveness.RuntimeID]*Runtime),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = Logger()
	}
	if h.guard == nil {
		h.guard = liveness.NewGuard()
	}
	if h.reporter == nil {
		h.reporter = liveness.LogReporter{Logger: h.logger}
	}
	if h.converters == nil {
		h.converters = convert.Default()
	}
	h.frames = NewFrameScheduler(h.logger)

	h.main = newRuntime(h, h.guard.Main(), "main", true)
	if err := h.main.Do(ctx, h.main.installBuiltins); err != nil {
		_ = h.main.stop(context.Background())
		return nil, err
	}

	h.logger.Debug("host started", zap.Stringer("main", h.main.id))
	return h, nil
}

// Guard returns the liveness guard shared by all runtimes of the host.
func (h *Host) Guard() *liveness.Guard {
	return h.guard
}

// Reporter returns the side channel for non-fatal errors.
func (h *Host) Reporter() liveness.Reporter {
	return h.reporter
}

// Converters returns the host's conversion table.
func (h *Host) Converters() *convert.Table {
	return h.converters
}

// Frames returns the frame scheduler fed by requestAnimationFrame.
func (h *Host) Frames() *FrameScheduler {
	return h.frames
}

// Main returns the main runtime.
func (h *Host) Main() *Runtime {
	return h.main
}

// Spawn creates a background runtime, registers it with the guard and
// installs every exposed global.
func (h *Host) Spawn(ctx context.Context, name string) (*Runtime, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, errors.Closed("host")
	}
	id := liveness.NewID(name)
	if err := h.guard.Register(id); err != nil {
		h.mu.Unlock()
		return nil, err
	}
	rt := newRuntime(h, id, name, false)
	h.runtimes[id] = rt
	globals := make([]global, len(h.globals))
	copy(globals, h.globals)
	h.mu.Unlock()

	err := rt.Do(ctx, func(vm *goja.Runtime) error {
		if err := rt.installBuiltins(vm); err != nil {
			return err
		}
		for _, g := range globals {
			if err := rt.set(g.name, g.value); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = rt.Close(context.Background())
		return nil, err
	}

	h.logger.Debug("runtime spawned", zap.Stringer("runtime", id))
	return rt, nil
}

// Expose binds value as a global in every live runtime and in every runtime
// spawned later. Host objects are converted per runtime, so each runtime
// gets its own facade.
func (h *Host) Expose(ctx context.Context, name string, value any) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return errors.Closed("host")
	}
	h.globals = append(h.globals, global{name: name, value: value})
	h.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, rt := range h.Runtimes() {
		g.Go(func() error {
			return rt.Set(gctx, name, value)
		})
	}
	return g.Wait()
}

// Runtimes returns the main runtime followed by the live background
// runtimes ordered by name.
func (h *Host) Runtimes() []*Runtime {
	h.mu.Lock()
	bg := make([]*Runtime, 0, len(h.runtimes))
	for _, rt := range h.runtimes {
		bg = append(bg, rt)
	}
	h.mu.Unlock()

	sort.Slice(bg, func(i, j int) bool {
		if bg[i].name != bg[j].name {
			return bg[i].name < bg[j].name
		}
		return bg[i].id.String() < bg[j].id.String()
	})
	return append([]*Runtime{h.main}, bg...)
}

// forget drops a destroyed runtime and the callables exposed objects cached
// for it.
func (h *Host) forget(rt *Runtime) {
	h.mu.Lock()
	delete(h.runtimes, rt.id)
	globals := make([]global, len(h.globals))
	copy(globals, h.globals)
	h.mu.Unlock()

	for _, g := range globals {
		if e, ok := g.value.(hybrid.Exposer); ok && e.HostObject() != nil {
			e.HostObject().Forget(rt.id)
		}
	}
}

func (h *Host) report(err error) {
	h.reporter.Report(err)
}

// Close destroys every background runtime, then stops the main runtime.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	h.mu.Unlock()

	g, gctx := errgroup.WithContext(ctx)
	for _, rt := range h.Runtimes()[1:] {
		g.Go(func() error {
			return rt.Close(gctx)
		})
	}
	err := g.Wait()

	if stopErr := h.main.stop(ctx); err == nil {
		err = stopErr
	}
	h.logger.Debug("host closed")
	return err
}
