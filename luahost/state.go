package luahost

import (
	"reflect"
	"sync"

	"github.com/Shopify/go-lua"
	"go.uber.org/zap"

	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/hybrid"
	"github.com/wippyai/hostbridge/liveness"
)

// Option configures a State.
type Option func(*State)

// WithLogger sets the state's logger. Defaults to the package logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *State) {
		s.logger = l
	}
}

// WithLabel sets the diagnostic label of the state's runtime identity.
func WithLabel(label string) Option {
	return func(s *State) {
		s.label = label
	}
}

// State is a Lua interpreter registered as a background runtime. Host
// objects exposed to it are userdata dispatching to the object's members.
//
// A State serializes its own use; it is safe to call from any goroutine,
// one call at a time per State.
type State struct {
	l       *lua.State
	guard   *liveness.Guard
	logger  *zap.Logger
	exposed []*hybrid.Object
	label   string
	id      liveness.RuntimeID
	mu      sync.Mutex
	closed  bool
}

// NewState creates a Lua state with the standard libraries and registers it
// with guard.
func NewState(guard *liveness.Guard, opts ...Option) (*State, error) {
	s := &State{
		guard: guard,
		label: "lua",
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = Logger()
	}

	s.id = liveness.NewID(s.label)
	if err := guard.Register(s.id); err != nil {
		return nil, err
	}

	s.l = lua.NewState()
	lua.OpenLibraries(s.l)
	s.registerObjectType()

	s.logger.Debug("lua state created", zap.Stringer("runtime", s.id))
	return s, nil
}

// ID returns the state's runtime identity.
func (s *State) ID() liveness.RuntimeID {
	return s.id
}

func (s *State) checkOpen() error {
	if s.closed {
		return errors.Closed("lua state " + s.id.String())
	}
	return nil
}

// Expose converts value and binds it as a global.
func (s *State) Expose(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return err
	}

	if err := s.push(reflect.ValueOf(value), []string{name}); err != nil {
		return err
	}
	s.l.SetGlobal(name)

	if e, ok := value.(hybrid.Exposer); ok && e.HostObject() != nil {
		s.exposed = append(s.exposed, e.HostObject())
	}
	return nil
}

// DoString runs a chunk and returns its results converted to Go values.
// Integral numbers come back as int64, other numbers as float64, tables as
// []any or map[string]any and host objects as their native value.
func (s *State) DoString(src string) ([]any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	base := s.l.Top()
	if err := lua.LoadString(s.l, src); err != nil {
		s.l.SetTop(base)
		return nil, errors.Wrap(errors.PhaseRuntime, errors.KindInvalidInput, err, "load lua chunk")
	}
	if err := s.l.ProtectedCall(0, lua.MultipleReturns, 0); err != nil {
		s.l.SetTop(base)
		return nil, err
	}

	n := s.l.Top() - base
	results := make([]any, n)
	for i := 0; i < n; i++ {
		results[i] = s.toGo(base + 1 + i)
	}
	s.l.SetTop(base)
	return results, nil
}

// Close unregisters the state from the guard and drops the callables
// exposed objects cached for it.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	s.guard.Unregister(s.id)
	for _, obj := range s.exposed {
		obj.Forget(s.id)
	}
	s.exposed = nil

	s.logger.Debug("lua state closed", zap.Stringer("runtime", s.id))
}
