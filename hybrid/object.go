package hybrid

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/hostbridge/convert"
	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/liveness"
	"github.com/wippyai/hostbridge/member"
)

// Declarer is implemented by every native object. DeclareMembers is called
// exactly once, on first use, never from the constructor.
type Declarer interface {
	DeclareMembers(r member.Registrar) error
}

// DebugStringer optionally overrides the debug string of a native object.
type DebugStringer interface {
	DebugString() string
}

// Exposer is implemented by values that carry a host object. Embedding
// *Object satisfies it.
type Exposer interface {
	HostObject() *Object
}

// Option configures an Object.
type Option func(*Object)

// WithConverters sets the conversion table used for arguments and results.
func WithConverters(t *convert.Table) Option {
	return func(o *Object) {
		o.converters = t
	}
}

// WithGuard sets the liveness guard consulted by IsRuntimeAlive.
func WithGuard(g *liveness.Guard) Option {
	return func(o *Object) {
		o.guard = g
	}
}

// WithCreationRuntime records the runtime the object was created on.
func WithCreationRuntime(id liveness.RuntimeID) Option {
	return func(o *Object) {
		o.origin = id
	}
}

// WithLogger overrides the package logger for this object.
func WithLogger(l *zap.Logger) Option {
	return func(o *Object) {
		o.logger = l
	}
}

type cacheKey struct {
	name string
	kind member.Kind
}

// façade entries share the cache with member callables under this kind
const facadeKind member.Kind = 0xff

// Object is the bridge half of a native object. It owns the member registry
// and the per-runtime callable cache.
//
// Object is safe for concurrent use by any number of runtimes.
type Object struct {
	owner      Declarer
	converters *convert.Table
	guard      *liveness.Guard
	logger     *zap.Logger
	registry   *member.Registry
	cache      map[liveness.RuntimeID]map[cacheKey]any
	declErr    error
	name       string
	origin     liveness.RuntimeID
	declMu     sync.Mutex
	cacheMu    sync.Mutex
	declared   atomic.Bool
	released   atomic.Bool
}

// New creates the host object for owner. The owner's members are declared
// lazily on the first read, write or enumeration.
func New(name string, owner Declarer, opts ...Option) *Object {
	o := &Object{
		owner:    owner,
		name:     name,
		registry: member.NewRegistry(name),
		cache:    make(map[liveness.RuntimeID]map[cacheKey]any),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.converters == nil {
		o.converters = convert.Default()
	}
	if o.logger == nil {
		o.logger = Logger()
	}
	return o
}

// HostObject returns o. It makes every type embedding *Object an Exposer.
func (o *Object) HostObject() *Object {
	return o
}

// Name returns the object's class name.
func (o *Object) Name() string {
	return o.name
}

// Converters returns the table used to convert arguments and results.
func (o *Object) Converters() *convert.Table {
	return o.converters
}

// Owner returns the native object, or a MissingObject error once released.
func (o *Object) Owner() (Declarer, error) {
	if o.released.Load() {
		return nil, errors.MissingObject("host object " + o.name)
	}
	return o.owner, nil
}

// Released reports whether Release has been called.
func (o *Object) Released() bool {
	return o.released.Load()
}

// Release detaches the native side. Cached callables are dropped and every
// later operation fails with a MissingObject error.
func (o *Object) Release() {
	if o.released.Swap(true) {
		return
	}
	o.cacheMu.Lock()
	o.cache = make(map[liveness.RuntimeID]map[cacheKey]any)
	o.cacheMu.Unlock()

	o.logger.Debug("host object released", zap.String("object", o.name))
}

func (o *Object) ensureDeclared() error {
	if o.declared.Load() {
		return o.declErr
	}

	o.declMu.Lock()
	defer o.declMu.Unlock()

	if o.declared.Load() {
		return o.declErr
	}

	owner, err := o.Owner()
	if err != nil {
		return err
	}

	o.declErr = o.declare(owner)
	o.declared.Store(true)
	return o.declErr
}

func (o *Object) declare(owner Declarer) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = errors.Panic([]string{o.name}, p)
		}
		if err == nil {
			err = o.registry.Err()
		}
		o.registry.Seal()
		if err != nil {
			o.registry.Reset()
			o.logger.Warn("member declaration failed",
				zap.String("object", o.name),
				zap.Error(err))
			return
		}
		o.logger.Debug("members declared",
			zap.String("object", o.name),
			zap.Int("members", o.registry.Len()))
	}()

	return owner.DeclareMembers(o.registry)
}

// Registry returns the sealed member registry, declaring members first if
// needed. A failed declaration returns the same error on every call.
func (o *Object) Registry() (*member.Registry, error) {
	if err := o.ensureDeclared(); err != nil {
		return nil, err
	}
	if o.released.Load() {
		return nil, errors.MissingObject("host object " + o.name)
	}
	return o.registry, nil
}

// Lookup returns the members declared under name.
func (o *Object) Lookup(name string) (member.Entry, bool, error) {
	reg, err := o.Registry()
	if err != nil {
		return member.Entry{}, false, err
	}
	e, ok := reg.Lookup(name)
	return e, ok, nil
}

// Members returns every declared name exactly once, in a stable order.
func (o *Object) Members() ([]string, error) {
	reg, err := o.Registry()
	if err != nil {
		return nil, err
	}
	return reg.Names(), nil
}

// CreationRuntime returns the runtime the object was created on, or the zero
// identity when untracked.
func (o *Object) CreationRuntime() liveness.RuntimeID {
	return o.origin
}

// IsRuntimeAlive reports whether the object's creation runtime still exists.
// Untracked objects and objects without a guard report true.
func (o *Object) IsRuntimeAlive() bool {
	if o.origin.IsZero() || o.guard == nil {
		return true
	}
	return o.guard.IsAlive(o.origin)
}

func (o *Object) String() string {
	if !o.released.Load() {
		if ds, ok := o.owner.(DebugStringer); ok {
			return ds.DebugString()
		}
	}
	return fmt.Sprintf("[HybridObject %s]", o.name)
}
