package member

import (
	"sort"

	"github.com/wippyai/hostbridge/errors"
)

// Option configures a single declaration.
type Option func(*config)

type config struct {
	arity    int
	override bool
}

func defaultConfig() config {
	return config{arity: -1}
}

// WithOverride replaces any conflicting member instead of failing.
func WithOverride() Option {
	return func(c *config) {
		c.override = true
	}
}

// WithArity sets the declared arity. Use it for passthrough handlers whose
// Go signature does not reflect the script-side argument count.
func WithArity(n int) Option {
	return func(c *config) {
		c.arity = n
	}
}

// Registrar is handed to a native object's declaration hook.
type Registrar interface {
	Method(name string, handler any, opts ...Option) error
	Getter(name string, handler any, opts ...Option) error
	Setter(name string, handler any, opts ...Option) error
}

// Entry groups every descriptor declared under one name. A getter and a
// setter may share an entry; a method is always alone.
type Entry struct {
	Method *Descriptor
	Getter *Descriptor
	Setter *Descriptor
}

func (e *Entry) conflicts(kind Kind) []*Descriptor {
	var out []*Descriptor
	if e.Method != nil {
		out = append(out, e.Method)
	}
	if e.Getter != nil && kind != KindSetter {
		out = append(out, e.Getter)
	}
	if e.Setter != nil && kind != KindGetter {
		out = append(out, e.Setter)
	}
	return out
}

func (e *Entry) clear(d *Descriptor) {
	switch d.Kind {
	case KindMethod:
		e.Method = nil
	case KindGetter:
		e.Getter = nil
	case KindSetter:
		e.Setter = nil
	}
}

func (e *Entry) set(d *Descriptor) {
	switch d.Kind {
	case KindMethod:
		e.Method = d
	case KindGetter:
		e.Getter = d
	case KindSetter:
		e.Setter = d
	}
}

// Registry accumulates the member descriptors of one native object.
//
// A Registry is filled by a single goroutine during declaration and then
// sealed. A sealed Registry is never mutated and is safe for concurrent reads.
type Registry struct {
	entries map[string]*Entry
	object  string
	names   []string
	errs    []error
	sealed  bool
}

// NewRegistry creates an empty registry for the named object.
func NewRegistry(object string) *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
		object:  object,
	}
}

// Method declares a callable member.
func (r *Registry) Method(name string, handler any, opts ...Option) error {
	return r.declare(name, KindMethod, handler, opts)
}

// Getter declares a readable property.
func (r *Registry) Getter(name string, handler any, opts ...Option) error {
	return r.declare(name, KindGetter, handler, opts)
}

// Setter declares a writable property.
func (r *Registry) Setter(name string, handler any, opts ...Option) error {
	return r.declare(name, KindSetter, handler, opts)
}

func (r *Registry) declare(name string, kind Kind, handler any, opts []Option) error {
	err := r.add(name, kind, handler, opts)
	if err != nil {
		r.errs = append(r.errs, err)
	}
	return err
}

func (r *Registry) add(name string, kind Kind, handler any, opts []Option) error {
	if r.sealed {
		return errors.Registration(errors.PhaseDeclare, "members of "+r.object+" are already declared", nil)
	}
	if name == "" {
		return errors.InvalidInput(errors.PhaseDeclare, "member name cannot be empty")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	d, err := newDescriptor(r.object, name, kind, handler, cfg)
	if err != nil {
		return err
	}

	e, ok := r.entries[name]
	if !ok {
		e = &Entry{}
		r.entries[name] = e
	}

	if conflicts := e.conflicts(kind); len(conflicts) > 0 {
		if !cfg.override {
			return errors.NameConflict(r.object, name, kind.String(), conflicts[0].Kind.String())
		}
		for _, c := range conflicts {
			e.clear(c)
		}
	}

	e.set(d)
	return nil
}

// Err returns the first declaration error, if any.
func (r *Registry) Err() error {
	if len(r.errs) == 0 {
		return nil
	}
	return r.errs[0]
}

// Seal freezes the registry. Further declarations fail.
func (r *Registry) Seal() {
	if r.sealed {
		return
	}
	r.sealed = true

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	r.names = names
}

// Reset drops every declared member. It is used when declaration fails so a
// broken object exposes nothing.
func (r *Registry) Reset() {
	r.entries = make(map[string]*Entry)
	r.names = nil
}

// Sealed reports whether the registry is frozen.
func (r *Registry) Sealed() bool {
	return r.sealed
}

// Object returns the name of the owning object.
func (r *Registry) Object() string {
	return r.object
}

// Lookup returns the entry declared under name.
func (r *Registry) Lookup(name string) (Entry, bool) {
	e, ok := r.entries[name]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Names returns every declared name exactly once, sorted.
func (r *Registry) Names() []string {
	if !r.sealed {
		names := make([]string, 0, len(r.entries))
		for name := range r.entries {
			names = append(names, name)
		}
		sort.Strings(names)
		return names
	}
	result := make([]string, len(r.names))
	copy(result, r.names)
	return result
}

// Len returns the number of declared names.
func (r *Registry) Len() int {
	return len(r.entries)
}

// Each visits every descriptor ordered by name, then method, getter, setter.
func (r *Registry) Each(fn func(*Descriptor) bool) {
	for _, name := range r.Names() {
		e := r.entries[name]
		for _, d := range []*Descriptor{e.Method, e.Getter, e.Setter} {
			if d == nil {
				continue
			}
			if !fn(d) {
				return
			}
		}
	}
}
