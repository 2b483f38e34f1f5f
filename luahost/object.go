package luahost

import (
	"reflect"
	"strconv"

	"github.com/Shopify/go-lua"
	"github.com/dop251/goja"

	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/hybrid"
	"github.com/wippyai/hostbridge/member"
)

const objectTypeName = "hostbridge.object"

// binding is the userdata payload of a host object.
type binding struct {
	obj *hybrid.Object
}

func (s *State) registerObjectType() {
	lua.NewMetaTable(s.l, objectTypeName)
	lua.SetFunctions(s.l, []lua.RegistryFunction{
		{Name: "__index", Function: s.index},
		{Name: "__newindex", Function: s.newIndex},
		{Name: "__pairs", Function: s.pairs},
		{Name: "__tostring", Function: s.toString},
		{Name: "__eq", Function: s.equal},
	}, 0)
	s.l.Pop(1)
}

func (s *State) pushObject(obj *hybrid.Object) {
	s.l.PushUserData(&binding{obj: obj})
	lua.SetMetaTableNamed(s.l, objectTypeName)
}

func checkObject(l *lua.State, index int) *hybrid.Object {
	b, ok := lua.CheckUserData(l, index, objectTypeName).(*binding)
	if !ok || b == nil {
		lua.ArgumentError(l, index, "host object expected")
		return nil
	}
	return b.obj
}

// raise turns err into a Lua error. It does not return.
func raise(l *lua.State, err error) {
	lua.Errorf(l, "%s", err.Error())
}

// __index: methods read as functions, getters as their value, anything
// else as nil.
func (s *State) index(l *lua.State) int {
	obj := checkObject(l, 1)
	key := lua.CheckString(l, 2)

	entry, ok, err := obj.Lookup(key)
	if err != nil {
		raise(l, err)
	}
	if !ok {
		l.PushNil()
		return 1
	}

	switch {
	case entry.Method != nil:
		fn, err := s.function(obj, entry.Method)
		if err != nil {
			raise(l, err)
		}
		l.PushGoFunction(fn)
		return 1
	case entry.Getter != nil:
		return s.invoke(l, obj, entry.Getter, 0, 0)
	}
	l.PushNil()
	return 1
}

// __newindex: only setters accept writes.
func (s *State) newIndex(l *lua.State) int {
	obj := checkObject(l, 1)
	key := lua.CheckString(l, 2)

	entry, ok, err := obj.Lookup(key)
	if err != nil {
		raise(l, err)
	}
	if !ok || entry.Setter == nil {
		lua.Errorf(l, "cannot assign %s.%s: no setter", obj.Name(), key)
		return 0
	}
	s.invoke(l, obj, entry.Setter, 3, 1)
	return 0
}

// __pairs: iterates every member name with its current read value.
func (s *State) pairs(l *lua.State) int {
	obj := checkObject(l, 1)
	names, err := obj.Members()
	if err != nil {
		raise(l, err)
	}

	i := 0
	l.PushGoFunction(func(l *lua.State) int {
		if i >= len(names) {
			l.PushNil()
			return 1
		}
		name := names[i]
		i++

		l.PushString(name)
		s.pushObject(obj)
		l.PushString(name)
		l.Table(-2)
		l.Remove(-2)
		return 2
	})
	l.PushValue(1)
	l.PushNil()
	return 3
}

func (s *State) toString(l *lua.State) int {
	obj := checkObject(l, 1)
	l.PushString(obj.String())
	return 1
}

func (s *State) equal(l *lua.State) int {
	a, _ := l.ToUserData(1).(*binding)
	b, _ := l.ToUserData(2).(*binding)
	l.PushBoolean(a != nil && b != nil && a.obj == b.obj)
	return 1
}

// function returns the Lua function for a method, cached per state.
func (s *State) function(obj *hybrid.Object, d *member.Descriptor) (lua.Function, error) {
	v, err := obj.CachedCallable(s.id, d.Name, d.Kind, func() (any, error) {
		return lua.Function(func(l *lua.State) int {
			first, top := 1, l.Top()
			// obj:method(...) passes the object itself first
			if b, ok := l.ToUserData(1).(*binding); ok && b.obj == obj {
				first = 2
			}
			return s.invoke(l, obj, d, first, top-first+1)
		}), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(lua.Function), nil
}

var (
	gojaValueType = reflect.TypeOf((*goja.Value)(nil)).Elem()
	gojaCallType  = reflect.TypeOf((*hybrid.CallHandler)(nil)).Elem()
)

// invoke calls d with the n stack values starting at first and pushes the
// result. It returns the number of pushed values.
func (s *State) invoke(l *lua.State, obj *hybrid.Object, d *member.Descriptor, first, n int) int {
	if obj.Released() {
		raise(l, errors.MissingObject("host object "+obj.Name()))
	}

	switch h := d.Handler.(type) {
	case lua.Function:
		return h(l)
	case func(*lua.State) int:
		return h(l)
	}
	if reflect.TypeOf(d.Handler) == gojaCallType {
		raise(l, errors.Unsupported(errors.PhaseInvoke, d.Object+"."+d.Name+" only runs in a JavaScript runtime"))
	}

	params := d.Params()
	if n < 0 {
		n = 0
	}
	if n < d.Arity || (!d.Variadic() && n > len(params)) {
		raise(l, errors.Arity(d.Path(), d.Arity, n))
	}

	fixed := len(params)
	if d.Variadic() {
		fixed--
	}

	in := make([]reflect.Value, 0, n)
	for i := 0; i < n || i < fixed; i++ {
		var typ reflect.Type
		if i < fixed {
			typ = params[i]
		} else {
			typ = params[fixed].Elem()
		}
		if typ == gojaValueType {
			raise(l, errors.Unsupported(errors.PhaseDecode, d.Object+"."+d.Name+" takes a JavaScript value"))
		}

		var (
			v   reflect.Value
			err error
		)
		if i < n {
			v, err = s.pull(first+i, typ, []string{d.Object, d.Name, strconv.Itoa(i)})
		} else {
			v, err = s.pull(0, typ, []string{d.Object, d.Name, strconv.Itoa(i)})
		}
		if err != nil {
			raise(l, err)
		}
		in = append(in, v)
	}

	out, err := d.Call(in)
	if err != nil {
		raise(l, err)
	}
	if !out.IsValid() {
		return 0
	}
	if err := s.push(out, d.Path()); err != nil {
		raise(l, err)
	}
	return 1
}
