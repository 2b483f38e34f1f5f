package luahost

import (
	"math"
	"reflect"
	"sort"
	"strconv"

	"github.com/Shopify/go-lua"

	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/hybrid"
)

var exposerType = reflect.TypeOf((*hybrid.Exposer)(nil)).Elem()

// push converts v and pushes it onto the stack.
func (s *State) push(v reflect.Value, path []string) error {
	l := s.l
	if !v.IsValid() {
		l.PushNil()
		return nil
	}

	if v.Type().Implements(exposerType) {
		if (v.Kind() == reflect.Pointer || v.Kind() == reflect.Interface) && v.IsNil() {
			l.PushNil()
			return nil
		}
		obj := v.Interface().(hybrid.Exposer).HostObject()
		if obj == nil {
			l.PushNil()
			return nil
		}
		if obj.Released() {
			return errors.MissingObject("host object " + obj.Name())
		}
		s.pushObject(obj)
		return nil
	}

	switch fn := v.Interface().(type) {
	case lua.Function:
		l.PushGoFunction(fn)
		return nil
	case func(*lua.State) int:
		l.PushGoFunction(fn)
		return nil
	}

	switch v.Kind() {
	case reflect.Bool:
		l.PushBoolean(v.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		l.PushNumber(float64(v.Int()))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		l.PushNumber(float64(v.Uint()))
	case reflect.Float32, reflect.Float64:
		l.PushNumber(v.Float())
	case reflect.String:
		l.PushString(v.String())

	case reflect.Slice, reflect.Array:
		l.CreateTable(v.Len(), 0)
		for i := 0; i < v.Len(); i++ {
			if err := s.push(v.Index(i), append(path, strconv.Itoa(i))); err != nil {
				l.Pop(1)
				return err
			}
			l.RawSetInt(-2, i+1)
		}

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return unsupported(errors.PhaseEncode, path, v.Type())
		}
		if v.IsNil() {
			l.PushNil()
			return nil
		}
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		l.CreateTable(0, len(keys))
		for _, k := range keys {
			if err := s.push(v.MapIndex(k), append(path, k.String())); err != nil {
				l.Pop(1)
				return err
			}
			l.SetField(-2, k.String())
		}

	case reflect.Pointer, reflect.Interface:
		if v.IsNil() {
			l.PushNil()
			return nil
		}
		return s.push(v.Elem(), path)

	default:
		return unsupported(errors.PhaseEncode, path, v.Type())
	}
	return nil
}

// pull converts the value at idx to typ. Index 0 reads as nil.
func (s *State) pull(idx int, typ reflect.Type, path []string) (reflect.Value, error) {
	l := s.l
	kind := lua.TypeNil
	if idx != 0 {
		kind = l.TypeOf(idx)
	}

	if typ.Implements(exposerType) || typ == reflect.TypeOf((*hybrid.Object)(nil)) {
		return s.pullObject(idx, kind, typ, path)
	}

	switch typ.Kind() {
	case reflect.Bool:
		if kind != lua.TypeBoolean {
			return reflect.Value{}, s.mismatch(path, typ, kind)
		}
		return reflect.ValueOf(l.ToBoolean(idx)).Convert(typ), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if kind != lua.TypeNumber {
			return reflect.Value{}, s.mismatch(path, typ, kind)
		}
		f, _ := l.ToNumber(idx)
		out := reflect.New(typ).Elem()
		if math.IsNaN(f) || math.IsInf(f, 0) || f >= math.MaxInt64 || f < math.MinInt64 || out.OverflowInt(int64(f)) {
			return reflect.Value{}, errors.Overflow(errors.PhaseDecode, path, f, typ.String())
		}
		out.SetInt(int64(f))
		return out, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if kind != lua.TypeNumber {
			return reflect.Value{}, s.mismatch(path, typ, kind)
		}
		f, _ := l.ToNumber(idx)
		out := reflect.New(typ).Elem()
		if math.IsNaN(f) || f < 0 || f >= math.MaxUint64 || out.OverflowUint(uint64(f)) {
			return reflect.Value{}, errors.Overflow(errors.PhaseDecode, path, f, typ.String())
		}
		out.SetUint(uint64(f))
		return out, nil

	case reflect.Float32, reflect.Float64:
		if kind != lua.TypeNumber {
			return reflect.Value{}, s.mismatch(path, typ, kind)
		}
		f, _ := l.ToNumber(idx)
		out := reflect.New(typ).Elem()
		if !math.IsInf(f, 0) && !math.IsNaN(f) && out.OverflowFloat(f) {
			return reflect.Value{}, errors.Overflow(errors.PhaseDecode, path, f, typ.String())
		}
		out.SetFloat(f)
		return out, nil

	case reflect.String:
		if kind != lua.TypeString {
			return reflect.Value{}, s.mismatch(path, typ, kind)
		}
		str, _ := l.ToString(idx)
		return reflect.ValueOf(str).Convert(typ), nil

	case reflect.Slice:
		if kind != lua.TypeTable {
			return reflect.Value{}, s.mismatch(path, typ, kind)
		}
		idx = l.AbsIndex(idx)
		n := l.RawLength(idx)
		out := reflect.MakeSlice(typ, n, n)
		for i := 1; i <= n; i++ {
			l.RawGetInt(idx, i)
			item, err := s.pull(l.Top(), typ.Elem(), append(path, strconv.Itoa(i-1)))
			l.Pop(1)
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i - 1).Set(item)
		}
		return out, nil

	case reflect.Map:
		if typ.Key().Kind() != reflect.String {
			return reflect.Value{}, unsupported(errors.PhaseDecode, path, typ)
		}
		if kind != lua.TypeTable {
			return reflect.Value{}, s.mismatch(path, typ, kind)
		}
		idx = l.AbsIndex(idx)
		out := reflect.MakeMap(typ)
		l.PushNil()
		for l.Next(idx) {
			if l.TypeOf(-2) != lua.TypeString {
				l.Pop(2)
				return reflect.Value{}, s.mismatch(path, typ, lua.TypeTable)
			}
			key, _ := l.ToString(-2)
			item, err := s.pull(l.Top(), typ.Elem(), append(path, key))
			if err != nil {
				l.Pop(2)
				return reflect.Value{}, err
			}
			out.SetMapIndex(reflect.ValueOf(key).Convert(typ.Key()), item)
			l.Pop(1)
		}
		return out, nil

	case reflect.Pointer:
		if kind == lua.TypeNil || kind == lua.TypeNone {
			return reflect.Zero(typ), nil
		}
		elem, err := s.pull(idx, typ.Elem(), path)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(typ.Elem())
		out.Elem().Set(elem)
		return out, nil

	case reflect.Interface:
		if typ.NumMethod() != 0 {
			return reflect.Value{}, unsupported(errors.PhaseDecode, path, typ)
		}
		out := reflect.New(typ).Elem()
		if idx != 0 {
			if v := s.toGo(idx); v != nil {
				out.Set(reflect.ValueOf(v))
			}
		}
		return out, nil
	}

	return reflect.Value{}, unsupported(errors.PhaseDecode, path, typ)
}

func (s *State) pullObject(idx int, kind lua.Type, typ reflect.Type, path []string) (reflect.Value, error) {
	if kind == lua.TypeNil || kind == lua.TypeNone {
		return reflect.Zero(typ), nil
	}
	b, ok := s.l.ToUserData(idx).(*binding)
	if kind != lua.TypeUserData || !ok {
		return reflect.Value{}, s.mismatch(path, typ, kind)
	}

	owner, err := b.obj.Owner()
	if err != nil {
		return reflect.Value{}, err
	}
	for _, v := range []reflect.Value{reflect.ValueOf(owner), reflect.ValueOf(b.obj)} {
		if v.Type().AssignableTo(typ) {
			out := reflect.New(typ).Elem()
			out.Set(v)
			return out, nil
		}
	}
	return reflect.Value{}, errors.TypeConversion(errors.PhaseDecode, path, typ.String(), "host object "+b.obj.Name())
}

// toGo converts the value at idx without a target type.
func (s *State) toGo(idx int) any {
	l := s.l
	switch l.TypeOf(idx) {
	case lua.TypeString:
		v, _ := l.ToString(idx)
		return v
	case lua.TypeNumber:
		v, _ := l.ToNumber(idx)
		return normalizeNumber(v)
	case lua.TypeBoolean:
		return l.ToBoolean(idx)
	case lua.TypeTable:
		return s.tableToGo(idx)
	case lua.TypeUserData:
		if b, ok := l.ToUserData(idx).(*binding); ok {
			if owner, err := b.obj.Owner(); err == nil {
				return owner
			}
			return nil
		}
		return l.ToUserData(idx)
	default:
		return nil
	}
}

func (s *State) tableToGo(idx int) any {
	l := s.l
	idx = l.AbsIndex(idx)

	isArray := true
	maxIndex, count := 0, 0
	l.PushNil()
	for l.Next(idx) {
		if isArray {
			if i, ok := l.ToInteger(-2); ok && l.TypeOf(-2) == lua.TypeNumber && i > 0 {
				count++
				if i > maxIndex {
					maxIndex = i
				}
			} else {
				isArray = false
			}
		}
		l.Pop(1)
	}

	if isArray && count > 0 && maxIndex == count {
		out := make([]any, 0, maxIndex)
		for i := 1; i <= maxIndex; i++ {
			l.RawGetInt(idx, i)
			out = append(out, s.toGo(-1))
			l.Pop(1)
		}
		return out
	}

	out := map[string]any{}
	l.PushNil()
	for l.Next(idx) {
		if l.TypeOf(-2) == lua.TypeString {
			key, _ := l.ToString(-2)
			out[key] = s.toGo(-1)
		}
		l.Pop(1)
	}
	return out
}

func normalizeNumber(v float64) any {
	if math.Trunc(v) == v && v >= math.MinInt64 && v < math.MaxInt64 {
		return int64(v)
	}
	return v
}

// typeName returns the Lua type name used in conversion errors.
func typeName(kind lua.Type) string {
	switch kind {
	case lua.TypeNone, lua.TypeNil:
		return "nil"
	case lua.TypeBoolean:
		return "boolean"
	case lua.TypeLightUserData, lua.TypeUserData:
		return "userdata"
	case lua.TypeNumber:
		return "number"
	case lua.TypeString:
		return "string"
	case lua.TypeTable:
		return "table"
	case lua.TypeFunction:
		return "function"
	case lua.TypeThread:
		return "thread"
	}
	return "unknown"
}

func (s *State) mismatch(path []string, typ reflect.Type, kind lua.Type) error {
	return errors.TypeConversion(errors.PhaseDecode, path, typ.String(), typeName(kind))
}

func unsupported(phase errors.Phase, path []string, typ reflect.Type) error {
	return errors.New(phase, errors.KindUnsupported).
		Path(path...).
		GoType(typ.String()).
		Detail("no Lua conversion").
		Build()
}
