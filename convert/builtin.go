package convert

import (
	"math"
	"reflect"
	"sort"
	"strconv"

	"github.com/dop251/goja"

	"github.com/wippyai/hostbridge/errors"
)

var (
	valueType  = reflect.TypeOf((*goja.Value)(nil)).Elem()
	objectType = reflect.TypeOf((*goja.Object)(nil))
)

func registerBuiltins(t *Table) {
	t.exact[valueType] = passthrough{}
	t.exact[objectType] = objectPassthrough{}
}

// passthrough hands goja.Value parameters and results over untouched.
type passthrough struct{}

func (passthrough) ToScript(_ Runtime, v reflect.Value) (goja.Value, error) {
	if !v.IsValid() || v.IsNil() {
		return goja.Undefined(), nil
	}
	return v.Interface().(goja.Value), nil
}

func (passthrough) FromScript(_ Runtime, v goja.Value, t reflect.Type) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	if v != nil {
		out.Set(reflect.ValueOf(v))
	}
	return out, nil
}

// objectPassthrough accepts any script object as *goja.Object.
type objectPassthrough struct{}

func (objectPassthrough) ToScript(_ Runtime, v reflect.Value) (goja.Value, error) {
	if v.IsNil() {
		return goja.Null(), nil
	}
	return v.Interface().(*goja.Object), nil
}

func (objectPassthrough) FromScript(_ Runtime, v goja.Value, t reflect.Type) (reflect.Value, error) {
	if isNullish(v) {
		return reflect.Zero(t), nil
	}
	obj, ok := v.(*goja.Object)
	if !ok {
		return reflect.Value{}, errors.TypeConversion(errors.PhaseDecode, nil, "object", TypeName(v))
	}
	return reflect.ValueOf(obj), nil
}

func (t *Table) toScript(rt Runtime, v reflect.Value, path []string) (goja.Value, error) {
	if !v.IsValid() {
		return goja.Undefined(), nil
	}

	if c, ok := t.Lookup(v.Type()); ok {
		out, err := c.ToScript(rt, v)
		if err != nil {
			return nil, errors.WithPath(err, path...)
		}
		return out, nil
	}

	vm := rt.VM()

	switch v.Kind() {
	case reflect.Bool:
		return vm.ToValue(v.Bool()), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return vm.ToValue(v.Int()), nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return vm.ToValue(v.Uint()), nil

	case reflect.Float32, reflect.Float64:
		return vm.ToValue(v.Float()), nil

	case reflect.String:
		return vm.ToValue(v.String()), nil

	case reflect.Slice, reflect.Array:
		items := make([]any, v.Len())
		for i := range items {
			item, err := t.toScript(rt, v.Index(i), appendPath(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			items[i] = item
		}
		return vm.NewArray(items...), nil

	case reflect.Map:
		if v.Type().Key().Kind() != reflect.String {
			return nil, unsupported(errors.PhaseEncode, path, v.Type(), "map keys must be strings")
		}
		if v.IsNil() {
			return goja.Null(), nil
		}
		keys := v.MapKeys()
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		obj := vm.NewObject()
		for _, k := range keys {
			item, err := t.toScript(rt, v.MapIndex(k), appendPath(path, k.String()))
			if err != nil {
				return nil, err
			}
			if err := obj.Set(k.String(), item); err != nil {
				return nil, errors.Wrap(errors.PhaseEncode, errors.KindInvalidInput, err, "set property "+k.String())
			}
		}
		return obj, nil

	case reflect.Pointer:
		if v.IsNil() {
			return goja.Null(), nil
		}
		return t.toScript(rt, v.Elem(), path)

	case reflect.Interface:
		if v.IsNil() {
			return goja.Null(), nil
		}
		return t.toScript(rt, v.Elem(), path)
	}

	return nil, unsupported(errors.PhaseEncode, path, v.Type(), "no converter registered")
}

func (t *Table) fromScript(rt Runtime, v goja.Value, typ reflect.Type, path []string) (reflect.Value, error) {
	if v == nil {
		v = goja.Undefined()
	}

	if c, ok := t.Lookup(typ); ok {
		out, err := c.FromScript(rt, v, typ)
		if err != nil {
			return reflect.Value{}, errors.WithPath(err, path...)
		}
		return out, nil
	}

	switch typ.Kind() {
	case reflect.Bool:
		b, ok := v.Export().(bool)
		if !ok || isNullish(v) {
			return reflect.Value{}, mismatch(path, typ, v)
		}
		return reflect.ValueOf(b).Convert(typ), nil

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := toInt64(v, typ, path)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(typ).Elem()
		if out.OverflowInt(n) {
			return reflect.Value{}, errors.Overflow(errors.PhaseDecode, path, n, typ.String())
		}
		out.SetInt(n)
		return out, nil

	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := toInt64(v, typ, path)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(typ).Elem()
		if n < 0 || out.OverflowUint(uint64(n)) {
			return reflect.Value{}, errors.Overflow(errors.PhaseDecode, path, n, typ.String())
		}
		out.SetUint(uint64(n))
		return out, nil

	case reflect.Float32, reflect.Float64:
		f, ok := toFloat(v)
		if !ok {
			return reflect.Value{}, mismatch(path, typ, v)
		}
		out := reflect.New(typ).Elem()
		if !math.IsInf(f, 0) && !math.IsNaN(f) && out.OverflowFloat(f) {
			return reflect.Value{}, errors.Overflow(errors.PhaseDecode, path, f, typ.String())
		}
		out.SetFloat(f)
		return out, nil

	case reflect.String:
		s, ok := v.Export().(string)
		if !ok || isNullish(v) {
			return reflect.Value{}, mismatch(path, typ, v)
		}
		return reflect.ValueOf(s).Convert(typ), nil

	case reflect.Slice:
		obj, ok := v.(*goja.Object)
		if !ok || obj.ClassName() != "Array" {
			return reflect.Value{}, mismatch(path, typ, v)
		}
		n := int(obj.Get("length").ToInteger())
		out := reflect.MakeSlice(typ, n, n)
		for i := 0; i < n; i++ {
			item, err := t.fromScript(rt, obj.Get(strconv.Itoa(i)), typ.Elem(), appendPath(path, strconv.Itoa(i)))
			if err != nil {
				return reflect.Value{}, err
			}
			out.Index(i).Set(item)
		}
		return out, nil

	case reflect.Map:
		if typ.Key().Kind() != reflect.String {
			return reflect.Value{}, unsupported(errors.PhaseDecode, path, typ, "map keys must be strings")
		}
		obj, ok := v.(*goja.Object)
		if !ok || obj.ClassName() == "Array" {
			return reflect.Value{}, mismatch(path, typ, v)
		}
		if _, isFn := goja.AssertFunction(v); isFn {
			return reflect.Value{}, mismatch(path, typ, v)
		}
		out := reflect.MakeMap(typ)
		for _, k := range obj.Keys() {
			item, err := t.fromScript(rt, obj.Get(k), typ.Elem(), appendPath(path, k))
			if err != nil {
				return reflect.Value{}, err
			}
			out.SetMapIndex(reflect.ValueOf(k).Convert(typ.Key()), item)
		}
		return out, nil

	case reflect.Pointer:
		if isNullish(v) {
			return reflect.Zero(typ), nil
		}
		elem, err := t.fromScript(rt, v, typ.Elem(), path)
		if err != nil {
			return reflect.Value{}, err
		}
		out := reflect.New(typ.Elem())
		out.Elem().Set(elem)
		return out, nil

	case reflect.Interface:
		if typ.NumMethod() != 0 {
			return reflect.Value{}, unsupported(errors.PhaseDecode, path, typ, "no converter registered")
		}
		out := reflect.New(typ).Elem()
		if exported := v.Export(); exported != nil {
			out.Set(reflect.ValueOf(exported))
		}
		return out, nil
	}

	return reflect.Value{}, unsupported(errors.PhaseDecode, path, typ, "no converter registered")
}

func toInt64(v goja.Value, typ reflect.Type, path []string) (int64, error) {
	switch n := v.Export().(type) {
	case int64:
		return n, nil
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) || n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, errors.Overflow(errors.PhaseDecode, path, n, typ.String())
		}
		return int64(n), nil
	}
	return 0, mismatch(path, typ, v)
}

func toFloat(v goja.Value) (float64, bool) {
	switch n := v.Export().(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func isNullish(v goja.Value) bool {
	return v == nil || goja.IsUndefined(v) || goja.IsNull(v)
}

func mismatch(path []string, typ reflect.Type, v goja.Value) *errors.Error {
	return errors.TypeConversion(errors.PhaseDecode, path, typ.String(), TypeName(v))
}

func unsupported(phase errors.Phase, path []string, typ reflect.Type, detail string) *errors.Error {
	return errors.New(phase, errors.KindUnsupported).
		Path(path...).
		GoType(typ.String()).
		Detail(detail).
		Build()
}

func appendPath(path []string, elem string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, elem)
}

// TypeName returns the script-side type name of v as JS typeof reports it,
// except that null and arrays are named explicitly.
func TypeName(v goja.Value) string {
	switch {
	case v == nil || goja.IsUndefined(v):
		return "undefined"
	case goja.IsNull(v):
		return "null"
	}

	if obj, ok := v.(*goja.Object); ok {
		if _, isFn := goja.AssertFunction(v); isFn {
			return "function"
		}
		if obj.ClassName() == "Array" {
			return "array"
		}
		return "object"
	}
	if _, ok := v.(*goja.Symbol); ok {
		return "symbol"
	}

	switch v.Export().(type) {
	case bool:
		return "boolean"
	case int64, float64:
		return "number"
	case string:
		return "string"
	}
	return v.ExportType().String()
}
