package wasmhost

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/hybrid"
)

var exposerType = reflect.TypeOf((*hybrid.Exposer)(nil)).Elem()

// valueType pairs a Go type with its WIT type. Host objects are resource
// handles; class names the resource they refer to.
type valueType struct {
	wit    wit.Type
	goType reflect.Type
	class  string
}

func (v valueType) handle() bool {
	return v.goType.Implements(exposerType)
}

// witType maps a Go type to WIT. It reports false for types WIT cannot
// describe.
func (m *Module) witType(t reflect.Type) (valueType, bool) {
	vt := valueType{goType: t}
	if t.Implements(exposerType) {
		vt.wit = &wit.TypeDef{Kind: &wit.Borrow{}}
		vt.class = m.classOf(t)
		return vt, true
	}

	switch t.Kind() {
	case reflect.Bool:
		vt.wit = wit.Bool{}
	case reflect.Int8:
		vt.wit = wit.S8{}
	case reflect.Int16:
		vt.wit = wit.S16{}
	case reflect.Int32:
		vt.wit = wit.S32{}
	case reflect.Int, reflect.Int64:
		if t.Size() == 8 {
			vt.wit = wit.S64{}
		} else {
			vt.wit = wit.S32{}
		}
	case reflect.Uint8:
		vt.wit = wit.U8{}
	case reflect.Uint16:
		vt.wit = wit.U16{}
	case reflect.Uint32:
		vt.wit = wit.U32{}
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		if t.Size() == 8 {
			vt.wit = wit.U64{}
		} else {
			vt.wit = wit.U32{}
		}
	case reflect.Float32:
		vt.wit = wit.F32{}
	case reflect.Float64:
		vt.wit = wit.F64{}
	case reflect.String:
		vt.wit = wit.String{}
	case reflect.Slice, reflect.Array:
		elem, ok := m.witType(t.Elem())
		if !ok {
			return vt, false
		}
		vt.wit = &wit.TypeDef{Kind: &wit.List{Type: elem.wit}}
		vt.class = elem.class
	case reflect.Map:
		key, ok := m.witType(t.Key())
		if !ok {
			return vt, false
		}
		val, ok := m.witType(t.Elem())
		if !ok {
			return vt, false
		}
		tuple := &wit.TypeDef{Kind: &wit.Tuple{Types: []wit.Type{key.wit, val.wit}}}
		vt.wit = &wit.TypeDef{Kind: &wit.List{Type: tuple}}
		vt.class = val.class
	case reflect.Pointer:
		elem, ok := m.witType(t.Elem())
		if !ok {
			return vt, false
		}
		vt.wit = &wit.TypeDef{Kind: &wit.Option{Type: elem.wit}}
		vt.class = elem.class
	default:
		return vt, false
	}
	return vt, true
}

// coreType returns the single core wasm value type v flattens to. Types that
// need linear memory report false.
func coreType(v valueType) (api.ValueType, bool) {
	switch t := v.wit.(type) {
	case wit.Bool, wit.U8, wit.U16, wit.U32, wit.S8, wit.S16, wit.S32:
		return api.ValueTypeI32, true
	case wit.U64, wit.S64:
		return api.ValueTypeI64, true
	case wit.F32:
		return api.ValueTypeF32, true
	case wit.F64:
		return api.ValueTypeF64, true
	case *wit.TypeDef:
		switch t.Kind.(type) {
		case *wit.Own, *wit.Borrow:
			return api.ValueTypeI32, true
		}
	}
	return 0, false
}

// witName renders a WIT type as it appears in a WIT document.
func witName(v valueType) string {
	return renderType(v.wit, v.class)
}

func renderType(t wit.Type, class string) string {
	switch t := t.(type) {
	case wit.Bool:
		return "bool"
	case wit.S8:
		return "s8"
	case wit.S16:
		return "s16"
	case wit.S32:
		return "s32"
	case wit.S64:
		return "s64"
	case wit.U8:
		return "u8"
	case wit.U16:
		return "u16"
	case wit.U32:
		return "u32"
	case wit.U64:
		return "u64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.Char:
		return "char"
	case wit.String:
		return "string"
	case *wit.TypeDef:
		switch k := t.Kind.(type) {
		case *wit.List:
			return "list<" + renderType(k.Type, class) + ">"
		case *wit.Option:
			return "option<" + renderType(k.Type, class) + ">"
		case *wit.Tuple:
			parts := make([]string, len(k.Types))
			for i, e := range k.Types {
				parts[i] = renderType(e, class)
			}
			return "tuple<" + strings.Join(parts, ", ") + ">"
		case *wit.Result:
			ok := "_"
			if k.OK != nil {
				ok = renderType(k.OK, class)
			}
			return "result<" + ok + ", " + renderType(k.Err, class) + ">"
		case *wit.Own:
			return class
		case *wit.Borrow:
			return "borrow<" + class + ">"
		}
	}
	return "_"
}

// kebab converts a Go style identifier to a WIT identifier.
func kebab(name string) string {
	var b strings.Builder
	runes := []rune(name)
	for i, r := range runes {
		switch {
		case r == '_' || r == ' ':
			b.WriteByte('-')
		case unicode.IsUpper(r):
			if i > 0 && (unicode.IsLower(runes[i-1]) || (i+1 < len(runes) && unicode.IsLower(runes[i+1]) && unicode.IsUpper(runes[i-1]))) {
				b.WriteByte('-')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// decode converts a raw stack slot to a numeric Go value.
func decode(raw uint64, t reflect.Type, path []string) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		out.SetBool(api.DecodeU32(raw) != 0)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		v := int64(raw)
		if t.Size() < 8 {
			v = int64(api.DecodeI32(raw))
		}
		if out.OverflowInt(v) {
			return reflect.Value{}, errors.Overflow(errors.PhaseDecode, path, v, t.String())
		}
		out.SetInt(v)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		v := raw
		if t.Size() < 8 {
			v = uint64(api.DecodeU32(raw))
		}
		if out.OverflowUint(v) {
			return reflect.Value{}, errors.Overflow(errors.PhaseDecode, path, v, t.String())
		}
		out.SetUint(v)
	case reflect.Float32:
		out.SetFloat(float64(api.DecodeF32(raw)))
	case reflect.Float64:
		out.SetFloat(api.DecodeF64(raw))
	default:
		return reflect.Value{}, errors.New(errors.PhaseDecode, errors.KindUnsupported).
			Path(path...).
			GoType(t.String()).
			Detail("not a core wasm value").
			Build()
	}
	return out, nil
}

// encode converts a numeric Go value to a raw stack slot.
func encode(v reflect.Value) uint64 {
	switch v.Kind() {
	case reflect.Bool:
		if v.Bool() {
			return 1
		}
		return 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if v.Type().Size() < 8 {
			return api.EncodeI32(int32(v.Int()))
		}
		return uint64(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if v.Type().Size() < 8 {
			return api.EncodeU32(uint32(v.Uint()))
		}
		return v.Uint()
	case reflect.Float32:
		return api.EncodeF32(float32(v.Float()))
	case reflect.Float64:
		return api.EncodeF64(v.Float())
	}
	return 0
}
