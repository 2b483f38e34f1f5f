package wasmhost

import (
	"reflect"
	"strconv"
	"strings"

	"go.bytecodealliance.org/wit"

	"github.com/wippyai/hostbridge/hybrid"
	"github.com/wippyai/hostbridge/member"
)

// Describe renders obj's members as a WIT resource definition. Every member
// is listed, including those Define cannot export:
//
//	resource user {
//	  get-age: func() -> s64;
//	  name: func() -> string;
//	  set-name: func(value: string);
//	}
func (m *Module) Describe(obj hybrid.Exposer) (string, error) {
	h := obj.HostObject()
	reg, err := h.Registry()
	if err != nil {
		return "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	class, ok := m.types[reflect.TypeOf(obj)]
	if !ok {
		class = kebab(h.Name())
	}

	var b strings.Builder
	b.WriteString("resource ")
	b.WriteString(class)
	b.WriteString(" {\n")
	reg.Each(func(d *member.Descriptor) bool {
		b.WriteString("  ")
		b.WriteString(m.signature(d))
		b.WriteString(";\n")
		return true
	})
	b.WriteString("}\n")
	return b.String(), nil
}

func (m *Module) signature(d *member.Descriptor) string {
	name := kebab(d.Name)
	if d.Kind == member.KindSetter {
		name = "set-" + name
	}

	if _, ok := d.Handler.(hybrid.CallHandler); ok {
		return name + ": func(args: list<_>) -> _"
	}

	var params []string
	for i, p := range d.Params() {
		pname := "arg" + strconv.Itoa(i)
		if d.Kind == member.KindSetter {
			pname = "value"
		}
		typ := "_"
		if vt, ok := m.witType(p); ok {
			if d.Variadic() && i == len(d.Params())-1 {
				pname = "rest"
			}
			typ = witName(vt)
		}
		params = append(params, pname+": "+typ)
	}

	sig := name + ": func(" + strings.Join(params, ", ") + ")"

	var result valueType
	hasResult := false
	if r := d.Result(); r != nil {
		vt, ok := m.witType(r)
		if !ok {
			vt = valueType{goType: r}
		}
		if ok && vt.handle() {
			vt.wit = &wit.TypeDef{Kind: &wit.Own{}}
		}
		result, hasResult = vt, true
	}

	switch {
	case d.ReturnsError():
		var okType wit.Type
		if hasResult {
			okType = result.wit
		}
		res := &wit.TypeDef{Kind: &wit.Result{OK: okType, Err: wit.String{}}}
		sig += " -> " + renderType(res, result.class)
	case hasResult:
		sig += " -> " + witName(result)
	}
	return sig
}
