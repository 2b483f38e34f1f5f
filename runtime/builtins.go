package runtime

import (
	"strings"

	"github.com/dop251/goja"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/hostbridge/hybrid"
)

// installBuiltins adds the globals every runtime gets: console and
// requestAnimationFrame.
func (r *Runtime) installBuiltins(vm *goja.Runtime) error {
	console := vm.NewObject()
	for name, level := range map[string]zapcore.Level{
		"log":   zapcore.InfoLevel,
		"info":  zapcore.InfoLevel,
		"debug": zapcore.DebugLevel,
		"warn":  zapcore.WarnLevel,
		"error": zapcore.ErrorLevel,
	} {
		if err := console.Set(name, r.consoleFunc(level)); err != nil {
			return err
		}
	}
	if err := vm.Set("console", console); err != nil {
		return err
	}

	info := vm.NewObject()
	_ = info.Set("name", r.name)
	_ = info.Set("id", r.id.String())
	_ = info.Set("main", r.main)
	if err := vm.Set("runtime", info); err != nil {
		return err
	}

	return vm.Set("requestAnimationFrame", func(call goja.FunctionCall) goja.Value {
		cb, err := NewCallback(r, call.Argument(0))
		if err != nil {
			panic(hybrid.Throw(vm, err))
		}
		return vm.ToValue(r.host.frames.Request(cb))
	})
}

func (r *Runtime) consoleFunc(level zapcore.Level) func(goja.FunctionCall) goja.Value {
	return func(call goja.FunctionCall) goja.Value {
		parts := make([]string, len(call.Arguments))
		for i, a := range call.Arguments {
			parts[i] = a.String()
		}
		if ce := r.host.logger.Check(level, strings.Join(parts, " ")); ce != nil {
			ce.Write(zap.String("runtime", r.name))
		}
		return goja.Undefined()
	}
}
