package hybrid

import (
	"go.uber.org/zap"

	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/liveness"
	"github.com/wippyai/hostbridge/member"
)

// CachedCallable returns the value cached for (runtime, name, kind), calling
// build to create it on first use. A callable built for one runtime is never
// returned to another.
//
// build runs under the cache lock. It must only wrap the descriptor, never
// invoke a handler or wait on another runtime.
func (o *Object) CachedCallable(rt liveness.RuntimeID, name string, kind member.Kind, build func() (any, error)) (any, error) {
	o.cacheMu.Lock()
	defer o.cacheMu.Unlock()

	if o.released.Load() {
		return nil, errors.MissingObject("host object " + o.name)
	}

	perRuntime, ok := o.cache[rt]
	if !ok {
		perRuntime = make(map[cacheKey]any)
		o.cache[rt] = perRuntime
	}

	key := cacheKey{name: name, kind: kind}
	if v, ok := perRuntime[key]; ok {
		return v, nil
	}

	v, err := build()
	if err != nil {
		return nil, err
	}
	perRuntime[key] = v

	o.logger.Debug("callable cached",
		zap.String("object", o.name),
		zap.String("member", name),
		zap.Stringer("kind", kind),
		zap.Stringer("runtime", rt))
	return v, nil
}

// Forget drops every cached callable of rt.
func (o *Object) Forget(rt liveness.RuntimeID) {
	o.cacheMu.Lock()
	defer o.cacheMu.Unlock()
	delete(o.cache, rt)
}

func (o *Object) cachedCount(rt liveness.RuntimeID) int {
	o.cacheMu.Lock()
	defer o.cacheMu.Unlock()
	return len(o.cache[rt])
}
