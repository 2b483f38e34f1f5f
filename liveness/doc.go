// Package liveness tracks which scripting runtime instances still exist.
//
// A Guard is an explicitly owned service: create one per host, register a
// background runtime's identity when the runtime starts, and unregister it
// exactly once when the runtime is permanently destroyed. The main runtime
// identity is always alive.
//
//	guard := liveness.NewGuard()
//	id := liveness.NewID("worker")
//	_ = guard.Register(id)
//	...
//	guard.Unregister(id)
//	guard.IsAlive(id) // false
//
// Code that fires work on a runtime long after it was scheduled (frame
// callbacks, timers) checks IsAlive first. When the runtime is gone the work
// is dropped and an errors.StaleRuntime is passed to a Reporter instead of
// being returned to an unrelated caller.
package liveness
