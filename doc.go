// Package hostbridge exposes native Go objects to embedded script runtimes.
//
// A native object declares its methods, getters and setters once. Every
// runtime that touches it (goja JavaScript VMs, go-lua states, wazero host
// modules) then sees the same members through its own per-runtime bindings,
// and callbacks handed back by scripts are checked against runtime liveness
// before they fire.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	hostbridge/          Root package, documentation only
//	├── errors/          Structured errors with phase and kind
//	├── member/          Member descriptors and the per-object registry
//	├── convert/         Go <-> goja value conversion tables
//	├── liveness/        Runtime identities, liveness guard, error reporters
//	├── hybrid/          Native object base: lazy declaration, callable cache, goja façade
//	├── runtime/         goja runtimes on their own goroutines, callbacks, frame scheduler
//	├── resource/        Handle table for objects referenced by integer handles
//	├── luahost/         Host objects as go-lua userdata
//	├── wasmhost/        Host objects as wazero host functions with WIT descriptions
//	└── cmd/bridge/      CLI and interactive REPL over the demo objects
//
// # Quick Start
//
// Declare a native object:
//
//	type User struct {
//		*hybrid.Object
//		name string
//	}
//
//	func NewUser(name string) *User {
//		u := &User{name: name}
//		u.Object = hybrid.New("User", u)
//		return u
//	}
//
//	func (u *User) DeclareMembers(r member.Registrar) error {
//		return errors.Join(
//			r.Getter("name", func() string { return u.name }),
//			r.Setter("name", func(v string) { u.name = v }),
//		)
//	}
//
// Expose it to every runtime of a host:
//
//	host, err := runtime.NewHost(ctx)
//	if err != nil {
//		return err
//	}
//	defer host.Close(ctx)
//
//	if err := host.Expose(ctx, "user", NewUser("Alice")); err != nil {
//		return err
//	}
//	worker, err := host.Spawn(ctx, "worker")
//	if err != nil {
//		return err
//	}
//	v, err := worker.RunString(ctx, `user.name = "Bob"; user.name`)
//
// # Runtime Liveness
//
// Background runtimes register with a liveness.Guard when created and
// unregister when closed. A callback whose runtime is gone is never invoked;
// the host's Reporter receives one stale_runtime error instead.
package hostbridge
