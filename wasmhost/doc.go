// Package wasmhost exports hybrid host objects to WebAssembly guests.
//
// A Module turns a class of host objects into wazero host functions named
// after the component model's resource conventions:
//
//	mod := wasmhost.NewModule("host", guard)
//	if err := mod.Define("user", proto); err != nil {
//		return err
//	}
//	if _, err := mod.Instantiate(ctx, r); err != nil {
//		return err
//	}
//	h, err := mod.Insert(user)
//
// A guest importing "[method]user.get-age" from "host" calls it with h as its
// first argument. Only members whose parameters and result are core wasm
// numbers, booleans or host objects are exported; host objects travel as
// handles. Describe renders every member as WIT, exported or not.
//
// An unknown or dropped handle traps with a missing_object error.
package wasmhost
