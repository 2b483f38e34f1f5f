// Package resource provides handle tables for host objects.
//
// Guests such as WebAssembly modules cannot hold Go references, so host
// objects are handed to them as integer handles:
//
//	table := resource.NewTable()
//
//	// Insert a value under its class, get a handle
//	h, err := table.Insert("User", user)
//
//	// Resolve it again; unknown handles fail with a MissingObject error
//	v, err := table.Lookup(h, "User")
//
//	// Pin a handle while a call uses it
//	v, err = table.Borrow(h, "User")
//	defer table.Return(h)
//
//	// Drop it
//	v, err = table.Remove(h)
//
// Handle 0 is never valid. Freed handles are reused.
//
// # Observers
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("%s %s %d", e.Type, e.Class, e.Handle)
//	}))
package resource
