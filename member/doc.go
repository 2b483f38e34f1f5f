// Package member holds the declared members of a native object.
//
// Members live in three namespaces: methods, getters and setters. A name may
// be used once per object, except that a getter and a setter can share a name
// to form a read/write property. Declaring a clashing name fails with an
// errors.KindNameConflict error unless WithOverride is passed, in which case
// the new descriptor silently replaces every clashing one.
//
// Handlers are plain Go functions. Their signatures are checked when declared:
//
//	r.Method("greet", func(name string) string { ... })
//	r.Method("load", func(path string) (*Asset, error) { ... })
//	r.Getter("name", func() string { ... })
//	r.Setter("name", func(v string) error { ... })
//
// A Registry is sealed after declaration and read-only from then on.
package member
