// Package hybrid exposes native Go objects to goja script runtimes.
//
// A native object embeds *Object and declares its members in DeclareMembers:
//
//	type User struct {
//		*hybrid.Object
//		name string
//	}
//
//	func NewUser() *User {
//		u := &User{}
//		u.Object = hybrid.New("User", u)
//		return u
//	}
//
//	func (u *User) DeclareMembers(r member.Registrar) error {
//		return stderrors.Join(
//			r.Getter("name", func() string { return u.name }),
//			r.Setter("name", func(v string) { u.name = v }),
//		)
//	}
//
// Declaration runs once, on the first read, write or enumeration from any
// runtime. Each runtime gets its own script object (Bind) and its own cached
// functions; nothing created for one runtime is handed to another.
//
// Scripts see three operations. Reading a method yields a function, reading a
// getter yields its value and unknown names read as undefined. Writing a name
// that has no setter is left to goja: ignored in sloppy mode, a TypeError in
// strict mode. Enumeration lists every declared name once.
package hybrid
