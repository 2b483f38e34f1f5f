// Package luahost exposes hybrid host objects to Lua states.
//
// A State is registered with the same liveness guard as the goja runtimes, so
// host objects cache their Lua callables per state exactly as they do per
// JavaScript runtime:
//
//	state, err := luahost.NewState(host.Guard())
//	if err != nil {
//		return err
//	}
//	defer state.Close()
//
//	if err := state.Expose("user", user); err != nil {
//		return err
//	}
//	results, err := state.DoString(`return user:getAge()`)
//
// Methods are called with either user:method() or user.method(). Getters
// read as fields, setters accept assignment and assigning a name without a
// setter raises a Lua error. pairs() walks every declared member.
package luahost
