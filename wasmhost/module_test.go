package wasmhost

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/hybrid"
	"github.com/wippyai/hostbridge/liveness"
	"github.com/wippyai/hostbridge/member"
)

type testUser struct {
	*hybrid.Object
	friend *testUser
	name   string
	age    int32
	level  int8
}

func newTestUser(name string, age int32) *testUser {
	u := &testUser{name: name, age: age}
	u.Object = hybrid.New("User", u)
	return u
}

func (u *testUser) DeclareMembers(r member.Registrar) error {
	return stderrors.Join(
		r.Method("getAge", func() int32 { return u.age }),
		r.Getter("age", func() int32 { return u.age }),
		r.Setter("age", func(v int32) { u.age = v }),
		r.Method("scale", func(f float64) float64 { return f * 2 }),
		r.Method("isAdult", func() bool { return u.age >= 18 }),
		r.Method("level", func(v int8) { u.level = v }),
		r.Getter("friend", func() *testUser { return u.friend }),
		r.Setter("friend", func(f *testUser) { u.friend = f }),
		r.Getter("name", func() string { return u.name }),
		r.Method("rename", func(n string) error {
			if n == "" {
				return fmt.Errorf("empty name")
			}
			u.name = n
			return nil
		}),
	)
}

type fixture struct {
	ctx   context.Context
	guard *liveness.Guard
	mod   *Module
	inst  api.Module
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	t.Cleanup(func() { _ = r.Close(ctx) })

	guard := liveness.NewGuard()
	mod := NewModule("host", guard)
	require.NoError(t, mod.Define("User", newTestUser("proto", 0)))

	inst, err := mod.Instantiate(ctx, r)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mod.Close(ctx) })

	return &fixture{ctx: ctx, guard: guard, mod: mod, inst: inst}
}

func (f *fixture) call(t *testing.T, name string, args ...uint64) ([]uint64, error) {
	t.Helper()
	fn := f.inst.ExportedFunction(name)
	require.NotNil(t, fn, "export %s", name)
	return fn.Call(f.ctx, args...)
}

func TestModule_Exports(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, []string{
		"[get]user.age",
		"[set]user.age",
		"[get]user.friend",
		"[set]user.friend",
		"[method]user.get-age",
		"[method]user.is-adult",
		"[method]user.level",
		"[method]user.scale",
		"[resource-drop]user",
	}, f.mod.Exports())
	assert.Equal(t, "host", f.inst.Name())
	assert.True(t, f.guard.IsAlive(f.mod.ID()))
}

func TestModule_CallsDispatchToHandle(t *testing.T) {
	f := newFixture(t)
	alice := newTestUser("Alice", 23)
	bob := newTestUser("Bob", 12)

	ha, err := f.mod.Insert(alice)
	require.NoError(t, err)
	hb, err := f.mod.Insert(bob)
	require.NoError(t, err)

	out, err := f.call(t, "[method]user.get-age", uint64(ha))
	require.NoError(t, err)
	assert.Equal(t, int32(23), api.DecodeI32(out[0]))

	out, err = f.call(t, "[method]user.is-adult", uint64(hb))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), out[0])

	_, err = f.call(t, "[set]user.age", uint64(hb), api.EncodeI32(30))
	require.NoError(t, err)
	assert.Equal(t, int32(30), bob.age)
	assert.Equal(t, int32(23), alice.age)

	out, err = f.call(t, "[method]user.scale", uint64(ha), api.EncodeF64(1.25))
	require.NoError(t, err)
	assert.Equal(t, 2.5, api.DecodeF64(out[0]))
}

func TestModule_HostObjectHandles(t *testing.T) {
	f := newFixture(t)
	alice := newTestUser("Alice", 23)
	bob := newTestUser("Bob", 30)
	ha, _ := f.mod.Insert(alice)
	hb, _ := f.mod.Insert(bob)

	_, err := f.call(t, "[set]user.friend", uint64(ha), uint64(hb))
	require.NoError(t, err)
	assert.Same(t, bob, alice.friend)

	out, err := f.call(t, "[get]user.friend", uint64(ha))
	require.NoError(t, err)
	owned := api.DecodeU32(out[0])
	require.NotZero(t, owned)

	out, err = f.call(t, "[method]user.get-age", uint64(owned))
	require.NoError(t, err)
	assert.Equal(t, int32(30), api.DecodeI32(out[0]))

	_, err = f.call(t, "[set]user.friend", uint64(ha), 0)
	require.NoError(t, err)
	assert.Nil(t, alice.friend)

	out, err = f.call(t, "[get]user.friend", uint64(ha))
	require.NoError(t, err)
	assert.Equal(t, uint64(0), out[0])
}

func TestModule_Traps(t *testing.T) {
	f := newFixture(t)
	u := newTestUser("Alice", 23)
	h, _ := f.mod.Insert(u)

	_, err := f.call(t, "[method]user.get-age", 99)
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(errors.KindMissingObject))

	_, err = f.call(t, "[method]user.level", uint64(h), api.EncodeI32(300))
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(errors.KindOverflow))

	_, err = f.call(t, "[method]user.level", uint64(h), api.EncodeI32(-5))
	require.NoError(t, err)
	assert.Equal(t, int8(-5), u.level)

	_, err = f.call(t, "[resource-drop]user", uint64(h))
	require.NoError(t, err)
	_, err = f.call(t, "[method]user.get-age", uint64(h))
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(errors.KindMissingObject))

	h, _ = f.mod.Insert(u)
	u.Release()
	_, err = f.call(t, "[method]user.get-age", uint64(h))
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(errors.KindMissingObject))
	_, err = f.mod.Insert(u)
	assert.True(t, errors.IsKind(err, errors.KindMissingObject))
}

func TestModule_Lifecycle(t *testing.T) {
	ctx := context.Background()
	r := wazero.NewRuntime(ctx)
	defer r.Close(ctx)

	guard := liveness.NewGuard()
	mod := NewModule("host", guard)
	require.NoError(t, mod.Define("User", newTestUser("proto", 0)))

	err := mod.Define("user", newTestUser("other", 0))
	assert.True(t, errors.IsKind(err, errors.KindRegistration))

	_, err = mod.Instantiate(ctx, r)
	require.NoError(t, err)
	assert.True(t, guard.IsAlive(mod.ID()))

	_, err = mod.Instantiate(ctx, r)
	assert.True(t, errors.IsKind(err, errors.KindInvalidInput))
	assert.True(t, errors.IsKind(mod.Define("Other", newTestUser("x", 0)), errors.KindInvalidInput))

	h, err := mod.Insert(newTestUser("Alice", 23))
	require.NoError(t, err)

	require.NoError(t, mod.Close(ctx))
	require.NoError(t, mod.Close(ctx))
	assert.False(t, guard.IsAlive(mod.ID()))

	assert.True(t, errors.IsKind(mod.Remove(h), errors.KindMissingObject))
	_, err = mod.Insert(newTestUser("Bob", 1))
	assert.True(t, errors.IsKind(err, errors.KindClosed))
}

func TestModule_Describe(t *testing.T) {
	f := newFixture(t)

	got, err := f.mod.Describe(newTestUser("Alice", 23))
	require.NoError(t, err)
	assert.Equal(t, `resource user {
  age: func() -> s32;
  set-age: func(value: s32);
  friend: func() -> user;
  set-friend: func(value: borrow<user>);
  get-age: func() -> s32;
  is-adult: func() -> bool;
  level: func(arg0: s8);
  name: func() -> string;
  rename: func(arg0: string) -> result<_, string>;
  scale: func(arg0: f64) -> f64;
}
`, got)
}

func TestKebab(t *testing.T) {
	tests := map[string]string{
		"getAge":     "get-age",
		"name":       "name",
		"User":       "user",
		"SwapChain":  "swap-chain",
		"HTTPServer": "http-server",
		"frame_rate": "frame-rate",
	}
	for in, want := range tests {
		assert.Equal(t, want, kebab(in), in)
	}
}
