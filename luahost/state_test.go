package luahost

import (
	stderrors "errors"
	"testing"

	"github.com/Shopify/go-lua"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/hybrid"
	"github.com/wippyai/hostbridge/liveness"
	"github.com/wippyai/hostbridge/member"
)

type testUser struct {
	*hybrid.Object
	friend *testUser
	name   string
	tags   []string
	age    int
}

func newTestUser(name string) *testUser {
	u := &testUser{name: name, age: 23}
	u.Object = hybrid.New("User", u)
	return u
}

func (u *testUser) DeclareMembers(r member.Registrar) error {
	return stderrors.Join(
		r.Method("getAge", func() int { return u.age }),
		r.Method("greet", func(prefix string) string { return prefix + ", " + u.name }),
		r.Method("shrink", func(v int8) int8 { return v }),
		r.Method("tag", func(tags ...string) int {
			u.tags = append(u.tags, tags...)
			return len(u.tags)
		}),
		r.Getter("name", func() string { return u.name }),
		r.Setter("name", func(v string) { u.name = v }),
		r.Getter("friend", func() *testUser { return u.friend }),
		r.Setter("friend", func(f *testUser) { u.friend = f }),
	)
}

func newTestState(t *testing.T, guard *liveness.Guard) *State {
	t.Helper()
	s, err := NewState(guard, WithLabel("test"))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

func doString(t *testing.T, s *State, src string) []any {
	t.Helper()
	out, err := s.DoString(src)
	require.NoError(t, err)
	return out
}

func TestState_GetterSetterRoundTrip(t *testing.T) {
	s := newTestState(t, liveness.NewGuard())
	u := newTestUser("Alice")
	require.NoError(t, s.Expose("user", u))

	out := doString(t, s, `return user.name`)
	assert.Equal(t, []any{"Alice"}, out)

	out = doString(t, s, `user.name = "Bob"; return user.name`)
	assert.Equal(t, []any{"Bob"}, out)
	assert.Equal(t, "Bob", u.name)
}

func TestState_Methods(t *testing.T) {
	s := newTestState(t, liveness.NewGuard())
	u := newTestUser("Alice")
	require.NoError(t, s.Expose("user", u))

	out := doString(t, s, `return user:getAge(), user.getAge()`)
	assert.Equal(t, []any{int64(23), int64(23)}, out)

	out = doString(t, s, `return user:greet("Hello")`)
	assert.Equal(t, []any{"Hello, Alice"}, out)

	out = doString(t, s, `return user:tag("a", "b"), user:tag()`)
	assert.Equal(t, []any{int64(2), int64(2)}, out)
	assert.Equal(t, []string{"a", "b"}, u.tags)

	out = doString(t, s, `return type(user.missing)`)
	assert.Equal(t, []any{"nil"}, out)
}

func TestState_Pairs(t *testing.T) {
	s := newTestState(t, liveness.NewGuard())
	require.NoError(t, s.Expose("user", newTestUser("Alice")))

	out := doString(t, s, `
		local names = {}
		for k, v in pairs(user) do
			names[#names + 1] = k
		end
		table.sort(names)
		return table.concat(names, ",")
	`)
	assert.Equal(t, []any{"friend,getAge,greet,name,shrink,tag"}, out)
}

func TestState_Errors(t *testing.T) {
	s := newTestState(t, liveness.NewGuard())
	require.NoError(t, s.Expose("user", newTestUser("Alice")))

	tests := []struct {
		name string
		src  string
		want string
	}{
		{"no setter", `user.getAge = 1`, "cannot assign User.getAge: no setter"},
		{"unknown name", `user.nope = 1`, "cannot assign User.nope: no setter"},
		{"conversion", `user.name = 5`, "expected string, got number"},
		{"arity", `return user:greet()`, "arity"},
		{"overflow", `return user:shrink(300)`, "overflow"},
		{"syntax", `return +`, "invalid_input"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.DoString(tt.src)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	// the state stays usable after a failed chunk
	assert.Equal(t, []any{"Alice"}, doString(t, s, `return user.name`))
}

func TestState_HostObjectArguments(t *testing.T) {
	s := newTestState(t, liveness.NewGuard())
	a, b := newTestUser("Alice"), newTestUser("Bob")
	require.NoError(t, s.Expose("a", a))
	require.NoError(t, s.Expose("b", b))

	out := doString(t, s, `a.friend = b; return a.friend == b, a.friend.name`)
	assert.Equal(t, []any{true, "Bob"}, out)
	assert.Same(t, b, a.friend)

	out = doString(t, s, `return a`)
	require.Len(t, out, 1)
	assert.Same(t, a, out[0])

	_, err := s.DoString(`a.friend = "Bob"`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected *luahost.testUser, got string")
}

func TestState_ToString(t *testing.T) {
	s := newTestState(t, liveness.NewGuard())
	require.NoError(t, s.Expose("user", newTestUser("Alice")))

	out := doString(t, s, `return tostring(user)`)
	assert.Equal(t, []any{"[HybridObject User]"}, out)
}

func TestState_Collections(t *testing.T) {
	s := newTestState(t, liveness.NewGuard())
	require.NoError(t, s.Expose("cfg", map[string]any{
		"frames": 60,
		"list":   []int{1, 2, 3},
		"ratio":  0.5,
	}))

	out := doString(t, s, `return cfg.frames, #cfg.list, cfg.ratio`)
	assert.Equal(t, []any{int64(60), int64(3), 0.5}, out)

	out = doString(t, s, `return {1, 2, 3}, {a = "x", b = true}`)
	assert.Equal(t, []any{
		[]any{int64(1), int64(2), int64(3)},
		map[string]any{"a": "x", "b": true},
	}, out)
}

func TestState_ReleasedObject(t *testing.T) {
	s := newTestState(t, liveness.NewGuard())
	u := newTestUser("Alice")
	require.NoError(t, s.Expose("user", u))

	u.Release()
	_, err := s.DoString(`return user.name`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), string(errors.KindMissingObject))

	assert.True(t, errors.IsKind(s.Expose("again", u), errors.KindMissingObject))
}

func TestState_IndependentStates(t *testing.T) {
	guard := liveness.NewGuard()
	s1 := newTestState(t, guard)
	s2 := newTestState(t, guard)
	u := newTestUser("Alice")
	require.NoError(t, s1.Expose("user", u))
	require.NoError(t, s2.Expose("user", u))

	assert.Equal(t, []any{int64(23)}, doString(t, s1, `return user:getAge()`))
	s1.Close()

	assert.Equal(t, []any{int64(23)}, doString(t, s2, `return user:getAge()`))
}

func TestState_Close(t *testing.T) {
	guard := liveness.NewGuard()
	s, err := NewState(guard)
	require.NoError(t, err)
	assert.True(t, guard.IsAlive(s.ID()))

	s.Close()
	s.Close()
	assert.False(t, guard.IsAlive(s.ID()))

	_, err = s.DoString(`return 1`)
	assert.True(t, errors.IsKind(err, errors.KindClosed))
	assert.True(t, errors.IsKind(s.Expose("x", 1), errors.KindClosed))
}

func TestNormalizeNumber(t *testing.T) {
	values := []float64{3, -2, 0.25}
	got := make([]any, 0, len(values))
	for _, v := range values {
		got = append(got, normalizeNumber(v))
	}
	assert.Equal(t, []any{int64(3), int64(-2), 0.25}, got)
	assert.Equal(t, "nil", typeName(lua.TypeNone))
	assert.Equal(t, "table", typeName(lua.TypeTable))
}
