package demo

import (
	stderrors "errors"
	"fmt"
	"sync"

	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/hybrid"
	"github.com/wippyai/hostbridge/member"
	"github.com/wippyai/hostbridge/runtime"
)

// User is a plain data object with a change subscription.
type User struct {
	*hybrid.Object
	listeners []*runtime.Callback
	name      string
	age       int32
	mu        sync.Mutex
}

// NewUser creates a user.
func NewUser(name string, age int32) *User {
	u := &User{name: name, age: age}
	u.Object = hybrid.New("User", u)
	return u
}

func (u *User) DeclareMembers(r member.Registrar) error {
	return stderrors.Join(
		r.Method("getAge", u.Age),
		r.Method("greet", func(prefix string) string {
			return prefix + ", " + u.Name()
		}),
		r.Method("birthday", func() int32 {
			u.mu.Lock()
			defer u.mu.Unlock()
			u.age++
			return u.age
		}),
		r.Method("onRename", func(cb *runtime.Callback) error {
			if cb == nil {
				return errors.InvalidInput(errors.PhaseInvoke, "onRename needs a function")
			}
			u.mu.Lock()
			defer u.mu.Unlock()
			u.listeners = append(u.listeners, cb)
			return nil
		}),
		r.Getter("name", u.Name),
		r.Setter("name", u.SetName),
		r.Getter("age", u.Age),
	)
}

// Name returns the user's name.
func (u *User) Name() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.name
}

// Age returns the user's age.
func (u *User) Age() int32 {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.age
}

// SetName renames the user and notifies rename listeners with the new and
// the old name.
func (u *User) SetName(name string) error {
	if name == "" {
		return errors.InvalidInput(errors.PhaseInvoke, "name must not be empty")
	}
	u.mu.Lock()
	old := u.name
	u.name = name
	listeners := append([]*runtime.Callback(nil), u.listeners...)
	u.mu.Unlock()

	for _, cb := range listeners {
		cb.Invoke(name, old)
	}
	return nil
}

func (u *User) DebugString() string {
	return fmt.Sprintf("[User %s, %d]", u.Name(), u.Age())
}
