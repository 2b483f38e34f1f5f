package liveness

import (
	"sync"

	"github.com/wippyai/hostbridge/errors"
)

// Guard tracks which background runtime instances are currently alive.
// The main runtime identity is alive for the lifetime of the Guard.
//
// Guard is safe for concurrent use.
type Guard struct {
	main RuntimeID
	// true while alive, false once destroyed
	states map[RuntimeID]bool
	mu     sync.RWMutex
}

// NewGuard creates a Guard with a fresh main runtime identity.
func NewGuard() *Guard {
	return &Guard{
		main:   NewID("main"),
		states: make(map[RuntimeID]bool),
	}
}

// Main returns the main runtime identity.
func (g *Guard) Main() RuntimeID {
	return g.main
}

// Register marks a background runtime as alive.
// It must be called exactly once, when the runtime is created.
func (g *Guard) Register(id RuntimeID) error {
	if id.IsZero() {
		return errors.InvalidInput(errors.PhaseRuntime, "cannot register zero runtime identity")
	}
	if id == g.main {
		return errors.Registration(errors.PhaseRuntime, "main runtime is implicitly registered", nil)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if alive, seen := g.states[id]; seen {
		if alive {
			return errors.Registration(errors.PhaseRuntime, "runtime "+id.String()+" already registered", nil)
		}
		return errors.Registration(errors.PhaseRuntime, "runtime "+id.String()+" was destroyed", nil)
	}
	g.states[id] = true
	return nil
}

// Unregister marks a background runtime as permanently destroyed.
// Calls after the first, and calls for the main identity, are no-ops.
// It reports whether this call performed the transition.
func (g *Guard) Unregister(id RuntimeID) bool {
	if id == g.main {
		return false
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if !g.states[id] {
		return false
	}
	g.states[id] = false
	return true
}

// IsAlive reports whether the runtime identity may still be invoked against.
func (g *Guard) IsAlive(id RuntimeID) bool {
	if id == g.main {
		return true
	}

	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.states[id]
}

// Alive returns the number of live background runtimes.
func (g *Guard) Alive() int {
	g.mu.RLock()
	defer g.mu.RUnlock()

	n := 0
	for _, alive := range g.states {
		if alive {
			n++
		}
	}
	return n
}
