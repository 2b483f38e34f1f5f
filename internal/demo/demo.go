// Package demo holds the sample host objects the bridge CLI exposes.
package demo

import (
	"github.com/wippyai/hostbridge/hybrid"
	"github.com/wippyai/hostbridge/runtime"
)

// Global is a host object with the global name scripts see it under.
type Global struct {
	Value hybrid.Exposer
	Name  string
	Class string
}

// Set is one instance of every demo object.
type Set struct {
	User      *User
	Renderer  *Renderer
	SwapChain *SwapChain
}

// NewSet creates the demo objects. The renderer schedules on frames.
func NewSet(frames *runtime.FrameScheduler) *Set {
	return &Set{
		User:      NewUser("Alice", 23),
		Renderer:  NewRenderer(frames),
		SwapChain: NewSwapChain(3),
	}
}

// Globals returns the objects in exposure order.
func (s *Set) Globals() []Global {
	return []Global{
		{Name: "user", Class: "user", Value: s.User},
		{Name: "renderer", Class: "renderer", Value: s.Renderer},
		{Name: "swapChain", Class: "swap-chain", Value: s.SwapChain},
	}
}
