package demo

import (
	stderrors "errors"
	"sync"

	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/hybrid"
	"github.com/wippyai/hostbridge/member"
)

// SwapChain rotates through a fixed set of buffers. Dropping it releases the
// host object, so scripts still holding it get missing object errors.
type SwapChain struct {
	*hybrid.Object
	buffers  int32
	current  int32
	presents int64
	mu       sync.Mutex
}

// NewSwapChain creates a swap chain with n buffers.
func NewSwapChain(n int32) *SwapChain {
	if n < 1 {
		n = 1
	}
	s := &SwapChain{buffers: n}
	s.Object = hybrid.New("SwapChain", s)
	return s
}

func (s *SwapChain) DeclareMembers(r member.Registrar) error {
	return stderrors.Join(
		r.Method("present", s.Present),
		r.Method("resize", s.Resize),
		r.Getter("buffers", func() int32 {
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.buffers
		}),
		r.Getter("current", func() int32 {
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.current
		}),
		r.Getter("presents", func() int64 {
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.presents
		}),
	)
}

// Present advances to the next buffer and returns its index.
func (s *SwapChain) Present() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = (s.current + 1) % s.buffers
	s.presents++
	return s.current
}

// Resize changes the buffer count. The current buffer restarts at 0.
func (s *SwapChain) Resize(n int32) error {
	if n < 1 {
		return errors.InvalidInput(errors.PhaseInvoke, "swap chain needs at least one buffer")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buffers = n
	s.current = 0
	return nil
}

// Drop releases the host object.
func (s *SwapChain) Drop() {
	s.Release()
}
