package runtime

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FrameScheduler collects frame callbacks and fires them once per tick with
// the frame timestamp in milliseconds. Callbacks requested while a frame is
// firing run on the next tick.
//
// The scheduler does not check liveness itself; each Callback does when it
// fires.
type FrameScheduler struct {
	logger  *zap.Logger
	pending []*Callback
	frame   uint64
	mu      sync.Mutex
}

// NewFrameScheduler creates an idle scheduler.
func NewFrameScheduler(l *zap.Logger) *FrameScheduler {
	if l == nil {
		l = zap.NewNop()
	}
	return &FrameScheduler{logger: l}
}

// Request queues cb for the next frame and returns that frame's number.
func (s *FrameScheduler) Request(cb *Callback) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = append(s.pending, cb)
	return s.frame + 1
}

// Pending returns the number of callbacks waiting for the next frame.
func (s *FrameScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Frame returns the number of the last fired frame.
func (s *FrameScheduler) Frame() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frame
}

// Tick fires every pending callback and returns how many were fired.
func (s *FrameScheduler) Tick(now time.Time) int {
	s.mu.Lock()
	batch := s.pending
	s.pending = nil
	s.frame++
	frame := s.frame
	s.mu.Unlock()

	ts := float64(now.UnixNano()) / float64(time.Millisecond)
	for _, cb := range batch {
		cb.Invoke(ts)
	}

	if len(batch) > 0 {
		s.logger.Debug("frame fired",
			zap.Uint64("frame", frame),
			zap.Int("callbacks", len(batch)))
	}
	return len(batch)
}

// Run ticks every interval until ctx is done.
func (s *FrameScheduler) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}
