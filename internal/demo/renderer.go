package demo

import (
	stderrors "errors"
	"sync"

	"github.com/wippyai/hostbridge/errors"
	"github.com/wippyai/hostbridge/hybrid"
	"github.com/wippyai/hostbridge/member"
	"github.com/wippyai/hostbridge/runtime"
)

// Point is one recorded draw call.
type Point struct {
	X, Y float64
}

// Renderer records draw calls and schedules script frame callbacks.
type Renderer struct {
	*hybrid.Object
	frames *runtime.FrameScheduler
	points []Point
	mu     sync.Mutex
}

// NewRenderer creates a renderer that schedules frames on frames.
func NewRenderer(frames *runtime.FrameScheduler) *Renderer {
	r := &Renderer{frames: frames}
	r.Object = hybrid.New("Renderer", r)
	return r
}

func (r *Renderer) DeclareMembers(reg member.Registrar) error {
	return stderrors.Join(
		reg.Method("draw", r.Draw),
		reg.Method("clear", r.Clear),
		reg.Method("requestFrame", r.RequestFrame),
		reg.Getter("draws", r.Draws),
		reg.Getter("points", r.Points),
	)
}

// Draw records a point and returns the number of recorded points.
func (r *Renderer) Draw(x, y float64) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = append(r.points, Point{X: x, Y: y})
	return int32(len(r.points))
}

// Clear drops every recorded point.
func (r *Renderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.points = nil
}

// Draws returns the number of recorded points.
func (r *Renderer) Draws() int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int32(len(r.points))
}

// Points returns the recorded points as [x, y] pairs.
func (r *Renderer) Points() [][]float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([][]float64, len(r.points))
	for i, p := range r.points {
		out[i] = []float64{p.X, p.Y}
	}
	return out
}

// RequestFrame queues cb for the next frame and returns the frame number.
func (r *Renderer) RequestFrame(cb *runtime.Callback) (float64, error) {
	if cb == nil {
		return 0, errors.InvalidInput(errors.PhaseInvoke, "requestFrame needs a function")
	}
	if r.frames == nil {
		return 0, errors.NotInitialized(errors.PhaseInvoke, "frame scheduler")
	}
	return float64(r.frames.Request(cb)), nil
}
