package liveness

import (
	"sync"

	"go.uber.org/zap"
)

// Reporter receives non-fatal errors that have no synchronous caller to
// observe them, such as a callback whose runtime has been torn down.
type Reporter interface {
	Report(err error)
}

// ReporterFunc adapts a function to Reporter.
type ReporterFunc func(err error)

func (f ReporterFunc) Report(err error) { f(err) }

// LogReporter reports errors as zap warnings.
type LogReporter struct {
	Logger *zap.Logger
}

func (r LogReporter) Report(err error) {
	l := r.Logger
	if l == nil {
		l = zap.NewNop()
	}
	l.Warn("non-fatal bridge error", zap.Error(err))
}

// Recorder collects reported errors.
type Recorder struct {
	errs []error
	mu   sync.Mutex
}

func (r *Recorder) Report(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

// Errors returns a copy of the reported errors in report order.
func (r *Recorder) Errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]error, len(r.errs))
	copy(out, r.errs)
	return out
}
