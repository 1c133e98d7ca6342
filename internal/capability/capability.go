// Package capability resolves optional runtime capabilities once at startup.
// Every capability has a real implementation and exactly one fallback with
// the same caller-visible contract; acquisition failures are logged and never
// surface to callers.
package capability

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rr-brian/rts-ai/internal/logger"
)

// Mode tells which implementation a capability resolved to.
type Mode string

const (
	ModeReal     Mode = "real"
	ModeFallback Mode = "fallback"
)

// Capability names.
const (
	CORS          = "cors"
	IDs           = "ids"
	SQL           = "sql"
	Conversations = "conversations"
	Tokens        = "tokens"
)

// Outcome records how one capability was resolved.
type Outcome struct {
	Mode   Mode
	Reason string
}

// Report collects resolution outcomes. It is written during startup and read
// by the config and health endpoints afterwards.
type Report struct {
	mu       sync.RWMutex
	outcomes map[string]Outcome
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{outcomes: make(map[string]Outcome)}
}

func (r *Report) record(name string, o Outcome) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes[name] = o
}

// Outcome returns the recorded outcome for name.
func (r *Report) Outcome(name string) (Outcome, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	o, ok := r.outcomes[name]
	return o, ok
}

// IsReal reports whether name resolved to its real implementation.
func (r *Report) IsReal(name string) bool {
	o, ok := r.Outcome(name)
	return ok && o.Mode == ModeReal
}

// Modes returns name -> mode for every resolved capability.
func (r *Report) Modes() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.outcomes))
	for name, o := range r.outcomes {
		out[name] = string(o.Mode)
	}
	return out
}

// Names returns the resolved capability names in sorted order.
func (r *Report) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.outcomes))
	for name := range r.outcomes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve runs acquire and returns its result, or fallback() when acquire
// fails or panics. The outcome is recorded in r when r is non-nil.
func Resolve[T any](r *Report, name string, acquire func() (T, error), fallback func() T) T {
	v, err := safeAcquire(acquire)
	if err != nil {
		logger.L.Info("capability fallback", "capability", name, "error", err.Error())
		if r != nil {
			r.record(name, Outcome{Mode: ModeFallback, Reason: err.Error()})
		}
		return fallback()
	}
	logger.L.Debug("capability acquired", "capability", name)
	if r != nil {
		r.record(name, Outcome{Mode: ModeReal})
	}
	return v
}

// ResolveWithin is Resolve with acquisition bounded by timeout. An
// acquisition still running at the deadline is abandoned and its result
// discarded.
func ResolveWithin[T any](r *Report, name string, timeout time.Duration, acquire func() (T, error), fallback func() T) T {
	return Resolve(r, name, func() (T, error) {
		return acquireWithin(timeout, acquire)
	}, fallback)
}

func acquireWithin[T any](timeout time.Duration, acquire func() (T, error)) (T, error) {
	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := safeAcquire(acquire)
		done <- result{v: v, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		return res.v, res.err
	case <-timer.C:
		var zero T
		return zero, fmt.Errorf("acquisition timed out after %s", timeout)
	}
}

func safeAcquire[T any](acquire func() (T, error)) (v T, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic during acquisition: %v", p)
		}
	}()
	return acquire()
}
