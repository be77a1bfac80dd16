// Package health serves liveness and readiness probes.
//
// Checks run on demand when a probe is requested, concurrently and each
// under its own timeout. Readiness additionally requires the service to be
// marked ready with SetReady.
package health

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-faster/jx"
	"golang.org/x/sync/errgroup"
)

// CheckFunc returns nil when the checked component is healthy.
type CheckFunc func(ctx context.Context) error

type check struct {
	name string
	fn   CheckFunc
}

// Health holds the registered checks and the manual readiness flag.
type Health struct {
	timeout time.Duration
	ready   atomic.Bool

	mu        sync.RWMutex
	liveness  []check
	readiness []check
}

// New creates a Health whose checks are bounded by timeout each. The service
// starts not ready.
func New(timeout time.Duration) *Health {
	if timeout <= 0 {
		timeout = time.Second
	}
	return &Health{timeout: timeout}
}

// AddLivenessCheck registers a check for /livez.
func (h *Health) AddLivenessCheck(name string, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.liveness = append(h.liveness, check{name: name, fn: fn})
}

// AddReadinessCheck registers a check for /readyz.
func (h *Health) AddReadinessCheck(name string, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readiness = append(h.readiness, check{name: name, fn: fn})
}

// SetReady flips the manual readiness flag. It is set after startup and
// cleared when draining.
func (h *Health) SetReady(ready bool) {
	h.ready.Store(ready)
}

// LiveEndpoint answers 200 when every liveness check passes, 503 otherwise.
func (h *Health) LiveEndpoint(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := slices.Clone(h.liveness)
	h.mu.RUnlock()

	writeStatus(w, h.run(r.Context(), checks))
}

// ReadyEndpoint answers 200 when the service is marked ready and every
// readiness check passes, 503 otherwise.
func (h *Health) ReadyEndpoint(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	checks := slices.Clone(h.readiness)
	h.mu.RUnlock()

	failures := h.run(r.Context(), checks)
	if !h.ready.Load() {
		failures["_readiness"] = "service is not ready"
	}
	writeStatus(w, failures)
}

// run executes checks concurrently and returns the failures by name.
func (h *Health) run(ctx context.Context, checks []check) map[string]string {
	errs := make([]error, len(checks))

	var g errgroup.Group
	for i, c := range checks {
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(ctx, h.timeout)
			defer cancel()
			errs[i] = c.fn(ctx)
			return nil
		})
	}
	_ = g.Wait()

	failures := make(map[string]string)
	for i, err := range errs {
		if err != nil {
			failures[checks[i].name] = err.Error()
		}
	}
	return failures
}

// writeStatus renders {"status":"ok"} or
// {"status":"unhealthy","checks":{name: message}} with names sorted.
func writeStatus(w http.ResponseWriter, failures map[string]string) {
	status, code := "ok", http.StatusOK
	if len(failures) > 0 {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}

	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("status")
	e.Str(status)
	if len(failures) > 0 {
		names := make([]string, 0, len(failures))
		for name := range failures {
			names = append(names, name)
		}
		slices.Sort(names)

		e.FieldStart("checks")
		e.ObjStart()
		for _, name := range names {
			e.FieldStart(name)
			e.Str(failures[name])
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = w.Write(e.Bytes())
}
