// Package health serves the liveness and readiness probes of the classlite
// server.
//
//   - /healthz: liveness; 200 while the process can serve HTTP.
//   - /readyz: readiness; 200 only when every [Checker] passes and the
//     server is not draining.
//
// Responses are JSON objects with a "status" field ("ok" or "fail") and,
// for /readyz, a "checks" map with the outcome of each named checker.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 2 * time.Second

// ErrDraining is reported by /readyz once [Handler.Drain] was called.
var ErrDraining = errors.New("server is draining")

// Checker is a named readiness check. Check returns nil when healthy.
type Checker struct {
	Name  string
	Check func(ctx context.Context) error
}

// ConfigLoaded reports ready once loaded returns true.
func ConfigLoaded(loaded func() bool) Checker {
	return Checker{
		Name: "config",
		Check: func(context.Context) error {
			if !loaded() {
				return errors.New("configuration not loaded")
			}
			return nil
		},
	}
}

// Capacity fails when count exceeds limit. A non-positive limit disables the
// check.
func Capacity(name string, count func() int, limit int) Checker {
	return Checker{
		Name: name,
		Check: func(context.Context) error {
			if n := count(); limit > 0 && n > limit {
				return fmt.Errorf("%d open, limit %d", n, limit)
			}
			return nil
		},
	}
}

type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves /healthz and /readyz. The checker list is fixed at
// construction; draining can be switched on at any time.
type Handler struct {
	checkers []Checker
	draining atomic.Bool
}

// New returns a [Handler] that runs checkers, in order, on every /readyz.
func New(checkers ...Checker) *Handler {
	return &Handler{checkers: append([]Checker(nil), checkers...)}
}

// Drain makes /readyz fail so load balancers stop routing new reviews here
// while open websocket connections wind down.
func (h *Handler) Drain() {
	h.draining.Store(true)
}

func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: "ok"})
}

func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.checkers)+1)
	ok := true

	if h.draining.Load() {
		checks["drain"] = "fail: " + ErrDraining.Error()
		ok = false
	}
	for _, c := range h.checkers {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		err := c.Check(ctx)
		cancel()
		if err != nil {
			checks[c.Name] = "fail: " + err.Error()
			ok = false
			continue
		}
		checks[c.Name] = "ok"
	}

	res, status := result{Status: "ok", Checks: checks}, http.StatusOK
	if !ok {
		res.Status, status = "fail", http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register adds the probe routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
