// Package health exposes liveness and readiness endpoints for the metrics
// listener.
//
//   - /healthz reports liveness. It always returns 200 with the process
//     uptime; a process that can serve HTTP is alive.
//   - /readyz reports readiness. It returns 200 only while every registered
//     probe passes, 503 otherwise.
//
// Responses are JSON with a top-level "status" of "ok" or "fail" and a
// per-probe "checks" map on /readyz.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// probeTimeout bounds a single readiness probe.
const probeTimeout = 5 * time.Second

// Probe reports whether a single dependency is usable. It must return nil
// when healthy and respect context cancellation.
type Probe func(ctx context.Context) error

// Handler serves the health endpoints. Probes are fixed at construction
// time, so Handler is safe for concurrent use.
type Handler struct {
	probes  map[string]Probe
	order   []string
	started time.Time
}

// New creates a [Handler] with no probes. Register dependencies with
// [Handler.Probe] before mounting.
func New() *Handler {
	return &Handler{
		probes:  make(map[string]Probe),
		started: time.Now(),
	}
}

// Probe registers a named readiness probe. The name appears as a key in the
// /readyz response. Registering the same name twice replaces the earlier
// probe.
func (h *Handler) Probe(name string, p Probe) {
	if _, seen := h.probes[name]; !seen {
		h.order = append(h.order, name)
	}
	h.probes[name] = p
}

// response is the JSON body for both endpoints.
type response struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime,omitempty"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Healthz is the liveness endpoint. It always answers 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, response{
		Status: "ok",
		Uptime: time.Since(h.started).Round(time.Second).String(),
	})
}

// Readyz is the readiness endpoint. Probes run sequentially in registration
// order, each with a [probeTimeout] deadline derived from the request
// context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.probes))
	ready := true

	for _, name := range h.order {
		ctx, cancel := context.WithTimeout(r.Context(), probeTimeout)
		err := h.probes[name](ctx)
		cancel()

		if err != nil {
			checks[name] = "fail: " + err.Error()
			ready = false
		} else {
			checks[name] = "ok"
		}
	}

	res := response{Status: "ok", Checks: checks}
	status := http.StatusOK
	if !ready {
		res.Status = "fail"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, res)
}

// Register mounts the /healthz and /readyz routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
