package monitoring

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// CheckFunc probes one dependency. A nil error means healthy.
type CheckFunc func() error

// Health tracks liveness and readiness. Liveness is unconditional; readiness
// runs the registered dependency checks.
type Health struct {
	startedAt time.Time

	mu     sync.RWMutex
	checks map[string]CheckFunc
}

// NewHealth creates an empty health tracker.
func NewHealth() *Health {
	return &Health{
		startedAt: time.Now(),
		checks:    make(map[string]CheckFunc),
	}
}

// AddCheck registers a named readiness check. Registering the same name
// again replaces the previous check.
func (h *Health) AddCheck(name string, check CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

type healthResponse struct {
	Status string            `json:"status"`
	Uptime string            `json:"uptime"`
	Checks map[string]string `json:"checks,omitempty"`
}

// LivenessHandler reports that the process is running.
func (h *Health) LivenessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{
			Status: "ok",
			Uptime: time.Since(h.startedAt).Round(time.Second).String(),
		})
	})
}

// ReadinessHandler runs every registered check and reports 503 when any
// check fails.
func (h *Health) ReadinessHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.mu.RLock()
		checks := make(map[string]CheckFunc, len(h.checks))
		for name, check := range h.checks {
			checks[name] = check
		}
		h.mu.RUnlock()

		resp := healthResponse{
			Status: "ok",
			Uptime: time.Since(h.startedAt).Round(time.Second).String(),
			Checks: make(map[string]string, len(checks)),
		}
		status := http.StatusOK
		for name, check := range checks {
			if err := check(); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "unavailable"
				status = http.StatusServiceUnavailable
			} else {
				resp.Checks[name] = "ok"
			}
		}

		writeJSON(w, status, resp)
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
