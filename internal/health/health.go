// Package health serves liveness and readiness probes.
package health

import (
	"encoding/json"
	"net/http"
	"time"
)

// ReadyFunc reports nil when the service can answer domain requests.
type ReadyFunc func() error

// Checker serves /healthz and /readyz.
type Checker struct {
	ready ReadyFunc
	now   func() time.Time
}

// New creates a Checker. A nil ready func means always ready.
func New(ready ReadyFunc) *Checker {
	return &Checker{ready: ready, now: time.Now}
}

type status struct {
	Status string `json:"status"`
	Time   string `json:"time"`
	Reason string `json:"reason,omitempty"`
}

// Healthz returns 200 unconditionally.
func (c *Checker) Healthz(w http.ResponseWriter, r *http.Request) {
	c.write(w, http.StatusOK, status{Status: "ok"})
}

// Readyz returns 200 once ready reports nil, 503 otherwise.
func (c *Checker) Readyz(w http.ResponseWriter, r *http.Request) {
	if c.ready != nil {
		if err := c.ready(); err != nil {
			c.write(w, http.StatusServiceUnavailable, status{Status: "not ready", Reason: err.Error()})
			return
		}
	}
	c.write(w, http.StatusOK, status{Status: "ready"})
}

func (c *Checker) write(w http.ResponseWriter, code int, s status) {
	s.Time = c.now().UTC().Format(time.RFC3339)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(s)
}
