// internal/monitoring/health.go
package monitoring

import (
	"encoding/json"
	"net/http"
	"runtime"
	"sync"
	"time"
)

// Health reports process liveness plus a few runtime numbers. It serves the
// /health endpoint of the artifact server.
type Health struct {
	started time.Time
	version string

	mu       sync.RWMutex
	lastRun  time.Time
	runError string
}

// NewHealth creates a health reporter stamped with the build version.
func NewHealth(version string) *Health {
	return &Health{started: time.Now(), version: version}
}

// RecordRun notes the outcome of the most recent harvest run.
func (h *Health) RecordRun(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.lastRun = time.Now()
	if err != nil {
		h.runError = err.Error()
	} else {
		h.runError = ""
	}
}

type healthResponse struct {
	Status     string    `json:"status"`
	Version    string    `json:"version"`
	UptimeSecs float64   `json:"uptime_seconds"`
	Goroutines int       `json:"goroutines"`
	LastRun    time.Time `json:"last_run,omitempty"`
	RunError   string    `json:"run_error,omitempty"`
}

// ServeHTTP implements http.Handler.
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	lastRun, runError := h.lastRun, h.runError
	h.mu.RUnlock()

	resp := healthResponse{
		Status:     "ok",
		Version:    h.version,
		UptimeSecs: time.Since(h.started).Seconds(),
		Goroutines: runtime.NumGoroutine(),
		LastRun:    lastRun,
		RunError:   runError,
	}
	status := http.StatusOK
	if runError != "" {
		resp.Status = "degraded"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
