package handlers

import (
	"net/http"
	"runtime"
	"time"

	"family-media/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// breakerOpen matches storage.Guard's numeric state for an open breaker.
const breakerOpen = 2

// HealthResponse contains the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Ready   bool   `json:"ready"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`

	// Storage info
	StorageBackend string `json:"storageBackend"`
	BreakerState   string `json:"breakerState,omitempty"`
	Thumbnails     bool   `json:"thumbnails"`

	// System info
	GoVersion    string `json:"goVersion"`
	NumCPU       int    `json:"numCpu"`
	NumGoroutine int    `json:"numGoroutine"`
}

func breakerName(state int) string {
	switch state {
	case 0:
		return "closed"
	case 1:
		return "half-open"
	case breakerOpen:
		return "open"
	}
	return "unknown"
}

func (h *Handlers) storageHealthy() bool {
	return h.breaker == nil || h.breaker.BreakerState() != breakerOpen
}

// HealthCheck returns the health status of the service
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	ready := h.ready.Load()

	response := HealthResponse{
		Ready:        ready,
		Version:      startup.Version,
		Uptime:       time.Since(h.startTime).Round(time.Second).String(),
		Thumbnails:   h.generator != nil,
		GoVersion:    runtime.Version(),
		NumCPU:       runtime.NumCPU(),
		NumGoroutine: runtime.NumGoroutine(),
	}
	if h.store != nil {
		response.StorageBackend = h.store.Type()
	}
	if h.breaker != nil {
		response.BreakerState = breakerName(h.breaker.BreakerState())
	}

	switch {
	case !ready:
		response.Status = statusStarting
	case !h.storageHealthy():
		response.Status = statusDegraded
	default:
		response.Status = statusHealthy
	}

	// Return 503 only if not ready at all
	status := http.StatusOK
	if !ready {
		status = http.StatusServiceUnavailable
	}
	writeJSONResponse(w, response, status)
}

// LivenessCheck is a simple liveness probe (always returns 200 if server is running)
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)

	// For HEAD requests, only send headers (no body)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{
			"status": "alive",
		})
	}
}

// ReadinessCheck returns 200 only when the service is ready to accept
// traffic and the storage breaker is not open.
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.ready.Load() && h.storageHealthy() {
		writeJSONStatus(w, "ready", http.StatusOK)
		return
	}
	writeJSONStatus(w, "not_ready", http.StatusServiceUnavailable)
}
