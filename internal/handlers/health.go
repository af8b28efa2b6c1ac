package handlers

import (
	"net/http"
	"runtime"
	"time"

	"media-catalog/internal/startup"
)

const (
	statusHealthy  = "healthy"
	statusStarting = "starting"
	statusDegraded = "degraded"
)

// HealthResponse contains the health check response
type HealthResponse struct {
	Status            string `json:"status"`
	Ready             bool   `json:"ready"`
	Version           string `json:"version"`
	Uptime            string `json:"uptime"`
	Indexing          bool   `json:"indexing"`
	LastIndexed       string `json:"lastIndexed,omitempty"`
	InitialIndexError string `json:"initialIndexError,omitempty"`
	FilesImported     int64  `json:"filesImported"`
	PlaylistDriver    string `json:"playlistDriver"`

	GoVersion    string `json:"goVersion"`
	NumGoroutine int    `json:"numGoroutine"`
}

// HealthCheck returns the health status of the service. It answers 503
// until the first index run has finished.
func (h *Handlers) HealthCheck(w http.ResponseWriter, _ *http.Request) {
	status := h.indexer.GetHealthStatus()

	response := HealthResponse{
		Status:         statusStarting,
		Ready:          status.Ready,
		Version:        startup.Version,
		Uptime:         status.Uptime,
		Indexing:       status.Indexing,
		FilesImported:  status.FilesImported,
		PlaylistDriver: status.PlaylistDriver,
		GoVersion:      runtime.Version(),
		NumGoroutine:   runtime.NumGoroutine(),
	}
	if status.Ready {
		response.Status = statusHealthy
	}
	if !status.LastIndexed.IsZero() {
		response.LastIndexed = status.LastIndexed.Format(time.RFC3339)
	}
	if status.InitialIndexError != "" {
		response.InitialIndexError = status.InitialIndexError
		response.Status = statusDegraded
	}

	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSONStatus(w, code, response)
}

// LivenessCheck always answers 200 while the process serves requests.
func (h *Handlers) LivenessCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method != http.MethodHead {
		writeJSON(w, map[string]string{"status": "alive"})
	}
}

// ReadinessCheck returns 200 only when the service is ready to accept traffic
func (h *Handlers) ReadinessCheck(w http.ResponseWriter, _ *http.Request) {
	if h.indexer.IsReady() {
		writeJSONStatus(w, http.StatusOK, map[string]string{"status": "ready"})
		return
	}
	writeJSONStatus(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
}
