package http

import (
	"encoding/json"
	"net/http"
	"runtime"
	"time"
)

// HealthHandler reports process and cache health
type HealthHandler struct {
	startTime  time.Time
	version    string
	cacheState func() string // nil when no breaker guards the cache
	backend    string
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string                 `json:"status"` // "healthy", "degraded"
	Timestamp time.Time              `json:"timestamp"`
	Uptime    string                 `json:"uptime"`
	Version   string                 `json:"version"`
	System    SystemInfo             `json:"system"`
	Checks    map[string]CheckResult `json:"checks"`
}

// SystemInfo contains system runtime information
type SystemInfo struct {
	GoVersion     string `json:"go_version"`
	NumGoroutines int    `json:"num_goroutines"`
	MemAlloc      uint64 `json:"mem_alloc_bytes"`
	MemSys        uint64 `json:"mem_sys_bytes"`
	NumGC         uint32 `json:"num_gc"`
}

// CheckResult represents individual health check results
type CheckResult struct {
	Status  string `json:"status"` // "pass", "warn", "fail"
	Message string `json:"message"`
}

// NewHealthHandler creates a health handler
func NewHealthHandler(version, backend string, cacheState func() string) *HealthHandler {
	return &HealthHandler{
		startTime:  time.Now(),
		version:    version,
		cacheState: cacheState,
		backend:    backend,
	}
}

// ServeHTTP implements the health check endpoint. An open cache circuit
// degrades the service but valuations still answer, so the status stays 200.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	response := h.gatherHealthInfo()

	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}

func (h *HealthHandler) gatherHealthInfo() HealthResponse {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Truncate(time.Second).String(),
		Version:   h.version,
		System:    getSystemInfo(),
		Checks:    map[string]CheckResult{},
	}

	response.Checks["cache"] = h.cacheCheck()
	for _, c := range response.Checks {
		if c.Status != "pass" {
			response.Status = "degraded"
		}
	}
	return response
}

func (h *HealthHandler) cacheCheck() CheckResult {
	if h.backend == "none" {
		return CheckResult{Status: "pass", Message: "Result cache disabled"}
	}
	if h.cacheState == nil {
		return CheckResult{Status: "pass", Message: h.backend + " cache"}
	}

	switch state := h.cacheState(); state {
	case "closed":
		return CheckResult{Status: "pass", Message: h.backend + " cache, circuit closed"}
	case "half-open":
		return CheckResult{Status: "warn", Message: h.backend + " cache recovering, circuit half-open"}
	default:
		return CheckResult{Status: "warn", Message: h.backend + " cache bypassed, circuit " + state}
	}
}

func getSystemInfo() SystemInfo {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	return SystemInfo{
		GoVersion:     runtime.Version(),
		NumGoroutines: runtime.NumGoroutine(),
		MemAlloc:      memStats.Alloc,
		MemSys:        memStats.Sys,
		NumGC:         memStats.NumGC,
	}
}
