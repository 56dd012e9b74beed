package server

import (
	"context"
	"net/http"
	"time"

	"songshelf/internal/storage"
)

// HealthStatus represents operational status for the /health endpoint.
type HealthStatus struct {
	Status        string         `json:"status"`
	Timestamp     time.Time      `json:"timestamp"`
	Storage       string         `json:"storage"`
	Backend       string         `json:"backend"`
	Authenticated bool           `json:"authenticated"`
	Songs         int            `json:"songCount"`
	Uptime        string         `json:"uptime"`
	Details       map[string]any `json:"details,omitempty"`
}

// handleHealthCheck returns basic liveness + storage checks.
func (ms *MusicServer) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	health := &HealthStatus{
		Status:        "healthy",
		Timestamp:     time.Now(),
		Storage:       "ok",
		Backend:       ms.config.Storage.Backend,
		Authenticated: ms.store.AuthState().IsAuthenticated,
		Songs:         len(ms.store.Catalog().Snapshot().Songs),
		Uptime:        time.Since(ms.startedAt).Round(time.Second).String(),
		Details:       make(map[string]any),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	hits, misses := ms.store.ViewCacheStats()
	health.Details["view_cache_hits"] = hits
	health.Details["view_cache_misses"] = misses
	health.Details["metadata_cache_entries"] = ms.extractor.CachedResults()
	health.Details["rate_limited_clients"] = ms.limiter.tracked()
	health.Details["event_streams"] = ms.store.Catalog().Listeners()

	if err := storage.Ping(ctx, ms.store.Storage().KV()); err != nil {
		health.Status = "unhealthy"
		health.Storage = "error"
		health.Details["storage_error"] = err.Error()
	}

	statusCode := http.StatusOK
	if health.Status == "unhealthy" {
		statusCode = http.StatusServiceUnavailable
	}
	ms.respondJSON(w, statusCode, health)
}
