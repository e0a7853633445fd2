// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/olegiv/ocms-builder/internal/cache"
)

const healthCheckTimeout = 2 * time.Second

// HealthStatus represents the overall health status.
type HealthStatus struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    string           `json:"uptime"`
	Checks    map[string]Check `json:"checks"`
	System    *SystemInfo      `json:"system,omitempty"`
}

// Check represents a single health check result.
type Check struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// SystemInfo contains runtime information.
type SystemInfo struct {
	GoVersion    string       `json:"go_version"`
	NumGoroutine int          `json:"num_goroutines"`
	NumCPU       int          `json:"num_cpus"`
	Cache        *cache.Stats `json:"cache,omitempty"`
	ImportQueue  *int         `json:"import_queue,omitempty"`
}

// Health handles GET /health. The database must answer a ping; the cache
// only degrades the status since public reads fall back to the database.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	dbCheck := h.checkDatabase(ctx)
	checks := map[string]Check{"database": dbCheck}
	if h.cache != nil {
		checks["cache"] = h.checkCache(ctx)
	}

	overall := "healthy"
	code := http.StatusOK
	for name, c := range checks {
		if c.Status == "healthy" {
			continue
		}
		if name == "database" {
			overall = "unhealthy"
			code = http.StatusServiceUnavailable
			break
		}
		overall = "degraded"
	}

	status := HealthStatus{
		Status:    overall,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
		Checks:    checks,
	}
	if r.URL.Query().Get("verbose") == "true" {
		status.System = &SystemInfo{
			GoVersion:    runtime.Version(),
			NumGoroutine: runtime.NumGoroutine(),
			NumCPU:       runtime.NumCPU(),
		}
		if sp, ok := h.cache.(cache.StatsProvider); ok {
			st := sp.Stats()
			status.System.Cache = &st
		}
		// Tasks waiting for a free import worker.
		if h.svc.ImportQueue != nil {
			pending := h.svc.ImportQueue.Pending()
			status.System.ImportQueue = &pending
		}
	}

	WriteJSON(w, code, status)
}

// Liveness handles GET /health/live
func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "alive"})
}

func (h *Handler) checkDatabase(ctx context.Context) Check {
	start := time.Now()
	err := h.db.PingContext(ctx)
	latency := time.Since(start)

	if err != nil {
		h.logger.Warn("health check: database ping failed", "error", err)
		return Check{Status: "unhealthy", Message: "Database unreachable", Latency: latency.String()}
	}
	return Check{Status: "healthy", Message: "Connected", Latency: latency.String()}
}

func (h *Handler) checkCache(ctx context.Context) Check {
	start := time.Now()
	_, err := h.cache.Has(ctx, "health:check")
	latency := time.Since(start)

	if err != nil {
		h.logger.Warn("health check: cache lookup failed", "error", err)
		return Check{Status: "degraded", Message: "Cache unreachable", Latency: latency.String()}
	}
	return Check{Status: "healthy", Latency: latency.String()}
}
