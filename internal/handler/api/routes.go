// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/olegiv/ocms-builder/internal/middleware"
)

// RouterConfig controls the middleware stack around the API.
type RouterConfig struct {
	IsDevelopment  bool
	RequestTimeout time.Duration
	// AccessLog enables chi's request logger.
	AccessLog bool
	// PublicLimiter throttles anonymous reads and import submissions. Nil disables it.
	PublicLimiter *middleware.IPRateLimiter
	// CORSOrigins lists browser origins allowed to call the API.
	CORSOrigins []string
}

// Router builds the HTTP handler for the whole service.
func (h *Handler) Router(cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	if len(cfg.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: cfg.CORSOrigins,
			AllowedMethods: []string{
				http.MethodGet, http.MethodPost, http.MethodPut,
				http.MethodPatch, http.MethodDelete, http.MethodOptions,
			},
			AllowedHeaders: []string{"Content-Type", middleware.HeaderUserID, middleware.HeaderUserRole},
			MaxAge:         600,
		}).Handler)
	}
	if cfg.AccessLog {
		r.Use(chimw.Logger)
	}
	r.Use(chimw.Recoverer)
	r.Use(chimw.GetHead)
	r.Use(chimw.StripSlashes)
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig(cfg.IsDevelopment)))
	r.Use(middleware.Identity)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteNotFound(w, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed", nil)
	})

	r.Get("/health", h.Health)
	r.Get("/health/live", h.Liveness)

	throttle := func(next http.Handler) http.Handler { return next }
	if cfg.PublicLimiter != nil {
		throttle = cfg.PublicLimiter.Middleware
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/status", h.Status)

		// Anonymous
		r.With(throttle).Get("/public/pages/{slug}", h.GetPublicPage)

		// Owner routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireIdentity)

			r.Get("/pages", h.ListPages)
			r.Post("/pages", h.CreatePage)

			r.Route("/pages/{id}", func(r chi.Router) {
				r.Get("/", h.GetPage)
				r.Patch("/", h.UpdatePage)
				r.Delete("/", h.DeletePage)

				r.Post("/review", h.SubmitForReview)

				r.Get("/versions", h.ListVersions)
				r.Post("/versions", h.CreateVersion)

				r.Post("/publish", h.Publish)
				r.Put("/schedule", h.SchedulePublish)
				r.Delete("/schedule", h.CancelSchedule)

				r.Get("/lock", h.GetLock)
				r.Post("/lock", h.AcquireLock)
				r.Delete("/lock", h.ReleaseLock)
			})

			r.With(throttle).Post("/imports", h.SubmitImport)
			r.Get("/imports/{jobID}/progress", h.ImportProgress)
			r.Get("/imports/{jobID}/result", h.ImportResult)

			r.Get("/events", h.ListEvents)
		})
	})

	return r
}
