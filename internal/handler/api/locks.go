// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-builder/internal/middleware"
)

// AcquireLockRequest is the optional body of POST /pages/{id}/lock.
// Zero TTLSeconds selects the server default.
type AcquireLockRequest struct {
	TTLSeconds int `json:"ttl_seconds" validate:"min=0"`
}

// GetLock handles GET /api/v1/pages/{id}/lock
func (h *Handler) GetLock(w http.ResponseWriter, r *http.Request) {
	lock, err := h.svc.Locks.Current(r.Context(), middleware.GetActor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, lock, nil)
}

// AcquireLock handles POST /api/v1/pages/{id}/lock
func (h *Handler) AcquireLock(w http.ResponseWriter, r *http.Request) {
	var req AcquireLockRequest
	if !h.decodeOptionalJSON(w, r, &req) {
		return
	}

	ttl := time.Duration(req.TTLSeconds) * time.Second
	lock, err := h.svc.Locks.Acquire(r.Context(), middleware.GetActor(r), chi.URLParam(r, "id"), ttl)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, lock, nil)
}

// ReleaseLock handles DELETE /api/v1/pages/{id}/lock
func (h *Handler) ReleaseLock(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Locks.Release(r.Context(), middleware.GetActor(r), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteNoContent(w)
}
