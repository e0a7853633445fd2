// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-builder/internal/middleware"
)

// PublishRequest selects the version to publish. An empty VersionID means current.
type PublishRequest struct {
	VersionID string `json:"version_id" validate:"max=64"`
}

// ScheduleRequest is the body of PUT /pages/{id}/schedule.
type ScheduleRequest struct {
	ScheduledAt time.Time `json:"scheduled_at" validate:"required"`
	VersionID   string    `json:"version_id" validate:"max=64"`
}

// Publish handles POST /api/v1/pages/{id}/publish
func (h *Handler) Publish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if !h.decodeOptionalJSON(w, r, &req) {
		return
	}

	result, err := h.svc.Publisher.Publish(r.Context(), middleware.GetActor(r), chi.URLParam(r, "id"), req.VersionID)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, result, nil)
}

// SchedulePublish handles PUT /api/v1/pages/{id}/schedule
func (h *Handler) SchedulePublish(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	page, err := h.svc.Publisher.SchedulePublish(r.Context(), middleware.GetActor(r), chi.URLParam(r, "id"), req.VersionID, req.ScheduledAt)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, page, nil)
}

// CancelSchedule handles DELETE /api/v1/pages/{id}/schedule
func (h *Handler) CancelSchedule(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Publisher.CancelSchedule(r.Context(), middleware.GetActor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, page, nil)
}
