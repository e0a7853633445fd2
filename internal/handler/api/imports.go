// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-builder/internal/importer"
	"github.com/olegiv/ocms-builder/internal/middleware"
	"github.com/olegiv/ocms-builder/internal/model"
)

// SubmitImport handles POST /api/v1/imports. The job runs in the background;
// the response only carries its id.
func (h *Handler) SubmitImport(w http.ResponseWriter, r *http.Request) {
	var req importer.Request
	if !h.decodeJSON(w, r, &req) {
		return
	}

	result, err := h.svc.Imports.Submit(r.Context(), middleware.GetActor(r), req)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteAccepted(w, result)
}

// ImportProgress handles GET /api/v1/imports/{jobID}/progress
func (h *Handler) ImportProgress(w http.ResponseWriter, r *http.Request) {
	progress, err := h.svc.Imports.Progress(r.Context(), chi.URLParam(r, "jobID"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, progress, nil)
}

// ImportResult handles GET /api/v1/imports/{jobID}/result. An unfinished
// job answers 202 with its progress so clients can keep polling.
func (h *Handler) ImportResult(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	jobID := chi.URLParam(r, "jobID")

	result, err := h.svc.Imports.Result(ctx, jobID)
	if errors.Is(err, model.ErrNotReady) {
		progress, perr := h.svc.Imports.Progress(ctx, jobID)
		if perr != nil {
			h.writeServiceError(w, r, perr)
			return
		}
		WriteAccepted(w, progress)
		return
	}
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, result, nil)
}
