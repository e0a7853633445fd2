// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/ocms-builder/internal/middleware"
	"github.com/olegiv/ocms-builder/internal/model"
	"github.com/olegiv/ocms-builder/internal/service"
)

// VersionRequest carries the content of a new version.
type VersionRequest struct {
	Title         string          `json:"title" validate:"max=200"`
	Notes         string          `json:"notes" validate:"max=5000"`
	ComponentTree json.RawMessage `json:"component_tree"`
	Metadata      json.RawMessage `json:"metadata"`
}

func (v VersionRequest) input() service.VersionInput {
	return service.VersionInput{
		Title:         v.Title,
		Notes:         v.Notes,
		ComponentTree: v.ComponentTree,
		Metadata:      v.Metadata,
	}
}

// CreatePageRequest is the body of POST /pages.
type CreatePageRequest struct {
	Title          string         `json:"title" validate:"required,max=200"`
	Description    string         `json:"description" validate:"max=5000"`
	Tags           []string       `json:"tags" validate:"max=50"`
	InitialVersion VersionRequest `json:"initial_version"`
}

// UpdatePageRequest is the body of PATCH /pages/{id}. Omitted fields are unchanged.
type UpdatePageRequest struct {
	Title       *string   `json:"title" validate:"omitnil,max=200"`
	Description *string   `json:"description" validate:"omitnil,max=5000"`
	Tags        *[]string `json:"tags" validate:"omitnil,max=50"`
}

// PageWithVersion pairs a page with one of its versions.
type PageWithVersion struct {
	Page    *model.Page        `json:"page"`
	Version *model.PageVersion `json:"version"`
}

// ListPages handles GET /api/v1/pages
func (h *Handler) ListPages(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaging(r)
	list, err := h.svc.Pages.ListPages(r.Context(), middleware.GetActor(r), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, list.Pages, &Meta{Total: list.Total, Limit: list.Limit, Offset: list.Offset})
}

// CreatePage handles POST /api/v1/pages
func (h *Handler) CreatePage(w http.ResponseWriter, r *http.Request) {
	var req CreatePageRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	page, version, err := h.svc.Pages.CreatePage(r.Context(), middleware.GetActor(r), service.CreatePageInput{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
		Version:     req.InitialVersion.input(),
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, PageWithVersion{Page: page, Version: version})
}

// GetPage handles GET /api/v1/pages/{id}
func (h *Handler) GetPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Pages.GetPage(r.Context(), middleware.GetActor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, page, nil)
}

// UpdatePage handles PATCH /api/v1/pages/{id}
func (h *Handler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	var req UpdatePageRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	page, err := h.svc.Pages.UpdatePage(r.Context(), middleware.GetActor(r), chi.URLParam(r, "id"), service.UpdatePageInput{
		Title:       req.Title,
		Description: req.Description,
		Tags:        req.Tags,
	})
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, page, nil)
}

// DeletePage handles DELETE /api/v1/pages/{id}
func (h *Handler) DeletePage(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Pages.DeletePage(r.Context(), middleware.GetActor(r), chi.URLParam(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteNoContent(w)
}

// SubmitForReview handles POST /api/v1/pages/{id}/review
func (h *Handler) SubmitForReview(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Pages.SubmitForReview(r.Context(), middleware.GetActor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, page, nil)
}

// ListVersions handles GET /api/v1/pages/{id}/versions
func (h *Handler) ListVersions(w http.ResponseWriter, r *http.Request) {
	versions, err := h.svc.Versions.ListVersions(r.Context(), middleware.GetActor(r), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, versions, &Meta{Total: int64(len(versions)), Limit: int64(len(versions))})
}

// CreateVersion handles POST /api/v1/pages/{id}/versions. Saving is refused
// while another user holds the page's draft lock. Ownership is checked first
// so lock details never leak to callers who cannot see the page.
func (h *Handler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	var req VersionRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	ctx := r.Context()
	actor := middleware.GetActor(r)
	pageID := chi.URLParam(r, "id")

	if _, err := h.svc.Pages.GetPage(ctx, actor, pageID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	if err := h.svc.Locks.EnsureWritable(ctx, actor, pageID); err != nil {
		h.writeServiceError(w, r, err)
		return
	}

	version, err := h.svc.Versions.CreateVersion(ctx, actor, pageID, req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteCreated(w, version)
}
