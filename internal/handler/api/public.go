// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// GetPublicPage handles GET /api/v1/public/pages/{slug}
// Anonymous. Private and unknown pages answer the same 404.
func (h *Handler) GetPublicPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.svc.Public.Get(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=60")
	WriteSuccess(w, page, nil)
}
