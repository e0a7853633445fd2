// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/olegiv/ocms-builder/internal/middleware"
)

// ListEvents handles GET /api/v1/events (staff only)
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit, offset := parsePaging(r)
	events, err := h.svc.Events.ListEvents(r.Context(), middleware.GetActor(r), limit, offset)
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	WriteSuccess(w, events, nil)
}
