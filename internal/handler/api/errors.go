// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/olegiv/ocms-builder/internal/model"
)

// writeServiceError maps a service error onto the API error envelope.
// Anything unrecognised is logged and reported as a 500 without detail.
func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		validationErr *model.ValidationError
		conflictErr   *model.LockConflictError
		jobErr        *model.JobFailedError
	)

	switch {
	case errors.As(err, &validationErr):
		details := map[string]any{}
		if validationErr.Field != "" {
			details[validationErr.Field] = validationErr.Message
		}
		WriteError(w, http.StatusUnprocessableEntity, "validation_error", validationErr.Error(), details)
	case errors.As(err, &conflictErr):
		WriteError(w, http.StatusConflict, "locked", "Page is being edited by another user", map[string]any{
			"held_by":    conflictErr.HeldBy,
			"expires_at": conflictErr.ExpiresAt.UTC().Format(time.RFC3339),
		})
	case errors.As(err, &jobErr):
		WriteError(w, http.StatusUnprocessableEntity, "job_failed", jobErr.Message, map[string]any{
			"job_id": jobErr.JobID,
		})
	case errors.Is(err, model.ErrNotFound):
		WriteNotFound(w, "Not found")
	case errors.Is(err, model.ErrValidation):
		WriteError(w, http.StatusUnprocessableEntity, "validation_error", err.Error(), nil)
	case errors.Is(err, model.ErrConflict):
		WriteError(w, http.StatusConflict, "conflict", err.Error(), nil)
	case errors.Is(err, model.ErrPermissionDenied):
		WriteForbidden(w, "Permission denied")
	case errors.Is(err, model.ErrUnavailable):
		WriteError(w, http.StatusServiceUnavailable, "unavailable", "Service temporarily unavailable", nil)
	default:
		h.logger.Error("api request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"error", err,
		)
		WriteInternalError(w, "Internal server error")
	}
}
