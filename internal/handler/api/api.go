// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the REST handlers for the page builder.
package api

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/olegiv/ocms-builder/internal/cache"
	"github.com/olegiv/ocms-builder/internal/importer"
	"github.com/olegiv/ocms-builder/internal/service"
	"github.com/olegiv/ocms-builder/internal/version"
)

// Services groups the domain services the handlers call into.
type Services struct {
	Pages     *service.PageService
	Versions  *service.VersionStore
	Locks     *service.LockManager
	Publisher *service.Publisher
	Public    *service.PublicPages
	Events    *service.EventService
	Imports   *importer.Service

	// ImportQueue is optional; verbose health reports its depth.
	ImportQueue interface{ Pending() int }
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	db        *sql.DB
	cache     cache.Cacher
	svc       Services
	validate  *validator.Validate
	logger    *slog.Logger
	build     version.Info
	startTime time.Time
}

// NewHandler creates a new API handler. cacher may be nil; it is only used
// by the health check.
func NewHandler(db *sql.DB, cacher cache.Cacher, svc Services, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		db:        db,
		cache:     cacher,
		svc:       svc,
		validate:  newValidator(),
		logger:    logger,
		startTime: time.Now(),
	}
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data,omitempty"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination metadata.
type Meta struct {
	Total  int64 `json:"total"`
	Limit  int64 `json:"limit"`
	Offset int64 `json:"offset"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteAccepted writes a 202 Accepted JSON response.
func WriteAccepted(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusAccepted, Response{Data: data})
}

// WriteNoContent writes a 204 No Content response.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]any) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]any) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteForbidden writes a 403 Forbidden response.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]any) {
	WriteError(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed", fieldErrors)
}

// SetBuildInfo records the binary's version for the status endpoint.
func (h *Handler) SetBuildInfo(info version.Info) {
	h.build = info
}

// StatusResponse contains API status information.
type StatusResponse struct {
	Status  string        `json:"status"`
	Version string        `json:"version"`
	Build   *version.Info `json:"build,omitempty"`
}

// Status returns the API status.
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	resp := StatusResponse{
		Status:  "ok",
		Version: "v1",
	}
	if h.build.Version != "" {
		build := h.build
		resp.Build = &build
	}
	WriteSuccess(w, resp, nil)
}
