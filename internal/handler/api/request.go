// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/olegiv/ocms-builder/internal/service"
)

// maxBodyBytes caps request bodies. Component trees are the largest payload.
const maxBodyBytes = 2 << 20

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeJSON reads the body into dst and runs struct validation.
// It writes the error response itself and returns false on failure.
func (h *Handler) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return h.decode(w, r, dst, false)
}

// decodeOptionalJSON is decodeJSON for endpoints where the body may be omitted.
func (h *Handler) decodeOptionalJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	return h.decode(w, r, dst, true)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any, optional bool) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF) && optional:
			// empty body, keep zero values
		case errors.As(err, &maxErr):
			WriteError(w, http.StatusRequestEntityTooLarge, "too_large", "Request body too large", nil)
			return false
		case errors.Is(err, io.EOF):
			WriteBadRequest(w, "Request body is empty", nil)
			return false
		default:
			WriteBadRequest(w, "Invalid JSON body", nil)
			return false
		}
	}

	if err := h.validate.Struct(dst); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			WriteBadRequest(w, "Invalid request", nil)
			return false
		}
		details := make(map[string]any, len(fieldErrs))
		for _, fe := range fieldErrs {
			details[fe.Field()] = fieldMessage(fe)
		}
		WriteValidationError(w, details)
		return false
	}
	return true
}

func fieldMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param()
	case "min":
		return "must be at least " + fe.Param()
	case "gt":
		return "must be greater than " + fe.Param()
	default:
		return "is invalid"
	}
}

// parsePaging reads limit and offset query parameters.
func parsePaging(r *http.Request) (limit, offset int64) {
	limit = service.DefaultPageLimit
	if v, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil && v > 0 {
		limit = min(v, service.MaxPageLimit)
	}
	if v, err := strconv.ParseInt(r.URL.Query().Get("offset"), 10, 64); err == nil && v > 0 {
		offset = v
	}
	return limit, offset
}
