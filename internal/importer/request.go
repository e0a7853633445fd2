// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package importer

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/olegiv/ocms-builder/internal/model"
)

// Request asks for a design document to be converted into a component tree.
// URL is any non-empty design reference; whether it must be a fetchable
// address is up to the Fetcher. PageID and TemplateID are carried through
// to the job record untouched.
type Request struct {
	URL        string `json:"figma_url" validate:"required,max=2048"`
	PageID     string `json:"page_id,omitempty" validate:"omitempty,max=64"`
	TemplateID string `json:"template_id,omitempty" validate:"omitempty,max=64"`
}

// jobPayload is what gets stored on the job record at submission.
type jobPayload struct {
	FigmaURL   string `json:"figma_url"`
	PageID     string `json:"page_id,omitempty"`
	TemplateID string `json:"template_id,omitempty"`
	UserID     string `json:"user_id"`
}

// NewValidator returns a validator that reports fields by their JSON names.
func NewValidator() *validator.Validate {
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

// validateRequest converts the first validator failure into a *model.ValidationError.
func validateRequest(v *validator.Validate, req Request) error {
	err := v.Struct(req)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return model.NewValidationError("", err.Error())
	}

	fe := fieldErrs[0]
	switch fe.Tag() {
	case "required":
		return model.NewValidationError(fe.Field(), "is required")
	case "max":
		return model.NewValidationError(fe.Field(), "must be at most "+fe.Param()+" characters")
	default:
		return model.NewValidationError(fe.Field(), "is invalid")
	}
}
