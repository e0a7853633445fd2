// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestNormalizeJSONObject(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"empty", "", "{}", false},
		{"null", "null", "{}", false},
		{"object", `{ "root": "a", "nodes": {} }`, `{"root":"a","nodes":{}}`, false},
		{"array", `[1,2]`, "", true},
		{"string", `"tree"`, "", true},
		{"number", `42`, "", true},
		{"malformed", `{"root":`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeJSONObject("component_tree", json.RawMessage(tt.input))
			if tt.wantErr {
				var ve *ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("expected ValidationError, got %v", err)
				}
				if ve.Field != "component_tree" {
					t.Errorf("Field = %q, want component_tree", ve.Field)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestValidateTitle(t *testing.T) {
	if got, err := ValidateTitle("title", "  Landing  "); err != nil || got != "Landing" {
		t.Errorf("ValidateTitle trimmed = %q, %v", got, err)
	}
	if _, err := ValidateTitle("title", "   "); !errors.Is(err, ErrValidation) {
		t.Errorf("blank title error = %v", err)
	}
	if _, err := ValidateTitle("title", strings.Repeat("я", MaxTitleLength)); err != nil {
		t.Errorf("title at limit rejected: %v", err)
	}
	if _, err := ValidateTitle("title", strings.Repeat("a", MaxTitleLength+1)); !errors.Is(err, ErrValidation) {
		t.Errorf("long title error = %v", err)
	}
}

func TestNormalizeTags(t *testing.T) {
	got, err := NormalizeTags([]string{" go ", "", "cms", "go"})
	if err != nil {
		t.Fatalf("NormalizeTags: %v", err)
	}
	assertStrings(t, got, []string{"go", "cms"})

	got, err = NormalizeTags(nil)
	if err != nil || got == nil || len(got) != 0 {
		t.Errorf("NormalizeTags(nil) = %v, %v; want empty non-nil slice", got, err)
	}

	many := make([]string, MaxTags+1)
	for i := range many {
		many[i] = strings.Repeat("t", i+1)
	}
	if _, err := NormalizeTags(many); !errors.Is(err, ErrValidation) {
		t.Errorf("too many tags error = %v", err)
	}
}

func assertStrings(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
