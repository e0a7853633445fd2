// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"
)

var emptyObject = json.RawMessage(`{}`)

// NormalizeJSONObject checks that raw holds a JSON object and returns it compacted.
// Empty input and JSON null become {}.
func NormalizeJSONObject(field string, raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return emptyObject, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, NewValidationError(field, "must be a JSON object")
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, NewValidationError(field, "must be a JSON object")
	}
	return buf.Bytes(), nil
}

// ValidateTitle trims a title and checks its length.
func ValidateTitle(field, title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", NewValidationError(field, "is required")
	}
	if utf8.RuneCountInString(title) > MaxTitleLength {
		return "", NewValidationError(field, "must be at most 200 characters")
	}
	return title, nil
}

// NormalizeTags trims tags, drops blanks and duplicates, and enforces limits.
func NormalizeTags(tags []string) ([]string, error) {
	out := make([]string, 0, len(tags))
	seen := make(map[string]struct{}, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if utf8.RuneCountInString(tag) > MaxTagLength {
			return nil, NewValidationError("tags", "each tag must be at most 64 characters")
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	if len(out) > MaxTags {
		return nil, NewValidationError("tags", "at most 50 tags are allowed")
	}
	return out, nil
}
