// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package util

import (
	"bytes"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	// ugcPolicy allows the formatting tags markdown produces and strips scripts and handlers
	ugcPolicy = bluemonday.UGCPolicy()
	// strictPolicy strips every tag, leaving text only
	strictPolicy = bluemonday.StrictPolicy()
)

// RenderMarkdown converts user-supplied markdown to sanitized HTML.
func RenderMarkdown(src string) (string, error) {
	if strings.TrimSpace(src) == "" {
		return "", nil
	}

	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(src), &buf); err != nil {
		return "", err
	}

	return ugcPolicy.Sanitize(buf.String()), nil
}

// StripHTML removes all markup from s and trims surrounding whitespace.
func StripHTML(s string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}
