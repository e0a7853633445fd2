// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"testing"
)

func TestEventCategoriesUnique(t *testing.T) {
	categories := []string{
		EventCategoryPage,
		EventCategoryLock,
		EventCategoryPublish,
		EventCategoryImport,
		EventCategoryCache,
		EventCategorySystem,
	}

	seen := make(map[string]bool)
	for _, cat := range categories {
		if seen[cat] {
			t.Errorf("duplicate category: %q", cat)
		}
		seen[cat] = true
	}
}
