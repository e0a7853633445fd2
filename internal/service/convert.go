// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"encoding/json"
	"fmt"

	"github.com/olegiv/ocms-builder/internal/model"
	"github.com/olegiv/ocms-builder/internal/store"
	"github.com/olegiv/ocms-builder/internal/util"
)

func pageFromRow(row store.Page) (*model.Page, error) {
	status, err := model.ParsePageStatus(row.Status)
	if err != nil {
		return nil, fmt.Errorf("page %s: %w", row.ID, err)
	}

	return &model.Page{
		ID:                 row.ID,
		OwnerID:            row.OwnerID,
		Title:              row.Title,
		Slug:               row.Slug,
		Description:        row.Description,
		Tags:               decodeTags(row.Tags),
		Status:             status,
		IsPublic:           row.IsPublic,
		CurrentVersionID:   util.StringFromNull(row.CurrentVersionID),
		PublishedVersionID: util.StringFromNull(row.PublishedVersionID),
		PublishedAt:        util.TimePtrFromNull(row.PublishedAt),
		ScheduledAt:        util.TimePtrFromNull(row.ScheduledAt),
		ScheduledVersionID: util.StringFromNull(row.ScheduledVersionID),
		CreatedAt:          row.CreatedAt.UTC(),
		UpdatedAt:          row.UpdatedAt.UTC(),
	}, nil
}

func pagesFromRows(rows []store.Page) ([]model.Page, error) {
	pages := make([]model.Page, 0, len(rows))
	for _, row := range rows {
		p, err := pageFromRow(row)
		if err != nil {
			return nil, err
		}
		pages = append(pages, *p)
	}
	return pages, nil
}

func versionFromRow(row store.PageVersion) *model.PageVersion {
	return &model.PageVersion{
		ID:            row.ID,
		PageID:        row.PageID,
		Version:       row.Version,
		CreatedBy:     util.StringFromNull(row.CreatedBy),
		Title:         row.Title,
		Notes:         row.Notes,
		ComponentTree: rawJSON(row.ComponentTree),
		Metadata:      rawJSON(row.Metadata),
		IsPublished:   row.IsPublished,
		CreatedAt:     row.CreatedAt.UTC(),
		UpdatedAt:     row.UpdatedAt.UTC(),
	}
}

func lockFromRow(row store.PageDraftLock) *model.DraftLock {
	return &model.DraftLock{
		PageID:    row.PageID,
		LockedBy:  row.LockedBy,
		ExpiresAt: row.ExpiresAt.UTC(),
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func rawJSON(s string) json.RawMessage {
	if s == "" {
		return json.RawMessage(`{}`)
	}
	return json.RawMessage(s)
}

// encodeTags stores tags as a JSON array. NormalizeTags never returns nil.
func encodeTags(tags []string) string {
	if tags == nil {
		tags = []string{}
	}
	data, _ := json.Marshal(tags)
	return string(data)
}

func decodeTags(s string) []string {
	tags := []string{}
	if s == "" {
		return tags
	}
	if err := json.Unmarshal([]byte(s), &tags); err != nil || tags == nil {
		return []string{}
	}
	return tags
}
