// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/ocms-builder/internal/model"
	"github.com/olegiv/ocms-builder/internal/store"
	"github.com/olegiv/ocms-builder/internal/util"
)

// versionContent is a validated VersionInput.
type versionContent struct {
	title         string
	notes         string
	componentTree json.RawMessage
	metadata      json.RawMessage
}

// normalizeVersionInput validates content fields. An empty title falls back
// to the page title.
func normalizeVersionInput(in VersionInput, pageTitle string) (versionContent, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		title = pageTitle
	}
	title, err := model.ValidateTitle("title", title)
	if err != nil {
		return versionContent{}, err
	}

	tree, err := model.NormalizeJSONObject("component_tree", in.ComponentTree)
	if err != nil {
		return versionContent{}, err
	}
	meta, err := model.NormalizeJSONObject("metadata", in.Metadata)
	if err != nil {
		return versionContent{}, err
	}

	return versionContent{
		title:         title,
		notes:         strings.TrimSpace(in.Notes),
		componentTree: tree,
		metadata:      meta,
	}, nil
}

// insertVersion adds the next version of a page. The caller must already
// hold the page's write lock inside q's transaction.
func insertVersion(ctx context.Context, q *store.Queries, pageID string, actor model.Actor, c versionContent, now time.Time) (store.PageVersion, error) {
	row, err := q.CreatePageVersion(ctx, store.CreatePageVersionParams{
		ID:            uuid.NewString(),
		PageID:        pageID,
		CreatedBy:     util.NullStringFromValue(actor.UserID),
		Title:         c.title,
		Notes:         c.notes,
		ComponentTree: string(c.componentTree),
		Metadata:      string(c.metadata),
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return store.PageVersion{}, fmt.Errorf("inserting version: %w", err)
	}
	return row, nil
}

// VersionStore creates and lists immutable page snapshots.
//
// Status policy: saving a new version always moves the page back to draft.
// The published snapshot, published_at and is_public are left untouched, so
// the public view keeps serving the last published version.
//
// Draft locks are advisory and are not consulted here.
type VersionStore struct {
	base
}

// NewVersionStore creates a VersionStore.
func NewVersionStore(db *sql.DB, opts ...Option) *VersionStore {
	return &VersionStore{base: newBase(db, opts)}
}

// CreateVersion stores a new snapshot numbered max+1 and makes it the page's
// current version. Numbering and insert run in one transaction that first
// takes the page's write lock, so concurrent saves never share a number.
func (s *VersionStore) CreateVersion(ctx context.Context, actor model.Actor, pageID string, in VersionInput) (*model.PageVersion, error) {
	var row store.PageVersion
	err := inTx(ctx, s.db, func(q *store.Queries) error {
		now := s.clock()
		page, err := lockPage(ctx, q, actor, pageID, now)
		if err != nil {
			return err
		}

		content, err := normalizeVersionInput(in, page.Title)
		if err != nil {
			return err
		}

		if err := checkTransition(page.Status, model.PageStatusDraft); err != nil {
			return err
		}

		row, err = insertVersion(ctx, q, pageID, actor, content, now)
		if err != nil {
			return err
		}

		return q.SetCurrentVersion(ctx, store.SetCurrentVersionParams{
			CurrentVersionID: util.NullStringFromValue(row.ID),
			Status:           string(model.PageStatusDraft),
			UpdatedAt:        now,
			ID:               pageID,
		})
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("page version created",
		"category", model.EventCategoryPage,
		"page_id", pageID,
		"version", row.Version,
		"actor", actor.UserID,
	)

	return versionFromRow(row), nil
}

// ListVersions returns a page's versions, newest first.
func (s *VersionStore) ListVersions(ctx context.Context, actor model.Actor, pageID string) ([]model.PageVersion, error) {
	page, err := s.queries.GetPage(ctx, pageID)
	if err != nil {
		return nil, notFound(err, "loading page")
	}
	if !actor.CanManage(page.OwnerID) {
		return nil, fmt.Errorf("loading page: %w", model.ErrNotFound)
	}

	rows, err := s.queries.ListPageVersions(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("listing versions: %w", err)
	}

	versions := make([]model.PageVersion, 0, len(rows))
	for _, row := range rows {
		versions = append(versions, *versionFromRow(row))
	}
	return versions, nil
}
