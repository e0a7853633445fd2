// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const pageVersionColumns = `id, page_id, version, created_by, title, notes, component_tree, metadata, is_published, created_at, updated_at`

func scanPageVersion(row rowScanner) (PageVersion, error) {
	var i PageVersion
	err := row.Scan(
		&i.ID,
		&i.PageID,
		&i.Version,
		&i.CreatedBy,
		&i.Title,
		&i.Notes,
		&i.ComponentTree,
		&i.Metadata,
		&i.IsPublished,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const createPageVersion = `-- name: CreatePageVersion :one
INSERT INTO page_versions (id, page_id, version, created_by, title, notes, component_tree, metadata, is_published, created_at, updated_at)
VALUES (?, ?, (SELECT COALESCE(MAX(version), 0) + 1 FROM page_versions WHERE page_id = ?), ?, ?, ?, ?, ?, 0, ?, ?)
RETURNING ` + pageVersionColumns

type CreatePageVersionParams struct {
	ID            string         `json:"id"`
	PageID        string         `json:"page_id"`
	CreatedBy     sql.NullString `json:"created_by"`
	Title         string         `json:"title"`
	Notes         string         `json:"notes"`
	ComponentTree string         `json:"component_tree"`
	Metadata      string         `json:"metadata"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// CreatePageVersion inserts a version numbered one above the page's current
// maximum. The number is computed in the same statement as the insert.
func (q *Queries) CreatePageVersion(ctx context.Context, arg CreatePageVersionParams) (PageVersion, error) {
	row := q.db.QueryRowContext(ctx, createPageVersion,
		arg.ID,
		arg.PageID,
		arg.PageID,
		arg.CreatedBy,
		arg.Title,
		arg.Notes,
		arg.ComponentTree,
		arg.Metadata,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanPageVersion(row)
}

const getPageVersion = `-- name: GetPageVersion :one
SELECT ` + pageVersionColumns + ` FROM page_versions WHERE id = ?`

func (q *Queries) GetPageVersion(ctx context.Context, id string) (PageVersion, error) {
	row := q.db.QueryRowContext(ctx, getPageVersion, id)
	return scanPageVersion(row)
}

const getPageVersionForPage = `-- name: GetPageVersionForPage :one
SELECT ` + pageVersionColumns + ` FROM page_versions WHERE id = ? AND page_id = ?`

type GetPageVersionForPageParams struct {
	ID     string `json:"id"`
	PageID string `json:"page_id"`
}

// GetPageVersionForPage returns a version only if it belongs to the given page.
func (q *Queries) GetPageVersionForPage(ctx context.Context, arg GetPageVersionForPageParams) (PageVersion, error) {
	row := q.db.QueryRowContext(ctx, getPageVersionForPage, arg.ID, arg.PageID)
	return scanPageVersion(row)
}

const listPageVersions = `-- name: ListPageVersions :many
SELECT ` + pageVersionColumns + ` FROM page_versions
WHERE page_id = ?
ORDER BY version DESC`

func (q *Queries) ListPageVersions(ctx context.Context, pageID string) ([]PageVersion, error) {
	rows, err := q.db.QueryContext(ctx, listPageVersions, pageID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	items := []PageVersion{}
	for rows.Next() {
		i, err := scanPageVersion(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markPageVersionPublished = `-- name: MarkPageVersionPublished :one
UPDATE page_versions SET is_published = 1, updated_at = ? WHERE id = ?
RETURNING ` + pageVersionColumns

type MarkPageVersionPublishedParams struct {
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
}

func (q *Queries) MarkPageVersionPublished(ctx context.Context, arg MarkPageVersionPublishedParams) (PageVersion, error) {
	row := q.db.QueryRowContext(ctx, markPageVersionPublished, arg.UpdatedAt, arg.ID)
	return scanPageVersion(row)
}
