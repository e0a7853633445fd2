// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"time"
)

const pageColumns = `id, owner_id, title, slug, description, tags, status, is_public, current_version_id, published_version_id, published_at, scheduled_at, scheduled_version_id, is_deleted, deleted_at, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPage(row rowScanner) (Page, error) {
	var i Page
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Title,
		&i.Slug,
		&i.Description,
		&i.Tags,
		&i.Status,
		&i.IsPublic,
		&i.CurrentVersionID,
		&i.PublishedVersionID,
		&i.PublishedAt,
		&i.ScheduledAt,
		&i.ScheduledVersionID,
		&i.IsDeleted,
		&i.DeletedAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

func scanPages(rows *sql.Rows) ([]Page, error) {
	defer func() { _ = rows.Close() }()
	items := []Page{}
	for rows.Next() {
		i, err := scanPage(rows)
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

const createPage = `-- name: CreatePage :one
INSERT INTO pages (id, owner_id, title, slug, description, tags, status, is_public, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, 'draft', 0, ?, ?)
RETURNING ` + pageColumns

type CreatePageParams struct {
	ID          string    `json:"id"`
	OwnerID     string    `json:"owner_id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	Tags        string    `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (q *Queries) CreatePage(ctx context.Context, arg CreatePageParams) (Page, error) {
	row := q.db.QueryRowContext(ctx, createPage,
		arg.ID,
		arg.OwnerID,
		arg.Title,
		arg.Slug,
		arg.Description,
		arg.Tags,
		arg.CreatedAt,
		arg.UpdatedAt,
	)
	return scanPage(row)
}

const getPage = `-- name: GetPage :one
SELECT ` + pageColumns + ` FROM pages WHERE id = ? AND is_deleted = 0`

func (q *Queries) GetPage(ctx context.Context, id string) (Page, error) {
	row := q.db.QueryRowContext(ctx, getPage, id)
	return scanPage(row)
}

const getPageBySlug = `-- name: GetPageBySlug :one
SELECT ` + pageColumns + ` FROM pages WHERE slug = ? AND is_deleted = 0`

func (q *Queries) GetPageBySlug(ctx context.Context, slug string) (Page, error) {
	row := q.db.QueryRowContext(ctx, getPageBySlug, slug)
	return scanPage(row)
}

const slugExists = `-- name: SlugExists :one
SELECT COUNT(*) FROM pages WHERE slug = ?`

// SlugExists counts pages using slug, including soft-deleted ones.
func (q *Queries) SlugExists(ctx context.Context, slug string) (int64, error) {
	row := q.db.QueryRowContext(ctx, slugExists, slug)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listPagesByOwner = `-- name: ListPagesByOwner :many
SELECT ` + pageColumns + ` FROM pages
WHERE owner_id = ? AND is_deleted = 0
ORDER BY title, created_at
LIMIT ? OFFSET ?`

type ListPagesByOwnerParams struct {
	OwnerID string `json:"owner_id"`
	Limit   int64  `json:"limit"`
	Offset  int64  `json:"offset"`
}

func (q *Queries) ListPagesByOwner(ctx context.Context, arg ListPagesByOwnerParams) ([]Page, error) {
	rows, err := q.db.QueryContext(ctx, listPagesByOwner, arg.OwnerID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanPages(rows)
}

const countPagesByOwner = `-- name: CountPagesByOwner :one
SELECT COUNT(*) FROM pages WHERE owner_id = ? AND is_deleted = 0`

func (q *Queries) CountPagesByOwner(ctx context.Context, ownerID string) (int64, error) {
	row := q.db.QueryRowContext(ctx, countPagesByOwner, ownerID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listAllPages = `-- name: ListAllPages :many
SELECT ` + pageColumns + ` FROM pages
WHERE is_deleted = 0
ORDER BY title, created_at
LIMIT ? OFFSET ?`

type ListAllPagesParams struct {
	Limit  int64 `json:"limit"`
	Offset int64 `json:"offset"`
}

func (q *Queries) ListAllPages(ctx context.Context, arg ListAllPagesParams) ([]Page, error) {
	rows, err := q.db.QueryContext(ctx, listAllPages, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	return scanPages(rows)
}

const countAllPages = `-- name: CountAllPages :one
SELECT COUNT(*) FROM pages WHERE is_deleted = 0`

func (q *Queries) CountAllPages(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, countAllPages)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const touchPage = `-- name: TouchPage :execrows
UPDATE pages SET updated_at = ? WHERE id = ? AND is_deleted = 0`

type TouchPageParams struct {
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
}

// TouchPage bumps updated_at. Running it first inside a transaction takes the
// write lock for the page before anything else is read.
func (q *Queries) TouchPage(ctx context.Context, arg TouchPageParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, touchPage, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setCurrentVersion = `-- name: SetCurrentVersion :exec
UPDATE pages SET current_version_id = ?, status = ?, updated_at = ? WHERE id = ?`

type SetCurrentVersionParams struct {
	CurrentVersionID sql.NullString `json:"current_version_id"`
	Status           string         `json:"status"`
	UpdatedAt        time.Time      `json:"updated_at"`
	ID               string         `json:"id"`
}

func (q *Queries) SetCurrentVersion(ctx context.Context, arg SetCurrentVersionParams) error {
	_, err := q.db.ExecContext(ctx, setCurrentVersion,
		arg.CurrentVersionID,
		arg.Status,
		arg.UpdatedAt,
		arg.ID,
	)
	return err
}

const markPagePublished = `-- name: MarkPagePublished :one
UPDATE pages
SET status = 'published',
    is_public = 1,
    published_version_id = ?,
    published_at = ?,
    scheduled_at = NULL,
    scheduled_version_id = NULL,
    updated_at = ?
WHERE id = ?
RETURNING ` + pageColumns

type MarkPagePublishedParams struct {
	PublishedVersionID sql.NullString `json:"published_version_id"`
	PublishedAt        sql.NullTime   `json:"published_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
	ID                 string         `json:"id"`
}

func (q *Queries) MarkPagePublished(ctx context.Context, arg MarkPagePublishedParams) (Page, error) {
	row := q.db.QueryRowContext(ctx, markPagePublished,
		arg.PublishedVersionID,
		arg.PublishedAt,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanPage(row)
}

const updatePage = `-- name: UpdatePage :one
UPDATE pages SET title = ?, description = ?, tags = ?, updated_at = ?
WHERE id = ? AND is_deleted = 0
RETURNING ` + pageColumns

type UpdatePageParams struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Tags        string    `json:"tags"`
	UpdatedAt   time.Time `json:"updated_at"`
	ID          string    `json:"id"`
}

func (q *Queries) UpdatePage(ctx context.Context, arg UpdatePageParams) (Page, error) {
	row := q.db.QueryRowContext(ctx, updatePage,
		arg.Title,
		arg.Description,
		arg.Tags,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanPage(row)
}

const updatePageStatus = `-- name: UpdatePageStatus :exec
UPDATE pages SET status = ?, updated_at = ? WHERE id = ?`

type UpdatePageStatusParams struct {
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
}

func (q *Queries) UpdatePageStatus(ctx context.Context, arg UpdatePageStatusParams) error {
	_, err := q.db.ExecContext(ctx, updatePageStatus, arg.Status, arg.UpdatedAt, arg.ID)
	return err
}

const softDeletePage = `-- name: SoftDeletePage :execrows
UPDATE pages
SET is_deleted = 1, deleted_at = ?, is_public = 0, scheduled_at = NULL, scheduled_version_id = NULL, updated_at = ?
WHERE id = ? AND is_deleted = 0`

type SoftDeletePageParams struct {
	DeletedAt sql.NullTime `json:"deleted_at"`
	UpdatedAt time.Time    `json:"updated_at"`
	ID        string       `json:"id"`
}

func (q *Queries) SoftDeletePage(ctx context.Context, arg SoftDeletePageParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, softDeletePage, arg.DeletedAt, arg.UpdatedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const setPageSchedule = `-- name: SetPageSchedule :one
UPDATE pages SET scheduled_at = ?, scheduled_version_id = ?, updated_at = ?
WHERE id = ? AND is_deleted = 0
RETURNING ` + pageColumns

type SetPageScheduleParams struct {
	ScheduledAt        sql.NullTime   `json:"scheduled_at"`
	ScheduledVersionID sql.NullString `json:"scheduled_version_id"`
	UpdatedAt          time.Time      `json:"updated_at"`
	ID                 string         `json:"id"`
}

// SetPageSchedule sets or, with null values, clears a deferred publish.
func (q *Queries) SetPageSchedule(ctx context.Context, arg SetPageScheduleParams) (Page, error) {
	row := q.db.QueryRowContext(ctx, setPageSchedule,
		arg.ScheduledAt,
		arg.ScheduledVersionID,
		arg.UpdatedAt,
		arg.ID,
	)
	return scanPage(row)
}

const listDueScheduledPages = `-- name: ListDueScheduledPages :many
SELECT ` + pageColumns + ` FROM pages
WHERE is_deleted = 0 AND scheduled_at IS NOT NULL AND scheduled_at <= ?
ORDER BY scheduled_at`

func (q *Queries) ListDueScheduledPages(ctx context.Context, now time.Time) ([]Page, error) {
	rows, err := q.db.QueryContext(ctx, listDueScheduledPages, now)
	if err != nil {
		return nil, err
	}
	return scanPages(rows)
}

const claimDueSchedule = `-- name: ClaimDueSchedule :one
UPDATE pages SET scheduled_at = NULL, scheduled_version_id = NULL, updated_at = ?
WHERE id = ? AND is_deleted = 0 AND scheduled_at IS NOT NULL AND scheduled_at <= ?
RETURNING ` + pageColumns

type ClaimDueScheduleParams struct {
	UpdatedAt time.Time `json:"updated_at"`
	ID        string    `json:"id"`
	Now       time.Time `json:"now"`
}

// ClaimDueSchedule clears a schedule that has come due and returns the page
// as it was claimed. sql.ErrNoRows means the schedule was cancelled, moved or
// already claimed.
func (q *Queries) ClaimDueSchedule(ctx context.Context, arg ClaimDueScheduleParams) (Page, error) {
	row := q.db.QueryRowContext(ctx, claimDueSchedule, arg.UpdatedAt, arg.ID, arg.Now)
	return scanPage(row)
}

const restoreSchedule = `-- name: RestoreSchedule :execrows
UPDATE pages SET scheduled_at = ?, scheduled_version_id = ?
WHERE id = ? AND is_deleted = 0 AND scheduled_at IS NULL`

type RestoreScheduleParams struct {
	ScheduledAt        sql.NullTime   `json:"scheduled_at"`
	ScheduledVersionID sql.NullString `json:"scheduled_version_id"`
	ID                 string         `json:"id"`
}

// RestoreSchedule puts back a claimed schedule unless a new one was set since.
func (q *Queries) RestoreSchedule(ctx context.Context, arg RestoreScheduleParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, restoreSchedule, arg.ScheduledAt, arg.ScheduledVersionID, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
