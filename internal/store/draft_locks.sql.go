// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"time"
)

const draftLockColumns = `id, page_id, locked_by, expires_at, created_at, updated_at`

func scanDraftLock(row rowScanner) (PageDraftLock, error) {
	var i PageDraftLock
	err := row.Scan(
		&i.ID,
		&i.PageID,
		&i.LockedBy,
		&i.ExpiresAt,
		&i.CreatedAt,
		&i.UpdatedAt,
	)
	return i, err
}

const acquireDraftLock = `-- name: AcquireDraftLock :one
INSERT INTO page_draft_locks (id, page_id, locked_by, expires_at, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (page_id) DO UPDATE SET
    locked_by = excluded.locked_by,
    expires_at = excluded.expires_at,
    created_at = CASE
        WHEN page_draft_locks.locked_by = excluded.locked_by AND page_draft_locks.expires_at > excluded.updated_at
        THEN page_draft_locks.created_at
        ELSE excluded.created_at
    END,
    updated_at = excluded.updated_at
WHERE page_draft_locks.locked_by = excluded.locked_by
   OR page_draft_locks.expires_at <= excluded.updated_at
RETURNING ` + draftLockColumns

type AcquireDraftLockParams struct {
	ID        string    `json:"id"`
	PageID    string    `json:"page_id"`
	LockedBy  string    `json:"locked_by"`
	ExpiresAt time.Time `json:"expires_at"`
	Now       time.Time `json:"now"`
}

// AcquireDraftLock creates, renews, or takes over an expired lock in one
// statement. It returns sql.ErrNoRows when another user holds an active lock.
func (q *Queries) AcquireDraftLock(ctx context.Context, arg AcquireDraftLockParams) (PageDraftLock, error) {
	row := q.db.QueryRowContext(ctx, acquireDraftLock,
		arg.ID,
		arg.PageID,
		arg.LockedBy,
		arg.ExpiresAt,
		arg.Now,
		arg.Now,
	)
	return scanDraftLock(row)
}

const getDraftLock = `-- name: GetDraftLock :one
SELECT ` + draftLockColumns + ` FROM page_draft_locks WHERE page_id = ?`

func (q *Queries) GetDraftLock(ctx context.Context, pageID string) (PageDraftLock, error) {
	row := q.db.QueryRowContext(ctx, getDraftLock, pageID)
	return scanDraftLock(row)
}

const releaseDraftLock = `-- name: ReleaseDraftLock :execrows
DELETE FROM page_draft_locks
WHERE page_id = ? AND (locked_by = ? OR expires_at <= ?)`

type ReleaseDraftLockParams struct {
	PageID   string    `json:"page_id"`
	LockedBy string    `json:"locked_by"`
	Now      time.Time `json:"now"`
}

// ReleaseDraftLock removes the lock if it belongs to LockedBy or has expired.
func (q *Queries) ReleaseDraftLock(ctx context.Context, arg ReleaseDraftLockParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, releaseDraftLock, arg.PageID, arg.LockedBy, arg.Now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const deleteExpiredDraftLocks = `-- name: DeleteExpiredDraftLocks :execrows
DELETE FROM page_draft_locks WHERE expires_at <= ?`

func (q *Queries) DeleteExpiredDraftLocks(ctx context.Context, now time.Time) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteExpiredDraftLocks, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
