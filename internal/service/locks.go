// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/ocms-builder/internal/model"
	"github.com/olegiv/ocms-builder/internal/store"
)

// Lock TTL defaults used when NewLockManager gets zero values.
const (
	DefaultLockTTL    = 5 * time.Minute
	DefaultLockMaxTTL = time.Hour
)

// LockManager grants one exclusive, expiring edit lock per page.
// A lock is active while expires_at is in the future; expired rows are
// treated as absent whether or not PurgeExpired has removed them.
type LockManager struct {
	base
	defaultTTL time.Duration
	maxTTL     time.Duration
}

// NewLockManager creates a LockManager.
func NewLockManager(db *sql.DB, defaultTTL, maxTTL time.Duration, opts ...Option) *LockManager {
	if defaultTTL <= 0 {
		defaultTTL = DefaultLockTTL
	}
	if maxTTL <= 0 {
		maxTTL = DefaultLockMaxTTL
	}
	if defaultTTL > maxTTL {
		defaultTTL = maxTTL
	}
	return &LockManager{
		base:       newBase(db, opts),
		defaultTTL: defaultTTL,
		maxTTL:     maxTTL,
	}
}

// Acquire creates, renews or takes over the page's lock for actor.
// ttl 0 selects the default. Another user's active lock yields a
// *model.LockConflictError.
func (m *LockManager) Acquire(ctx context.Context, actor model.Actor, pageID string, ttl time.Duration) (*model.DraftLock, error) {
	if ttl == 0 {
		ttl = m.defaultTTL
	}
	if ttl < time.Second {
		return nil, model.NewValidationError("ttl", "must be at least 1 second")
	}
	if ttl > m.maxTTL {
		return nil, model.NewValidationError("ttl", fmt.Sprintf("must be at most %d seconds", int64(m.maxTTL/time.Second)))
	}

	if err := m.checkPage(ctx, actor, pageID); err != nil {
		return nil, err
	}

	now := m.clock()
	row, err := m.queries.AcquireDraftLock(ctx, store.AcquireDraftLockParams{
		ID:        uuid.NewString(),
		PageID:    pageID,
		LockedBy:  actor.UserID,
		ExpiresAt: now.Add(ttl),
		Now:       now,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, m.conflict(ctx, pageID)
	}
	if err != nil {
		return nil, fmt.Errorf("acquiring lock: %w", err)
	}

	lock := lockFromRow(row)
	m.logger.Info("draft lock acquired",
		"category", model.EventCategoryLock,
		"page_id", pageID,
		"locked_by", lock.LockedBy,
		"expires_at", lock.ExpiresAt,
	)
	return lock, nil
}

// conflict builds the error for a refused acquire from the current holder.
func (m *LockManager) conflict(ctx context.Context, pageID string) error {
	row, err := m.queries.GetDraftLock(ctx, pageID)
	if err != nil {
		// The holder released between our upsert and this read.
		return &model.LockConflictError{}
	}
	return &model.LockConflictError{HeldBy: row.LockedBy, ExpiresAt: row.ExpiresAt.UTC()}
}

// Release removes actor's lock. Releasing a missing or expired lock
// succeeds; releasing another user's active lock is PermissionDenied.
func (m *LockManager) Release(ctx context.Context, actor model.Actor, pageID string) error {
	if err := m.checkPage(ctx, actor, pageID); err != nil {
		return err
	}

	now := m.clock()
	n, err := m.queries.ReleaseDraftLock(ctx, store.ReleaseDraftLockParams{
		PageID:   pageID,
		LockedBy: actor.UserID,
		Now:      now,
	})
	if err != nil {
		return fmt.Errorf("releasing lock: %w", err)
	}
	if n > 0 {
		m.logger.Info("draft lock released", "category", model.EventCategoryLock, "page_id", pageID, "actor", actor.UserID)
		return nil
	}

	row, err := m.queries.GetDraftLock(ctx, pageID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("loading lock: %w", err)
	}
	if lockFromRow(row).IsActive(now) && row.LockedBy != actor.UserID {
		return fmt.Errorf("lock held by %s: %w", row.LockedBy, model.ErrPermissionDenied)
	}
	return nil
}

// Current returns the page's active lock, or ErrNotFound when there is none.
func (m *LockManager) Current(ctx context.Context, actor model.Actor, pageID string) (*model.DraftLock, error) {
	if err := m.checkPage(ctx, actor, pageID); err != nil {
		return nil, err
	}
	return m.active(ctx, pageID)
}

// EnsureWritable reports a *model.LockConflictError when someone other than
// actor holds an active lock. Callers that enforce locking use it before
// saving a version.
func (m *LockManager) EnsureWritable(ctx context.Context, actor model.Actor, pageID string) error {
	lock, err := m.active(ctx, pageID)
	if errors.Is(err, model.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if lock.LockedBy != actor.UserID {
		return &model.LockConflictError{HeldBy: lock.LockedBy, ExpiresAt: lock.ExpiresAt}
	}
	return nil
}

// PurgeExpired deletes inert lock rows. Liveness never depends on it.
func (m *LockManager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.queries.DeleteExpiredDraftLocks(ctx, m.clock())
	if err != nil {
		return 0, fmt.Errorf("purging expired locks: %w", err)
	}
	if n > 0 {
		m.logger.Debug("expired draft locks purged", "category", model.EventCategoryLock, "count", n)
	}
	return n, nil
}

func (m *LockManager) active(ctx context.Context, pageID string) (*model.DraftLock, error) {
	row, err := m.queries.GetDraftLock(ctx, pageID)
	if err != nil {
		return nil, notFound(err, "loading lock")
	}
	lock := lockFromRow(row)
	if !lock.IsActive(m.clock()) {
		return nil, fmt.Errorf("loading lock: %w", model.ErrNotFound)
	}
	return lock, nil
}

func (m *LockManager) checkPage(ctx context.Context, actor model.Actor, pageID string) error {
	if actor.IsZero() {
		return model.ErrPermissionDenied
	}
	page, err := m.queries.GetPage(ctx, pageID)
	if err != nil {
		return notFound(err, "loading page")
	}
	if !actor.CanManage(page.OwnerID) {
		return fmt.Errorf("loading page: %w", model.ErrNotFound)
	}
	return nil
}
