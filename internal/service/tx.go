// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/olegiv/ocms-builder/internal/model"
	"github.com/olegiv/ocms-builder/internal/store"
)

// Retry budget for a single transaction. SQLite serializes writers with
// _txlock=immediate, so contention shows up as BUSY after busy_timeout.
const (
	txMaxRetries  = 5
	txBaseBackoff = 10 * time.Millisecond
)

// inTx runs fn inside a write transaction and retries the whole unit when
// SQLite reports contention or a uniqueness race. fn must be safe to rerun.
func inTx(ctx context.Context, db *sql.DB, fn func(q *store.Queries) error) error {
	backoff := retry.WithMaxRetries(txMaxRetries, retry.NewExponential(txBaseBackoff))

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := runTx(ctx, db, fn)
		if err != nil && isTransient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

func runTx(ctx context.Context, db *sql.DB, fn func(q *store.Queries) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(store.New(db).WithTx(tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// isTransient reports SQLite errors that a fresh attempt can clear.
func isTransient(err error) bool {
	var sqliteErr *sqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}

	code := sqliteErr.Code()
	switch code & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return code == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// notFound maps sql.ErrNoRows to model.ErrNotFound and wraps anything else.
func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, model.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", what, err)
}
