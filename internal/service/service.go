// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements the page lifecycle: page creation, versioning,
// draft locks, publishing and public reads. Every operation takes an explicit
// model.Actor; nothing is read from ambient request state.
package service

import (
	"database/sql"
	"log/slog"
	"time"

	"github.com/olegiv/ocms-builder/internal/store"
)

// Option configures a service.
type Option func(*base)

// WithLogger sets the logger. A nil logger keeps slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(b *base) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// WithClock replaces time.Now, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(b *base) {
		if now != nil {
			b.now = now
		}
	}
}

// base holds what every service needs.
type base struct {
	db      *sql.DB
	queries *store.Queries
	logger  *slog.Logger
	now     func() time.Time
}

func newBase(db *sql.DB, opts []Option) base {
	b := base{
		db:      db,
		queries: store.New(db),
		logger:  slog.Default(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(&b)
	}
	return b
}

// clock returns the current time in UTC with the precision SQLite keeps.
func (b *base) clock() time.Time {
	return b.now().UTC().Truncate(time.Millisecond)
}
