// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-builder/internal/cache"
	"github.com/olegiv/ocms-builder/internal/model"
	"github.com/olegiv/ocms-builder/internal/testutil"
)

var (
	alice = model.Actor{UserID: "alice"}
	bob   = model.Actor{UserID: "bob"}
	staff = model.Actor{UserID: "moderator", Staff: true}
)

// testEnv wires every service against one migrated database and a fake clock.
type testEnv struct {
	db        *sql.DB
	clock     *testutil.Clock
	cache     *cache.MemoryCache
	pages     *PageService
	versions  *VersionStore
	locks     *LockManager
	publisher *Publisher
	public    *PublicPages
	events    *EventService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, cleanup := testutil.TestDB(t)
	t.Cleanup(cleanup)

	clock := testutil.NewClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	opts := []Option{WithClock(clock.Now), WithLogger(testutil.DiscardLogger())}

	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Hour})
	t.Cleanup(func() { _ = mem.Close() })

	public := NewPublicPages(db, mem, time.Hour, opts...)
	return &testEnv{
		db:        db,
		clock:     clock,
		cache:     mem,
		pages:     NewPageService(db, public, opts...),
		versions:  NewVersionStore(db, opts...),
		locks:     NewLockManager(db, time.Minute, time.Hour, opts...),
		publisher: NewPublisher(db, public, opts...),
		public:    public,
		events:    NewEventService(db, opts...),
	}
}

func (e *testEnv) createPage(t *testing.T, actor model.Actor, title string) (*model.Page, *model.PageVersion) {
	t.Helper()
	page, version, err := e.pages.CreatePage(context.Background(), actor, CreatePageInput{
		Title:   title,
		Version: VersionInput{ComponentTree: json.RawMessage(`{"root":"r"}`)},
	})
	require.NoError(t, err)
	return page, version
}
