// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// testDB creates a temporary test database.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "ocb-test-*.db")
	if err != nil {
		t.Fatalf("creating temp file: %v", err)
	}
	dbPath := f.Name()
	_ = f.Close()

	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
	}

	return db, cleanup
}

func createTestPage(t *testing.T, q *Queries, owner, slug string) Page {
	t.Helper()
	now := time.Now().UTC()
	page, err := q.CreatePage(context.Background(), CreatePageParams{
		ID:        uuid.NewString(),
		OwnerID:   owner,
		Title:     "Page " + slug,
		Slug:      slug,
		Tags:      "[]",
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("CreatePage: %v", err)
	}
	return page
}

func createTestVersion(t *testing.T, q *Queries, pageID string) PageVersion {
	t.Helper()
	now := time.Now().UTC()
	v, err := q.CreatePageVersion(context.Background(), CreatePageVersionParams{
		ID:            uuid.NewString(),
		PageID:        pageID,
		CreatedBy:     sql.NullString{String: "u1", Valid: true},
		Title:         "v",
		ComponentTree: `{"root":"root"}`,
		Metadata:      "{}",
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		t.Fatalf("CreatePageVersion: %v", err)
	}
	return v
}

func TestDSN_PragmasPerConnection(t *testing.T) {
	got := dsn("/tmp/x.db", DefaultDBConfig())
	for _, want := range []string{"file:/tmp/x.db?", "_txlock=immediate", "_time_format=sqlite", "foreign_keys%281%29", "journal_mode%28WAL%29"} {
		if !strings.Contains(got, want) {
			t.Errorf("dsn %q missing %q", got, want)
		}
	}
}

func TestForeignKeysEnabledOnEveryConnection(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	conns := make([]*sql.Conn, 3)
	for i := range conns {
		c, err := db.Conn(ctx)
		if err != nil {
			t.Fatalf("Conn: %v", err)
		}
		conns[i] = c
	}
	for i, c := range conns {
		var fk int
		if err := c.QueryRowContext(ctx, "PRAGMA foreign_keys").Scan(&fk); err != nil {
			t.Fatalf("PRAGMA foreign_keys: %v", err)
		}
		if fk != 1 {
			t.Errorf("connection %d: foreign_keys = %d, want 1", i, fk)
		}
		_ = c.Close()
	}
}

func TestCreateAndGetPage(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)

	created := createTestPage(t, q, "owner-1", "landing")
	if created.Status != "draft" {
		t.Errorf("Status = %q, want draft", created.Status)
	}
	if created.IsPublic {
		t.Error("new page should not be public")
	}
	if created.CurrentVersionID.Valid {
		t.Error("new page should have no current version")
	}

	found, err := q.GetPageBySlug(ctx, "landing")
	if err != nil {
		t.Fatalf("GetPageBySlug: %v", err)
	}
	if found.ID != created.ID {
		t.Errorf("ID = %q, want %q", found.ID, created.ID)
	}
	if !found.CreatedAt.Equal(created.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", found.CreatedAt, created.CreatedAt)
	}
}

func TestGetPage_NotFound(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	_, err := New(db).GetPage(context.Background(), "missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestCreatePage_DuplicateSlug(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	q := New(db)
	createTestPage(t, q, "owner-1", "dup")

	now := time.Now().UTC()
	_, err := q.CreatePage(context.Background(), CreatePageParams{
		ID: uuid.NewString(), OwnerID: "owner-2", Title: "x", Slug: "dup", Tags: "[]",
		CreatedAt: now, UpdatedAt: now,
	})
	if err == nil {
		t.Fatal("expected unique constraint error")
	}
}

func TestCreatePageVersion_Numbering(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	page := createTestPage(t, q, "owner-1", "numbered")
	other := createTestPage(t, q, "owner-1", "other")

	for want := int64(1); want <= 3; want++ {
		v := createTestVersion(t, q, page.ID)
		if v.Version != want {
			t.Errorf("Version = %d, want %d", v.Version, want)
		}
	}

	if v := createTestVersion(t, q, other.ID); v.Version != 1 {
		t.Errorf("numbering should be per page, got %d", v.Version)
	}

	versions, err := q.ListPageVersions(ctx, page.ID)
	if err != nil {
		t.Fatalf("ListPageVersions: %v", err)
	}
	if len(versions) != 3 {
		t.Fatalf("len(versions) = %d, want 3", len(versions))
	}
	for i, want := range []int64{3, 2, 1} {
		if versions[i].Version != want {
			t.Errorf("versions[%d].Version = %d, want %d", i, versions[i].Version, want)
		}
	}
}

func TestGetPageVersionForPage_WrongPage(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	a := createTestPage(t, q, "owner-1", "a")
	b := createTestPage(t, q, "owner-1", "b")
	v := createTestVersion(t, q, a.ID)

	_, err := q.GetPageVersionForPage(ctx, GetPageVersionForPageParams{ID: v.ID, PageID: b.ID})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("expected sql.ErrNoRows for foreign version, got %v", err)
	}
}

func TestTouchPage_SkipsDeleted(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	page := createTestPage(t, q, "owner-1", "touch")
	now := time.Now().UTC()

	n, err := q.TouchPage(ctx, TouchPageParams{ID: page.ID, UpdatedAt: now})
	if err != nil || n != 1 {
		t.Fatalf("TouchPage = %d, %v; want 1", n, err)
	}

	if _, err := q.SoftDeletePage(ctx, SoftDeletePageParams{
		ID: page.ID, DeletedAt: sql.NullTime{Time: now, Valid: true}, UpdatedAt: now,
	}); err != nil {
		t.Fatalf("SoftDeletePage: %v", err)
	}

	n, err = q.TouchPage(ctx, TouchPageParams{ID: page.ID, UpdatedAt: now})
	if err != nil || n != 0 {
		t.Errorf("TouchPage on deleted page = %d, %v; want 0", n, err)
	}
	if _, err := q.GetPage(ctx, page.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("deleted page should not be returned, got %v", err)
	}
}

func TestAcquireDraftLock(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	page := createTestPage(t, q, "owner-1", "locked")
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	lock, err := q.AcquireDraftLock(ctx, AcquireDraftLockParams{
		ID: uuid.NewString(), PageID: page.ID, LockedBy: "alice", ExpiresAt: now.Add(5 * time.Minute), Now: now,
	})
	if err != nil {
		t.Fatalf("AcquireDraftLock: %v", err)
	}
	if lock.LockedBy != "alice" {
		t.Errorf("LockedBy = %q, want alice", lock.LockedBy)
	}

	// Another user while active
	_, err = q.AcquireDraftLock(ctx, AcquireDraftLockParams{
		ID: uuid.NewString(), PageID: page.ID, LockedBy: "bob", ExpiresAt: now.Add(10 * time.Minute), Now: now.Add(time.Minute),
	})
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows for contended lock, got %v", err)
	}

	// Same user renews
	renewed, err := q.AcquireDraftLock(ctx, AcquireDraftLockParams{
		ID: uuid.NewString(), PageID: page.ID, LockedBy: "alice", ExpiresAt: now.Add(20 * time.Minute), Now: now.Add(2 * time.Minute),
	})
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if !renewed.ExpiresAt.Equal(now.Add(20 * time.Minute)) {
		t.Errorf("ExpiresAt = %v, want %v", renewed.ExpiresAt, now.Add(20*time.Minute))
	}
	if renewed.ID != lock.ID {
		t.Errorf("renewal should keep the row id")
	}

	// Takeover after expiry
	takeover, err := q.AcquireDraftLock(ctx, AcquireDraftLockParams{
		ID: uuid.NewString(), PageID: page.ID, LockedBy: "bob", ExpiresAt: now.Add(time.Hour), Now: now.Add(21 * time.Minute),
	})
	if err != nil {
		t.Fatalf("takeover: %v", err)
	}
	if takeover.LockedBy != "bob" {
		t.Errorf("LockedBy = %q, want bob", takeover.LockedBy)
	}
}

func TestReleaseDraftLock(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	page := createTestPage(t, q, "owner-1", "release")
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	if _, err := q.AcquireDraftLock(ctx, AcquireDraftLockParams{
		ID: uuid.NewString(), PageID: page.ID, LockedBy: "alice", ExpiresAt: now.Add(time.Minute), Now: now,
	}); err != nil {
		t.Fatalf("AcquireDraftLock: %v", err)
	}

	n, err := q.ReleaseDraftLock(ctx, ReleaseDraftLockParams{PageID: page.ID, LockedBy: "bob", Now: now})
	if err != nil || n != 0 {
		t.Fatalf("non-holder release = %d, %v; want 0", n, err)
	}

	n, err = q.ReleaseDraftLock(ctx, ReleaseDraftLockParams{PageID: page.ID, LockedBy: "alice", Now: now})
	if err != nil || n != 1 {
		t.Fatalf("holder release = %d, %v; want 1", n, err)
	}

	if _, err := q.GetDraftLock(ctx, page.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("lock should be gone, got %v", err)
	}
}

func TestDeleteExpiredDraftLocks(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	for i, ttl := range []time.Duration{-time.Minute, time.Minute} {
		page := createTestPage(t, q, "owner-1", "p"+string(rune('a'+i)))
		if _, err := q.AcquireDraftLock(ctx, AcquireDraftLockParams{
			ID: uuid.NewString(), PageID: page.ID, LockedBy: "alice", ExpiresAt: now.Add(ttl), Now: now.Add(-time.Hour),
		}); err != nil {
			t.Fatalf("AcquireDraftLock: %v", err)
		}
	}

	n, err := q.DeleteExpiredDraftLocks(ctx, now)
	if err != nil {
		t.Fatalf("DeleteExpiredDraftLocks: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted = %d, want 1", n)
	}
}

func TestScheduleAndListDue(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	due := createTestPage(t, q, "owner-1", "due")
	later := createTestPage(t, q, "owner-1", "later")
	dueVersion := createTestVersion(t, q, due.ID)
	laterVersion := createTestVersion(t, q, later.ID)

	for _, tc := range []struct {
		page Page
		ver  PageVersion
		at   time.Time
	}{
		{due, dueVersion, now.Add(-time.Second)},
		{later, laterVersion, now.Add(time.Hour)},
	} {
		if _, err := q.SetPageSchedule(ctx, SetPageScheduleParams{
			ID:                 tc.page.ID,
			ScheduledAt:        sql.NullTime{Time: tc.at, Valid: true},
			ScheduledVersionID: sql.NullString{String: tc.ver.ID, Valid: true},
			UpdatedAt:          now,
		}); err != nil {
			t.Fatalf("SetPageSchedule: %v", err)
		}
	}

	pages, err := q.ListDueScheduledPages(ctx, now)
	if err != nil {
		t.Fatalf("ListDueScheduledPages: %v", err)
	}
	if len(pages) != 1 || pages[0].ID != due.ID {
		t.Fatalf("due pages = %+v, want only %q", pages, due.ID)
	}

	published, err := q.MarkPagePublished(ctx, MarkPagePublishedParams{
		ID:                 due.ID,
		PublishedVersionID: sql.NullString{String: dueVersion.ID, Valid: true},
		PublishedAt:        sql.NullTime{Time: now, Valid: true},
		UpdatedAt:          now,
	})
	if err != nil {
		t.Fatalf("MarkPagePublished: %v", err)
	}
	if published.ScheduledAt.Valid || published.ScheduledVersionID.Valid {
		t.Error("publishing should clear the schedule")
	}
	if published.Status != "published" || !published.IsPublic {
		t.Errorf("status = %q public = %v", published.Status, published.IsPublic)
	}
}

func TestClaimDueSchedule(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	page := createTestPage(t, q, "owner-1", "claimed")
	version := createTestVersion(t, q, page.ID)
	at := sql.NullTime{Time: now.Add(time.Minute), Valid: true}
	if _, err := q.SetPageSchedule(ctx, SetPageScheduleParams{
		ID:                 page.ID,
		ScheduledAt:        at,
		ScheduledVersionID: sql.NullString{String: version.ID, Valid: true},
		UpdatedAt:          now,
	}); err != nil {
		t.Fatalf("SetPageSchedule: %v", err)
	}

	params := ClaimDueScheduleParams{UpdatedAt: now, ID: page.ID, Now: now}
	if _, err := q.ClaimDueSchedule(ctx, params); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("claim before due: err = %v, want sql.ErrNoRows", err)
	}

	params.Now = now.Add(time.Minute)
	claimed, err := q.ClaimDueSchedule(ctx, params)
	if err != nil {
		t.Fatalf("ClaimDueSchedule: %v", err)
	}
	if claimed.ScheduledAt.Valid || claimed.ScheduledVersionID.Valid {
		t.Error("claiming should clear the schedule")
	}
	if _, err := q.ClaimDueSchedule(ctx, params); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("second claim: err = %v, want sql.ErrNoRows", err)
	}

	restore := RestoreScheduleParams{
		ScheduledAt:        at,
		ScheduledVersionID: sql.NullString{String: version.ID, Valid: true},
		ID:                 page.ID,
	}
	n, err := q.RestoreSchedule(ctx, restore)
	if err != nil {
		t.Fatalf("RestoreSchedule: %v", err)
	}
	if n != 1 {
		t.Errorf("restored = %d, want 1", n)
	}
	if n, _ := q.RestoreSchedule(ctx, restore); n != 0 {
		t.Errorf("restore over an existing schedule affected %d rows", n)
	}
}

func TestEvents(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	old := time.Now().UTC().Add(-48 * time.Hour)
	recent := time.Now().UTC()

	for _, at := range []time.Time{old, recent} {
		if _, err := q.CreateEvent(ctx, CreateEventParams{
			Level: "warning", Category: "lock", Message: "m", Metadata: "{}", CreatedAt: at,
		}); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	n, err := q.DeleteEventsBefore(ctx, recent.Add(-24*time.Hour))
	if err != nil || n != 1 {
		t.Fatalf("DeleteEventsBefore = %d, %v; want 1", n, err)
	}

	events, err := q.ListEvents(ctx, ListEventsParams{Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(events) != 1 {
		t.Errorf("len(events) = %d, want 1", len(events))
	}
}
