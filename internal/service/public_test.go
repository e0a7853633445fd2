// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/ocms-builder/internal/cache"
	"github.com/olegiv/ocms-builder/internal/model"
)

func TestPublicPages_HiddenUntilPublished(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	page, _ := env.createPage(t, alice, "Coming Soon")

	_, err := env.public.Get(ctx, page.Slug)
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = env.public.Get(ctx, "no-such-page")
	assert.ErrorIs(t, err, model.ErrNotFound)

	_, err = env.public.Get(ctx, "../Bad Slug")
	assert.ErrorIs(t, err, model.ErrNotFound)

	has, err := env.cache.Has(ctx, publicCacheKeyPrefix+page.Slug)
	require.NoError(t, err)
	assert.False(t, has, "misses are not cached")
}

func TestPublicPages_ServesPublishedSnapshot(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	page, v1, err := env.pages.CreatePage(ctx, alice, CreatePageInput{
		Title:       "Spring Sale",
		Description: "Save **big** this week",
		Tags:        []string{"sale"},
		Version:     VersionInput{ComponentTree: json.RawMessage(`{"root":"r1"}`)},
	})
	require.NoError(t, err)

	_, err = env.publisher.Publish(ctx, alice, page.ID, "")
	require.NoError(t, err)

	got, err := env.public.Get(ctx, "spring-sale")
	require.NoError(t, err)
	assert.Equal(t, page.ID, got.ID)
	assert.Equal(t, "Spring Sale", got.Title)
	assert.Equal(t, []string{"sale"}, got.Tags)
	assert.Contains(t, got.DescriptionHTML, "<strong>big</strong>")
	assert.Equal(t, v1.ID, got.Version.ID)
	assert.JSONEq(t, `{"root":"r1"}`, string(got.Version.ComponentTree))
	require.NotNil(t, got.PublishedAt)

	has, err := env.cache.Has(ctx, publicCacheKeyPrefix+"spring-sale")
	require.NoError(t, err)
	assert.True(t, has)
}

func TestPublicPages_DraftEditsStayPrivate(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	page, v1 := env.createPage(t, alice, "Stable")

	_, err := env.publisher.Publish(ctx, alice, page.ID, "")
	require.NoError(t, err)
	newVersion(t, env, alice, page.ID, `{"root":"draft"}`)

	got, err := env.public.Get(ctx, page.Slug)
	require.NoError(t, err)
	assert.Equal(t, v1.ID, got.Version.ID)
	assert.JSONEq(t, `{"root":"r"}`, string(got.Version.ComponentTree))
}

func TestPublicPages_RepublishInvalidatesCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	page, _ := env.createPage(t, alice, "Cached")

	_, err := env.publisher.Publish(ctx, alice, page.ID, "")
	require.NoError(t, err)
	_, err = env.public.Get(ctx, page.Slug)
	require.NoError(t, err)

	v2 := newVersion(t, env, alice, page.ID, `{"root":"r2"}`)
	env.clock.Advance(time.Minute)
	_, err = env.publisher.Publish(ctx, alice, page.ID, v2.ID)
	require.NoError(t, err)

	got, err := env.public.Get(ctx, page.Slug)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, got.Version.ID)
}

// A read that loaded the old snapshot can store it after a publish has
// invalidated the key. The stale entry lives at most one TTL.
func TestPublicPages_LateStoreExpiresWithTTL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	page, v1 := env.createPage(t, alice, "Racy")

	mem := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Hour})
	t.Cleanup(func() { _ = mem.Close() })
	const ttl = 100 * time.Millisecond
	reader := NewPublicPages(env.db, mem, ttl, WithClock(env.clock.Now))
	key := publicCacheKeyPrefix + page.Slug

	_, err := env.publisher.Publish(ctx, alice, page.ID, "")
	require.NoError(t, err)
	_, err = reader.Get(ctx, page.Slug)
	require.NoError(t, err)
	stale, err := mem.Get(ctx, key)
	require.NoError(t, err)

	v2 := newVersion(t, env, alice, page.ID, `{"root":"r2"}`)
	env.clock.Advance(time.Minute)
	_, err = env.publisher.Publish(ctx, alice, page.ID, v2.ID)
	require.NoError(t, err)
	reader.Invalidate(ctx, page.Slug)

	// The racing reader's write lands after the invalidation.
	require.NoError(t, mem.Set(ctx, key, stale, ttl))

	got, err := reader.Get(ctx, page.Slug)
	require.NoError(t, err)
	assert.Equal(t, v1.ID, got.Version.ID)

	assert.Eventually(t, func() bool {
		got, err := reader.Get(ctx, page.Slug)
		return err == nil && got.Version.ID == v2.ID
	}, 2*time.Second, 20*time.Millisecond)
}

func TestPublicPages_UpdateInvalidatesCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	page, _ := env.createPage(t, alice, "Renamed")

	_, err := env.publisher.Publish(ctx, alice, page.ID, "")
	require.NoError(t, err)
	_, err = env.public.Get(ctx, page.Slug)
	require.NoError(t, err)

	title := "Renamed Again"
	_, err = env.pages.UpdatePage(ctx, alice, page.ID, UpdatePageInput{Title: &title})
	require.NoError(t, err)

	got, err := env.public.Get(ctx, page.Slug)
	require.NoError(t, err)
	assert.Equal(t, "Renamed Again", got.Title)
	assert.Equal(t, "renamed", got.Slug)
}

func TestPublicPages_DeletedPageDisappears(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	page, _ := env.createPage(t, alice, "Ephemeral")

	_, err := env.publisher.Publish(ctx, alice, page.ID, "")
	require.NoError(t, err)
	_, err = env.public.Get(ctx, page.Slug)
	require.NoError(t, err)

	require.NoError(t, env.pages.DeletePage(ctx, alice, page.ID))

	_, err = env.public.Get(ctx, page.Slug)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestPublicPages_WithoutCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	page, _ := env.createPage(t, alice, "Uncached")
	_, err := env.publisher.Publish(ctx, alice, page.ID, "")
	require.NoError(t, err)

	reader := NewPublicPages(env.db, nil, 0, WithClock(env.clock.Now))
	got, err := reader.Get(ctx, page.Slug)
	require.NoError(t, err)
	assert.Equal(t, page.ID, got.ID)
	assert.Empty(t, got.DescriptionHTML)
}
