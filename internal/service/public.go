// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/olegiv/ocms-builder/internal/cache"
	"github.com/olegiv/ocms-builder/internal/model"
	"github.com/olegiv/ocms-builder/internal/util"
)

const publicCacheKeyPrefix = "public:page:"

// PublicPages serves published pages by slug to anonymous readers.
//
// Snapshots are cached per slug and dropped by Invalidate on publish, update
// and delete. A read that loaded the old snapshot before a publish committed
// can still store it after Invalidate ran; such an entry is served until the
// cache TTL (OCB_PUBLIC_CACHE_TTL) expires it.
type PublicPages struct {
	base
	cache *cache.TypedCache[model.PublicPage]
}

// NewPublicPages creates a PublicPages reader. A nil cacher disables caching.
func NewPublicPages(db *sql.DB, cacher cache.Cacher, ttl time.Duration, opts ...Option) *PublicPages {
	p := &PublicPages{base: newBase(db, opts)}
	if cacher != nil {
		p.cache = cache.NewTypedCache[model.PublicPage](cacher, ttl)
	}
	return p
}

// Get returns the published snapshot of a public page. Missing, deleted,
// private and never-published pages all yield the same ErrNotFound.
func (p *PublicPages) Get(ctx context.Context, slug string) (*model.PublicPage, error) {
	if !util.IsValidSlug(slug) {
		return nil, model.ErrNotFound
	}
	if p.cache == nil {
		return p.load(ctx, slug)
	}
	return p.cache.GetOrSet(ctx, publicCacheKeyPrefix+slug, func() (*model.PublicPage, error) {
		return p.load(ctx, slug)
	})
}

// Invalidate drops the cached view of slug.
func (p *PublicPages) Invalidate(ctx context.Context, slug string) {
	if p.cache == nil {
		return
	}
	if err := p.cache.Delete(ctx, publicCacheKeyPrefix+slug); err != nil {
		p.logger.Warn("public page cache invalidation failed", "category", model.EventCategoryCache, "slug", slug, "error", err)
	}
}

func (p *PublicPages) load(ctx context.Context, slug string) (*model.PublicPage, error) {
	row, err := p.queries.GetPageBySlug(ctx, slug)
	if err != nil {
		return nil, notFound(err, "loading public page")
	}
	if !row.IsPublic || !row.PublishedVersionID.Valid {
		return nil, model.ErrNotFound
	}

	version, err := p.queries.GetPageVersion(ctx, row.PublishedVersionID.String)
	if err != nil {
		return nil, notFound(err, "loading published version")
	}
	if version.PageID != row.ID {
		return nil, model.ErrNotFound
	}

	html, err := util.RenderMarkdown(row.Description)
	if err != nil {
		return nil, fmt.Errorf("rendering description: %w", err)
	}

	return &model.PublicPage{
		ID:              row.ID,
		Title:           row.Title,
		Slug:            row.Slug,
		Description:     row.Description,
		DescriptionHTML: html,
		Tags:            decodeTags(row.Tags),
		PublishedAt:     util.TimePtrFromNull(row.PublishedAt),
		Version:         *versionFromRow(version),
	}, nil
}
