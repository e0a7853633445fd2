// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/ocms-builder/internal/model"
	"github.com/olegiv/ocms-builder/internal/store"
	"github.com/olegiv/ocms-builder/internal/util"
)

// fallbackSlug is used when a title has no sluggable characters.
const fallbackSlug = "page"

// maxSlugAttempts bounds the base, base-2, base-3, ... search.
const maxSlugAttempts = 1000

// Pagination defaults for ListPages.
const (
	DefaultPageLimit = 50
	MaxPageLimit     = 200
)

// Invalidator drops cached public views of a page.
type Invalidator interface {
	Invalidate(ctx context.Context, slug string)
}

// VersionInput holds the content fields of a new version.
type VersionInput struct {
	Title         string          `json:"title"`
	Notes         string          `json:"notes"`
	ComponentTree json.RawMessage `json:"component_tree"`
	Metadata      json.RawMessage `json:"metadata"`
}

// CreatePageInput is the input of CreatePage. Version seeds version 1.
type CreatePageInput struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Tags        []string     `json:"tags"`
	Version     VersionInput `json:"initial_version"`
}

// UpdatePageInput changes page fields. Nil fields are left alone; the slug never changes.
type UpdatePageInput struct {
	Title       *string   `json:"title"`
	Description *string   `json:"description"`
	Tags        *[]string `json:"tags"`
}

// PageList is one page of ListPages results.
type PageList struct {
	Pages  []model.Page `json:"pages"`
	Total  int64        `json:"total"`
	Limit  int64        `json:"limit"`
	Offset int64        `json:"offset"`
}

// PageService manages page records.
type PageService struct {
	base
	public Invalidator
}

// NewPageService creates a PageService. public may be nil.
func NewPageService(db *sql.DB, public Invalidator, opts ...Option) *PageService {
	return &PageService{base: newBase(db, opts), public: public}
}

// CreatePage creates a page owned by actor together with its version 1.
// The slug is derived from the title and made unique with a numeric suffix.
func (s *PageService) CreatePage(ctx context.Context, actor model.Actor, in CreatePageInput) (*model.Page, *model.PageVersion, error) {
	if actor.IsZero() {
		return nil, nil, model.ErrPermissionDenied
	}

	title, err := model.ValidateTitle("title", in.Title)
	if err != nil {
		return nil, nil, err
	}
	tags, err := model.NormalizeTags(in.Tags)
	if err != nil {
		return nil, nil, err
	}
	content, err := normalizeVersionInput(in.Version, title)
	if err != nil {
		return nil, nil, err
	}

	slugBase := util.TruncateSlug(util.Slugify(title), model.MaxSlugLength)
	if slugBase == "" {
		slugBase = fallbackSlug
	}

	var (
		pageRow    store.Page
		versionRow store.PageVersion
	)
	err = inTx(ctx, s.db, func(q *store.Queries) error {
		now := s.clock()

		slug, err := uniqueSlug(ctx, q, slugBase)
		if err != nil {
			return err
		}

		pageRow, err = q.CreatePage(ctx, store.CreatePageParams{
			ID:          uuid.NewString(),
			OwnerID:     actor.UserID,
			Title:       title,
			Slug:        slug,
			Description: strings.TrimSpace(in.Description),
			Tags:        encodeTags(tags),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return fmt.Errorf("inserting page: %w", err)
		}

		versionRow, err = insertVersion(ctx, q, pageRow.ID, actor, content, now)
		if err != nil {
			return err
		}

		pageRow.CurrentVersionID = util.NullStringFromValue(versionRow.ID)
		return q.SetCurrentVersion(ctx, store.SetCurrentVersionParams{
			CurrentVersionID: pageRow.CurrentVersionID,
			Status:           string(model.PageStatusDraft),
			UpdatedAt:        now,
			ID:               pageRow.ID,
		})
	})
	if err != nil {
		return nil, nil, err
	}

	page, err := pageFromRow(pageRow)
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("page created",
		"category", model.EventCategoryPage,
		"page_id", page.ID,
		"slug", page.Slug,
		"owner_id", page.OwnerID,
	)

	return page, versionFromRow(versionRow), nil
}

// uniqueSlug returns the first free slug among base, base-2, base-3, ...
// Soft-deleted pages keep their slug reserved.
func uniqueSlug(ctx context.Context, q *store.Queries, base string) (string, error) {
	for n := 1; n <= maxSlugAttempts; n++ {
		candidate := util.SlugCandidate(base, n, model.MaxSlugLength)
		count, err := q.SlugExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking slug: %w", err)
		}
		if count == 0 {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no free slug for %q after %d attempts: %w", base, maxSlugAttempts, model.ErrConflict)
}

// GetPage returns a live page the actor may manage.
func (s *PageService) GetPage(ctx context.Context, actor model.Actor, pageID string) (*model.Page, error) {
	row, err := s.queries.GetPage(ctx, pageID)
	if err != nil {
		return nil, notFound(err, "loading page")
	}
	if !actor.CanManage(row.OwnerID) {
		return nil, fmt.Errorf("loading page: %w", model.ErrNotFound)
	}
	return pageFromRow(row)
}

// ListPages lists the actor's live pages ordered by title. Staff see every page.
func (s *PageService) ListPages(ctx context.Context, actor model.Actor, limit, offset int64) (*PageList, error) {
	if actor.IsZero() {
		return nil, model.ErrPermissionDenied
	}
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	var (
		rows  []store.Page
		total int64
		err   error
	)
	if actor.Staff {
		rows, err = s.queries.ListAllPages(ctx, store.ListAllPagesParams{Limit: limit, Offset: offset})
		if err == nil {
			total, err = s.queries.CountAllPages(ctx)
		}
	} else {
		rows, err = s.queries.ListPagesByOwner(ctx, store.ListPagesByOwnerParams{
			OwnerID: actor.UserID,
			Limit:   limit,
			Offset:  offset,
		})
		if err == nil {
			total, err = s.queries.CountPagesByOwner(ctx, actor.UserID)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("listing pages: %w", err)
	}

	pages, err := pagesFromRows(rows)
	if err != nil {
		return nil, err
	}
	return &PageList{Pages: pages, Total: total, Limit: limit, Offset: offset}, nil
}

// UpdatePage changes title, description or tags.
func (s *PageService) UpdatePage(ctx context.Context, actor model.Actor, pageID string, in UpdatePageInput) (*model.Page, error) {
	var row store.Page
	err := inTx(ctx, s.db, func(q *store.Queries) error {
		current, err := lockPage(ctx, q, actor, pageID, s.clock())
		if err != nil {
			return err
		}

		params := store.UpdatePageParams{
			Title:       current.Title,
			Description: current.Description,
			Tags:        current.Tags,
			UpdatedAt:   s.clock(),
			ID:          pageID,
		}
		if in.Title != nil {
			if params.Title, err = model.ValidateTitle("title", *in.Title); err != nil {
				return err
			}
		}
		if in.Description != nil {
			params.Description = strings.TrimSpace(*in.Description)
		}
		if in.Tags != nil {
			tags, err := model.NormalizeTags(*in.Tags)
			if err != nil {
				return err
			}
			params.Tags = encodeTags(tags)
		}

		row, err = q.UpdatePage(ctx, params)
		return notFoundOrNil(err, "updating page")
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, row.Slug)
	return pageFromRow(row)
}

// DeletePage soft-deletes a page. Its slug stays reserved.
func (s *PageService) DeletePage(ctx context.Context, actor model.Actor, pageID string) error {
	var slug string
	err := inTx(ctx, s.db, func(q *store.Queries) error {
		now := s.clock()
		current, err := lockPage(ctx, q, actor, pageID, now)
		if err != nil {
			return err
		}
		slug = current.Slug

		n, err := q.SoftDeletePage(ctx, store.SoftDeletePageParams{
			DeletedAt: util.NullTimeFromValue(now),
			UpdatedAt: now,
			ID:        pageID,
		})
		if err != nil {
			return fmt.Errorf("deleting page: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("deleting page: %w", model.ErrNotFound)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, slug)
	s.logger.Info("page deleted", "category", model.EventCategoryPage, "page_id", pageID, "actor", actor.UserID)
	return nil
}

// SubmitForReview moves a draft page to review.
func (s *PageService) SubmitForReview(ctx context.Context, actor model.Actor, pageID string) (*model.Page, error) {
	var row store.Page
	err := inTx(ctx, s.db, func(q *store.Queries) error {
		now := s.clock()
		current, err := lockPage(ctx, q, actor, pageID, now)
		if err != nil {
			return err
		}

		if err := checkTransition(current.Status, model.PageStatusReview); err != nil {
			return err
		}

		if err := q.UpdatePageStatus(ctx, store.UpdatePageStatusParams{
			Status:    string(model.PageStatusReview),
			UpdatedAt: now,
			ID:        pageID,
		}); err != nil {
			return fmt.Errorf("updating status: %w", err)
		}

		row, err = q.GetPage(ctx, pageID)
		return notFoundOrNil(err, "reloading page")
	})
	if err != nil {
		return nil, err
	}

	return pageFromRow(row)
}

func (s *PageService) invalidate(ctx context.Context, slug string) {
	if s.public != nil && slug != "" {
		s.public.Invalidate(ctx, slug)
	}
}

// lockPage takes the write lock on a live page, then loads it and checks
// that actor may manage it. Pages of other owners are reported as missing.
func lockPage(ctx context.Context, q *store.Queries, actor model.Actor, pageID string, now time.Time) (store.Page, error) {
	if actor.IsZero() {
		return store.Page{}, model.ErrPermissionDenied
	}

	n, err := q.TouchPage(ctx, store.TouchPageParams{UpdatedAt: now, ID: pageID})
	if err != nil {
		return store.Page{}, fmt.Errorf("locking page: %w", err)
	}
	if n == 0 {
		return store.Page{}, fmt.Errorf("locking page: %w", model.ErrNotFound)
	}

	row, err := q.GetPage(ctx, pageID)
	if err != nil {
		return store.Page{}, notFound(err, "loading page")
	}
	if !actor.CanManage(row.OwnerID) {
		return store.Page{}, fmt.Errorf("loading page: %w", model.ErrNotFound)
	}
	return row, nil
}

// checkTransition validates a status change against the page state machine.
func checkTransition(from string, to model.PageStatus) error {
	current, err := model.ParsePageStatus(from)
	if err != nil {
		return err
	}
	if !current.CanTransitionTo(to) {
		return model.NewValidationError("status", fmt.Sprintf("cannot move from %s to %s", current, to))
	}
	return nil
}

func notFoundOrNil(err error, what string) error {
	if err == nil {
		return nil
	}
	return notFound(err, what)
}
