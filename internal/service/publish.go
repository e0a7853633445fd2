// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/ocms-builder/internal/model"
	"github.com/olegiv/ocms-builder/internal/store"
	"github.com/olegiv/ocms-builder/internal/util"
)

// errSkipPublish rolls back a deferred publish that has nothing to do.
var errSkipPublish = errors.New("publish skipped")

// Publisher promotes a version to the page's published snapshot.
// The version flag and the page pointers are written in one transaction,
// so published_version_id never points at a version with is_published=false.
type Publisher struct {
	base
	public Invalidator
}

// NewPublisher creates a Publisher. public may be nil.
func NewPublisher(db *sql.DB, public Invalidator, opts ...Option) *Publisher {
	return &Publisher{base: newBase(db, opts), public: public}
}

// Publish publishes versionID, or the current version when versionID is empty.
// Re-publishing the same version only refreshes published_at.
func (p *Publisher) Publish(ctx context.Context, actor model.Actor, pageID, versionID string) (*model.PublishResult, error) {
	var (
		result *model.PublishResult
		slug   string
	)
	err := inTx(ctx, p.db, func(q *store.Queries) error {
		now := p.clock()
		page, err := lockPage(ctx, q, actor, pageID, now)
		if err != nil {
			return err
		}
		slug = page.Slug

		target, err := resolveTarget(ctx, q, page, versionID)
		if err != nil {
			return err
		}

		result, err = promote(ctx, q, page, target, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	p.published(ctx, slug, result, actor.UserID)
	return result, nil
}

// PublishAsync is the deferred variant of Publish. It performs the same
// transition but quietly does nothing when the page, or the requested
// version, no longer exists. Only storage failures are returned.
func (p *Publisher) PublishAsync(ctx context.Context, pageID, versionID string) error {
	var (
		result *model.PublishResult
		slug   string
	)
	err := inTx(ctx, p.db, func(q *store.Queries) error {
		now := p.clock()
		page, ok, err := lockLivePage(ctx, q, pageID, now)
		if err != nil {
			return err
		}
		if !ok {
			return errSkipPublish
		}
		slug = page.Slug

		target, err := resolveTarget(ctx, q, page, versionID)
		if isSkippable(err) {
			return errSkipPublish
		}
		if err != nil {
			return err
		}

		result, err = promote(ctx, q, page, target, now)
		return err
	})
	if errors.Is(err, errSkipPublish) {
		p.logger.Debug("deferred publish skipped", "category", model.EventCategoryPublish, "page_id", pageID, "version_id", versionID)
		return nil
	}
	if err != nil {
		return err
	}

	p.published(ctx, slug, result, "")
	return nil
}

// SchedulePublish stores a deferred publish at a future time. An empty
// versionID publishes whatever is current when the schedule fires.
func (p *Publisher) SchedulePublish(ctx context.Context, actor model.Actor, pageID, versionID string, at time.Time) (*model.Page, error) {
	var row store.Page
	err := inTx(ctx, p.db, func(q *store.Queries) error {
		now := p.clock()
		if !at.After(now) {
			return model.NewValidationError("scheduled_at", "must be in the future")
		}

		if _, err := lockPage(ctx, q, actor, pageID, now); err != nil {
			return err
		}

		if versionID != "" {
			if _, err := q.GetPageVersionForPage(ctx, store.GetPageVersionForPageParams{ID: versionID, PageID: pageID}); err != nil {
				return notFound(err, "loading version")
			}
		}

		var err error
		row, err = q.SetPageSchedule(ctx, store.SetPageScheduleParams{
			ScheduledAt:        util.NullTimeFromValue(at),
			ScheduledVersionID: util.NullStringFromValue(versionID),
			UpdatedAt:          now,
			ID:                 pageID,
		})
		return notFoundOrNil(err, "scheduling publish")
	})
	if err != nil {
		return nil, err
	}

	p.logger.Info("publish scheduled",
		"category", model.EventCategoryPublish,
		"page_id", pageID,
		"scheduled_at", at.UTC(),
		"actor", actor.UserID,
	)
	return pageFromRow(row)
}

// CancelSchedule clears a pending deferred publish. It is a no-op when none is set.
func (p *Publisher) CancelSchedule(ctx context.Context, actor model.Actor, pageID string) (*model.Page, error) {
	var row store.Page
	err := inTx(ctx, p.db, func(q *store.Queries) error {
		now := p.clock()
		if _, err := lockPage(ctx, q, actor, pageID, now); err != nil {
			return err
		}
		var err error
		row, err = q.SetPageSchedule(ctx, store.SetPageScheduleParams{UpdatedAt: now, ID: pageID})
		return notFoundOrNil(err, "cancelling schedule")
	})
	if err != nil {
		return nil, err
	}
	return pageFromRow(row)
}

// PublishDue fires every live page's schedule that has come due and returns
// how many were handed to PublishAsync. Each schedule is claimed (cleared)
// first, so a schedule cancelled after the listing is honored and no page
// is published twice. A schedule whose version has gone away is simply
// dropped by PublishAsync. One failing page does not stop the rest.
func (p *Publisher) PublishDue(ctx context.Context) (int, error) {
	due, err := p.queries.ListDueScheduledPages(ctx, p.clock())
	if err != nil {
		return 0, fmt.Errorf("listing due pages: %w", err)
	}

	fired := 0
	var errs []error
	for _, page := range due {
		claimed, ok, err := p.claimSchedule(ctx, page.ID)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if !ok {
			continue
		}

		if err := p.PublishAsync(ctx, page.ID, util.StringFromNull(claimed.ScheduledVersionID)); err != nil {
			p.logger.Error("scheduled publish failed", "category", model.EventCategoryPublish, "page_id", page.ID, "error", err)
			p.restoreSchedule(ctx, claimed)
			errs = append(errs, err)
			continue
		}
		fired++
	}

	if fired > 0 {
		p.logger.Info("scheduled publishes processed", "category", model.EventCategoryPublish, "fired", fired)
	}
	return fired, errors.Join(errs...)
}

// claimSchedule clears a due schedule and returns the page as it was before
// the claim. ok is false when there was nothing left to claim.
func (p *Publisher) claimSchedule(ctx context.Context, pageID string) (store.Page, bool, error) {
	var (
		before store.Page
		ok     bool
	)
	err := inTx(ctx, p.db, func(q *store.Queries) error {
		now := p.clock()
		row, err := q.GetPage(ctx, pageID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("loading page: %w", err)
		}

		_, err = q.ClaimDueSchedule(ctx, store.ClaimDueScheduleParams{UpdatedAt: now, ID: pageID, Now: now})
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("claiming schedule: %w", err)
		}
		before, ok = row, true
		return nil
	})
	return before, ok, err
}

// restoreSchedule puts a claimed schedule back after a failed publish so the
// next run retries it.
func (p *Publisher) restoreSchedule(ctx context.Context, page store.Page) {
	_, err := p.queries.RestoreSchedule(context.WithoutCancel(ctx), store.RestoreScheduleParams{
		ScheduledAt:        page.ScheduledAt,
		ScheduledVersionID: page.ScheduledVersionID,
		ID:                 page.ID,
	})
	if err != nil {
		p.logger.Error("restoring schedule failed", "category", model.EventCategoryPublish, "page_id", page.ID, "error", err)
	}
}

func (p *Publisher) published(ctx context.Context, slug string, result *model.PublishResult, actorID string) {
	if p.public != nil {
		p.public.Invalidate(ctx, slug)
	}
	p.logger.Info("page published",
		"category", model.EventCategoryPublish,
		"page_id", result.PageID,
		"version", result.Version.Version,
		"actor", actorID,
	)
}

// resolveTarget picks the version to publish: versionID when given (it must
// belong to the page), otherwise the page's current version.
func resolveTarget(ctx context.Context, q *store.Queries, page store.Page, versionID string) (store.PageVersion, error) {
	if versionID == "" {
		if !page.CurrentVersionID.Valid {
			return store.PageVersion{}, model.NewValidationError("version_id", "no version to publish")
		}
		versionID = page.CurrentVersionID.String
	}

	row, err := q.GetPageVersionForPage(ctx, store.GetPageVersionForPageParams{ID: versionID, PageID: page.ID})
	if err != nil {
		return store.PageVersion{}, notFound(err, "loading version")
	}
	return row, nil
}

// promote writes the version flag and the page pointers.
func promote(ctx context.Context, q *store.Queries, page store.Page, target store.PageVersion, now time.Time) (*model.PublishResult, error) {
	if err := checkTransition(page.Status, model.PageStatusPublished); err != nil {
		return nil, err
	}

	version, err := q.MarkPageVersionPublished(ctx, store.MarkPageVersionPublishedParams{UpdatedAt: now, ID: target.ID})
	if err != nil {
		return nil, notFound(err, "marking version published")
	}

	if _, err := q.MarkPagePublished(ctx, store.MarkPagePublishedParams{
		PublishedVersionID: util.NullStringFromValue(version.ID),
		PublishedAt:        util.NullTimeFromValue(now),
		UpdatedAt:          now,
		ID:                 page.ID,
	}); err != nil {
		return nil, notFound(err, "marking page published")
	}

	return &model.PublishResult{
		PageID:      page.ID,
		PublishedAt: now,
		Version:     *versionFromRow(version),
	}, nil
}

// lockLivePage is lockPage without an actor. ok is false when the page is
// missing or deleted.
func lockLivePage(ctx context.Context, q *store.Queries, pageID string, now time.Time) (store.Page, bool, error) {
	n, err := q.TouchPage(ctx, store.TouchPageParams{UpdatedAt: now, ID: pageID})
	if err != nil {
		return store.Page{}, false, fmt.Errorf("locking page: %w", err)
	}
	if n == 0 {
		return store.Page{}, false, nil
	}

	row, err := q.GetPage(ctx, pageID)
	if errors.Is(err, sql.ErrNoRows) {
		return store.Page{}, false, nil
	}
	if err != nil {
		return store.Page{}, false, fmt.Errorf("loading page: %w", err)
	}
	return row, true, nil
}

// isSkippable reports errors the deferred paths treat as "nothing to do".
func isSkippable(err error) bool {
	return errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrValidation)
}
