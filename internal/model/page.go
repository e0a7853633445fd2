// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Field limits for pages and versions.
const (
	MaxTitleLength = 200
	MaxSlugLength  = 220
	MaxTags        = 50
	MaxTagLength   = 64
)

// PageStatus is the lifecycle status of a page.
type PageStatus string

// Page statuses
const (
	PageStatusDraft     PageStatus = "draft"
	PageStatusReview    PageStatus = "review"
	PageStatusPublished PageStatus = "published"
)

// pageTransitions lists the allowed target statuses for every status.
// Every PageStatus must have an entry here.
var pageTransitions = map[PageStatus][]PageStatus{
	PageStatusDraft:     {PageStatusDraft, PageStatusReview, PageStatusPublished},
	PageStatusReview:    {PageStatusDraft, PageStatusPublished},
	PageStatusPublished: {PageStatusDraft, PageStatusPublished},
}

// ParsePageStatus converts a stored or user-supplied value into a PageStatus.
func ParsePageStatus(s string) (PageStatus, error) {
	st := PageStatus(s)
	if !st.Valid() {
		return "", fmt.Errorf("unknown page status %q", s)
	}
	return st, nil
}

// Valid reports whether s is one of the known statuses.
func (s PageStatus) Valid() bool {
	_, ok := pageTransitions[s]
	return ok
}

// CanTransitionTo reports whether a page in status s may move to next.
func (s PageStatus) CanTransitionTo(next PageStatus) bool {
	for _, allowed := range pageTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s PageStatus) String() string {
	return string(s)
}

// Page is a builder page owned by a single user.
type Page struct {
	ID                 string     `json:"id"`
	OwnerID            string     `json:"owner_id"`
	Title              string     `json:"title"`
	Slug               string     `json:"slug"`
	Description        string     `json:"description"`
	Tags               []string   `json:"tags"`
	Status             PageStatus `json:"status"`
	IsPublic           bool       `json:"is_public"`
	CurrentVersionID   string     `json:"current_version_id,omitempty"`
	PublishedVersionID string     `json:"published_version_id,omitempty"`
	PublishedAt        *time.Time `json:"published_at,omitempty"`
	ScheduledAt        *time.Time `json:"scheduled_at,omitempty"`
	ScheduledVersionID string     `json:"scheduled_version_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// IsPublished returns true if the page is published.
func (p *Page) IsPublished() bool {
	return p.Status == PageStatusPublished
}

// IsDraft returns true if the page is a draft.
func (p *Page) IsDraft() bool {
	return p.Status == PageStatusDraft
}

// IsPubliclyVisible reports whether anonymous readers may see the page.
func (p *Page) IsPubliclyVisible() bool {
	return p.IsPublic && p.PublishedVersionID != ""
}

// PageVersion is an immutable snapshot of a page's component tree.
type PageVersion struct {
	ID            string          `json:"id"`
	PageID        string          `json:"page_id"`
	Version       int64           `json:"version"`
	CreatedBy     string          `json:"created_by,omitempty"`
	Title         string          `json:"title"`
	Notes         string          `json:"notes"`
	ComponentTree json.RawMessage `json:"component_tree"`
	Metadata      json.RawMessage `json:"metadata"`
	IsPublished   bool            `json:"is_published"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// DraftLock is an advisory editing lease on a page.
type DraftLock struct {
	PageID    string    `json:"page_id"`
	LockedBy  string    `json:"locked_by"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsActive reports whether the lock is still held at now.
func (l *DraftLock) IsActive(now time.Time) bool {
	return now.Before(l.ExpiresAt)
}

// PublishResult describes a completed publish.
type PublishResult struct {
	PageID      string      `json:"page_id"`
	PublishedAt time.Time   `json:"published_at"`
	Version     PageVersion `json:"version"`
}

// PublicPage is the anonymous view of a published page.
type PublicPage struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Slug            string      `json:"slug"`
	Description     string      `json:"description"`
	DescriptionHTML string      `json:"description_html"`
	Tags            []string    `json:"tags"`
	PublishedAt     *time.Time  `json:"published_at,omitempty"`
	Version         PageVersion `json:"version"`
}
