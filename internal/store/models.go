// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"database/sql"
	"time"
)

type Page struct {
	ID                 string         `json:"id"`
	OwnerID            string         `json:"owner_id"`
	Title              string         `json:"title"`
	Slug               string         `json:"slug"`
	Description        string         `json:"description"`
	Tags               string         `json:"tags"`
	Status             string         `json:"status"`
	IsPublic           bool           `json:"is_public"`
	CurrentVersionID   sql.NullString `json:"current_version_id"`
	PublishedVersionID sql.NullString `json:"published_version_id"`
	PublishedAt        sql.NullTime   `json:"published_at"`
	ScheduledAt        sql.NullTime   `json:"scheduled_at"`
	ScheduledVersionID sql.NullString `json:"scheduled_version_id"`
	IsDeleted          bool           `json:"is_deleted"`
	DeletedAt          sql.NullTime   `json:"deleted_at"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

type PageVersion struct {
	ID            string         `json:"id"`
	PageID        string         `json:"page_id"`
	Version       int64          `json:"version"`
	CreatedBy     sql.NullString `json:"created_by"`
	Title         string         `json:"title"`
	Notes         string         `json:"notes"`
	ComponentTree string         `json:"component_tree"`
	Metadata      string         `json:"metadata"`
	IsPublished   bool           `json:"is_published"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

type PageDraftLock struct {
	ID        string    `json:"id"`
	PageID    string    `json:"page_id"`
	LockedBy  string    `json:"locked_by"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type EventLog struct {
	ID        int64     `json:"id"`
	Level     string    `json:"level"`
	Category  string    `json:"category"`
	Message   string    `json:"message"`
	Metadata  string    `json:"metadata"`
	CreatedAt time.Time `json:"created_at"`
}
