// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"errors"
	"testing"
	"time"
)

func TestParsePageStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    PageStatus
		wantErr bool
	}{
		{"draft", PageStatusDraft, false},
		{"review", PageStatusReview, false},
		{"published", PageStatusPublished, false},
		{"archived", "", true},
		{"", "", true},
		{"Draft", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParsePageStatus(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePageStatus(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParsePageStatus(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestPageStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to PageStatus
		want     bool
	}{
		{PageStatusDraft, PageStatusDraft, true},
		{PageStatusDraft, PageStatusReview, true},
		{PageStatusDraft, PageStatusPublished, true},
		{PageStatusReview, PageStatusDraft, true},
		{PageStatusReview, PageStatusPublished, true},
		{PageStatusReview, PageStatusReview, false},
		{PageStatusPublished, PageStatusDraft, true},
		{PageStatusPublished, PageStatusPublished, true},
		{PageStatusPublished, PageStatusReview, false},
		{PageStatus("bogus"), PageStatusDraft, false},
		{PageStatusDraft, PageStatus("bogus"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("%q.CanTransitionTo(%q) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestPageStatus_EveryStatusHasTransitions(t *testing.T) {
	for _, st := range []PageStatus{PageStatusDraft, PageStatusReview, PageStatusPublished} {
		if _, ok := pageTransitions[st]; !ok {
			t.Errorf("status %q has no transition entry", st)
		}
	}
}

func TestPage_IsPubliclyVisible(t *testing.T) {
	tests := []struct {
		name string
		page Page
		want bool
	}{
		{"public with published version", Page{IsPublic: true, PublishedVersionID: "v1"}, true},
		{"public without published version", Page{IsPublic: true}, false},
		{"private with published version", Page{PublishedVersionID: "v1"}, false},
		{"neither", Page{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.page.IsPubliclyVisible(); got != tt.want {
				t.Errorf("IsPubliclyVisible() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDraftLock_IsActive(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	lock := DraftLock{ExpiresAt: now.Add(time.Minute)}

	if !lock.IsActive(now) {
		t.Error("lock should be active before expiry")
	}
	if lock.IsActive(now.Add(time.Minute)) {
		t.Error("lock should be inactive exactly at expiry")
	}
	if lock.IsActive(now.Add(time.Hour)) {
		t.Error("lock should be inactive after expiry")
	}
}

func TestActor_CanManage(t *testing.T) {
	tests := []struct {
		name  string
		actor Actor
		owner string
		want  bool
	}{
		{"owner", Actor{UserID: "u1"}, "u1", true},
		{"other user", Actor{UserID: "u2"}, "u1", false},
		{"staff", Actor{UserID: "admin", Staff: true}, "u1", true},
		{"anonymous", Actor{}, "u1", false},
		{"anonymous staff flag", Actor{Staff: true}, "u1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.actor.CanManage(tt.owner); got != tt.want {
				t.Errorf("CanManage(%q) = %v, want %v", tt.owner, got, tt.want)
			}
		})
	}
}

func TestErrorTaxonomy(t *testing.T) {
	if !errors.Is(NewValidationError("title", "is required"), ErrValidation) {
		t.Error("ValidationError should match ErrValidation")
	}
	if !errors.Is(&LockConflictError{HeldBy: "u1"}, ErrConflict) {
		t.Error("LockConflictError should match ErrConflict")
	}
	if !errors.Is(&JobFailedError{JobID: "j", Message: "boom"}, ErrJobFailed) {
		t.Error("JobFailedError should match ErrJobFailed")
	}
	if errors.Is(NewValidationError("x", "y"), ErrNotFound) {
		t.Error("ValidationError should not match ErrNotFound")
	}

	var ve *ValidationError
	wrapped := errors.Join(errors.New("context"), NewValidationError("component_tree", "must be a JSON object"))
	if !errors.As(wrapped, &ve) || ve.Field != "component_tree" {
		t.Errorf("errors.As did not recover field, got %+v", ve)
	}
}
