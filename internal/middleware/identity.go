// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/olegiv/ocms-builder/internal/model"
)

// Identity headers set by the upstream gateway after authentication.
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"

	RoleStaff = "staff"

	maxUserIDLength = 128
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyActor holds the caller's model.Actor.
const ContextKeyActor ContextKey = "actor"

// Identity reads the caller identity headers into the request context.
// Requests without a usable identity get the zero Actor.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		actor := model.Actor{}

		userID := strings.TrimSpace(r.Header.Get(HeaderUserID))
		if userID != "" && len(userID) <= maxUserIDLength {
			actor.UserID = userID
			actor.Staff = strings.EqualFold(strings.TrimSpace(r.Header.Get(HeaderUserRole)), RoleStaff)
		}

		next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
	})
}

// RequireIdentity rejects requests that carry no identity with 401.
func RequireIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetActor(r).IsZero() {
			WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Caller identity required", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithActor stores actor in ctx.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// GetActor returns the caller stored by Identity, or the zero Actor.
func GetActor(r *http.Request) model.Actor {
	actor, _ := r.Context().Value(ContextKeyActor).(model.Actor)
	return actor
}
