// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Actor identifies the caller of an operation. Authentication happens upstream;
// services only read the identity and the staff capability passed in here.
type Actor struct {
	UserID string
	Staff  bool
}

// IsZero reports whether no identity was supplied.
func (a Actor) IsZero() bool {
	return a.UserID == ""
}

// CanManage reports whether the actor may modify a page owned by ownerID.
func (a Actor) CanManage(ownerID string) bool {
	if a.IsZero() {
		return false
	}
	return a.Staff || a.UserID == ownerID
}
