// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
)

// DefaultSessionTTL is the lifetime of a session from issuance.
const DefaultSessionTTL = 30 * 24 * time.Hour

// Session is a persisted, time-bounded grant of identity. It holds the token
// fingerprint, never the token.
type Session struct {
	ID               ulid.ULID
	AccountID        int64
	TokenFingerprint string
	ExpiresAt        time.Time
	CreatedAt        time.Time
}

// IsValidAt reports whether the session is still valid at t.
func (s *Session) IsValidAt(t time.Time) bool {
	return t.Before(s.ExpiresAt)
}

// SessionRepository manages session persistence.
type SessionRepository interface {
	// Create stores a session for the account expiring ttl after the store's
	// current time.
	Create(ctx context.Context, accountID int64, fingerprint string, ttl time.Duration) (*Session, error)

	// FindValid returns the account owning a non-expired session with the
	// fingerprint. Expiry is evaluated by the store at query time. Returns
	// ErrNotFound when no such session exists.
	FindValid(ctx context.Context, fingerprint string) (*Account, error)

	// Revoke deletes the session with the fingerprint. Missing sessions are
	// not an error.
	Revoke(ctx context.Context, fingerprint string) error

	// RevokeAll deletes every session of the account.
	RevokeAll(ctx context.Context, accountID int64) error

	// CountByAccount returns the number of stored sessions, expired included.
	CountByAccount(ctx context.Context, accountID int64) (int, error)

	// DeleteExpired removes expired sessions and returns how many were removed.
	DeleteExpired(ctx context.Context) (int64, error)
}
