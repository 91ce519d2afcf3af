// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/patrolhub/patrolhub/internal/auth"
)

// SessionRepository implements auth.SessionRepository using PostgreSQL.
// Expiry is always evaluated against the database clock.
type SessionRepository struct {
	pool poolIface
}

// NewSessionRepository creates a new SessionRepository.
func NewSessionRepository(pool poolIface) *SessionRepository {
	return &SessionRepository{pool: pool}
}

// Create stores a session expiring ttl after the database's current time.
func (r *SessionRepository) Create(ctx context.Context, accountID int64, fingerprint string, ttl time.Duration) (*auth.Session, error) {
	session := &auth.Session{
		ID:               ulid.Make(),
		AccountID:        accountID,
		TokenFingerprint: fingerprint,
	}

	err := r.pool.QueryRow(ctx, `
		INSERT INTO sessions (id, account_id, token_fingerprint, expires_at)
		VALUES ($1, $2, $3, NOW() + make_interval(secs => $4))
		RETURNING expires_at, created_at
	`, session.ID.String(), accountID, fingerprint, ttl.Seconds()).Scan(&session.ExpiresAt, &session.CreatedAt)
	switch {
	case isForeignKeyViolation(err):
		return nil, oops.Code("SESSION_ACCOUNT_NOT_FOUND").
			With("account_id", accountID).
			Wrap(auth.ErrNotFound)
	case isUniqueViolation(err):
		return nil, oops.Code("SESSION_FINGERPRINT_EXISTS").
			With("account_id", accountID).
			Wrap(auth.ErrConflict)
	case err != nil:
		return nil, oops.Code("SESSION_CREATE_FAILED").
			With("operation", "insert session").
			With("account_id", accountID).
			Wrap(err)
	}
	return session, nil
}

// FindValid returns the owner of a non-expired session with the fingerprint.
func (r *SessionRepository) FindValid(ctx context.Context, fingerprint string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+accountColumns+`
		FROM sessions s
		JOIN accounts a ON a.id = s.account_id
		WHERE s.token_fingerprint = $1 AND s.expires_at > NOW()
	`, fingerprint)

	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("SESSION_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_FIND_FAILED").
			With("operation", "find valid session").
			Wrap(err)
	}
	return account, nil
}

// Revoke deletes the session with the fingerprint.
func (r *SessionRepository) Revoke(ctx context.Context, fingerprint string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token_fingerprint = $1`, fingerprint); err != nil {
		return oops.Code("SESSION_REVOKE_FAILED").
			With("operation", "delete session").
			Wrap(err)
	}
	return nil
}

// RevokeAll deletes every session of the account.
func (r *SessionRepository) RevokeAll(ctx context.Context, accountID int64) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE account_id = $1`, accountID); err != nil {
		return oops.Code("SESSION_REVOKE_ALL_FAILED").
			With("operation", "delete account sessions").
			With("account_id", accountID).
			Wrap(err)
	}
	return nil
}

// CountByAccount returns the number of stored sessions for the account.
func (r *SessionRepository) CountByAccount(ctx context.Context, accountID int64) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM sessions WHERE account_id = $1`, accountID).Scan(&n)
	if err != nil {
		return 0, oops.Code("SESSION_COUNT_FAILED").
			With("operation", "count sessions").
			With("account_id", accountID).
			Wrap(err)
	}
	return n, nil
}

// DeleteExpired removes expired sessions.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE expires_at <= NOW()`)
	if err != nil {
		return 0, oops.Code("SESSION_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired sessions").
			Wrap(err)
	}
	return result.RowsAffected(), nil
}

// Compile-time interface check.
var _ auth.SessionRepository = (*SessionRepository)(nil)
