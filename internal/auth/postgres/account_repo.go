// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/patrolhub/patrolhub/internal/auth"
)

// accountColumns is the select list shared by account and session queries.
// Queries must alias accounts as "a".
const accountColumns = `a.id, COALESCE(a.short_id, ''), a.email, a.full_name, a.credential_hash,
	a.role, a.is_active, a.rank, a.badge_number, a.department, a.last_name_change,
	a.created_at, a.updated_at`

// AccountRepository implements auth.AccountRepository using PostgreSQL.
type AccountRepository struct {
	pool poolIface
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(pool poolIface) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create inserts the account and assigns its short id from the sequence id in
// the same transaction.
func (r *AccountRepository) Create(ctx context.Context, account *auth.Account, shortID auth.ShortIDFunc) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return oops.With("operation", "begin transaction").Wrap(err)
	}
	defer func() {
		_ = tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op
	}()

	err = tx.QueryRow(ctx, `
		INSERT INTO accounts (
			email, full_name, credential_hash, role, is_active,
			rank, badge_number, department
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at, updated_at
	`,
		account.Email,
		account.FullName,
		account.CredentialHash,
		string(account.Role),
		account.IsActive,
		account.Rank,
		account.BadgeNumber,
		account.Department,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if isUniqueViolation(err) {
		return oops.Code("ACCOUNT_EMAIL_EXISTS").
			With("email", account.Email).
			Wrap(auth.ErrConflict)
	}
	if err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "insert account").
			With("email", account.Email).
			Wrap(err)
	}

	account.ShortID = shortID(account.ID)
	if _, err := tx.Exec(ctx, `UPDATE accounts SET short_id = $2 WHERE id = $1`, account.ID, account.ShortID); err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "assign short id").
			With("account_id", account.ID).
			Wrap(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("ACCOUNT_CREATE_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return nil
}

// GetByID retrieves an account by sequence id.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts a WHERE a.id = $1`, id)
	return r.getOne(row, "id", id)
}

// GetByEmail retrieves an account by normalized email.
func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts a WHERE a.email = $1`, email)
	return r.getOne(row, "email", email)
}

// GetByShortID retrieves an account by zero-padded short id.
func (r *AccountRepository) GetByShortID(ctx context.Context, shortID string) (*auth.Account, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts a WHERE a.short_id = $1`, shortID)
	return r.getOne(row, "short_id", shortID)
}

func (r *AccountRepository) getOne(row pgx.Row, key string, value any) (*auth.Account, error) {
	account, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").
			With(key, value).
			Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("operation", "get account by "+key).
			With(key, value).
			Wrap(err)
	}
	return account, nil
}

// ExistsByEmail reports whether an account uses the email.
func (r *AccountRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE email = $1)`, email).Scan(&exists)
	if err != nil {
		return false, oops.Code("ACCOUNT_EXISTS_FAILED").
			With("operation", "check email").
			With("email", email).
			Wrap(err)
	}
	return exists, nil
}

// UpdateProfile writes the profile columns and, when set, the credential
// hash in a single statement.
func (r *AccountRepository) UpdateProfile(ctx context.Context, id int64, change auth.ProfileChange) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE accounts SET
			full_name = $2, rank = $3, badge_number = $4, department = $5,
			last_name_change = $6,
			credential_hash = COALESCE(NULLIF($7, ''), credential_hash),
			updated_at = NOW()
		WHERE id = $1
	`,
		id,
		change.FullName,
		change.Rank,
		change.BadgeNumber,
		change.Department,
		change.LastNameChange,
		change.CredentialHash,
	)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "update profile").
			With("account_id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("account_id", id).Wrap(auth.ErrNotFound)
	}
	return nil
}

// SetFullName replaces the display name.
func (r *AccountRepository) SetFullName(ctx context.Context, id int64, fullName string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE accounts SET full_name = $2, updated_at = NOW() WHERE id = $1`,
		id, fullName)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("operation", "set full name").
			With("account_id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("account_id", id).Wrap(auth.ErrNotFound)
	}
	return nil
}

// SetRole replaces the account role.
func (r *AccountRepository) SetRole(ctx context.Context, id int64, role auth.Role) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE accounts SET role = $2, updated_at = NOW() WHERE id = $1`,
		id, string(role))
	if err != nil {
		return oops.Code("ACCOUNT_SET_ROLE_FAILED").
			With("operation", "set role").
			With("account_id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("account_id", id).Wrap(auth.ErrNotFound)
	}
	return nil
}

// UpdatePassword replaces the credential hash.
func (r *AccountRepository) UpdatePassword(ctx context.Context, id int64, credentialHash string) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE accounts SET credential_hash = $2, updated_at = NOW() WHERE id = $1`,
		id, credentialHash)
	if err != nil {
		return oops.Code("ACCOUNT_UPDATE_PASSWORD_FAILED").
			With("operation", "update password").
			With("account_id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("account_id", id).Wrap(auth.ErrNotFound)
	}
	return nil
}

// SetActive toggles the active flag.
func (r *AccountRepository) SetActive(ctx context.Context, id int64, active bool) error {
	result, err := r.pool.Exec(ctx,
		`UPDATE accounts SET is_active = $2, updated_at = NOW() WHERE id = $1`,
		id, active)
	if err != nil {
		return oops.Code("ACCOUNT_SET_ACTIVE_FAILED").
			With("operation", "set active").
			With("account_id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("account_id", id).Wrap(auth.ErrNotFound)
	}
	return nil
}

// List returns accounts matching the filter, newest first.
func (r *AccountRepository) List(ctx context.Context, filter auth.StatusFilter) ([]*auth.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts a`
	switch filter {
	case auth.StatusPending:
		query += ` WHERE NOT a.is_active`
	case auth.StatusActive:
		query += ` WHERE a.is_active`
	}
	query += ` ORDER BY a.created_at DESC, a.id DESC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "list accounts").
			With("status", string(filter)).
			Wrap(err)
	}
	defer rows.Close()

	var accounts []*auth.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, oops.Code("ACCOUNT_LIST_FAILED").
				With("operation", "scan account").
				Wrap(err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("operation", "iterate accounts").
			Wrap(err)
	}
	return accounts, nil
}

// Delete removes the account's sessions and then the account in one
// transaction.
func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return oops.With("operation", "begin transaction").Wrap(err)
	}
	defer func() {
		_ = tx.Rollback(ctx) //nolint:errcheck // rollback after commit is a no-op
	}()

	if _, err := tx.Exec(ctx, `DELETE FROM sessions WHERE account_id = $1`, id); err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("operation", "delete sessions").
			With("account_id", id).
			Wrap(err)
	}

	result, err := tx.Exec(ctx, `DELETE FROM accounts WHERE id = $1`, id)
	if err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("operation", "delete account").
			With("account_id", id).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("account_id", id).Wrap(auth.ErrNotFound)
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.Code("ACCOUNT_DELETE_FAILED").
			With("operation", "commit transaction").
			Wrap(err)
	}
	return nil
}

// scanAccount scans a row selected with accountColumns.
func scanAccount(row pgx.Row) (*auth.Account, error) {
	var (
		a    auth.Account
		role string
	)
	err := row.Scan(
		&a.ID,
		&a.ShortID,
		&a.Email,
		&a.FullName,
		&a.CredentialHash,
		&role,
		&a.IsActive,
		&a.Rank,
		&a.BadgeNumber,
		&a.Department,
		&a.LastNameChange,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.Role = auth.Role(role)
	return &a, nil
}

// Compile-time interface check.
var _ auth.AccountRepository = (*AccountRepository)(nil)
