// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"
)

// AccountUpdate holds the administrator-editable fields of an account. Nil
// fields are left unchanged.
type AccountUpdate struct {
	FullName *string
	Role     *string
}

// ListAccounts returns the accounts matching status. The caller must be an
// admin or manager.
func (s *Service) ListAccounts(ctx context.Context, token string, status StatusFilter) ([]Identity, error) {
	if _, err := s.requireManager(ctx, token); err != nil {
		return nil, err
	}
	accounts, err := s.accounts.List(ctx, status)
	if err != nil {
		return nil, oops.With("operation", "list accounts").
			With("status", string(status)).
			Wrap(err)
	}
	out := make([]Identity, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, a.Identity())
	}
	return out, nil
}

// Activate marks an account active.
func (s *Service) Activate(ctx context.Context, token string, id int64) (Identity, error) {
	caller, err := s.requireManager(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	target, err := s.target(ctx, id)
	if err != nil {
		return Identity{}, err
	}
	if err := s.accounts.SetActive(ctx, id, true); err != nil {
		return Identity{}, oops.With("operation", "activate account").With("account_id", id).Wrap(err)
	}
	target.IsActive = true

	s.logger.InfoContext(ctx, "account activated", "account_id", id, "by", caller.ID)
	return target.Identity(), nil
}

// Deactivate marks an account inactive and revokes its sessions.
func (s *Service) Deactivate(ctx context.Context, token string, id int64) (Identity, error) {
	caller, err := s.requireManager(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	if caller.ID == id {
		return Identity{}, validationError("cannot deactivate your own account")
	}
	target, err := s.target(ctx, id)
	if err != nil {
		return Identity{}, err
	}
	if err := s.accounts.SetActive(ctx, id, false); err != nil {
		return Identity{}, oops.With("operation", "deactivate account").With("account_id", id).Wrap(err)
	}
	if err := s.sessions.RevokeAll(ctx, id); err != nil {
		return Identity{}, oops.With("operation", "revoke sessions").With("account_id", id).Wrap(err)
	}
	target.IsActive = false

	s.logger.InfoContext(ctx, "account deactivated", "account_id", id, "by", caller.ID)
	return target.Identity(), nil
}

// UpdateAccount changes an account's name or role. Administrative renames
// are not subject to the name-change cooldown.
func (s *Service) UpdateAccount(ctx context.Context, token string, id int64, upd AccountUpdate) (Identity, error) {
	caller, err := s.requireManager(ctx, token)
	if err != nil {
		return Identity{}, err
	}
	if upd.FullName == nil && upd.Role == nil {
		return Identity{}, validationError("nothing to update")
	}
	target, err := s.target(ctx, id)
	if err != nil {
		return Identity{}, err
	}

	var (
		name string
		role Role
	)
	if upd.FullName != nil {
		if name, err = NormalizeFullName(*upd.FullName); err != nil {
			return Identity{}, err
		}
	}
	if upd.Role != nil {
		if role, err = ParseRole(*upd.Role); err != nil {
			return Identity{}, err
		}
	}

	if upd.FullName != nil {
		if err := s.accounts.SetFullName(ctx, id, name); err != nil {
			return Identity{}, oops.With("operation", "rename account").With("account_id", id).Wrap(err)
		}
	}
	if upd.Role != nil {
		if err := s.accounts.SetRole(ctx, id, role); err != nil {
			return Identity{}, oops.With("operation", "set role").With("account_id", id).Wrap(err)
		}
	}
	if target, err = s.target(ctx, id); err != nil {
		return Identity{}, err
	}

	s.logger.InfoContext(ctx, "account updated", "account_id", id, "role", string(target.Role), "by", caller.ID)
	return target.Identity(), nil
}

// DeleteAccount removes an account together with its sessions. Callers
// cannot delete themselves.
func (s *Service) DeleteAccount(ctx context.Context, token string, id int64) error {
	caller, err := s.requireManager(ctx, token)
	if err != nil {
		return err
	}
	if caller.ID == id {
		return validationError("cannot delete your own account")
	}
	err = s.accounts.Delete(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return accountNotFoundError(id)
	}
	if err != nil {
		return oops.With("operation", "delete account").With("account_id", id).Wrap(err)
	}

	s.logger.InfoContext(ctx, "account deleted", "account_id", id, "by", caller.ID)
	return nil
}

// requireManager authenticates token and checks the account may administer
// other accounts.
func (s *Service) requireManager(ctx context.Context, token string) (*Account, error) {
	caller, err := s.authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	if !caller.IsActive || !caller.Role.CanManageAccounts() {
		return nil, oops.Code(CodeForbidden).
			With("role", string(caller.Role)).
			Errorf("access denied: admin or manager role required")
	}
	return caller, nil
}

func (s *Service) target(ctx context.Context, id int64) (*Account, error) {
	account, err := s.accounts.GetByID(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, accountNotFoundError(id)
	}
	if err != nil {
		return nil, oops.With("operation", "get account").With("account_id", id).Wrap(err)
	}
	return account, nil
}

func accountNotFoundError(id int64) error {
	return oops.Code(CodeAccountNotFound).With("account_id", id).Errorf("account not found")
}
