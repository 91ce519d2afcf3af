// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package auth_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrolhub/patrolhub/internal/auth"
	"github.com/patrolhub/patrolhub/internal/auth/authtest"
	"github.com/patrolhub/patrolhub/pkg/errutil"
)

// withAdmin registers an active admin and returns its token.
func (f *fixture) withAdmin(t *testing.T, role auth.Role) (auth.Identity, string) {
	t.Helper()
	id, token := f.register(t, string(role)+"@example.com", "secret1", "Boss")
	acct := f.store.Account(id.ID)
	acct.Role = role
	acct.IsActive = true
	f.store.Put(acct)
	return id, token
}

func TestService_AdminRequiresManager(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, userToken := f.register(t, "user@example.com", "secret1", "User")

	_, err := f.svc.ListAccounts(ctx, userToken, auth.StatusAll)
	errutil.AssertErrorCode(t, err, auth.CodeForbidden)

	_, err = f.svc.ListAccounts(ctx, "", auth.StatusAll)
	errutil.AssertErrorCode(t, err, auth.CodeAuthRequired)

	_, err = f.svc.Activate(ctx, "bogus", 1)
	errutil.AssertErrorCode(t, err, auth.CodeInvalidToken)

	t.Run("inactive admin is forbidden", func(t *testing.T) {
		id, token := f.withAdmin(t, auth.RoleAdmin)
		acct := f.store.Account(id.ID)
		acct.IsActive = false
		f.store.Put(acct)
		_, err := f.svc.ListAccounts(ctx, token, auth.StatusAll)
		errutil.AssertErrorCode(t, err, auth.CodeForbidden)
	})
}

func TestService_ListAccounts(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.register(t, "pending@example.com", "secret1", "Pending")
	_, token := f.withAdmin(t, auth.RoleManager)

	all, err := f.svc.ListAccounts(ctx, token, auth.StatusAll)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := f.svc.ListAccounts(ctx, token, auth.StatusPending)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "pending@example.com", pending[0].Email)

	active, err := f.svc.ListAccounts(ctx, token, auth.StatusActive)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, auth.RoleManager, active[0].Role)
}

func TestService_ActivateDeactivate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	target, targetToken := f.register(t, "new@example.com", "secret1", "Newbie")
	admin, token := f.withAdmin(t, auth.RoleAdmin)

	_, _, err := f.svc.Login(ctx, "new@example.com", "secret1", clientAddr)
	errutil.AssertErrorCode(t, err, auth.CodeInactiveAccount)

	id, err := f.svc.Activate(ctx, token, target.ID)
	require.NoError(t, err)
	assert.True(t, id.IsActive)

	_, _, err = f.svc.Login(ctx, "new@example.com", "secret1", clientAddr)
	require.NoError(t, err)

	id, err = f.svc.Deactivate(ctx, token, target.ID)
	require.NoError(t, err)
	assert.False(t, id.IsActive)

	n, err := f.store.Sessions().CountByAccount(ctx, target.ID)
	require.NoError(t, err)
	assert.Zero(t, n, "deactivation revokes sessions")
	_, err = f.svc.Verify(ctx, targetToken)
	errutil.AssertErrorCode(t, err, auth.CodeInvalidToken)

	_, err = f.svc.Activate(ctx, token, 999)
	errutil.AssertErrorCode(t, err, auth.CodeAccountNotFound)

	_, err = f.svc.Deactivate(ctx, token, admin.ID)
	errutil.AssertErrorCode(t, err, auth.CodeValidation)
}

func TestService_UpdateAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	target, _ := f.register(t, "a@example.com", "secret1", "Alpha")
	_, token := f.withAdmin(t, auth.RoleAdmin)

	id, err := f.svc.UpdateAccount(ctx, token, target.ID, auth.AccountUpdate{
		FullName: strPtr(" Alpha Prime "),
		Role:     strPtr("moderator"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Alpha Prime", id.FullName)
	assert.Equal(t, auth.RoleModerator, id.Role)
	assert.Equal(t, auth.RoleModerator, f.store.Account(target.ID).Role)

	_, err = f.svc.UpdateAccount(ctx, token, target.ID, auth.AccountUpdate{Role: strPtr("root")})
	errutil.AssertErrorCode(t, err, auth.CodeValidation)

	_, err = f.svc.UpdateAccount(ctx, token, target.ID, auth.AccountUpdate{})
	errutil.AssertErrorCode(t, err, auth.CodeValidation)

	_, err = f.svc.UpdateAccount(ctx, token, 999, auth.AccountUpdate{Role: strPtr("user")})
	errutil.AssertErrorCode(t, err, auth.CodeAccountNotFound)
}

// lookupHook runs a callback after the first GetByID.
type lookupHook struct {
	auth.AccountRepository
	after func()
}

func (h *lookupHook) GetByID(ctx context.Context, id int64) (*auth.Account, error) {
	a, err := h.AccountRepository.GetByID(ctx, id)
	if h.after != nil {
		h.after()
		h.after = nil
	}
	return a, err
}

func TestService_UpdateAccount_KeepsActivation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	target, _ := f.register(t, "a@example.com", "secret1", "Alpha")
	_, token := f.withAdmin(t, auth.RoleAdmin)

	repo := &lookupHook{AccountRepository: f.store.Accounts()}
	svc, err := auth.NewService(repo, f.store.Sessions(), authtest.FastHasher(), f.limiter, auth.WithClock(f.clock.Now))
	require.NoError(t, err)

	// A second administrator activates the account between lookup and write.
	repo.after = func() {
		require.NoError(t, f.store.Accounts().SetActive(ctx, target.ID, true))
	}

	id, err := svc.UpdateAccount(ctx, token, target.ID, auth.AccountUpdate{Role: strPtr("manager")})
	require.NoError(t, err)
	assert.Equal(t, auth.RoleManager, id.Role)
	assert.True(t, id.IsActive)
	assert.True(t, f.store.Account(target.ID).IsActive)
	assert.Equal(t, "Alpha", f.store.Account(target.ID).FullName)
}

func TestService_DeleteAccount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	target, targetToken := f.register(t, "gone@example.com", "secret1", "Gone")
	admin, token := f.withAdmin(t, auth.RoleAdmin)

	require.NoError(t, f.svc.DeleteAccount(ctx, token, target.ID))
	assert.Nil(t, f.store.Account(target.ID))

	_, err := f.svc.Verify(ctx, targetToken)
	errutil.AssertErrorCode(t, err, auth.CodeInvalidToken)

	err = f.svc.DeleteAccount(ctx, token, target.ID)
	errutil.AssertErrorCode(t, err, auth.CodeAccountNotFound)

	err = f.svc.DeleteAccount(ctx, token, admin.ID)
	errutil.AssertErrorCode(t, err, auth.CodeValidation)
	assert.False(t, errors.Is(err, auth.ErrNotFound))
}
