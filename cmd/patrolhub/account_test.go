// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package main

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrolhub/patrolhub/internal/auth"
	"github.com/patrolhub/patrolhub/internal/auth/authtest"
	"github.com/patrolhub/patrolhub/internal/config"
	"github.com/patrolhub/patrolhub/pkg/errutil"
)

// useMemoryBackend points the maintenance commands at an in-memory store.
func useMemoryBackend(t *testing.T) *authtest.Store {
	t.Helper()
	st := authtest.NewStore(nil)
	orig := backendFactory
	backendFactory = func(context.Context, config.Config, *slog.Logger) (*backend, error) {
		return &backend{
			accounts: st.Accounts(),
			sessions: st.Sessions(),
			hasher:   authtest.FastHasher(),
			close:    func() {},
		}, nil
	}
	t.Cleanup(func() { backendFactory = orig })
	return st
}

func TestAccountCreateAdmin(t *testing.T) {
	st := useMemoryBackend(t)

	out, err := execute(t, "account", "create-admin",
		"--email", " Chief@Example.com ",
		"--name", "Dana Chief",
		"--password", "s3cret-pass")

	require.NoError(t, err)
	assert.Contains(t, out, "Created admin account 00001 (chief@example.com)")

	stored := st.Account(1)
	require.NotNil(t, stored)
	assert.Equal(t, "chief@example.com", stored.Email)
	assert.Equal(t, auth.RoleAdmin, stored.Role)
	assert.True(t, stored.IsActive)
	assert.True(t, authtest.FastHasher().Verify("s3cret-pass", stored.CredentialHash))
}

func TestAccountCreateAdmin_PasswordFromEnvironment(t *testing.T) {
	st := useMemoryBackend(t)
	t.Setenv(EnvAdminPassword, "from-env-pass")

	_, err := execute(t, "account", "create-admin", "--email", "ops@example.com", "--name", "Ops", "--role", "manager")

	require.NoError(t, err)
	stored := st.Account(1)
	require.NotNil(t, stored)
	assert.Equal(t, auth.RoleManager, stored.Role)
	assert.True(t, authtest.FastHasher().Verify("from-env-pass", stored.CredentialHash))
}

func TestAccountCreateAdmin_Errors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode string
	}{
		{
			name:     "bad email",
			args:     []string{"--email", "nope", "--name", "X", "--password", "s3cret-pass"},
			wantCode: auth.CodeValidation,
		},
		{
			name:     "short password",
			args:     []string{"--email", "a@example.com", "--name", "X", "--password", "abc"},
			wantCode: auth.CodeValidation,
		},
		{
			name:     "unknown role",
			args:     []string{"--email", "a@example.com", "--name", "X", "--password", "s3cret-pass", "--role", "chief"},
			wantCode: auth.CodeValidation,
		},
		{
			name:     "non managing role",
			args:     []string{"--email", "a@example.com", "--name", "X", "--password", "s3cret-pass", "--role", "moderator"},
			wantCode: "ROLE_NOT_ADMIN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvAdminPassword, "")
			st := useMemoryBackend(t)

			_, err := execute(t, append([]string{"account", "create-admin"}, tt.args...)...)

			require.Error(t, err)
			errutil.AssertErrorCode(t, err, tt.wantCode)
			assert.Nil(t, st.Account(1))
		})
	}
}

func TestAccountCreateAdmin_DuplicateEmail(t *testing.T) {
	useMemoryBackend(t)
	args := []string{"account", "create-admin", "--email", "chief@example.com", "--name", "Dana", "--password", "s3cret-pass"}

	_, err := execute(t, args...)
	require.NoError(t, err)

	_, err = execute(t, args...)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "ACCOUNT_EMAIL_EXISTS")
}

func TestAccountActivateDeactivate(t *testing.T) {
	st := useMemoryBackend(t)
	st.Put(&auth.Account{Email: "pending@example.com", FullName: "Pending", ShortID: "00001", Role: auth.RoleUser})
	_, err := st.Sessions().Create(context.Background(), 1, "fp-1", time.Hour)
	require.NoError(t, err)

	out, err := execute(t, "account", "activate", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Account 00001 activated")
	assert.True(t, st.Account(1).IsActive)

	out, err = execute(t, "account", "deactivate", "pending@example.com")
	require.NoError(t, err)
	assert.Contains(t, out, "Account 00001 deactivated")
	assert.False(t, st.Account(1).IsActive)

	n, err := st.Sessions().CountByAccount(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, n, "deactivation revokes sessions")
}

func TestAccountActivate_NotFound(t *testing.T) {
	useMemoryBackend(t)

	_, err := execute(t, "account", "activate", "nobody@example.com")

	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "ACCOUNT_NOT_FOUND")
}

func TestAccountSetRole(t *testing.T) {
	st := useMemoryBackend(t)
	st.Put(&auth.Account{Email: "officer@example.com", FullName: "Officer", ShortID: "00001", Role: auth.RoleUser, IsActive: true})

	out, err := execute(t, "account", "set-role", "00001", "Moderator")
	require.NoError(t, err)
	assert.Contains(t, out, "Account 00001 is now moderator")
	assert.Equal(t, auth.RoleModerator, st.Account(1).Role)

	_, err = execute(t, "account", "set-role", "00001", "sheriff")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, auth.CodeValidation)
}

func TestAccountList(t *testing.T) {
	st := useMemoryBackend(t)
	st.Put(&auth.Account{Email: "a@example.com", FullName: "Active One", ShortID: "00001", Role: auth.RoleAdmin, IsActive: true})
	st.Put(&auth.Account{Email: "p@example.com", FullName: "Pending Two", ShortID: "00002", Role: auth.RoleUser})

	out, err := execute(t, "account", "list", "--status", "pending")
	require.NoError(t, err)
	assert.Contains(t, out, "p@example.com")
	assert.NotContains(t, out, "a@example.com")

	out, err = execute(t, "account", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "SHORT ID")
	assert.Contains(t, out, "a@example.com")
	assert.Contains(t, out, "p@example.com")

	_, err = execute(t, "account", "list", "--status", "banned")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, auth.CodeValidation)
}

func TestSessionsPrune(t *testing.T) {
	st := useMemoryBackend(t)
	st.Put(&auth.Account{Email: "a@example.com", FullName: "A", ShortID: "00001", Role: auth.RoleUser, IsActive: true})
	ctx := context.Background()
	_, err := st.Sessions().Create(ctx, 1, "expired", -time.Minute)
	require.NoError(t, err)
	_, err = st.Sessions().Create(ctx, 1, "live", time.Hour)
	require.NoError(t, err)

	out, err := execute(t, "sessions", "prune")

	require.NoError(t, err)
	assert.Contains(t, out, "Deleted 1 expired sessions")
	n, err := st.Sessions().CountByAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestWithBackend_ConnectFailure(t *testing.T) {
	orig := backendFactory
	backendFactory = func(context.Context, config.Config, *slog.Logger) (*backend, error) {
		return nil, errors.New("connection refused")
	}
	t.Cleanup(func() { backendFactory = orig })

	_, err := execute(t, "sessions", "prune")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}
