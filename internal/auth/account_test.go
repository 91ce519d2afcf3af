// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package auth_test

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrolhub/patrolhub/internal/auth"
	"github.com/patrolhub/patrolhub/pkg/errutil"
)

func TestFormatShortID(t *testing.T) {
	tests := []struct {
		id    int64
		width int
		want  string
	}{
		{1, 5, "00001"},
		{42, 5, "00042"},
		{99999, 5, "99999"},
		{123456, 5, "123456"},
		{7, 3, "007"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, auth.FormatShortID(tt.id, tt.width))
	}
}

func TestClassifyIdentifier(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want auth.Identifier
	}{
		{"padded short id", "00042", auth.Identifier{Kind: auth.IdentifierShortID, Value: "00042"}},
		{"unpadded short id", "42", auth.Identifier{Kind: auth.IdentifierShortID, Value: "00042"}},
		{"trimmed short id", " 7 ", auth.Identifier{Kind: auth.IdentifierShortID, Value: "00007"}},
		{"too long for short id", "123456", auth.Identifier{Kind: auth.IdentifierEmail, Value: "123456"}},
		{"email lower-cased", "Officer@Example.COM", auth.Identifier{Kind: auth.IdentifierEmail, Value: "officer@example.com"}},
		{"mixed digits", "12a45", auth.Identifier{Kind: auth.IdentifierEmail, Value: "12a45"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, auth.ClassifyIdentifier(tt.raw, auth.DefaultShortIDWidth))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	t.Run("trims and lower-cases", func(t *testing.T) {
		email, err := auth.NormalizeEmail("  Jane.Doe+patrol@Example.org ")
		require.NoError(t, err)
		assert.Equal(t, "jane.doe+patrol@example.org", email)
	})

	for _, bad := range []string{"", "   ", "no-at-sign", "a@b", "a@b.c", "a b@example.com", strings.Repeat("a", 250) + "@x.com"} {
		t.Run("rejects "+bad, func(t *testing.T) {
			_, err := auth.NormalizeEmail(bad)
			errutil.AssertErrorCode(t, err, auth.CodeValidation)
		})
	}
}

func TestValidatePassword(t *testing.T) {
	assert.NoError(t, auth.ValidatePassword("123456"))
	assert.NoError(t, auth.ValidatePassword(strings.Repeat("x", auth.MaxPasswordLength)))

	for _, bad := range []string{"", "12345", strings.Repeat("x", auth.MaxPasswordLength+1)} {
		err := auth.ValidatePassword(bad)
		errutil.AssertErrorCode(t, err, auth.CodeValidation)
	}
}

func TestNormalizeFullName(t *testing.T) {
	name, err := auth.NormalizeFullName("  Jane Doe ")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", name)

	_, err = auth.NormalizeFullName("   ")
	errutil.AssertErrorCode(t, err, auth.CodeValidation)

	_, err = auth.NormalizeFullName(strings.Repeat("n", auth.MaxFullNameLength+1))
	errutil.AssertErrorCode(t, err, auth.CodeValidation)
}

func TestParseRole(t *testing.T) {
	for _, r := range []string{"user", "moderator", "ADMIN", " manager "} {
		_, err := auth.ParseRole(r)
		assert.NoError(t, err, r)
	}
	_, err := auth.ParseRole("superuser")
	errutil.AssertErrorCode(t, err, auth.CodeValidation)

	assert.False(t, auth.RoleUser.IsPrivileged())
	assert.True(t, auth.RoleModerator.IsPrivileged())
	assert.False(t, auth.RoleModerator.CanManageAccounts())
	assert.True(t, auth.RoleAdmin.CanManageAccounts())
	assert.True(t, auth.RoleManager.CanManageAccounts())
}

func TestParseStatusFilter(t *testing.T) {
	f, err := auth.ParseStatusFilter("")
	require.NoError(t, err)
	assert.Equal(t, auth.StatusAll, f)

	f, err = auth.ParseStatusFilter("Pending")
	require.NoError(t, err)
	assert.Equal(t, auth.StatusPending, f)

	_, err = auth.ParseStatusFilter("deleted")
	errutil.AssertErrorCode(t, err, auth.CodeValidation)
}

func TestAccount_Identity(t *testing.T) {
	rank := "Sergeant"
	a := &auth.Account{
		ID:             7,
		ShortID:        "00007",
		Email:          "sgt@example.com",
		FullName:       "Sam Sergeant",
		CredentialHash: "$argon2id$secret",
		Role:           auth.RoleUser,
		IsActive:       true,
		Rank:           &rank,
		CreatedAt:      time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	b, err := json.Marshal(a.Identity())
	require.NoError(t, err)
	assert.NotContains(t, string(b), "argon2id")
	assert.NotContains(t, string(b), "credential")

	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "00007", got["user_id"])
	assert.Equal(t, "Sergeant", got["rank"])
	assert.NotContains(t, got, "badge_number")
}

func TestSession_IsValidAt(t *testing.T) {
	exp := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	s := &auth.Session{ExpiresAt: exp}
	assert.True(t, s.IsValidAt(exp.Add(-time.Nanosecond)))
	assert.False(t, s.IsValidAt(exp))
	assert.False(t, s.IsValidAt(exp.Add(time.Second)))
}
