// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package auth_test

import (
	"encoding/base64"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patrolhub/patrolhub/internal/auth"
)

func TestIssueToken(t *testing.T) {
	t.Run("is 32 bytes url-safe base64", func(t *testing.T) {
		token, err := auth.IssueToken()
		require.NoError(t, err)
		assert.Len(t, token, 43)

		raw, err := base64.RawURLEncoding.DecodeString(token)
		require.NoError(t, err)
		assert.Len(t, raw, auth.SessionTokenBytes)
	})

	t.Run("generates unique tokens", func(t *testing.T) {
		seen := make(map[string]bool)
		for range 100 {
			token, err := auth.IssueToken()
			require.NoError(t, err)
			assert.False(t, seen[token], "duplicate token")
			seen[token] = true
		}
	})
}

func TestFingerprint(t *testing.T) {
	hexRe := regexp.MustCompile(`^[0-9a-f]{64}$`)

	t.Run("is deterministic lower-case sha256 hex", func(t *testing.T) {
		fp := auth.Fingerprint("testtoken123")
		assert.Equal(t, fp, auth.Fingerprint("testtoken123"))
		assert.Regexp(t, hexRe, fp)
	})

	t.Run("known vector", func(t *testing.T) {
		assert.Equal(t,
			"2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824",
			auth.Fingerprint("hello"))
	})

	t.Run("differs per token", func(t *testing.T) {
		assert.NotEqual(t, auth.Fingerprint("token1"), auth.Fingerprint("token2"))
	})
}
