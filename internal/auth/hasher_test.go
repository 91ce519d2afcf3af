// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PatrolHub Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/patrolhub/patrolhub/internal/auth"
	"github.com/patrolhub/patrolhub/pkg/errutil"
)

func fastParams() auth.Argon2Params {
	return auth.Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
}

func TestArgon2idHasher_Hash(t *testing.T) {
	hasher := auth.NewArgon2idHasherWithParams(fastParams())

	t.Run("produces PHC string", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=1024,t=1,p=1$"))
		assert.Len(t, strings.Split(hash, "$"), 6)
	})

	t.Run("same password produces different hashes (salt)", func(t *testing.T) {
		hash1, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		hash2, err := hasher.Hash("samepassword")
		require.NoError(t, err)
		assert.NotEqual(t, hash1, hash2)
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, auth.CodeValidation)
	})

	t.Run("default parameters", func(t *testing.T) {
		p := auth.DefaultArgon2Params()
		assert.Equal(t, uint32(64*1024), p.Memory)
		assert.Equal(t, uint32(3), p.Iterations)
		assert.Equal(t, uint8(4), p.Parallelism)
	})
}

func TestArgon2idHasher_Verify(t *testing.T) {
	hasher := auth.NewArgon2idHasherWithParams(fastParams())
	hash, err := hasher.Hash("correctpassword")
	require.NoError(t, err)

	t.Run("correct password verifies", func(t *testing.T) {
		assert.True(t, hasher.Verify("correctpassword", hash))
	})

	t.Run("incorrect password fails", func(t *testing.T) {
		assert.False(t, hasher.Verify("wrongpassword", hash))
	})

	t.Run("empty password fails", func(t *testing.T) {
		assert.False(t, hasher.Verify("", hash))
	})

	malformed := []struct {
		name string
		hash string
	}{
		{"empty", ""},
		{"not a hash", "not-a-valid-hash"},
		{"wrong algorithm", "$argon2i$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"bad version", "$argon2id$vXX$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"unknown version", "$argon2id$v=16$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"bad parameters", "$argon2id$v=19$invalid$c2FsdA$aGFzaA"},
		{"bad salt", "$argon2id$v=19$m=65536,t=1,p=4$!!!invalid!!!$aGFzaA"},
		{"bad key", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!invalid!!!"},
		{"threads overflow", "$argon2id$v=19$m=65536,t=1,p=256$c2FsdA$aGFzaA"},
		{"zero threads", "$argon2id$v=19$m=65536,t=1,p=0$c2FsdA$aGFzaA"},
		{"memory too large", "$argon2id$v=19$m=4194304,t=1,p=4$c2FsdA$aGFzaGFzaGFzaGFzaGFzaA"},
		{"short key", "$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$aGFzaA"},
		{"truncated bcrypt", "$2a$10$short"},
	}
	for _, tt := range malformed {
		t.Run("malformed "+tt.name+" does not match", func(t *testing.T) {
			assert.NotPanics(t, func() {
				assert.False(t, hasher.Verify("password", tt.hash))
			})
		})
	}

	t.Run("verifies bcrypt hashes", func(t *testing.T) {
		b, err := bcrypt.GenerateFromPassword([]byte("legacy-secret"), bcrypt.MinCost)
		require.NoError(t, err)
		assert.True(t, hasher.Verify("legacy-secret", string(b)))
		assert.False(t, hasher.Verify("other", string(b)))
	})
}

func TestArgon2idHasher_NeedsUpgrade(t *testing.T) {
	hasher := auth.NewArgon2idHasherWithParams(fastParams())

	t.Run("bcrypt hash needs upgrade", func(t *testing.T) {
		b, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.MinCost)
		require.NoError(t, err)
		assert.True(t, hasher.NeedsUpgrade(string(b)))
	})

	t.Run("own hash does not need upgrade", func(t *testing.T) {
		hash, err := hasher.Hash("password")
		require.NoError(t, err)
		assert.False(t, hasher.NeedsUpgrade(hash))
	})

	t.Run("weaker parameters need upgrade", func(t *testing.T) {
		weak := auth.NewArgon2idHasherWithParams(auth.Argon2Params{
			Memory: 512, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32,
		})
		hash, err := weak.Hash("password")
		require.NoError(t, err)
		assert.True(t, hasher.NeedsUpgrade(hash))
	})
}

func TestBcryptHasher(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	t.Run("hash and verify", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$2a$"))
		assert.True(t, hasher.Verify("password123", hash))
		assert.False(t, hasher.Verify("password124", hash))
	})

	t.Run("verifies argon2id hashes", func(t *testing.T) {
		hash, err := auth.NewArgon2idHasherWithParams(fastParams()).Hash("password123")
		require.NoError(t, err)
		assert.True(t, hasher.Verify("password123", hash))
		assert.True(t, hasher.NeedsUpgrade(hash))
	})

	t.Run("rejects empty password", func(t *testing.T) {
		_, err := hasher.Hash("")
		errutil.AssertErrorCode(t, err, auth.CodeValidation)
	})

	t.Run("accepts passwords past the bcrypt input limit", func(t *testing.T) {
		long := strings.Repeat("a", 72) + strings.Repeat("b", auth.MaxPasswordLength-72)
		hash, err := hasher.Hash(long)
		require.NoError(t, err)
		assert.True(t, hasher.Verify(long, hash))
		assert.True(t, auth.NewArgon2idHasherWithParams(fastParams()).Verify(long, hash))

		assert.False(t, hasher.Verify(long[:72], hash))
		assert.False(t, hasher.Verify(long[:len(long)-1]+"c", hash), "bytes after the 72nd still count")
	})

	t.Run("short passwords hash unchanged", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(hash), []byte("password123")))
	})

	t.Run("lower cost needs upgrade", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.False(t, hasher.NeedsUpgrade(hash))
		assert.True(t, auth.NewBcryptHasher(bcrypt.MinCost+1).NeedsUpgrade(hash))
	})

	t.Run("out of range cost falls back to default", func(t *testing.T) {
		h := auth.NewBcryptHasher(99)
		b, err := bcrypt.GenerateFromPassword([]byte("x"), auth.DefaultBcryptCost)
		require.NoError(t, err)
		assert.False(t, h.NeedsUpgrade(string(b)))
	})
}
