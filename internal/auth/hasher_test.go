// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Contactbook Contributors

package auth_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/contactbook/contactbook/internal/auth"
	"github.com/contactbook/contactbook/pkg/errutil"
)

func TestHashPassword(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	t.Run("produces valid hash", func(t *testing.T) {
		hash, err := hasher.Hash("password123")
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(hash, "$2a$"))
		assert.NotContains(t, hash, "password123")
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
		errutil.AssertErrorCode(t, err, "AUTH_EMPTY_PASSWORD")
	})

	t.Run("rejects password over 72 bytes", func(t *testing.T) {
		_, err := hasher.Hash(strings.Repeat("a", 73))
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_PASSWORD_TOO_LONG")
	})
}

func TestVerifyPassword(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	passwords := []string{"correctpassword", "p", "ünïcødé-pässwörd", strings.Repeat("x", 72)}
	for _, password := range passwords {
		hash, err := hasher.Hash(password)
		require.NoError(t, err)

		ok, err := hasher.Verify(password, hash)
		require.NoError(t, err)
		assert.True(t, ok, "password %q should verify", password)

		ok, err = hasher.Verify(password+"!", hash)
		require.NoError(t, err)
		assert.False(t, ok, "altered password %q should not verify", password)
	}

	t.Run("invalid hash format returns error", func(t *testing.T) {
		_, err := hasher.Verify("password", "not-a-valid-hash")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_HASH")
	})

	t.Run("overlong candidate never matches", func(t *testing.T) {
		hash, err := hasher.Hash(strings.Repeat("x", 72))
		require.NoError(t, err)

		ok, err := hasher.Verify(strings.Repeat("x", 73), hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestNewBcryptHasher_CostFallback(t *testing.T) {
	hasher := auth.NewBcryptHasher(0)

	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	assert.True(t, hasher.NeedsUpgrade(string(hash)), "default cost is above MinCost")
}

func TestNeedsUpgrade(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost + 1)

	weak, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	current, err := hasher.Hash("pw")
	require.NoError(t, err)

	assert.True(t, hasher.NeedsUpgrade(string(weak)))
	assert.False(t, hasher.NeedsUpgrade(current))
	assert.True(t, hasher.NeedsUpgrade("$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"))
}
