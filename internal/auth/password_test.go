package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHasherRoundTrip(t *testing.T) {
	t.Parallel()
	h := NewHasher(bcrypt.MinCost)

	for _, password := range []string{"Password123", "pässwörd-ünïcode", " spaced out ", "x"} {
		first, err := h.Hash(password)
		require.NoError(t, err)
		second, err := h.Hash(password)
		require.NoError(t, err)

		assert.NotEqual(t, password, first, "hash must not be the plaintext")
		assert.NotEqual(t, first, second, "hashes must be salted")
		assert.True(t, h.Verify(password, first))
		assert.True(t, h.Verify(password, second))
	}
}

func TestHasherRejectsOtherPasswords(t *testing.T) {
	t.Parallel()
	h := NewHasher(bcrypt.MinCost)

	hashed, err := h.Hash("Password123")
	require.NoError(t, err)

	assert.False(t, h.Verify("Password124", hashed))
	assert.False(t, h.Verify("password123", hashed))
	assert.False(t, h.Verify("", hashed))
	assert.False(t, h.Verify("Password123", "not-a-bcrypt-hash"))
}

func TestHasherDefaultCost(t *testing.T) {
	t.Parallel()
	assert.Equal(t, DefaultBcryptCost, NewHasher(0).Cost())
	assert.Equal(t, DefaultBcryptCost, NewHasher(bcrypt.MaxCost+1).Cost())

	h := NewHasher(12)
	hashed, err := h.Hash("Password123")
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hashed))
	require.NoError(t, err)
	assert.Equal(t, 12, cost)
}

func TestHasherVerifyDummyIsAlwaysFalse(t *testing.T) {
	t.Parallel()
	h := NewHasher(bcrypt.MinCost)
	assert.False(t, h.VerifyDummy("Password123"))
	assert.False(t, h.VerifyDummy(""))
}
