package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndVerify(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}

	tests := []struct {
		name     string
		password string
	}{
		{name: "simple password", password: "password123"},
		{name: "complex password", password: "P@ssw0rd!#$%^&*()"},
		{name: "unicode password", password: "密码123"},
		{name: "empty password", password: ""},
		{name: "exactly 72 bytes", password: strings.Repeat("a", 72)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.password)
			require.NoError(t, err)
			assert.NotEqual(t, tt.password, hash)
			assert.True(t, h.Verify(hash, tt.password))
			assert.False(t, h.Verify(hash, tt.password+"x"))
		})
	}
}

func TestBcryptHasher_Salted(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	assert.True(t, h.Verify(a, "same"))
	assert.True(t, h.Verify(b, "same"))
}

func TestBcryptHasher_VerifyMalformedHash(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}

	for _, hash := range []string{"", "plain", "$2b$", "$2b$04$short"} {
		assert.False(t, h.Verify(hash, "plain"), "hash %q", hash)
	}
}

func TestBcryptHasher_RejectsOverlongPassword(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}

	_, err := h.Hash(strings.Repeat("a", 73))
	require.ErrorIs(t, err, ErrPasswordTooLong)
}

func TestBcryptHasher_VerifyRejectsTruncatedMatch(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}
	pw := strings.Repeat("a", 72)
	hash, err := h.Hash(pw)
	require.NoError(t, err)

	assert.True(t, h.Verify(hash, pw))
	for _, suffix := range []string{"a", "x", "WRONG-SUFFIX"} {
		assert.False(t, h.Verify(hash, pw+suffix), "suffix %q", suffix)
	}
}

func TestBcryptHasher_NeedsRehash(t *testing.T) {
	low := BcryptHasher{Cost: bcrypt.MinCost}
	hash, err := low.Hash("pw")
	require.NoError(t, err)

	assert.False(t, low.NeedsRehash(hash))
	assert.True(t, BcryptHasher{Cost: bcrypt.MinCost + 1}.NeedsRehash(hash))
	assert.False(t, low.NeedsRehash("not a hash"))
}

func TestBcryptHasher_ZeroCostUsesDefault(t *testing.T) {
	assert.Equal(t, bcrypt.DefaultCost, BcryptHasher{}.cost())
}
