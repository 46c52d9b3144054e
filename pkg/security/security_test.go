package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherRoundTrip(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cret-pass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-pass", hash)
	assert.NoError(t, h.Compare(hash, "s3cret-pass"))
	assert.Error(t, h.Compare(hash, "wrong-pass"))
}

func TestBcryptHasherAcceptsShortLegacySecrets(t *testing.T) {
	h := NewBcryptHasher(bcrypt.MinCost)
	hash, err := h.Hash("abc")
	require.NoError(t, err)
	assert.NoError(t, h.Compare(hash, "abc"))
}

func TestIsStrongPassword(t *testing.T) {
	assert.False(t, IsStrongPassword("1234567"))
	assert.True(t, IsStrongPassword("12345678"))
}

func TestSecretsEqual(t *testing.T) {
	assert.True(t, SecretsEqual("qwerty123", "qwerty123"))
	assert.False(t, SecretsEqual("qwerty123", "qwerty124"))
	assert.False(t, SecretsEqual("", ""))
}

func TestGenerateToken(t *testing.T) {
	a, err := GenerateToken(ResetTokenBytes)
	require.NoError(t, err)
	b, err := GenerateToken(ResetTokenBytes)
	require.NoError(t, err)

	assert.Len(t, a, ResetTokenBytes*2)
	assert.NotEqual(t, a, b)
}
