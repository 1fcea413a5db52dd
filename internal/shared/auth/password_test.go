package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasherRoundTrip(t *testing.T) {
	h, err := NewPasswordHasher(bcrypt.MinCost, "pepper")
	require.NoError(t, err)

	hash, err := h.Hash("password123")
	require.NoError(t, err)
	assert.NotEqual(t, "password123", hash)

	assert.NoError(t, h.Verify("password123", hash))
	assert.ErrorIs(t, h.Verify("password124", hash), ErrPasswordMismatch)
	assert.ErrorIs(t, h.Verify("password123", ""), ErrPasswordMismatch)
}

func TestPasswordHasherPepperMatters(t *testing.T) {
	peppered, err := NewPasswordHasher(bcrypt.MinCost, "pepper")
	require.NoError(t, err)
	plain, err := NewPasswordHasher(bcrypt.MinCost, "")
	require.NoError(t, err)

	hash, err := peppered.Hash("password123")
	require.NoError(t, err)
	assert.ErrorIs(t, plain.Verify("password123", hash), ErrPasswordMismatch)
}

func TestNewPasswordHasherRejectsCost(t *testing.T) {
	_, err := NewPasswordHasher(2, "")
	assert.Error(t, err)
	_, err = NewPasswordHasher(20, "")
	assert.Error(t, err)
}
