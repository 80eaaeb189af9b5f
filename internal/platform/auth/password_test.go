package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	t.Parallel()

	h := NewBcryptHasher(bcrypt.MinCost)

	hash, err := h.Hash("s3cretpass")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cretpass", hash)

	assert.NoError(t, h.Compare(hash, "s3cretpass"))
	assert.Error(t, h.Compare(hash, "wrongpass"))
}

func TestNewBcryptHasher_FallsBackToDefaultCost(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewBcryptHasher(99).cost)
	assert.Equal(t, 12, NewBcryptHasher(12).cost)
}
