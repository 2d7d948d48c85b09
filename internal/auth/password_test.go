package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/spec-kit/ticket-routing/internal/auth"
)

func TestHashAndComparePassword(t *testing.T) {
	hash, err := auth.HashPassword("s3cret", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", hash)

	assert.NoError(t, auth.ComparePassword(hash, "s3cret"))
	assert.Error(t, auth.ComparePassword(hash, "wrong"))
}

func TestHashPasswordOutOfRangeCostFallsBack(t *testing.T) {
	// A zero-valued config must not produce a degenerate hash.
	hash, err := auth.HashPassword("s3cret", 0)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
