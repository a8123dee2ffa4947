package hash

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndCheckPassword(t *testing.T) {
	h, err := HashPassword("secret123")
	require.NoError(t, err)
	require.NotEqual(t, "secret123", h)

	require.True(t, CheckPassword(h, "secret123"))
	require.False(t, CheckPassword(h, "wrong"))
	require.False(t, CheckPassword("not a hash", "secret123"))
}

func TestHashesAreSalted(t *testing.T) {
	h1, err := HashPassword("secret123")
	require.NoError(t, err)
	h2, err := HashPassword("secret123")
	require.NoError(t, err)
	require.NotEqual(t, h1, h2)
}
