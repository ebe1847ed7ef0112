package jwtauth

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestManager_RoundTrip(t *testing.T) {
	m := NewManager("test-secret")

	token, err := m.GenerateToken("admin@example.com", "admin")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "admin@example.com", claims.Subject)
	require.Equal(t, "admin", claims.Role)
}

func TestManager_RejectsWrongSecret(t *testing.T) {
	token, err := NewManager("secret-a").GenerateToken("admin@example.com", "admin")
	require.NoError(t, err)

	_, err = NewManager("secret-b").ValidateToken(token)
	require.Error(t, err)
}

func TestManager_RejectsGarbage(t *testing.T) {
	_, err := NewManager("secret").ValidateToken("not-a-jwt")
	require.Error(t, err)
}
