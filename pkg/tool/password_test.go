package tool

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateTempPassword_LengthAndClasses(t *testing.T) {
	for i := 0; i < 50; i++ {
		p := GenerateTempPassword(12)
		require.Len(t, p, 12)
		require.True(t, strings.ContainsAny(p, passwordLower), p)
		require.True(t, strings.ContainsAny(p, passwordUpper), p)
		require.True(t, strings.ContainsAny(p, passwordDigits), p)
		require.True(t, strings.ContainsAny(p, passwordSymbols), p)
	}
}

func TestGenerateTempPassword_ShortLengthFallsBack(t *testing.T) {
	require.Len(t, GenerateTempPassword(0), 12)
	require.Len(t, GenerateTempPassword(3), 12)
	require.Len(t, GenerateTempPassword(4), 4)
}
