package utils_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bizadmin-auth/internal/utils"
)

func TestHashToken(t *testing.T) {
	h := utils.HashToken("abc")
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", h)
	require.True(t, utils.EqualHash(h, utils.HashToken("abc")))
	require.False(t, utils.EqualHash(h, utils.HashToken("abd")))
	require.False(t, utils.EqualHash("", ""))
}

func TestRandomHex(t *testing.T) {
	a, err := utils.RandomHex(32)
	require.NoError(t, err)
	b, err := utils.RandomHex(32)
	require.NoError(t, err)
	require.Len(t, a, 64)
	require.NotEqual(t, a, b)
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "hello", utils.Truncate("hello", 10))
	require.Equal(t, "hel", utils.Truncate("hello", 3))
	require.Equal(t, "", utils.Truncate("hello", 0))
	// é is two bytes; cutting through it drops the partial rune
	require.Equal(t, "h", utils.Truncate("héllo", 2))
	require.Equal(t, "hé", utils.Truncate("héllo", 3))
}
