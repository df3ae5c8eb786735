package utils_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/bizadmin-auth/internal/utils"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := utils.HashPassword("correct horse", bcrypt.MinCost)
	require.NoError(t, err)
	require.NotEqual(t, "correct horse", hash)

	require.True(t, utils.VerifyPassword(hash, "correct horse"))
	require.False(t, utils.VerifyPassword(hash, "wrong horse"))
	require.False(t, utils.VerifyPassword("not-a-hash", "correct horse"))
}

func TestHashPasswordFallsBackToDefaultCost(t *testing.T) {
	hash, err := utils.HashPassword("pw", 99)
	require.NoError(t, err)
	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	require.Equal(t, bcrypt.DefaultCost, cost)
}

func TestDummyHashUsesRequestedCost(t *testing.T) {
	for _, c := range []int{bcrypt.MinCost, bcrypt.MinCost + 2} {
		dummy, err := utils.NewDummyHash(c)
		require.NoError(t, err)

		cost, err := bcrypt.Cost([]byte(dummy))
		require.NoError(t, err)
		require.Equal(t, c, cost)
	}
}

func TestBurnPasswordCheckNeverMatches(t *testing.T) {
	dummy, err := utils.NewDummyHash(bcrypt.MinCost)
	require.NoError(t, err)

	require.False(t, utils.BurnPasswordCheck(dummy, ""))
	require.False(t, utils.BurnPasswordCheck(dummy, "anything"))
}
