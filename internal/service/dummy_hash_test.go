package service

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/iliyamo/bizadmin-auth/internal/utils"
)

// The unknown-email path must pay the same bcrypt cost as a stored hash.
func TestDummyHashFollowsConfiguredCost(t *testing.T) {
	for _, configured := range []int{0, bcrypt.MinCost, bcrypt.MinCost + 2} {
		svc := NewAuthService(Deps{Logger: zerolog.Nop()}, Options{BcryptCost: configured})

		stored, err := utils.HashPassword("s3cret-password", configured)
		require.NoError(t, err)
		want, err := bcrypt.Cost([]byte(stored))
		require.NoError(t, err)

		got, err := bcrypt.Cost([]byte(svc.dummyHash))
		require.NoError(t, err)
		require.Equal(t, want, got, "configured cost %d", configured)
		require.False(t, utils.BurnPasswordCheck(svc.dummyHash, "s3cret-password"))
	}
}
