package authz_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bizadmin-auth/internal/authz"
	"github.com/iliyamo/bizadmin-auth/internal/model"
	"github.com/iliyamo/bizadmin-auth/internal/role"
)

func user(id uint64, roles ...string) model.User {
	return model.User{ID: id, Roles: roles}
}

func ids(users []model.User) []uint64 {
	out := make([]uint64, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

func TestFilterVisibleUsers(t *testing.T) {
	f := authz.NewFilter(role.Default())
	candidates := []model.User{
		user(1, "sub_admin"),
		user(2, "owner"),
		user(3, "teacher"),
		user(4, "supervisor"),
		user(5, "admin"),
	}

	visible, err := f.FilterVisibleUsers([]string{"sub_admin"}, 1, candidates)
	require.NoError(t, err)
	require.Equal(t, []uint64{3, 4, 5}, ids(visible))
}

func TestFilterVisibleUsersAllAbove(t *testing.T) {
	f := authz.NewFilter(role.Default())
	candidates := []model.User{user(1, "staff"), user(2, "owner"), user(3, "admin")}

	_, err := f.FilterVisibleUsers([]string{"staff"}, 1, candidates)
	require.ErrorIs(t, err, authz.ErrInsufficientRoleLevel)
}

func TestFilterVisibleUsersDeniesAtEveryLevel(t *testing.T) {
	f := authz.NewFilter(role.Default())
	for _, r := range []string{"staff", "supervisor", "admin"} {
		above := []model.User{user(1, r), user(2, "owner")}
		if r == "staff" {
			above = append(above, user(3, "supervisor"))
		}
		_, err := f.FilterVisibleUsers([]string{r}, 1, above)
		require.ErrorIs(t, err, authz.ErrInsufficientRoleLevel, r)
	}

	visible, err := f.FilterVisibleUsers([]string{"owner"}, 2, []model.User{user(1, "admin"), user(2, "owner")})
	require.NoError(t, err)
	require.Equal(t, []uint64{1}, ids(visible))
}

func TestFilterVisibleUsersOnlySelf(t *testing.T) {
	f := authz.NewFilter(role.Default())

	visible, err := f.FilterVisibleUsers([]string{"staff"}, 1, []model.User{user(1, "staff")})
	require.NoError(t, err)
	require.Empty(t, visible)

	visible, err = f.FilterVisibleUsers([]string{"staff"}, 1, nil)
	require.NoError(t, err)
	require.Empty(t, visible)
}

func TestCanAccess(t *testing.T) {
	f := authz.NewFilter(role.Default())
	require.NoError(t, f.CanAccess([]string{"admin"}, user(2, "sub_admin")))
	require.NoError(t, f.CanAccess([]string{"nurse"}, user(2, "guard")))
	require.ErrorIs(t, f.CanAccess([]string{"head_nurse"}, user(2, "admin")), authz.ErrInsufficientRoleLevel)
}
