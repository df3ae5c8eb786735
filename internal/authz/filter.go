// Package authz decides which other-user records a caller may see or manage,
// based on role levels.
package authz

import (
	"errors"

	"github.com/iliyamo/bizadmin-auth/internal/model"
	"github.com/iliyamo/bizadmin-auth/internal/role"
)

// ErrInsufficientRoleLevel is returned when records exist but all of them
// sit above the caller's clearance, or when a single target does.
var ErrInsufficientRoleLevel = errors.New("insufficient role level")

// Filter applies the level rule: a candidate is visible iff its level is
// not above the requester's.
type Filter struct {
	Roles role.Resolver
}

func NewFilter(r role.Resolver) Filter { return Filter{Roles: r} }

// FilterVisibleUsers drops the requester's own record and every candidate
// ranked above the requester. When other candidates exist but none survive,
// it returns ErrInsufficientRoleLevel instead of an empty slice so callers
// can tell "nothing here" from "nothing you may see". The deny is the same
// at every requester level, a mid-level caller included.
func (f Filter) FilterVisibleUsers(requesterRoles []string, requesterID uint64, candidates []model.User) ([]model.User, error) {
	level := f.Roles.LevelOf(requesterRoles)
	others := 0
	visible := make([]model.User, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == requesterID {
			continue
		}
		others++
		if f.Roles.LevelOf(c.Roles) <= level {
			visible = append(visible, c)
		}
	}
	if others > 0 && len(visible) == 0 {
		return nil, ErrInsufficientRoleLevel
	}
	return visible, nil
}

// CanAccess gates detail and mutation paths on a single record.
func (f Filter) CanAccess(requesterRoles []string, target model.User) error {
	if f.Roles.LevelOf(target.Roles) > f.Roles.LevelOf(requesterRoles) {
		return ErrInsufficientRoleLevel
	}
	return nil
}
