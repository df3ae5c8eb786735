package model

import (
	"strconv"
	"time"
)

// PublicUser is the caller's own view of their account.
type PublicUser struct {
	ID              string     `json:"id"`
	TenantID        string     `json:"tenant_id"`
	Email           string     `json:"email"`
	FullName        string     `json:"full_name"`
	IsActive        bool       `json:"is_active"`
	Roles           []string   `json:"roles"`
	EmailVerified   bool       `json:"email_verified"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	LastLoginAt     *time.Time `json:"last_login_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// ListUser is one row of a user listing.
type ListUser struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	IsActive bool     `json:"is_active"`
	Roles    []string `json:"roles"`
}

// ProfileUser is the minimal card shown to other users.
type ProfileUser struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
}

func ToPublic(u User) PublicUser {
	return PublicUser{
		ID:              strconv.FormatUint(u.ID, 10),
		TenantID:        u.TenantID,
		Email:           u.Email,
		FullName:        u.FullName,
		IsActive:        u.IsActive,
		Roles:           copyRoles(u.Roles),
		EmailVerified:   u.EmailVerifiedAt != nil,
		EmailVerifiedAt: u.EmailVerifiedAt,
		LastLoginAt:     u.LastLoginAt,
		CreatedAt:       u.CreatedAt,
	}
}

func ToList(u User) ListUser {
	return ListUser{
		ID:       strconv.FormatUint(u.ID, 10),
		Email:    u.Email,
		FullName: u.FullName,
		IsActive: u.IsActive,
		Roles:    copyRoles(u.Roles),
	}
}

func ToProfile(u User) ProfileUser {
	return ProfileUser{ID: strconv.FormatUint(u.ID, 10), FullName: u.FullName}
}

// ToListAll maps ToList over users.
func ToListAll(users []User) []ListUser {
	out := make([]ListUser, 0, len(users))
	for _, u := range users {
		out = append(out, ToList(u))
	}
	return out
}

func copyRoles(in []string) []string {
	if in == nil {
		return []string{}
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
