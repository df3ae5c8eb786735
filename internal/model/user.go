package model

import "time"

// User represents an account record as stored in the `users` table
// joined with its `user_roles` rows. The struct is used internally by the
// repository and service layers; handlers never serialize it directly and
// go through one of the projections in projection.go instead so the
// password hash cannot leak.
//
// Fields:
//
//	ID              – primary key identifier of the user.
//	TenantID        – organization (hospital, school, guard company) the user belongs to.
//	Email           – unique within the tenant.
//	PasswordHash    – bcrypt hashed password.
//	IsActive        – false when the account is suspended.
//	Roles           – assigned role names (see package role for levels).
//	EmailVerifiedAt – when the current email was confirmed, nil if never.
//	LastLoginAt     – timestamp of the last successful login.
type User struct {
	ID              uint64     // users.id
	TenantID        string     // users.tenant_id
	Email           string     // users.email
	PasswordHash    string     // users.password_hash
	FullName        string     // users.full_name
	IsActive        bool       // users.is_active
	Roles           []string   // user_roles.role_name
	EmailVerifiedAt *time.Time // users.email_verified_at (nullable)
	LastLoginAt     *time.Time // users.last_login_at (nullable)
	CreatedAt       time.Time  // users.created_at
	UpdatedAt       time.Time  // users.updated_at
}

// HasRole reports whether name is one of the user's assigned roles.
func (u User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r == name {
			return true
		}
	}
	return false
}
