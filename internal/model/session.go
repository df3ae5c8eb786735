package model

import (
	"time"

	"github.com/google/uuid"
)

// Session models an entry in the `sessions` table. Each row tracks one
// outstanding refresh-token lineage: the raw token is never stored, only
// its SHA-256 hex digest. A successful refresh overwrites TokenHash and
// ExpiresAt on the same row.
type Session struct {
	ID         uuid.UUID  // sessions.id
	UserID     uint64     // sessions.user_id
	TokenHash  string     // sessions.token_hash
	UserAgent  string     // sessions.user_agent (truncated)
	ClientIP   string     // sessions.client_ip (truncated)
	ExpiresAt  time.Time  // sessions.expires_at
	RevokedAt  *time.Time // sessions.revoked_at (nullable)
	LastUsedAt *time.Time // sessions.last_used_at (nullable)
	CreatedAt  time.Time  // sessions.created_at
}

// ClientMeta is the optional request metadata recorded on a session.
type ClientMeta struct {
	UserAgent string
	ClientIP  string
}

// Active reports whether the session is neither revoked nor expired at now.
func (s Session) Active(now time.Time) bool {
	return s.RevokedAt == nil && now.Before(s.ExpiresAt)
}
