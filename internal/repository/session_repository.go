package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bizadmin-auth/internal/model"
)

// SessionRepo persists refresh-token sessions (one row per login lineage,
// keyed by the token hash).
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

const sessionColumns = "id, user_id, token_hash, user_agent, client_ip, expires_at, revoked_at, last_used_at, created_at"

// Create inserts a session row.
func (r *SessionRepo) Create(ctx context.Context, s model.Session) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (id, user_id, token_hash, user_agent, client_ip, expires_at, created_at) VALUES (?,?,?,?,?,?,?)",
		s.ID, s.UserID, s.TokenHash, s.UserAgent, s.ClientIP, s.ExpiresAt, s.CreatedAt)
	return err
}

// FindByHash returns the session of userID whose hash matches.
func (r *SessionRepo) FindByHash(ctx context.Context, userID uint64, tokenHash string) (model.Session, error) {
	var (
		s        model.Session
		revoked  sql.NullTime
		lastUsed sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE user_id = ? AND token_hash = ? LIMIT 1",
		userID, tokenHash).Scan(&s.ID, &s.UserID, &s.TokenHash, &s.UserAgent, &s.ClientIP,
		&s.ExpiresAt, &revoked, &lastUsed, &s.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrNotFound
	}
	if err != nil {
		return model.Session{}, err
	}
	s.RevokedAt = nullTimePtr(revoked)
	s.LastUsedAt = nullTimePtr(lastUsed)
	return s, nil
}

// Rotate swaps the hash in a single statement keyed by the old hash. Only a
// live row qualifies, so a rotation racing a logout cannot resurrect it.
// ErrNotFound means nothing matched: another rotation or a revoke won.
func (r *SessionRepo) Rotate(ctx context.Context, id uuid.UUID, oldHash, newHash string, expiresAt time.Time, meta model.ClientMeta, now time.Time) error {
	res, err := r.DB.ExecContext(ctx,
		`UPDATE sessions
SET token_hash = ?, expires_at = ?, revoked_at = NULL, last_used_at = ?,
    user_agent = COALESCE(NULLIF(?, ''), user_agent),
    client_ip = COALESCE(NULLIF(?, ''), client_ip)
WHERE id = ? AND token_hash = ? AND revoked_at IS NULL`,
		newHash, expiresAt, now, meta.UserAgent, meta.ClientIP, id, oldHash)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Revoke marks one session revoked. Already revoked rows are left alone.
func (r *SessionRepo) Revoke(ctx context.Context, id uuid.UUID, at time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at = ? WHERE id = ? AND revoked_at IS NULL", at, id)
	return err
}

// RevokeAllForUser revokes all user's active sessions.
func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID uint64, at time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET revoked_at = ? WHERE user_id = ? AND revoked_at IS NULL", at, userID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
