// Package session tracks refresh tokens server-side. Only a hash of each
// refresh token is persisted; a successful refresh rewrites the hash on the
// same row so the previous token stops matching anything.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bizadmin-auth/internal/model"
	"github.com/iliyamo/bizadmin-auth/internal/repository"
	"github.com/iliyamo/bizadmin-auth/internal/utils"
)

// Reason explains a negative Verify or Revoke outcome.
type Reason string

const (
	ReasonNotFound       Reason = "not_found"
	ReasonRevoked        Reason = "revoked"
	ReasonExpired        Reason = "expired"
	ReasonAlreadyRevoked Reason = "already_revoked"
)

// Metadata column widths.
const (
	maxUserAgent = 255
	maxClientIP  = 64
)

// ErrRotateConflict means the row's hash changed between Verify and Rotate,
// i.e. another request already rotated this token.
var ErrRotateConflict = errors.New("session: rotate conflict")

// Store is the persistence the registry needs. repository.SessionRepo
// implements it over MySQL.
type Store interface {
	Create(ctx context.Context, s model.Session) error
	FindByHash(ctx context.Context, userID uint64, tokenHash string) (model.Session, error)
	Rotate(ctx context.Context, id uuid.UUID, oldHash, newHash string, expiresAt time.Time, meta model.ClientMeta, now time.Time) error
	Revoke(ctx context.Context, id uuid.UUID, at time.Time) error
	RevokeAllForUser(ctx context.Context, userID uint64, at time.Time) (int64, error)
}

// Result is the outcome of Verify and Revoke.
type Result struct {
	OK      bool
	Reason  Reason
	Session model.Session
}

// Registry implements create / verify / rotate / revoke over a Store.
type Registry struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewRegistry builds a Registry whose sessions live for ttl.
func NewRegistry(store Store, ttl time.Duration) *Registry {
	return &Registry{store: store, ttl: ttl, now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Create records a new session for refreshToken.
func (r *Registry) Create(ctx context.Context, userID uint64, refreshToken string, meta model.ClientMeta) (model.Session, error) {
	now := r.now().UTC()
	s := model.Session{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: utils.HashToken(refreshToken),
		UserAgent: utils.Truncate(meta.UserAgent, maxUserAgent),
		ClientIP:  utils.Truncate(meta.ClientIP, maxClientIP),
		ExpiresAt: now.Add(r.ttl),
		CreatedAt: now,
	}
	if err := r.store.Create(ctx, s); err != nil {
		return model.Session{}, fmt.Errorf("create session: %w", err)
	}
	return s, nil
}

// Verify looks the token up by (userID, hash). Reasons are checked in the
// order not_found, revoked, expired.
func (r *Registry) Verify(ctx context.Context, userID uint64, refreshToken string) (Result, error) {
	s, err := r.store.FindByHash(ctx, userID, utils.HashToken(refreshToken))
	if errors.Is(err, repository.ErrNotFound) {
		return Result{Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("find session: %w", err)
	}
	if s.RevokedAt != nil {
		return Result{Reason: ReasonRevoked, Session: s}, nil
	}
	if !r.now().Before(s.ExpiresAt) {
		return Result{Reason: ReasonExpired, Session: s}, nil
	}
	return Result{OK: true, Session: s}, nil
}

// Rotate replaces hash, expiry and metadata on the same row. The update is
// conditional on the old hash, so of two concurrent rotations only one wins;
// the loser gets ErrRotateConflict.
func (r *Registry) Rotate(ctx context.Context, s model.Session, newRefreshToken string, meta model.ClientMeta) (model.Session, error) {
	now := r.now().UTC()
	newHash := utils.HashToken(newRefreshToken)
	exp := now.Add(r.ttl)
	meta.UserAgent = utils.Truncate(meta.UserAgent, maxUserAgent)
	meta.ClientIP = utils.Truncate(meta.ClientIP, maxClientIP)

	err := r.store.Rotate(ctx, s.ID, s.TokenHash, newHash, exp, meta, now)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Session{}, ErrRotateConflict
	}
	if err != nil {
		return model.Session{}, fmt.Errorf("rotate session: %w", err)
	}
	s.TokenHash = newHash
	s.ExpiresAt = exp
	s.RevokedAt = nil
	s.LastUsedAt = &now
	if meta.UserAgent != "" {
		s.UserAgent = meta.UserAgent
	}
	if meta.ClientIP != "" {
		s.ClientIP = meta.ClientIP
	}
	return s, nil
}

// Revoke marks the session revoked. It is idempotent: a second call reports
// OK with ReasonAlreadyRevoked, and an unknown token reports OK with
// ReasonNotFound.
func (r *Registry) Revoke(ctx context.Context, userID uint64, refreshToken string) (Result, error) {
	s, err := r.store.FindByHash(ctx, userID, utils.HashToken(refreshToken))
	if errors.Is(err, repository.ErrNotFound) {
		return Result{OK: true, Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return Result{}, fmt.Errorf("find session: %w", err)
	}
	if s.RevokedAt != nil {
		return Result{OK: true, Reason: ReasonAlreadyRevoked, Session: s}, nil
	}
	now := r.now().UTC()
	if err := r.store.Revoke(ctx, s.ID, now); err != nil {
		return Result{}, fmt.Errorf("revoke session: %w", err)
	}
	s.RevokedAt = &now
	return Result{OK: true, Session: s}, nil
}

// RevokeAll revokes every active session of userID and returns how many
// rows changed.
func (r *Registry) RevokeAll(ctx context.Context, userID uint64) (int64, error) {
	n, err := r.store.RevokeAllForUser(ctx, userID, r.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("revoke all sessions: %w", err)
	}
	return n, nil
}
