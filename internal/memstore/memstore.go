// Package memstore keeps users, sessions and challenges in process memory.
// It mirrors the MySQL repositories row for row (including their
// conditional updates) and backs the service and handler tests.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bizadmin-auth/internal/model"
	"github.com/iliyamo/bizadmin-auth/internal/repository"
)

// Users is an in-memory user store.
type Users struct {
	mu     sync.Mutex
	nextID uint64
	byID   map[uint64]model.User
}

func NewUsers() *Users {
	return &Users{byID: map[uint64]model.User{}}
}

// Add stores u and returns it with an assigned ID. PasswordHash must already
// be a bcrypt hash.
func (s *Users) Add(u model.User) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	u.ID = s.nextID
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	s.byID[u.ID] = u
	return u
}

func (s *Users) GetByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, repository.ErrNotFound
}

func (s *Users) GetByID(_ context.Context, id uint64) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *Users) ListByTenant(_ context.Context, tenantID string) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.User
	for _, u := range s.byID {
		if u.TenantID == tenantID {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Users) UpdatePassword(_ context.Context, id uint64, hash string) error {
	return s.update(id, func(u *model.User) { u.PasswordHash = hash })
}

func (s *Users) MarkEmailVerified(_ context.Context, id uint64, email string, at time.Time) error {
	return s.update(id, func(u *model.User) {
		u.Email = strings.ToLower(strings.TrimSpace(email))
		u.EmailVerifiedAt = &at
	})
}

func (s *Users) TouchLastLogin(_ context.Context, id uint64, at time.Time) error {
	return s.update(id, func(u *model.User) { u.LastLoginAt = &at })
}

// SetActive suspends or reactivates an account.
func (s *Users) SetActive(id uint64, active bool) error {
	return s.update(id, func(u *model.User) { u.IsActive = active })
}

func (s *Users) update(id uint64, fn func(*model.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	fn(&u)
	u.UpdatedAt = time.Now().UTC()
	s.byID[id] = u
	return nil
}

// Sessions is an in-memory session.Store.
type Sessions struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.Session
}

func NewSessions() *Sessions {
	return &Sessions{rows: map[uuid.UUID]model.Session{}}
}

func (s *Sessions) Create(_ context.Context, row model.Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[row.ID] = row
	return nil
}

func (s *Sessions) FindByHash(_ context.Context, userID uint64, tokenHash string) (model.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.UserID == userID && row.TokenHash == tokenHash {
			return row, nil
		}
	}
	return model.Session{}, repository.ErrNotFound
}

func (s *Sessions) Rotate(_ context.Context, id uuid.UUID, oldHash, newHash string, expiresAt time.Time, meta model.ClientMeta, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.TokenHash != oldHash || row.RevokedAt != nil {
		return repository.ErrNotFound
	}
	row.TokenHash = newHash
	row.ExpiresAt = expiresAt
	row.LastUsedAt = &now
	if meta.UserAgent != "" {
		row.UserAgent = meta.UserAgent
	}
	if meta.ClientIP != "" {
		row.ClientIP = meta.ClientIP
	}
	s.rows[id] = row
	return nil
}

func (s *Sessions) Revoke(_ context.Context, id uuid.UUID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if row, ok := s.rows[id]; ok && row.RevokedAt == nil {
		row.RevokedAt = &at
		s.rows[id] = row
	}
	return nil
}

func (s *Sessions) RevokeAllForUser(_ context.Context, userID uint64, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, row := range s.rows {
		if row.UserID == userID && row.RevokedAt == nil {
			row.RevokedAt = &at
			s.rows[id] = row
			n++
		}
	}
	return n, nil
}

// Active counts the user's unrevoked sessions.
func (s *Sessions) Active(userID uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, row := range s.rows {
		if row.UserID == userID && row.RevokedAt == nil {
			n++
		}
	}
	return n
}

// Challenges is an in-memory otp.Store.
type Challenges struct {
	mu   sync.Mutex
	rows map[uuid.UUID]model.Challenge
}

func NewChallenges() *Challenges {
	return &Challenges{rows: map[uuid.UUID]model.Challenge{}}
}

func (s *Challenges) Replace(_ context.Context, c model.Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, row := range s.rows {
		if row.UserID == c.UserID && row.Purpose == c.Purpose && !row.Used {
			delete(s.rows, id)
		}
	}
	s.rows[c.ID] = c
	return nil
}

func (s *Challenges) FindLatest(_ context.Context, userID uint64, purpose model.Purpose) (model.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		latest model.Challenge
		found  bool
	)
	for _, row := range s.rows {
		if row.UserID != userID || row.Purpose != purpose {
			continue
		}
		if !found || preferChallenge(row, latest) {
			latest, found = row, true
		}
	}
	if !found {
		return model.Challenge{}, repository.ErrNotFound
	}
	return latest, nil
}

// preferChallenge mirrors ORDER BY used ASC, created_at DESC, id DESC.
func preferChallenge(a, b model.Challenge) bool {
	if a.Used != b.Used {
		return !a.Used
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID.String() > b.ID.String()
}

func (s *Challenges) FindByToken(_ context.Context, purpose model.Purpose, token string) (model.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.rows {
		if row.Purpose == purpose && row.Token == token {
			return row, nil
		}
	}
	return model.Challenge{}, repository.ErrNotFound
}

func (s *Challenges) UpdateOTP(_ context.Context, purpose model.Purpose, id uuid.UUID, otpHash string, sentAt, expiresAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.Purpose != purpose || row.Used {
		return repository.ErrNotFound
	}
	row.OTPHash = otpHash
	row.OTPSentAt = &sentAt
	row.OTPExpiresAt = &expiresAt
	s.rows[id] = row
	return nil
}

// Consume marks the row used only after then succeeds, matching the SQL
// transaction rollback.
func (s *Challenges) Consume(ctx context.Context, purpose model.Purpose, id uuid.UUID, at time.Time, then func(context.Context) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.rows[id]
	if !ok || row.Purpose != purpose || row.Used {
		return repository.ErrNotFound
	}
	if then != nil {
		if err := then(ctx); err != nil {
			return err
		}
	}
	row.Used = true
	row.UsedAt = &at
	row.OTPHash = ""
	s.rows[id] = row
	return nil
}

// Count returns how many rows exist for (userID, purpose).
func (s *Challenges) Count(userID uint64, purpose model.Purpose) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, row := range s.rows {
		if row.UserID == userID && row.Purpose == purpose {
			n++
		}
	}
	return n
}
