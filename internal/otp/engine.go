// Package otp implements the one-time-passcode challenge shared by password
// reset and email verification. One live challenge exists per (user,
// purpose); issuing a new one replaces the previous.
package otp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/bizadmin-auth/internal/model"
	"github.com/iliyamo/bizadmin-auth/internal/repository"
	"github.com/iliyamo/bizadmin-auth/internal/utils"
)

// Reason explains why Confirm rejected a passcode. Reasons are evaluated in
// the order they are declared.
type Reason string

const (
	ReasonInvalid    Reason = "invalid"
	ReasonUsed       Reason = "used"
	ReasonExpired    Reason = "expired"
	ReasonOTPInvalid Reason = "otp_invalid"
	ReasonOTPUsed    Reason = "otp_used"
	ReasonOTPExpired Reason = "otp_expired"
)

const tokenBytes = 32

// Store persists challenges. repository.ChallengeRepo implements it with a
// table per purpose.
type Store interface {
	// Replace drops every unconsumed challenge for (c.UserID, c.Purpose) and
	// inserts c, in one transaction.
	Replace(ctx context.Context, c model.Challenge) error
	FindLatest(ctx context.Context, userID uint64, purpose model.Purpose) (model.Challenge, error)
	FindByToken(ctx context.Context, purpose model.Purpose, token string) (model.Challenge, error)
	UpdateOTP(ctx context.Context, purpose model.Purpose, id uuid.UUID, otpHash string, sentAt, expiresAt time.Time) error
	// Consume flips the single-use flag and runs then in the same
	// transaction; an error from then leaves the row unconsumed.
	// repository.ErrNotFound when the row was already consumed.
	Consume(ctx context.Context, purpose model.Purpose, id uuid.UUID, at time.Time, then func(context.Context) error) error
}

// Config tunes the engine.
type Config struct {
	Length   int           // digits per passcode
	OTPTTL   time.Duration // passcode lifetime
	ResetTTL time.Duration // outer lifetime of a password-reset token
}

// Issued is what the caller hands to the mailer (and, outside production,
// back to the client).
type Issued struct {
	Challenge    model.Challenge
	Token        string
	OTP          string
	ExpiresAt    *time.Time
	OTPExpiresAt time.Time
}

// Lookup selects the challenge to confirm: by Token when set, otherwise the
// latest challenge of UserID. Email, when set, must match the challenge.
type Lookup struct {
	Purpose model.Purpose
	Token   string
	UserID  uint64
	Email   string
}

// Outcome is the result of Confirm.
type Outcome struct {
	OK        bool
	Reason    Reason
	Challenge model.Challenge
}

// Engine issues, re-sends and confirms passcodes.
type Engine struct {
	store Store
	cfg   Config
	now   func() time.Time
}

func NewEngine(store Store, cfg Config) *Engine {
	if cfg.Length <= 0 {
		cfg.Length = 6
	}
	if cfg.OTPTTL <= 0 {
		cfg.OTPTTL = 10 * time.Minute
	}
	if cfg.ResetTTL <= 0 {
		cfg.ResetTTL = time.Hour
	}
	return &Engine{store: store, cfg: cfg, now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Generate returns a zero-padded numeric passcode drawn uniformly from
// [0, 10^length).
func Generate(length int) (string, error) {
	if length <= 0 || length > 18 {
		return "", fmt.Errorf("otp: unsupported length %d", length)
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", length, n.Int64()), nil
}

// Issue creates a fresh challenge for (userID, purpose), replacing any
// outstanding one.
func (e *Engine) Issue(ctx context.Context, userID uint64, purpose model.Purpose, email string) (Issued, error) {
	if !purpose.Valid() {
		return Issued{}, fmt.Errorf("otp: unknown purpose %q", purpose)
	}
	token, err := utils.RandomHex(tokenBytes)
	if err != nil {
		return Issued{}, fmt.Errorf("otp: token: %w", err)
	}
	code, err := Generate(e.cfg.Length)
	if err != nil {
		return Issued{}, err
	}
	now := e.now().UTC()
	otpExp := now.Add(e.cfg.OTPTTL)
	c := model.Challenge{
		ID:           uuid.New(),
		UserID:       userID,
		Purpose:      purpose,
		Email:        email,
		Token:        token,
		OTPHash:      hashOTP(token, code),
		OTPSentAt:    &now,
		OTPExpiresAt: &otpExp,
		CreatedAt:    now,
	}
	if purpose == model.PurposePasswordReset {
		outer := now.Add(e.cfg.ResetTTL)
		c.TokenExpiresAt = &outer
	}
	if err := e.store.Replace(ctx, c); err != nil {
		return Issued{}, fmt.Errorf("otp: store challenge: %w", err)
	}
	return Issued{Challenge: c, Token: token, OTP: code, ExpiresAt: c.TokenExpiresAt, OTPExpiresAt: otpExp}, nil
}

// Resend keeps the live challenge's token (and its outer expiry) and
// replaces only the passcode. Without a live challenge it behaves like
// Issue. Either way the previous passcode stops validating.
func (e *Engine) Resend(ctx context.Context, userID uint64, purpose model.Purpose, email string) (Issued, error) {
	c, err := e.store.FindLatest(ctx, userID, purpose)
	if errors.Is(err, repository.ErrNotFound) {
		return e.Issue(ctx, userID, purpose, email)
	}
	if err != nil {
		return Issued{}, fmt.Errorf("otp: find challenge: %w", err)
	}
	now := e.now().UTC()
	if c.Used || (c.TokenExpiresAt != nil && !now.Before(*c.TokenExpiresAt)) || c.Email != email {
		return e.Issue(ctx, userID, purpose, email)
	}

	code, err := Generate(e.cfg.Length)
	if err != nil {
		return Issued{}, err
	}
	otpExp := now.Add(e.cfg.OTPTTL)
	h := hashOTP(c.Token, code)
	if err := e.store.UpdateOTP(ctx, purpose, c.ID, h, now, otpExp); err != nil {
		return Issued{}, fmt.Errorf("otp: update challenge: %w", err)
	}
	c.OTPHash = h
	c.OTPSentAt = &now
	c.OTPExpiresAt = &otpExp
	return Issued{Challenge: c, Token: c.Token, OTP: code, ExpiresAt: c.TokenExpiresAt, OTPExpiresAt: otpExp}, nil
}

// Confirm checks code against the selected challenge and, on success,
// consumes it and runs complete as one store transaction: when complete
// fails the passcode stays usable. The row is kept with its passcode hash
// cleared. A non-nil error is a store or completion failure; a rejected
// passcode is reported through Outcome.Reason.
func (e *Engine) Confirm(ctx context.Context, l Lookup, code string, complete func(context.Context, model.Challenge) error) (Outcome, error) {
	var (
		c   model.Challenge
		err error
	)
	if l.Token != "" {
		c, err = e.store.FindByToken(ctx, l.Purpose, l.Token)
	} else {
		c, err = e.store.FindLatest(ctx, l.UserID, l.Purpose)
	}
	if errors.Is(err, repository.ErrNotFound) {
		return Outcome{Reason: ReasonInvalid}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("otp: find challenge: %w", err)
	}
	if l.Email != "" && c.Email != l.Email {
		return Outcome{Reason: ReasonInvalid}, nil
	}

	now := e.now().UTC()
	switch {
	case c.Used:
		return Outcome{Reason: ReasonUsed, Challenge: c}, nil
	case c.TokenExpiresAt != nil && !now.Before(*c.TokenExpiresAt):
		return Outcome{Reason: ReasonExpired, Challenge: c}, nil
	case c.OTPHash == "" || !utils.EqualHash(hashOTP(c.Token, code), c.OTPHash):
		return Outcome{Reason: ReasonOTPInvalid, Challenge: c}, nil
	case c.UsedAt != nil:
		return Outcome{Reason: ReasonOTPUsed, Challenge: c}, nil
	case c.OTPExpiresAt == nil || !now.Before(*c.OTPExpiresAt):
		return Outcome{Reason: ReasonOTPExpired, Challenge: c}, nil
	}

	done := c
	done.Used = true
	done.UsedAt = &now
	done.OTPHash = ""

	var completeErr error
	err = e.store.Consume(ctx, l.Purpose, c.ID, now, func(ctx context.Context) error {
		if complete != nil {
			completeErr = complete(ctx, done)
		}
		return completeErr
	})
	switch {
	case completeErr != nil:
		return Outcome{}, completeErr
	case errors.Is(err, repository.ErrNotFound):
		// a concurrent confirm got here first
		return Outcome{Reason: ReasonOTPUsed, Challenge: c}, nil
	case err != nil:
		return Outcome{}, fmt.Errorf("otp: consume challenge: %w", err)
	}
	c = done
	return Outcome{OK: true, Challenge: c}, nil
}

// hashOTP binds the passcode to its correlation token so a code cannot be
// replayed against another challenge.
func hashOTP(token, code string) string {
	return utils.HashToken(token + ":" + code)
}

// Inspect reports the outer state of the challenge behind token without
// touching it: ReasonInvalid, ReasonUsed, ReasonExpired, or OK.
func (e *Engine) Inspect(ctx context.Context, purpose model.Purpose, token string) (Outcome, error) {
	c, err := e.store.FindByToken(ctx, purpose, token)
	if errors.Is(err, repository.ErrNotFound) {
		return Outcome{Reason: ReasonInvalid}, nil
	}
	if err != nil {
		return Outcome{}, fmt.Errorf("otp: find challenge: %w", err)
	}
	switch {
	case c.Used:
		return Outcome{Reason: ReasonUsed, Challenge: c}, nil
	case c.TokenExpiresAt != nil && !e.now().Before(*c.TokenExpiresAt):
		return Outcome{Reason: ReasonExpired, Challenge: c}, nil
	}
	return Outcome{OK: true, Challenge: c}, nil
}
