// Package service implements the credential and session lifecycle: login,
// refresh-token rotation, logout, and the OTP driven password reset and
// email verification flows.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"github.com/iliyamo/bizadmin-auth/internal/mailer"
	"github.com/iliyamo/bizadmin-auth/internal/metrics"
	"github.com/iliyamo/bizadmin-auth/internal/model"
	"github.com/iliyamo/bizadmin-auth/internal/otp"
	"github.com/iliyamo/bizadmin-auth/internal/repository"
	"github.com/iliyamo/bizadmin-auth/internal/session"
	"github.com/iliyamo/bizadmin-auth/internal/utils"
)

// Messages returned by the request/resend endpoints regardless of whether
// the account exists.
const (
	ResetRequestedMessage        = "If that account exists, a password reset code has been sent."
	VerificationRequestedMessage = "If that account exists, a verification code has been sent."
)

// UserStore is the part of the credential store the service needs.
// repository.UserRepo implements it.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	UpdatePassword(ctx context.Context, id uint64, hash string) error
	MarkEmailVerified(ctx context.Context, id uint64, email string, at time.Time) error
	TouchLastLogin(ctx context.Context, id uint64, at time.Time) error
}

// Options tunes AuthService.
type Options struct {
	BcryptCost        int
	MinPasswordLength int
	OTPTTL            time.Duration
	ResetURL          string
	// Production hides debug tokens/passcodes from responses.
	Production bool
	// RevokeOnReuse revokes every session of a user when a valid refresh
	// token no longer matches any session (i.e. it was already rotated).
	RevokeOnReuse bool
	// MailTimeout bounds a single background dispatch.
	MailTimeout time.Duration
}

// Deps bundles the collaborators of AuthService. Mail and Metrics may be nil.
type Deps struct {
	Users    UserStore
	Sessions *session.Registry
	OTP      *otp.Engine
	Signer   *utils.Signer
	Mail     mailer.Sender
	Metrics  *metrics.Metrics
	Logger   zerolog.Logger
}

// TokenInfo is one signed token with its timestamps.
type TokenInfo struct {
	Token     string    `json:"token"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AuthResult is returned by Login and Refresh.
type AuthResult struct {
	User    model.PublicUser `json:"user"`
	Access  TokenInfo        `json:"access"`
	Refresh TokenInfo        `json:"refresh"`
}

// ChallengeResponse is the enumeration-safe reply to a request or resend.
// Debug fields are only populated outside production, and only when the
// account exists.
type ChallengeResponse struct {
	Message         string     `json:"message"`
	DebugToken      string     `json:"debug_token,omitempty"`
	DebugOTP        string     `json:"debug_otp,omitempty"`
	DebugExpiresAt  *time.Time `json:"debug_expires_at,omitempty"`
	DebugOTPExpires *time.Time `json:"debug_otp_expires_at,omitempty"`
}

// AuthService orchestrates the credential store, token signer, session
// registry and OTP engine.
type AuthService struct {
	users    UserStore
	sessions *session.Registry
	otp      *otp.Engine
	signer   *utils.Signer
	mail     mailer.Sender
	metrics  *metrics.Metrics
	log      zerolog.Logger
	opts     Options
	now      func() time.Time

	// dummyHash shares BcryptCost with stored hashes so an unknown email
	// costs the same as a wrong password.
	dummyHash string
}

func NewAuthService(d Deps, opts Options) *AuthService {
	if opts.MinPasswordLength <= 0 {
		opts.MinPasswordLength = 8
	}
	if opts.OTPTTL <= 0 {
		opts.OTPTTL = 10 * time.Minute
	}
	if opts.MailTimeout <= 0 {
		opts.MailTimeout = 15 * time.Second
	}
	log := d.Logger.With().Str("component", "auth").Logger()
	dummy, err := utils.NewDummyHash(opts.BcryptCost)
	if err != nil {
		log.Error().Err(err).Msg("generate dummy password hash")
	}
	return &AuthService{
		users:    d.Users,
		sessions: d.Sessions,
		otp:      d.OTP,
		signer:   d.Signer,
		mail:     d.Mail,
		metrics:  d.Metrics,
		log:      log,
		opts:     opts,
		now:      time.Now,

		dummyHash: dummy,
	}
}

// WithClock replaces the time source. Intended for tests.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Login verifies email and password of an active user and opens a new
// session. Unknown email, wrong password and suspended account all return
// ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string, meta model.ClientMeta) (AuthResult, error) {
	u, err := s.users.GetByEmail(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return AuthResult{}, fmt.Errorf("load user: %w", err)
	}

	ok := false
	if err == nil {
		ok = utils.VerifyPassword(u.PasswordHash, password)
	} else {
		ok = utils.BurnPasswordCheck(s.dummyHash, password)
	}
	switch {
	case !ok:
		s.log.Info().Str("reason", "bad_credentials").Msg("login rejected")
		s.metrics.Login("invalid")
		return AuthResult{}, ErrInvalidCredentials
	case !u.IsActive:
		s.log.Info().Str("reason", ErrAccountDisabled.Error()).Uint64("user_id", u.ID).Msg("login rejected")
		s.metrics.Login("disabled")
		return AuthResult{}, ErrInvalidCredentials
	}

	res, refresh, err := s.issuePair(u)
	if err != nil {
		return AuthResult{}, err
	}
	if _, err := s.sessions.Create(ctx, u.ID, refresh, meta); err != nil {
		return AuthResult{}, err
	}

	now := s.now().UTC()
	if err := s.users.TouchLastLogin(ctx, u.ID, now); err != nil {
		s.log.Warn().Err(err).Uint64("user_id", u.ID).Msg("update last login failed")
	} else {
		u.LastLoginAt = &now
	}
	res.User = model.ToPublic(u)
	s.metrics.Login("ok")
	return res, nil
}

// Refresh exchanges a refresh token for a new pair and rotates the session
// row. Every rejection surfaces as ErrInvalidRefreshToken; the specific
// reason is logged.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta model.ClientMeta) (AuthResult, error) {
	reject := func(reason string, userID uint64) (AuthResult, error) {
		s.log.Warn().Str("reason", reason).Uint64("user_id", userID).Msg("refresh rejected")
		s.metrics.Refresh(reason)
		return AuthResult{}, ErrInvalidRefreshToken
	}

	claims, err := s.signer.VerifyRefresh(refreshToken)
	if err != nil {
		if errors.Is(err, utils.ErrTokenExpired) {
			return reject("token_expired", 0)
		}
		return reject("signature", 0)
	}

	u, err := s.users.GetByID(ctx, claims.UserID)
	if errors.Is(err, repository.ErrNotFound) {
		return reject("user_not_found", claims.UserID)
	}
	if err != nil {
		return AuthResult{}, fmt.Errorf("load user: %w", err)
	}
	if u.ID != claims.UserID {
		return reject("subject_mismatch", claims.UserID)
	}
	if !u.IsActive {
		return reject("user_deactivated", u.ID)
	}

	v, err := s.sessions.Verify(ctx, u.ID, refreshToken)
	if err != nil {
		return AuthResult{}, err
	}
	if !v.OK {
		if v.Reason == session.ReasonNotFound && s.opts.RevokeOnReuse {
			n, err := s.sessions.RevokeAll(ctx, u.ID)
			if err != nil {
				s.log.Error().Err(err).Uint64("user_id", u.ID).Msg("revoke after reuse failed")
			} else {
				s.log.Warn().Int64("sessions", n).Uint64("user_id", u.ID).Msg("refresh token reuse, sessions revoked")
			}
		}
		return reject(string(v.Reason), u.ID)
	}

	res, refresh, err := s.issuePair(u)
	if err != nil {
		return AuthResult{}, err
	}
	if _, err := s.sessions.Rotate(ctx, v.Session, refresh, meta); err != nil {
		if errors.Is(err, session.ErrRotateConflict) {
			return reject("rotate_conflict", u.ID)
		}
		return AuthResult{}, err
	}
	res.User = model.ToPublic(u)
	s.metrics.Refresh("ok")
	return res, nil
}

// Logout revokes the session behind refreshToken. Only the signature is
// checked (an expired token may still log out). Repeating the call is not
// an error.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	claims, err := s.signer.VerifyRefreshSignature(refreshToken)
	if err != nil {
		s.log.Info().Str("reason", "signature").Msg("logout rejected")
		return ErrInvalidRefreshToken
	}
	res, err := s.sessions.Revoke(ctx, claims.UserID, refreshToken)
	if err != nil {
		return err
	}
	if res.Reason != "" {
		s.log.Debug().Str("reason", string(res.Reason)).Uint64("user_id", claims.UserID).Msg("logout on inactive session")
	}
	return nil
}

// CurrentUser loads the account behind an access token subject. Suspended
// accounts yield ErrAccountDisabled.
func (s *AuthService) CurrentUser(ctx context.Context, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	if !u.IsActive {
		return model.User{}, ErrAccountDisabled
	}
	return u, nil
}

// RequestPasswordReset issues a reset challenge for an active account and
// mails the passcode. The response is the same whether or not the account
// exists.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (ChallengeResponse, error) {
	return s.startChallenge(ctx, email, model.PurposePasswordReset, false)
}

// ResendPasswordReset sends a fresh passcode, reusing a live reset token
// when there is one.
func (s *AuthService) ResendPasswordReset(ctx context.Context, email string) (ChallengeResponse, error) {
	return s.startChallenge(ctx, email, model.PurposePasswordReset, true)
}

// ValidateResetToken reports whether a reset token can still be used,
// without consuming it.
func (s *AuthService) ValidateResetToken(ctx context.Context, token string) error {
	out, err := s.otp.Inspect(ctx, model.PurposePasswordReset, token)
	if err != nil {
		return err
	}
	switch out.Reason {
	case "":
		return nil
	case otp.ReasonUsed:
		return ErrResetTokenUsed
	case otp.ReasonExpired:
		return ErrResetTokenExpired
	default:
		return ErrInvalidResetToken
	}
}

// ConfirmPasswordReset checks token and passcode together and, when both
// hold, stores the new password and revokes every session of the user.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, code, newPassword string) error {
	if len(newPassword) < s.opts.MinPasswordLength {
		return ErrWeakPassword
	}
	if token == "" {
		return ErrInvalidResetToken
	}
	hash, err := utils.HashPassword(newPassword, s.opts.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	purpose := model.PurposePasswordReset
	out, err := s.otp.Confirm(ctx, otp.Lookup{Purpose: purpose, Token: token}, code,
		func(ctx context.Context, c model.Challenge) error {
			return s.users.UpdatePassword(ctx, c.UserID, hash)
		})
	if err != nil {
		return err
	}
	if !out.OK {
		s.log.Info().Str("reason", string(out.Reason)).Uint64("user_id", out.Challenge.UserID).Msg("password reset rejected")
		s.metrics.OTPConfirmed(string(purpose), string(out.Reason))
		return otpError(purpose, out.Reason)
	}
	s.metrics.OTPConfirmed(string(purpose), "ok")

	if _, err := s.sessions.RevokeAll(ctx, out.Challenge.UserID); err != nil {
		s.log.Error().Err(err).Uint64("user_id", out.Challenge.UserID).Msg("revoke sessions after reset failed")
	}
	return nil
}

// RequestEmailVerification issues a verification challenge for the
// account's address.
func (s *AuthService) RequestEmailVerification(ctx context.Context, email string) (ChallengeResponse, error) {
	return s.startChallenge(ctx, email, model.PurposeEmailVerification, false)
}

// ResendEmailVerification sends a fresh verification passcode.
func (s *AuthService) ResendEmailVerification(ctx context.Context, email string) (ChallengeResponse, error) {
	return s.startChallenge(ctx, email, model.PurposeEmailVerification, true)
}

// ConfirmEmailVerification marks the address verified and returns the
// updated user.
func (s *AuthService) ConfirmEmailVerification(ctx context.Context, email, code string) (model.PublicUser, error) {
	purpose := model.PurposeEmailVerification
	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		return model.PublicUser{}, ErrOTPInvalid
	}
	if err != nil {
		return model.PublicUser{}, fmt.Errorf("load user: %w", err)
	}

	var verifiedAt time.Time
	out, err := s.otp.Confirm(ctx, otp.Lookup{Purpose: purpose, UserID: u.ID, Email: u.Email}, code,
		func(ctx context.Context, c model.Challenge) error {
			verifiedAt = s.now().UTC()
			return s.users.MarkEmailVerified(ctx, u.ID, c.Email, verifiedAt)
		})
	if err != nil {
		return model.PublicUser{}, err
	}
	if !out.OK {
		s.log.Info().Str("reason", string(out.Reason)).Uint64("user_id", u.ID).Msg("email verification rejected")
		s.metrics.OTPConfirmed(string(purpose), string(out.Reason))
		return model.PublicUser{}, otpError(purpose, out.Reason)
	}
	s.metrics.OTPConfirmed(string(purpose), "ok")

	u.Email = out.Challenge.Email
	u.EmailVerifiedAt = &verifiedAt
	return model.ToPublic(u), nil
}

// startChallenge is shared by the four request/resend operations.
func (s *AuthService) startChallenge(ctx context.Context, email string, purpose model.Purpose, resend bool) (ChallengeResponse, error) {
	resp := ChallengeResponse{Message: ResetRequestedMessage}
	if purpose == model.PurposeEmailVerification {
		resp.Message = VerificationRequestedMessage
	}

	u, err := s.users.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		s.log.Info().Str("purpose", string(purpose)).Str("reason", "unknown_email").Msg("challenge skipped")
		return resp, nil
	}
	if err != nil {
		return ChallengeResponse{}, fmt.Errorf("load user: %w", err)
	}
	if !u.IsActive {
		s.log.Info().Str("purpose", string(purpose)).Str("reason", "account_disabled").Uint64("user_id", u.ID).Msg("challenge skipped")
		return resp, nil
	}

	var issued otp.Issued
	if resend {
		issued, err = s.otp.Resend(ctx, u.ID, purpose, u.Email)
	} else {
		issued, err = s.otp.Issue(ctx, u.ID, purpose, u.Email)
	}
	if err != nil {
		return ChallengeResponse{}, err
	}
	s.metrics.OTPIssued(string(purpose))

	if purpose == model.PurposePasswordReset {
		s.dispatch(mailer.PasswordReset(u.Email, s.resetLink(issued.Token), issued.OTP, s.opts.OTPTTL))
	} else {
		s.dispatch(mailer.EmailVerification(u.Email, issued.OTP, s.opts.OTPTTL))
	}

	if !s.opts.Production {
		otpExp := issued.OTPExpiresAt
		resp.DebugToken = issued.Token
		resp.DebugOTP = issued.OTP
		resp.DebugExpiresAt = issued.ExpiresAt
		resp.DebugOTPExpires = &otpExp
	}
	return resp, nil
}

func (s *AuthService) issuePair(u model.User) (AuthResult, string, error) {
	claims := utils.Claims{UserID: u.ID, Email: u.Email, Roles: u.Roles, TenantID: u.TenantID}
	access, err := s.signer.SignAccess(claims)
	if err != nil {
		return AuthResult{}, "", fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.signer.SignRefresh(claims)
	if err != nil {
		return AuthResult{}, "", fmt.Errorf("issue refresh token: %w", err)
	}
	return AuthResult{
		Access:  TokenInfo{Token: access.Token, IssuedAt: access.IssuedAt, ExpiresAt: access.ExpiresAt},
		Refresh: TokenInfo{Token: refresh.Token, IssuedAt: refresh.IssuedAt, ExpiresAt: refresh.ExpiresAt},
	}, refresh.Token, nil
}

func (s *AuthService) resetLink(token string) string {
	base := s.opts.ResetURL
	if base == "" {
		return token
	}
	u, err := url.Parse(base)
	if err != nil {
		return base + "?token=" + url.QueryEscape(token)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}

// dispatch hands msg to the mailer in the background. Failures are logged
// and counted, never returned: the challenge is already stored and the
// user can ask for a resend.
func (s *AuthService) dispatch(msg mailer.Message) {
	if s.mail == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.MailTimeout)
		defer cancel()
		if err := s.mail.Send(ctx, msg); err != nil {
			s.log.Warn().Err(err).Str("subject", msg.Subject).Msg("mail dispatch failed")
			s.metrics.MailFailed()
		}
	}()
}
