package utils // package utils provides helper functions for token creation and hashing

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/iliyamo/bizadmin-auth/internal/config"
)

var (
	// ErrTokenInvalid covers malformed, tampered and wrong-type tokens.
	ErrTokenInvalid = errors.New("token invalid")
	// ErrTokenExpired is returned for a correctly signed token past its exp.
	ErrTokenExpired = errors.New("token expired")
)

// Token types carried in the "typ" claim.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

// Claims is the payload embedded in both access and refresh tokens.
type Claims struct {
	UserID    uint64
	Email     string
	Roles     []string
	TenantID  string
	Type      string
	ID        string // jti
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// SignedToken is a serialized JWT along with its timestamps.
type SignedToken struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	Email    string   `json:"email"`
	Roles    []string `json:"roles"`
	TenantID string   `json:"tenant,omitempty"`
	Type     string   `json:"typ"`
	jwt.RegisteredClaims
}

// Signer issues and verifies HS256 tokens. Access and refresh tokens are
// signed with distinct secrets so one can never be replayed as the other.
type Signer struct {
	accessSecret  []byte
	refreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	now func() time.Time
}

// NewSigner validates the secrets and builds a Signer.
func NewSigner(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) (*Signer, error) {
	if err := config.ValidateSecrets(accessSecret, refreshSecret); err != nil {
		return nil, err
	}
	return &Signer{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		AccessTTL:     accessTTL,
		RefreshTTL:    refreshTTL,
		now:           time.Now,
	}, nil
}

// WithClock replaces the time source. Intended for tests.
func (s *Signer) WithClock(now func() time.Time) *Signer {
	s.now = now
	return s
}

// SignAccess signs an access token for c.
func (s *Signer) SignAccess(c Claims) (SignedToken, error) {
	c.Type = TypeAccess
	return s.Sign(c, s.accessSecret, s.AccessTTL)
}

// SignRefresh signs a refresh token for c.
func (s *Signer) SignRefresh(c Claims) (SignedToken, error) {
	c.Type = TypeRefresh
	return s.Sign(c, s.refreshSecret, s.RefreshTTL)
}

// VerifyAccess checks signature, expiry and token type of an access token.
func (s *Signer) VerifyAccess(token string) (Claims, error) {
	return s.verifyTyped(token, s.accessSecret, TypeAccess)
}

// VerifyRefresh checks signature, expiry and token type of a refresh token.
func (s *Signer) VerifyRefresh(token string) (Claims, error) {
	return s.verifyTyped(token, s.refreshSecret, TypeRefresh)
}

// VerifyRefreshSignature checks only signature and type of a refresh
// token; an expired token still passes. Logout uses it to prove ownership.
func (s *Signer) VerifyRefreshSignature(token string) (Claims, error) {
	var tc tokenClaims
	tok, err := jwt.ParseWithClaims(token, &tc, func(t *jwt.Token) (interface{}, error) {
		return s.refreshSecret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil || !tok.Valid {
		return Claims{}, ErrTokenInvalid
	}
	c, err := fromTokenClaims(tc)
	if err != nil {
		return Claims{}, err
	}
	if c.Type != TypeRefresh {
		return Claims{}, ErrTokenInvalid
	}
	return c, nil
}

// Sign produces a token embedding c, an issued-at time and an expiry of
// now+ttl. A fresh jti is generated so two tokens issued in the same second
// never collide.
func (s *Signer) Sign(c Claims, secret []byte, ttl time.Duration) (SignedToken, error) {
	now := s.now().UTC().Truncate(time.Second)
	exp := now.Add(ttl)
	tc := tokenClaims{
		Email:    c.Email,
		Roles:    c.Roles,
		TenantID: c.TenantID,
		Type:     c.Type,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(c.UserID, 10),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, tc).SignedString(secret)
	if err != nil {
		return SignedToken{}, fmt.Errorf("sign token: %w", err)
	}
	return SignedToken{Token: signed, IssuedAt: now, ExpiresAt: exp}, nil
}

// Verify parses token with secret. Expired tokens yield ErrTokenExpired,
// everything else that fails yields ErrTokenInvalid.
func (s *Signer) Verify(token string, secret []byte) (Claims, error) {
	var tc tokenClaims
	tok, err := jwt.ParseWithClaims(token, &tc, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	if !tok.Valid {
		return Claims{}, ErrTokenInvalid
	}
	return fromTokenClaims(tc)
}

// Decode reads the claims without checking the signature. Only use it for
// display (issued-at / expiry), never for a trust decision.
func Decode(token string) (Claims, error) {
	var tc tokenClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &tc); err != nil {
		return Claims{}, ErrTokenInvalid
	}
	return fromTokenClaims(tc)
}

func (s *Signer) verifyTyped(token string, secret []byte, typ string) (Claims, error) {
	c, err := s.Verify(token, secret)
	if err != nil {
		return Claims{}, err
	}
	if c.Type != typ {
		return Claims{}, ErrTokenInvalid
	}
	return c, nil
}

func fromTokenClaims(tc tokenClaims) (Claims, error) {
	uid, err := strconv.ParseUint(tc.Subject, 10, 64)
	if err != nil {
		return Claims{}, ErrTokenInvalid
	}
	c := Claims{
		UserID:   uid,
		Email:    tc.Email,
		Roles:    tc.Roles,
		TenantID: tc.TenantID,
		Type:     tc.Type,
		ID:       tc.RegisteredClaims.ID,
	}
	if tc.IssuedAt != nil {
		c.IssuedAt = tc.IssuedAt.Time.UTC()
	}
	if tc.ExpiresAt != nil {
		c.ExpiresAt = tc.ExpiresAt.Time.UTC()
	}
	return c, nil
}
