package model

import (
	"time"

	"github.com/google/uuid"
)

// Purpose identifies which flow an OTP challenge belongs to.
type Purpose string

const (
	PurposePasswordReset     Purpose = "password_reset"
	PurposeEmailVerification Purpose = "email_verification"
)

// Valid reports whether p is a known purpose.
func (p Purpose) Valid() bool {
	return p == PurposePasswordReset || p == PurposeEmailVerification
}

// Challenge is one outstanding OTP attempt. Password resets live in the
// `password_resets` table and email verifications in `email_verifications`;
// both share this shape.
//
// Token is a correlation handle handed to the client, not a proof of
// anything on its own. TokenExpiresAt is the outer expiry (nil when the
// flow has none) and OTPExpiresAt is the shorter passcode expiry. A
// consumed challenge keeps its row with Used set and OTPHash cleared.
type Challenge struct {
	ID             uuid.UUID
	UserID         uint64
	Purpose        Purpose
	Email          string
	Token          string
	TokenExpiresAt *time.Time
	OTPHash        string
	OTPSentAt      *time.Time
	OTPExpiresAt   *time.Time
	Used           bool
	UsedAt         *time.Time
	CreatedAt      time.Time
}
