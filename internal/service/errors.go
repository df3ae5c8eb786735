package service

import (
	"errors"

	"github.com/iliyamo/bizadmin-auth/internal/authz"
	"github.com/iliyamo/bizadmin-auth/internal/config"
	"github.com/iliyamo/bizadmin-auth/internal/model"
	"github.com/iliyamo/bizadmin-auth/internal/otp"
)

// Outward errors. Messages are deliberately generic; the precise cause of a
// credential or token failure is only logged.
var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrAccountDisabled     = errors.New("account disabled")
	ErrWeakPassword        = errors.New("password does not meet the length requirement")

	ErrInvalidResetToken = errors.New("invalid reset token")
	ErrResetTokenExpired = errors.New("reset token expired")
	ErrResetTokenUsed    = errors.New("reset token already used")

	ErrOTPInvalid = errors.New("invalid code")
	ErrOTPExpired = errors.New("code expired")
	ErrOTPUsed    = errors.New("code already used")

	ErrInsufficientRoleLevel = authz.ErrInsufficientRoleLevel
	ErrConfiguration         = config.ErrConfiguration
)

// otpError maps a rejected confirmation to its outward error. Password
// resets report problems with the outer token as reset-token errors; email
// verification has no outer token, so those collapse into OTP errors.
func otpError(purpose model.Purpose, r otp.Reason) error {
	reset := purpose == model.PurposePasswordReset
	switch r {
	case otp.ReasonInvalid:
		if reset {
			return ErrInvalidResetToken
		}
		return ErrOTPInvalid
	case otp.ReasonUsed, otp.ReasonOTPUsed:
		return ErrOTPUsed
	case otp.ReasonExpired:
		if reset {
			return ErrResetTokenExpired
		}
		return ErrOTPExpired
	case otp.ReasonOTPExpired:
		return ErrOTPExpired
	default:
		return ErrOTPInvalid
	}
}
