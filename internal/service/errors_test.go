package service

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bizadmin-auth/internal/model"
	"github.com/iliyamo/bizadmin-auth/internal/otp"
)

func TestOTPErrorMapping(t *testing.T) {
	reset, verify := model.PurposePasswordReset, model.PurposeEmailVerification
	cases := []struct {
		purpose model.Purpose
		reason  otp.Reason
		want    error
	}{
		{reset, otp.ReasonInvalid, ErrInvalidResetToken},
		{reset, otp.ReasonExpired, ErrResetTokenExpired},
		{reset, otp.ReasonUsed, ErrOTPUsed},
		{reset, otp.ReasonOTPInvalid, ErrOTPInvalid},
		{reset, otp.ReasonOTPExpired, ErrOTPExpired},
		{reset, otp.ReasonOTPUsed, ErrOTPUsed},
		{verify, otp.ReasonInvalid, ErrOTPInvalid},
		{verify, otp.ReasonExpired, ErrOTPExpired},
		{verify, otp.ReasonUsed, ErrOTPUsed},
	}
	for _, tc := range cases {
		require.ErrorIs(t, otpError(tc.purpose, tc.reason), tc.want, "%s/%s", tc.purpose, tc.reason)
	}
}
