package otp_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bizadmin-auth/internal/memstore"
	"github.com/iliyamo/bizadmin-auth/internal/model"
	"github.com/iliyamo/bizadmin-auth/internal/otp"
)

type fixture struct {
	store  *memstore.Challenges
	engine *otp.Engine
	now    time.Time
}

func newFixture() *fixture {
	f := &fixture{store: memstore.NewChallenges(), now: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)}
	f.engine = otp.NewEngine(f.store, otp.Config{Length: 6, OTPTTL: 10 * time.Minute, ResetTTL: time.Hour}).
		WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func resetLookup(token string) otp.Lookup {
	return otp.Lookup{Purpose: model.PurposePasswordReset, Token: token}
}

func TestGenerate(t *testing.T) {
	digits := regexp.MustCompile(`^[0-9]{8}$`)
	for i := 0; i < 50; i++ {
		code, err := otp.Generate(8)
		require.NoError(t, err)
		require.Regexp(t, digits, code)
	}
	_, err := otp.Generate(0)
	require.Error(t, err)
}

func TestIssueSetsExpiries(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	reset, err := f.engine.Issue(ctx, 1, model.PurposePasswordReset, "a@x.io")
	require.NoError(t, err)
	require.Len(t, reset.Token, 64)
	require.Len(t, reset.OTP, 6)
	require.NotNil(t, reset.ExpiresAt)
	require.Equal(t, f.now.Add(time.Hour), *reset.ExpiresAt)
	require.Equal(t, f.now.Add(10*time.Minute), reset.OTPExpiresAt)
	require.NotContains(t, reset.Challenge.OTPHash, reset.OTP)

	verify, err := f.engine.Issue(ctx, 1, model.PurposeEmailVerification, "a@x.io")
	require.NoError(t, err)
	require.Nil(t, verify.ExpiresAt, "verification has no outer expiry")
}

func TestIssueRejectsUnknownPurpose(t *testing.T) {
	f := newFixture()
	_, err := f.engine.Issue(context.Background(), 1, model.Purpose("nope"), "a@x.io")
	require.Error(t, err)
}

func TestConfirmIsSingleUse(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	iss, err := f.engine.Issue(ctx, 1, model.PurposePasswordReset, "a@x.io")
	require.NoError(t, err)

	calls := 0
	complete := func(context.Context, model.Challenge) error { calls++; return nil }

	out, err := f.engine.Confirm(ctx, resetLookup(iss.Token), iss.OTP, complete)
	require.NoError(t, err)
	require.True(t, out.OK)
	require.Equal(t, 1, calls)

	out, err = f.engine.Confirm(ctx, resetLookup(iss.Token), iss.OTP, complete)
	require.NoError(t, err)
	require.False(t, out.OK)
	require.Equal(t, otp.ReasonUsed, out.Reason)
	require.Equal(t, 1, calls)
}

func TestConfirmReasons(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	out, err := f.engine.Confirm(ctx, resetLookup("missing"), "123456", nil)
	require.NoError(t, err)
	require.Equal(t, otp.ReasonInvalid, out.Reason)

	iss, err := f.engine.Issue(ctx, 1, model.PurposePasswordReset, "a@x.io")
	require.NoError(t, err)

	wrong := "000000"
	if iss.OTP == wrong {
		wrong = "111111"
	}
	out, err = f.engine.Confirm(ctx, resetLookup(iss.Token), wrong, nil)
	require.NoError(t, err)
	require.Equal(t, otp.ReasonOTPInvalid, out.Reason)

	// passcode expires well before the outer token
	f.advance(11 * time.Minute)
	out, err = f.engine.Confirm(ctx, resetLookup(iss.Token), iss.OTP, nil)
	require.NoError(t, err)
	require.Equal(t, otp.ReasonOTPExpired, out.Reason)

	f.advance(time.Hour)
	out, err = f.engine.Confirm(ctx, resetLookup(iss.Token), iss.OTP, nil)
	require.NoError(t, err)
	require.Equal(t, otp.ReasonExpired, out.Reason)
}

func TestResendKeepsTokenAndSupersedesPasscode(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.engine.Issue(ctx, 1, model.PurposePasswordReset, "a@x.io")
	require.NoError(t, err)

	f.advance(12 * time.Minute)
	second, err := f.engine.Resend(ctx, 1, model.PurposePasswordReset, "a@x.io")
	require.NoError(t, err)
	require.Equal(t, first.Token, second.Token)
	require.Equal(t, *first.ExpiresAt, *second.ExpiresAt, "outer expiry is not extended")
	require.Equal(t, f.now.Add(10*time.Minute), second.OTPExpiresAt)

	if first.OTP != second.OTP {
		out, err := f.engine.Confirm(ctx, resetLookup(first.Token), first.OTP, nil)
		require.NoError(t, err)
		require.Equal(t, otp.ReasonOTPInvalid, out.Reason)
	}
	out, err := f.engine.Confirm(ctx, resetLookup(second.Token), second.OTP, nil)
	require.NoError(t, err)
	require.True(t, out.OK)
}

func TestResendWithoutLiveChallengeIssues(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	iss, err := f.engine.Resend(ctx, 1, model.PurposePasswordReset, "a@x.io")
	require.NoError(t, err)
	require.NotEmpty(t, iss.Token)

	out, err := f.engine.Confirm(ctx, resetLookup(iss.Token), iss.OTP, nil)
	require.NoError(t, err)
	require.True(t, out.OK)

	f.advance(time.Minute)
	again, err := f.engine.Resend(ctx, 1, model.PurposePasswordReset, "a@x.io")
	require.NoError(t, err)
	require.NotEqual(t, iss.Token, again.Token, "a consumed challenge is never reused")
}

func TestIssueReplacesOutstanding(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	first, err := f.engine.Issue(ctx, 1, model.PurposePasswordReset, "a@x.io")
	require.NoError(t, err)
	f.advance(time.Minute)
	second, err := f.engine.Issue(ctx, 1, model.PurposePasswordReset, "a@x.io")
	require.NoError(t, err)
	require.Equal(t, 1, f.store.Count(1, model.PurposePasswordReset))

	out, err := f.engine.Confirm(ctx, resetLookup(first.Token), first.OTP, nil)
	require.NoError(t, err)
	require.Equal(t, otp.ReasonInvalid, out.Reason)

	out, err = f.engine.Confirm(ctx, resetLookup(second.Token), second.OTP, nil)
	require.NoError(t, err)
	require.True(t, out.OK)
}

func TestConfirmByUserAndEmail(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	iss, err := f.engine.Issue(ctx, 3, model.PurposeEmailVerification, "new@x.io")
	require.NoError(t, err)

	lookup := otp.Lookup{Purpose: model.PurposeEmailVerification, UserID: 3, Email: "other@x.io"}
	out, err := f.engine.Confirm(ctx, lookup, iss.OTP, nil)
	require.NoError(t, err)
	require.Equal(t, otp.ReasonInvalid, out.Reason)

	lookup.Email = "new@x.io"
	out, err = f.engine.Confirm(ctx, lookup, iss.OTP, nil)
	require.NoError(t, err)
	require.True(t, out.OK)
	require.Equal(t, "new@x.io", out.Challenge.Email)
}

func TestConfirmPropagatesCompletionError(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	iss, err := f.engine.Issue(ctx, 1, model.PurposePasswordReset, "a@x.io")
	require.NoError(t, err)

	boom := errors.New("boom")
	_, err = f.engine.Confirm(ctx, resetLookup(iss.Token), iss.OTP, func(context.Context, model.Challenge) error { return boom })
	require.ErrorIs(t, err, boom)

	// the failed completion rolled the consume back
	out, err := f.engine.Confirm(ctx, resetLookup(iss.Token), iss.OTP, nil)
	require.NoError(t, err)
	require.True(t, out.OK)
}

func TestReissueWithinSameInstantConfirms(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	lookup := otp.Lookup{Purpose: model.PurposeEmailVerification, UserID: 3, Email: "a@x.io"}

	for i := 0; i < 3; i++ {
		iss, err := f.engine.Issue(ctx, 3, model.PurposeEmailVerification, "a@x.io")
		require.NoError(t, err)

		out, err := f.engine.Confirm(ctx, lookup, iss.OTP, nil)
		require.NoError(t, err)
		require.True(t, out.OK, "round %d: %s", i, out.Reason)
		require.Equal(t, iss.Challenge.ID, out.Challenge.ID)
	}
}

func TestInspect(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	out, err := f.engine.Inspect(ctx, model.PurposePasswordReset, "missing")
	require.NoError(t, err)
	require.Equal(t, otp.ReasonInvalid, out.Reason)

	iss, err := f.engine.Issue(ctx, 1, model.PurposePasswordReset, "a@x.io")
	require.NoError(t, err)

	out, err = f.engine.Inspect(ctx, model.PurposePasswordReset, iss.Token)
	require.NoError(t, err)
	require.True(t, out.OK)

	f.advance(2 * time.Hour)
	out, err = f.engine.Inspect(ctx, model.PurposePasswordReset, iss.Token)
	require.NoError(t, err)
	require.Equal(t, otp.ReasonExpired, out.Reason)
}
