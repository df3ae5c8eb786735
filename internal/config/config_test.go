package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/bizadmin-auth/internal/config"
)

var (
	accessSecret  = strings.Repeat("a", 32)
	refreshSecret = strings.Repeat("r", 32)
)

func TestValidateSecrets(t *testing.T) {
	cases := []struct {
		name            string
		access, refresh string
		ok              bool
	}{
		{"valid", accessSecret, refreshSecret, true},
		{"missing access", "", refreshSecret, false},
		{"missing refresh", accessSecret, "", false},
		{"short", "short", refreshSecret, false},
		{"equal", accessSecret, accessSecret, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := config.ValidateSecrets(tc.access, tc.refresh)
			if tc.ok {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, config.ErrConfiguration)
		})
	}
}

func TestParseTTL(t *testing.T) {
	d, err := config.ParseTTL("30d")
	require.NoError(t, err)
	require.Equal(t, 30*24*time.Hour, d)

	d, err = config.ParseTTL("15m")
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, d)

	_, err = config.ParseTTL("xd")
	require.Error(t, err)
}

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_ACCESS_SECRET", accessSecret)
	t.Setenv("JWT_REFRESH_SECRET", refreshSecret)
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	require.Equal(t, 15*time.Minute, cfg.AccessTTL)
	require.Equal(t, 30*24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, time.Hour, cfg.ResetTTL)
	require.Equal(t, 10*time.Minute, cfg.OTPTTL)
	require.Equal(t, 6, cfg.OTPLength)
	require.Equal(t, 8, cfg.MinPasswordLength)
	require.False(t, cfg.RevokeOnReuse)
	require.Equal(t, "none", cfg.MailTransport)
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("REFRESH_TOKEN_TTL", "7d")
	t.Setenv("OTP_LENGTH", "8")
	t.Setenv("REVOKE_ON_REFRESH_REUSE", "true")
	t.Setenv("MAIL_TRANSPORT", "SMTP")

	cfg, err := config.Load()
	require.NoError(t, err)
	require.True(t, cfg.Production())
	require.Equal(t, 7*24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, 8, cfg.OTPLength)
	require.True(t, cfg.RevokeOnReuse)
	require.Equal(t, "smtp", cfg.MailTransport)
}

func TestLoadRejectsMissingSecrets(t *testing.T) {
	t.Setenv("JWT_ACCESS_SECRET", "")
	t.Setenv("JWT_REFRESH_SECRET", refreshSecret)

	_, err := config.Load()
	require.ErrorIs(t, err, config.ErrConfiguration)
}

func TestLoadRejectsUnknownTransport(t *testing.T) {
	setRequired(t)
	t.Setenv("MAIL_TRANSPORT", "carrier-pigeon")

	_, err := config.Load()
	require.ErrorIs(t, err, config.ErrConfiguration)
}

func TestLoadRateLimitConfigNormalizes(t *testing.T) {
	t.Setenv("RATE_LIMIT_CAPACITY", "0")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	rl := config.LoadRateLimitConfig()
	require.Equal(t, 1, rl.Capacity)
	require.Equal(t, 2*time.Second, rl.RefillInterval)
	require.Equal(t, 10*time.Second, rl.TTL)
}
