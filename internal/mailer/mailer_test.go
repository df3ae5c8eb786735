package mailer

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gopkg.in/gomail.v2"
)

type fakeDialer struct {
	sent []*gomail.Message
	err  error
}

func (f *fakeDialer) DialAndSend(m ...*gomail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, m...)
	return nil
}

func newTestSMTP(d dialer) *SMTP {
	return &SMTP{from: "no-reply@example.com", dialer: d, log: zerolog.Nop()}
}

func TestNewSMTPValidatesConfig(t *testing.T) {
	_, err := NewSMTP(SMTPConfig{Port: 587, From: "x@y.z"}, zerolog.Nop())
	require.Error(t, err)

	s, err := NewSMTP(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "x@y.z"}, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, s)
}

func TestSMTPSend(t *testing.T) {
	d := &fakeDialer{}
	s := newTestSMTP(d)

	msg := PasswordReset("user@example.com", "https://app/reset?token=abc", "123456", 10*time.Minute)
	require.NoError(t, s.Send(context.Background(), msg))
	require.Len(t, d.sent, 1)

	var buf bytes.Buffer
	_, err := d.sent[0].WriteTo(&buf)
	require.NoError(t, err)
	raw := buf.String()
	require.Contains(t, raw, "To: user@example.com")
	require.Contains(t, raw, "From: no-reply@example.com")
	require.Contains(t, raw, "Subject: Your password reset code")
}

func TestSMTPSendErrors(t *testing.T) {
	s := newTestSMTP(&fakeDialer{err: errors.New("connection refused")})

	require.ErrorIs(t, s.Send(context.Background(), Message{}), ErrNoRecipients)

	err := s.Send(context.Background(), Message{To: []string{"a@b.c"}, Text: "hi"})
	require.ErrorContains(t, err, "connection refused")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, s.Send(ctx, Message{To: []string{"a@b.c"}}), context.Canceled)
}

func TestTemplatesCarryPasscode(t *testing.T) {
	reset := PasswordReset("a@b.c", "https://app/reset?token=t", "654321", 10*time.Minute)
	require.Equal(t, []string{"a@b.c"}, reset.To)
	require.Contains(t, reset.Text, "654321")
	require.Contains(t, reset.HTML, "https://app/reset?token=t")
	require.Contains(t, reset.Text, "10m0s")

	verify := EmailVerification("a@b.c", "111222", 10*time.Minute)
	require.True(t, strings.Contains(verify.Text, "111222"))
	require.Contains(t, verify.HTML, "<strong>111222</strong>")
}
