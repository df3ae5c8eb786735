// Package mailer delivers outbound email. The auth service only sees the
// Sender interface; SMTP delivers directly and the queue package offers a
// RabbitMQ-backed Sender for deployments that hand mail to a worker.
package mailer

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gopkg.in/gomail.v2"
)

// ErrNoRecipients is returned for a message without a To address.
var ErrNoRecipients = errors.New("mailer: no recipients specified")

// Message is one outbound email.
type Message struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
	HTML    string   `json:"html,omitempty"`
}

// Sender delivers a Message.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig holds the SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func (c SMTPConfig) validate() error {
	if c.Host == "" {
		return fmt.Errorf("missing SMTP_HOST environment variable")
	}
	if c.Port == 0 {
		return fmt.Errorf("missing SMTP_PORT environment variable")
	}
	if c.From == "" {
		return fmt.Errorf("missing SMTP_FROM environment variable")
	}
	return nil
}

// dialer is the part of *gomail.Dialer SMTP uses.
type dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

// SMTP sends mail through an SMTP relay using gomail.
type SMTP struct {
	from   string
	dialer dialer
	log    zerolog.Logger
}

// NewSMTP validates cfg and returns an SMTP sender.
func NewSMTP(cfg SMTPConfig, logger zerolog.Logger) (*SMTP, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &SMTP{
		from:   cfg.From,
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		log:    logger.With().Str("component", "smtp").Logger(),
	}, nil
}

// Send delivers msg. gomail has no context support, so ctx is only checked
// before dialing.
func (s *SMTP) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return ErrNoRecipients
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.dialer.DialAndSend(s.build(msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	s.log.Debug().Strs("to", msg.To).Str("subject", msg.Subject).Msg("mail sent")
	return nil
}

func (s *SMTP) build(msg Message) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To...)
	m.SetHeader("Subject", msg.Subject)
	if msg.HTML != "" {
		m.SetBody("text/html", msg.HTML)
		if msg.Text != "" {
			m.AddAlternative("text/plain", msg.Text)
		}
	} else {
		m.SetBody("text/plain", msg.Text)
	}
	return m
}

// Nop discards every message. It stands in when no transport is configured.
type Nop struct{}

func (Nop) Send(context.Context, Message) error { return nil }
