// Package queue defines message payloads exchanged over the message broker.
package queue

import (
	"time"

	"github.com/iliyamo/bizadmin-auth/internal/mailer"
)

// MailQueueName is the durable queue outbound email travels through.
const MailQueueName = "mail.outbound"

// MailRequestedEvent is published whenever the auth service wants an email
// delivered. The worker consuming MailQueueName performs the SMTP hop.
type MailRequestedEvent struct {
	Message     mailer.Message `json:"message"`
	RequestedAt string         `json:"requested_at"`
}

func newMailRequested(msg mailer.Message) MailRequestedEvent {
	return MailRequestedEvent{Message: msg, RequestedAt: time.Now().UTC().Format(time.RFC3339)}
}
