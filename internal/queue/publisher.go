package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/iliyamo/bizadmin-auth/internal/mailer"
)

// Publisher implements mailer.Sender by publishing a MailRequestedEvent to
// MailQueueName. Each Send dials, declares the queue and publishes one
// persistent message; auth mail volume is low enough not to need a pool.
type Publisher struct {
	url string
	log zerolog.Logger
}

func NewPublisher(url string, logger zerolog.Logger) *Publisher {
	return &Publisher{url: url, log: logger.With().Str("component", "mail-publisher").Logger()}
}

// Send publishes msg. Errors are logged and returned so the caller can
// decide to ignore them.
func (p *Publisher) Send(ctx context.Context, msg mailer.Message) error {
	if len(msg.To) == 0 {
		return mailer.ErrNoRecipients
	}
	body, err := json.Marshal(newMailRequested(msg))
	if err != nil {
		return fmt.Errorf("marshal mail event: %w", err)
	}

	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.Warn().Err(err).Msg("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.Warn().Err(err).Msg("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := declareMailQueue(ch); err != nil {
		p.log.Warn().Err(err).Msg("rabbitmq: queue declare failed")
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", MailQueueName, false, false, pub); err != nil {
		p.log.Warn().Err(err).Msg("rabbitmq: publish failed")
		return err
	}
	return nil
}

// declareMailQueue is idempotent; durable so messages survive broker
// restarts.
func declareMailQueue(ch *amqp.Channel) (amqp.Queue, error) {
	return ch.QueueDeclare(MailQueueName, true, false, false, false, nil)
}
