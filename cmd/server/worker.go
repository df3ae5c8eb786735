package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/iliyamo/bizadmin-auth/internal/config"
	"github.com/iliyamo/bizadmin-auth/internal/mailer"
	"github.com/iliyamo/bizadmin-auth/internal/queue"
)

var mailWorkerCmd = &cobra.Command{
	Use:   "mail-worker",
	Short: "Deliver queued emails over SMTP",
	Long:  "Consume mail requests from RabbitMQ (MAIL_TRANSPORT=queue) and deliver them through the configured SMTP relay.",
	RunE:  runMailWorker,
}

func init() {
	rootCmd.AddCommand(mailWorkerCmd)
}

func runMailWorker(cmd *cobra.Command, args []string) error {
	log := newLogger()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	smtp, err := mailer.NewSMTP(smtpConfig(cfg), log)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("queue", queue.MailQueueName).Msg("mail worker started")
	err = queue.NewMailConsumer(cfg.RabbitURL, smtp, log).Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info().Msg("mail worker stopped")
		return nil
	}
	return err
}
