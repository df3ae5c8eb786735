package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iliyamo/bizadmin-auth/internal/authz"
	"github.com/iliyamo/bizadmin-auth/internal/config"
	"github.com/iliyamo/bizadmin-auth/internal/database"
	"github.com/iliyamo/bizadmin-auth/internal/handler"
	"github.com/iliyamo/bizadmin-auth/internal/mailer"
	"github.com/iliyamo/bizadmin-auth/internal/metrics"
	"github.com/iliyamo/bizadmin-auth/internal/middleware"
	"github.com/iliyamo/bizadmin-auth/internal/otp"
	"github.com/iliyamo/bizadmin-auth/internal/queue"
	"github.com/iliyamo/bizadmin-auth/internal/repository"
	"github.com/iliyamo/bizadmin-auth/internal/role"
	"github.com/iliyamo/bizadmin-auth/internal/router"
	"github.com/iliyamo/bizadmin-auth/internal/service"
	"github.com/iliyamo/bizadmin-auth/internal/session"
	"github.com/iliyamo/bizadmin-auth/internal/utils"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	log := newLogger()
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Production() {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	resolver, err := role.Parse(cfg.RoleLevels)
	if err != nil {
		return fmt.Errorf("%w: ROLE_LEVELS: %v", config.ErrConfiguration, err)
	}
	signer, err := utils.NewSigner(cfg.AccessSecret, cfg.RefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	sender, err := newMailSender(cfg, log)
	if err != nil {
		return err
	}

	users := repository.NewUserRepo(db)
	svc := service.NewAuthService(service.Deps{
		Users:    users,
		Sessions: session.NewRegistry(repository.NewSessionRepo(db), cfg.RefreshTTL),
		OTP: otp.NewEngine(repository.NewChallengeRepo(db), otp.Config{
			Length:   cfg.OTPLength,
			OTPTTL:   cfg.OTPTTL,
			ResetTTL: cfg.ResetTTL,
		}),
		Signer:  signer,
		Mail:    sender,
		Metrics: m,
		Logger:  log,
	}, service.Options{
		BcryptCost:        cfg.BcryptCost,
		MinPasswordLength: cfg.MinPasswordLength,
		OTPTTL:            cfg.OTPTTL,
		ResetURL:          cfg.ResetURL,
		Production:        cfg.Production(),
		RevokeOnReuse:     cfg.RevokeOnReuse,
	})

	var limiter, cache echo.MiddlewareFunc
	rl, cc := config.LoadRateLimitConfig(), config.LoadCacheConfig()
	if rl.Enabled || cc.Enabled {
		rdb, err := config.NewRedisClient(ctx, config.LoadRedisConfig())
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, rate limiting and profile cache disabled")
		} else {
			defer rdb.Close()
			limiter = middleware.NewTokenBucket(rl, rdb, log)
			cache = middleware.NewResponseCache(cc, rdb, log)
		}
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.RequestLogger(log))

	router.RegisterRoutes(e, db, reg)
	router.RegisterAuth(e, handler.NewAuthHandler(svc, log), signer, limiter)
	router.RegisterUsers(e, handler.NewUsersHandler(users, authz.NewFilter(resolver), m, log), signer, resolver, cache)

	addr := ":" + cfg.Port
	errc := make(chan error, 1)
	go func() {
		log.Info().Str("addr", addr).Str("env", cfg.Env).Str("mail", cfg.MailTransport).Msg("listening")
		errc <- e.Start(addr)
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	log.Info().Msg("shutting down")
	return e.Shutdown(shutdownCtx)
}

// newMailSender picks the outbound mail transport. "none" discards mail.
func newMailSender(cfg config.Config, log zerolog.Logger) (mailer.Sender, error) {
	switch cfg.MailTransport {
	case "smtp":
		return mailer.NewSMTP(smtpConfig(cfg), log)
	case "queue":
		return queue.NewPublisher(cfg.RabbitURL, log), nil
	default:
		log.Warn().Msg("MAIL_TRANSPORT=none, reset and verification emails are not sent")
		return mailer.Nop{}, nil
	}
}

func smtpConfig(cfg config.Config) mailer.SMTPConfig {
	return mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPass,
		From:     cfg.MailFrom,
	}
}
