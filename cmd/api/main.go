package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/hivex-io/hivex/internal/auth"
	"github.com/hivex-io/hivex/internal/codegen"
	"github.com/hivex-io/hivex/internal/config"
	"github.com/hivex-io/hivex/internal/handler"
	"github.com/hivex-io/hivex/internal/notify"
	"github.com/hivex-io/hivex/internal/qr"
	"github.com/hivex-io/hivex/internal/repository"
	"github.com/hivex-io/hivex/internal/service"
	appvalidator "github.com/hivex-io/hivex/internal/validator"
	"github.com/hivex-io/hivex/pkg/database"
)

// mailTimeout bounds the delivery of a single announcement.
const mailTimeout = 30 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	initLogger(cfg)

	ctx := context.Background()

	pool, err := database.NewPool(ctx, cfg.DB.DSN(), cfg.DB.MaxRetries)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	if cfg.DB.Migrate {
		if err := database.Migrate(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("failed to apply schema")
		}
	}

	codes, err := codegen.New(cfg.Coupon.CodeCharset, cfg.Coupon.CodeLength, cfg.Coupon.CodeMaxRetries)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid coupon code settings")
	}
	log.Info().
		Int("code_length", codes.Length()).
		Float64("code_space", codes.Combinations()).
		Int("max_per_member", cfg.Coupon.MaxPerMember).
		Msg("coupon engine configured")

	// A nil renderer turns QR artifacts off; the interface must stay nil, not a typed nil.
	var renderer service.QRRenderer
	if cfg.Coupon.QREnabled {
		r, err := qr.NewRenderer(cfg.Coupon.QRSize)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid qr settings")
		}
		renderer = r
	}

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid auth settings")
	}

	mailer := notify.NewDispatcher(newSender(cfg.Mail), cfg.Mail.Workers, cfg.Mail.QueueSize, mailTimeout)

	app := fiber.New(fiber.Config{
		AppName:      "Hivex",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
		BodyLimit:    1 * 1024 * 1024,
	})

	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(logger.New())

	validate := appvalidator.New()

	couponRepo := repository.NewCouponRepository(pool)
	claimRepo := repository.NewClaimRepository(pool)
	dealRepo := repository.NewDealRepository(pool)
	memberRepo := repository.NewMemberRepository(pool)
	venueRepo := repository.NewVenueRepository(pool)
	qrRepo := repository.NewQRImageRepository(pool)

	couponService := service.NewCouponService(pool, couponRepo, claimRepo, dealRepo, memberRepo, qrRepo, cfg.Coupon.MaxPerMember)
	issuanceService := service.NewIssuanceService(pool, dealRepo, couponRepo, qrRepo, codes, renderer)
	dealService := service.NewDealService(pool, dealRepo, claimRepo, memberRepo, mailer)
	authService := service.NewAuthService(memberRepo, venueRepo, tokens)

	routes := &handler.Routes{
		Health: handler.NewHealthHandler(pool),
		Auth:   handler.NewAuthHandler(authService, validate),
		Deals:  handler.NewDealHandler(dealService, issuanceService, validate),
		Coupon: handler.NewCouponHandler(couponService, validate),
		Tokens: tokens,
	}
	routes.Register(app)

	go func() {
		log.Info().Str("port", cfg.Server.Port).Msg("starting server")
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
	log.Info().Int("timeout_seconds", cfg.Server.ShutdownTimeout).Msg("shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(
		context.Background(),
		time.Duration(cfg.Server.ShutdownTimeout)*time.Second,
	)
	defer shutdownCancel()

	log.Info().Msg("waiting for in-flight requests to complete...")
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during server shutdown")
	}

	// Queued announcements are flushed before the pool goes away.
	log.Info().Msg("draining mail queue...")
	if err := mailer.Close(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("mail queue not drained")
	}

	log.Info().Msg("closing database connections...")
	pool.Close()
	log.Info().Msg("server stopped")
}

// newSender picks SMTP delivery when a host is configured and logs mails otherwise.
func newSender(cfg config.MailConfig) notify.Sender {
	if cfg.SMTPHost == "" {
		log.Warn().Msg("SMTP_HOST not set, deal announcements are only logged")
		return notify.LogSender{}
	}
	sender, err := notify.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword, cfg.From)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid mail settings")
	}
	return sender
}

// initLogger configures zerolog based on the application configuration.
func initLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Log.Pretty {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Logger()
	} else {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	}
}
