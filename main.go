package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"echoscribe/internal/account"
	"echoscribe/internal/api"
	"echoscribe/internal/config"
	"echoscribe/internal/daemon"
	"echoscribe/internal/database"
	"echoscribe/internal/middleware"
	"echoscribe/internal/monitoring"
	"echoscribe/internal/openfga"
	"echoscribe/internal/organisation"
	"echoscribe/internal/recording"
	"echoscribe/internal/storage"
	"echoscribe/internal/stripe"
	"echoscribe/internal/transcript"
	"echoscribe/internal/transcription"
	"echoscribe/internal/validator"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/gofiber/storage/postgres/v3"
	"github.com/redis/go-redis/v9"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.NewConfig()

	telemetry, err := monitoring.NewOpenTelemetry(cfg.Telemetry)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintln(os.Stderr, "telemetry shutdown:", err)
		}
	}()
	logger := telemetry.Logger()

	// One shared pool for every component that touches the database.
	db := database.NewDatabase()
	if err := db.Connect(ctx, cfg.DatabaseURL()); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	sessionStorage := postgres.New(postgres.Config{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Name,
		Username: cfg.Database.User,
		Password: cfg.Database.Password,
		Table:    "tbl_session",
		Reset:    false,
	})
	sessionStore := session.New(session.Config{
		Storage:        sessionStorage,
		KeyLookup:      "cookie:session_id",
		CookiePath:     "/",
		CookieSecure:   cfg.Server.Environment == config.EnvironmentProduction,
		CookieHTTPOnly: true,
		CookieSameSite: "Lax",
		Expiration:     24 * time.Hour,
	})

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	store, err := storage.NewStorage(storage.Config{
		Type:      cfg.Storage.Type,
		LocalPath: cfg.Storage.LocalPath,
		S3Bucket:  cfg.Storage.S3Bucket,
		S3Region:  cfg.Storage.S3Region,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}

	fgaClient, err := openfga.NewClient(cfg.OpenFGA, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenFGA: %w", err)
	}
	authz := openfga.NewAuthorizationService(fgaClient)

	stripeClient := stripe.NewClient(logger, cfg.Stripe.APIKey, cfg.Stripe.WebhookSecret)
	transcriptionClient := transcription.NewClient(logger, cfg.Transcription.BaseURL, cfg.Transcription.APIKey)

	resolver := transcript.NewResolver(&db, store, logger, telemetry)
	memberReader := organisation.NewMemberReader(&db, logger, telemetry)
	orgManager := organisation.NewManager(&db, logger, &stripeClient, organisation.NopMailer{Logger: logger})
	recordingManager := recording.NewManager(&db, logger, store, &transcriptionClient, &resolver)
	authenticator := account.NewAuthenticator(logger, &db)
	rateLimiter := account.NewRateLimiter(redisClient)

	daemons := daemon.NewSupervisor(logger)
	daemons.Add("transcription-poll", daemon.PollTranscriptionJobsTask(&db, store, &transcriptionClient, logger, cfg.Transcription.PollInterval))
	daemons.Add("invite-cleanup", daemon.CleanupTask(&db, logger))
	daemons.Start(ctx)

	handler := api.NewHandler(sessionStore, &db, telemetry, validator.New(), &authenticator, rateLimiter, &orgManager, &memberReader, &recordingManager, authz)

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		BodyLimit:    512 << 20,
	})
	app.Use(middleware.Logger(logger))
	app.Use(middleware.SecurityHeaders())

	api.RegisterRoutes(app, &handler, sessionStore)

	errCh := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
		logger.Info("Server starting", "addr", addr)
		errCh <- app.Listen(addr)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	daemons.Wait()

	return nil
}
