package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riverqueue/river"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/qrbase/server/internal/api"
	"github.com/qrbase/server/internal/auth"
	"github.com/qrbase/server/internal/config"
	"github.com/qrbase/server/internal/domain/events"
	"github.com/qrbase/server/internal/domain/feedback"
	"github.com/qrbase/server/internal/domain/registrations"
	"github.com/qrbase/server/internal/domain/reports"
	"github.com/qrbase/server/internal/domain/speakers"
	"github.com/qrbase/server/internal/domain/users"
	"github.com/qrbase/server/internal/email"
	"github.com/qrbase/server/internal/jobs"
	"github.com/qrbase/server/internal/metrics"
	"github.com/qrbase/server/internal/storage/postgres"
	"github.com/qrbase/server/internal/uploads"
)

var (
	// Server flags (override config/env)
	serverHost string
	serverPort int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the QRBase HTTP server",
	Long: `Start the QRBase HTTP server and begin accepting API requests.

The server will:
- Load configuration from environment variables (or --config file if provided)
- Bootstrap an admin user if ADMIN_* env vars are set
- Start River background workers for ticket emails and cleanup
- Handle graceful shutdown on SIGINT/SIGTERM

Examples:
  # Start with default configuration (from env vars)
  server serve

  # Start on a specific host and port
  server serve --host 127.0.0.1 --port 9090

  # Start with debug logging
  server serve --log-level debug`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer()
	},
}

func init() {
	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host address (default: 0.0.0.0)")
	serveCmd.Flags().IntVar(&serverPort, "port", 0, "server port (default: 8080)")
}

func runServer() error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}

	logger := config.NewLogger(cfg.Logging)
	logger.Info().Str("version", Version).Msg("starting QRBase server")

	metrics.AppInfo.WithLabelValues(Version, GitCommit, BuildDate).Set(1)

	poolCtx, poolCancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := postgres.Connect(poolCtx, cfg.Database.URL)
	poolCancel()
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()

	repo, err := postgres.NewRepository(pool)
	if err != nil {
		return fmt.Errorf("repository init failed: %w", err)
	}

	usersService := users.NewService(repo.Users(), logger)
	eventsService := events.NewService(repo.Events(), logger)
	speakersService := speakers.NewService(repo.Speakers(), logger)
	feedbackService := feedback.NewService(repo.Feedback(), logger)
	reportsService := reports.NewService(repo.Registrations(), feedbackService, logger)

	emailService, err := email.NewService(cfg.Email, cfg.Email.TemplatesDir, logger)
	if err != nil {
		return fmt.Errorf("email service init failed: %w", err)
	}

	uploadStore, err := uploads.NewStore(cfg.Uploads.Dir, cfg.Uploads.MaxSizeBytes, logger)
	if err != nil {
		return fmt.Errorf("upload store init failed: %w", err)
	}

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Auth.Issuer)

	bootCtx, bootCancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := bootstrapAdminUser(bootCtx, cfg, usersService, logger); err != nil {
		logger.Error().Err(err).Msg("admin bootstrap failed")
	}
	bootCancel()

	// The email worker only reads registrations, so it gets a service
	// without an enqueuer; the HTTP-facing service below gets the real
	// one once the River client exists.
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	workerRegistrations := registrations.NewService(repo.Registrations(), eventsService, usersService, nil, logger)

	workers := river.NewWorkers()
	river.AddWorker(workers, jobs.TicketEmailWorker{
		Registrations: workerRegistrations,
		Events:        eventsService,
		Users:         usersService,
		Email:         emailService,
		Logger:        slogger,
	})
	river.AddWorker(workers, jobs.StaleRegistrationCleanupWorker{
		Pool:   pool,
		Logger: slogger,
	})

	riverClient, err := jobs.NewClient(pool, workers, slogger, jobs.NewPeriodicJobs())
	if err != nil {
		return fmt.Errorf("river client init failed: %w", err)
	}

	riverCtx, riverCancel := context.WithCancel(context.Background())
	defer riverCancel()
	if err := riverClient.Start(riverCtx); err != nil {
		return fmt.Errorf("river workers failed to start: %w", err)
	}
	logger.Info().Msg("river background job workers started")
	defer func() {
		stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer stopCancel()
		if err := riverClient.Stop(stopCtx); err != nil {
			logger.Error().Err(err).Msg("river workers shutdown error")
		} else {
			logger.Info().Msg("river workers stopped")
		}
	}()

	registrationsService := registrations.NewService(repo.Registrations(), eventsService, usersService, jobs.NewEnqueuer(riverClient), logger)

	handler := api.NewRouter(api.Deps{
		Config:        cfg,
		Logger:        logger,
		Pool:          pool,
		JWT:           jwtManager,
		Users:         usersService,
		Events:        eventsService,
		Registrations: registrationsService,
		Speakers:      speakersService,
		Feedback:      feedbackService,
		Reports:       reportsService,
		Uploads:       uploadStore,
		Version:       Version,
		GitCommit:     GitCommit,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           handler,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server error")
		}
	}()

	return gracefulShutdown(server, logger)
}

// bootstrapAdminUser creates the initial admin account when the
// ADMIN_* env vars are set and the email is not yet registered.
func bootstrapAdminUser(ctx context.Context, cfg config.Config, usersService *users.Service, logger zerolog.Logger) error {
	bootstrap := cfg.AdminBootstrap
	if bootstrap.Email == "" || bootstrap.Password == "" {
		logger.Debug().Msg("admin bootstrap env vars not set; skipping")
		return nil
	}

	firstName := bootstrap.FirstName
	if firstName == "" {
		firstName = "Admin"
	}
	lastName := bootstrap.LastName
	if lastName == "" {
		lastName = "User"
	}

	_, err := usersService.AddTeamMember(ctx, users.AddTeamMemberParams{
		FirstName: firstName,
		LastName:  lastName,
		Email:     bootstrap.Email,
		Password:  bootstrap.Password,
		Role:      string(auth.RoleAdmin),
	})
	if errors.Is(err, users.ErrEmailTaken) {
		return nil
	}
	if err != nil {
		return err
	}

	// Redact the email in production to avoid PII in logs.
	if cfg.Environment == "production" {
		logger.Info().Msg("bootstrapped admin user")
	} else {
		logger.Info().Str("email", bootstrap.Email).Msg("bootstrapped admin user")
	}
	return nil
}

func gracefulShutdown(server *http.Server, logger zerolog.Logger) error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	<-stop
	logger.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("shutdown error")
		return err
	}

	logger.Info().Msg("server stopped")
	return nil
}
