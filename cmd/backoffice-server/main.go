package main

import (
	"context"
	crypto_rand "crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clinic/backoffice/internal/config"
	"github.com/clinic/backoffice/internal/domain/appointment"
	"github.com/clinic/backoffice/internal/domain/attachment"
	"github.com/clinic/backoffice/internal/domain/billing"
	"github.com/clinic/backoffice/internal/domain/dashboard"
	"github.com/clinic/backoffice/internal/domain/insight"
	"github.com/clinic/backoffice/internal/domain/patient"
	"github.com/clinic/backoffice/internal/domain/settings"
	"github.com/clinic/backoffice/internal/platform/auth"
	"github.com/clinic/backoffice/internal/platform/blobstore"
	"github.com/clinic/backoffice/internal/platform/db"
	"github.com/clinic/backoffice/internal/platform/logging"
	"github.com/clinic/backoffice/internal/platform/middleware"
	"github.com/clinic/backoffice/internal/platform/notification"
	"github.com/clinic/backoffice/migrations"
)

const shutdownTimeout = 10 * time.Second

func main() {
	rootCmd := &cobra.Command{
		Use:   "backoffice-server",
		Short: "Clinic back-office API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(exportCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, migrations.FS).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, migrations.FS).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printStatuses(cmd, statuses)
			return nil
		},
	})

	return cmd
}

func printStatuses(cmd *cobra.Command, statuses []db.MigrationStatus) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(out, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}

// exportCmd writes the dashboard table as CSV to stdout.
func exportCmd() *cobra.Command {
	var f dashboard.Filter
	cmd := &cobra.Command{
		Use:   "export-csv",
		Short: "Export appointments as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			ctx := cmd.Context()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			svcs := newServices(pool, cfg, nil, notification.NewLogSender(logger), logger)
			v, err := svcs.dashboard.View(ctx, f)
			if err != nil {
				return err
			}
			return dashboard.WriteCSV(cmd.OutOrStdout(), v.Rows)
		},
	}
	cmd.Flags().StringVar(&f.Text, "text", "", "Patient name filter")
	cmd.Flags().StringVar(&f.Date, "date", "", "Appointment date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.Status, "status", dashboard.All, "Appointment status")
	cmd.Flags().StringVar(&f.Service, "service", dashboard.All, "Service code")
	return cmd
}

func newLogger(cfg *config.Config) zerolog.Logger {
	return logging.New(logging.Options{
		Level:   cfg.LogLevel,
		Console: cfg.IsDev(),
		File:    cfg.LogFile,
	})
}

type services struct {
	appointments *appointment.Service
	attachments  *attachment.Service
	patients     *patient.Service
	billing      *billing.Service
	settings     *settings.Service
	dashboard    *dashboard.Aggregator
}

func newServices(pool *pgxpool.Pool, cfg *config.Config, blobs blobstore.Store, mailer notification.EmailSender, logger zerolog.Logger) *services {
	timeout := cfg.StoreTimeout()

	var apptOpts []appointment.Option
	if cfg.StrictTransitions {
		apptOpts = append(apptOpts, appointment.WithStrictTransitions())
	}

	s := &services{}
	var uploader appointment.FileUploader
	if blobs != nil {
		s.attachments = attachment.NewService(attachment.NewRepoPG(pool, timeout), blobs, cfg.SignedURLTTL(), logger)
		uploader = s.attachments
	}
	s.appointments = appointment.NewService(appointment.NewRepoPG(pool, timeout), uploader, logger, apptOpts...)
	s.patients = patient.NewService(patient.NewRepoPG(pool, timeout), logger)
	s.settings = settings.NewService(settings.NewRepoPG(pool, timeout), logger)
	s.billing = billing.NewService(billing.NewRepoPG(pool, timeout), s.settings, mailer, cfg.Location(), logger)

	hydrator := insight.NewHydrator(s.patients, s.billing, logger)
	s.dashboard = dashboard.NewAggregator(s.appointments, hydrator, dashboard.Policy{
		TodayIncludeCancelled: cfg.TodayIncludeCancelled,
		TodayLimit:            dashboard.DefaultTodayLimit,
		Location:              cfg.Location(),
	}, logger)
	return s
}

// newBlobStore builds the configured store. The second value is non-nil only
// for the in-memory backend, whose signed links are served by this process.
func newBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, *blobstore.MemoryStore, error) {
	switch cfg.StorageBackend {
	case "s3":
		s, err := blobstore.NewS3Store(ctx, blobstore.S3Config{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
			Bucket:          cfg.S3Bucket,
			PublicBaseURL:   cfg.StoragePublicBaseURL,
		})
		if err != nil {
			return nil, nil, err
		}
		return s, nil, nil
	case "memory":
		key, _, err := resolveBlobSigningKey(cfg.BlobSigningKey)
		if err != nil {
			return nil, nil, err
		}
		mem := blobstore.NewMemoryStore(fmt.Sprintf("http://localhost:%s/blobs", cfg.Port), key)
		if cfg.StoragePublicBaseURL != "" {
			mem.WithPublicBase(cfg.StoragePublicBaseURL)
		}
		return mem, mem, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// resolveBlobSigningKey decodes BLOB_SIGNING_KEY (hex) or generates a random
// 32-byte key. The second return value is true when a random key was generated.
func resolveBlobSigningKey(envValue string) ([]byte, bool, error) {
	if envValue != "" {
		decoded, err := hex.DecodeString(envValue)
		if err != nil {
			return nil, false, fmt.Errorf("invalid BLOB_SIGNING_KEY hex value: %w", err)
		}
		return decoded, false, nil
	}
	key := make([]byte, 32)
	if _, err := crypto_rand.Read(key); err != nil {
		return nil, false, fmt.Errorf("failed to generate random blob signing key: %w", err)
	}
	return key, true, nil
}

func newMailer(cfg *config.Config, logger zerolog.Logger) (notification.EmailSender, error) {
	if cfg.SMTPHost == "" {
		return notification.NewLogSender(logger), nil
	}
	smtp, err := notification.NewSMTPSender(notification.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		SSL:      cfg.SMTPSSL,
	})
	if err != nil {
		return nil, err
	}
	return smtp, nil
}

func authMiddleware(cfg *config.Config) echo.MiddlewareFunc {
	if cfg.ResolvedAuthMode() == "development" {
		return auth.DevAuthMiddleware()
	}
	return auth.JWTMiddleware(auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		SigningKey: []byte(cfg.AuthJWTSecret),
	})
}

// newServer wires middleware and routes. mem may be nil.
func newServer(cfg *config.Config, logger zerolog.Logger, svcs *services, health echo.HandlerFunc, mem *blobstore.MemoryStore) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", middleware.RequestIDHeader},
	}))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	if t := cfg.RequestTimeout(); t > 0 {
		e.Use(middleware.RequestTimeout(t))
	}

	public := e.Group("/api/v1")
	public.GET("/health/db", health)

	rl := middleware.DefaultRateLimitConfig()
	if cfg.RateLimitRPS > 0 {
		rl.RequestsPerSecond = cfg.RateLimitRPS
	}
	if cfg.RateLimitBurst > 0 {
		rl.BurstSize = cfg.RateLimitBurst
	}
	apptHandler := appointment.NewHandler(svcs.appointments)
	apptHandler.RegisterPublicRoutes(public, middleware.RateLimit(rl), middleware.BodyLimit(cfg.IntakeBodyLimit))

	api := e.Group("/api/v1", authMiddleware(cfg))
	apptHandler.RegisterRoutes(api)
	if svcs.attachments != nil {
		attachment.NewHandler(svcs.attachments).RegisterRoutes(api)
	}
	patient.NewHandler(svcs.patients).RegisterRoutes(api)
	billing.NewHandler(svcs.billing).RegisterRoutes(api)
	settings.NewHandler(svcs.settings).RegisterRoutes(api)
	dashboard.NewHandler(svcs.dashboard).RegisterRoutes(api)

	if mem != nil {
		blobstore.NewHandler(mem).RegisterRoutes(e.Group(""))
	}
	return e
}

func runServer() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		logger.Error().Err(err).Msg("invalid configuration")
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Error().Err(err).Msg("failed to connect to database")
		return err
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	blobs, mem, err := newBlobStore(ctx, cfg)
	if err != nil {
		logger.Error().Err(err).Str("backend", cfg.StorageBackend).Msg("failed to open blob store")
		return err
	}
	if mem != nil {
		logger.Warn().Msg("using in-memory blob store; attachments are lost on restart")
	}

	mailer, err := newMailer(cfg, logger)
	if err != nil {
		return err
	}

	svcs := newServices(pool, cfg, blobs, mailer, logger)
	e := newServer(cfg, logger, svcs, db.PoolHealthHandler(pool), mem)

	errCh := make(chan error, 1)
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("starting server")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			logger.Error().Err(err).Msg("server error")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown error")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}
