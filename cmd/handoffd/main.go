// Command handoffd runs the bot/agent handoff API.
//
//	@title			Handoff API
//	@version		1.0
//	@description	Bot/agent handoff backend: conversation routing, transcripts and leads.
//	@BasePath		/api/v1
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/tbourn/go-handoff-backend/internal/config"
	httpapi "github.com/tbourn/go-handoff-backend/internal/http"
	"github.com/tbourn/go-handoff-backend/internal/observability"
	"github.com/tbourn/go-handoff-backend/internal/repo"
	"github.com/tbourn/go-handoff-backend/internal/sentiment"
	"github.com/tbourn/go-handoff-backend/internal/sysutil"
)

var (
	version    = "dev"
	configPath string
	envFile    string
)

const (
	purgeSchedule   = "@every 10m"
	shutdownTimeout = 15 * time.Second
)

func main() {
	root := &cobra.Command{
		Use:           "handoffd",
		Short:         "Bot/agent handoff backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML config file (overrides CONFIG_FILE)")
	root.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the environment is read")

	root.AddCommand(serveCmd(), migrateCmd(), versionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "handoffd:", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the process logger.
func bootstrap() (config.Config, zerolog.Logger, error) {
	// A missing .env is normal outside local development.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config.Config{}, zerolog.Nop(), fmt.Errorf("load %s: %w", envFile, err)
	}
	if path := sysutil.FirstNonEmpty(configPath, os.Getenv("CONFIG_FILE")); path != "" {
		_ = os.Setenv("CONFIG_FILE", path)
	}

	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), err
	}

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	var log zerolog.Logger
	if cfg.LogPretty {
		log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	} else {
		log = zerolog.New(os.Stderr)
	}
	log = log.With().Timestamp().Str("service", cfg.OTEL.ServiceName).Str("version", version).Logger()
	return cfg, log, nil
}

func openStore(cfg config.Config, log zerolog.Logger) (*gorm.DB, error) {
	db, err := repo.Open(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.DB.Driver, err)
	}
	if err := repo.AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	log.Info().Str("driver", cfg.DB.Driver).Msg("store ready")
	return db, nil
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the handoff HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
}

func serve(ctx context.Context, cfg config.Config, log zerolog.Logger) error {
	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			log.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	db, err := openStore(cfg, log)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	var scorer sentiment.Scorer
	if cfg.Sentiment.Enabled() {
		scorer = sentiment.New(cfg.Sentiment, sentiment.WithLogger(log))
	}

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, httpapi.Deps{
		DB:      db,
		Scorer:  scorer,
		Tracker: observability.NewEventTracker(cfg.Telemetry, log),
		Log:     log,
	}, cfg)

	srv := &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return log.WithContext(context.Background()) },
	}

	purger, err := schedulePurge(ctx, db, log)
	if err != nil {
		return err
	}
	defer func() { <-purger.Stop().Done() }()

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// schedulePurge removes expired Idempotency-Key records on purgeSchedule
// until the returned cron is stopped.
func schedulePurge(ctx context.Context, db *gorm.DB, log zerolog.Logger) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(time.UTC))
	_, err := c.AddFunc(purgeSchedule, func() {
		n, err := repo.PurgeExpiredIdempotency(ctx, db, time.Now().UTC())
		if err != nil {
			log.Warn().Err(err).Msg("purge idempotency keys")
			return
		}
		if n > 0 {
			log.Debug().Int64("purged", n).Msg("expired idempotency keys")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule purge: %w", err)
	}
	c.Start()
	return c, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the store schema and exit",
		RunE: func(*cobra.Command, []string) error {
			cfg, log, err := bootstrap()
			if err != nil {
				return err
			}
			db, err := openStore(cfg, log)
			if err != nil {
				return err
			}
			if sqlDB, err := db.DB(); err == nil {
				_ = sqlDB.Close()
			}
			return nil
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
