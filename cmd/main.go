// cmd/main.go is the application entry point.
// It wires together all layers and runs the requested command.
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

	"github.com/Shivanand-hulikatti/campus-events/internal/auth"
	"github.com/Shivanand-hulikatti/campus-events/internal/config"
	"github.com/Shivanand-hulikatti/campus-events/internal/database"
	"github.com/Shivanand-hulikatti/campus-events/internal/handler"
	"github.com/Shivanand-hulikatti/campus-events/internal/logger"
	"github.com/Shivanand-hulikatti/campus-events/internal/metrics"
	"github.com/Shivanand-hulikatti/campus-events/internal/model"
	"github.com/Shivanand-hulikatti/campus-events/internal/repository"
	"github.com/Shivanand-hulikatti/campus-events/internal/service"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// Set via -ldflags at build time.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

const shutdownTimeout = 10 * time.Second

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:           "campus-events",
		Short:         "Campus event registry",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVar(&envFile, "env-file", "", "Env file to load (defaults to ./.env when present)")

	loadConfig := func() (*config.Config, error) {
		if envFile != "" {
			return config.LoadWithPath(envFile)
		}
		return config.Load()
	}

	cmd.AddCommand(serveCmd(loadConfig), createAdminCmd(loadConfig), &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "campus-events version %s (build: %s)\n", Version, BuildTime)
		},
	})
	return cmd
}

func serveCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func createAdminCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var req model.SignupRequest

	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			log, err := newLogger(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			store, closeStore, err := openStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer closeStore()

			users := service.NewUserService(store, service.WithLogger(log))
			u, err := users.CreateAdmin(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("create admin: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created admin %s (%s)\n", req.Username, u.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&req.Name, "name", "", "Full name")
	cmd.Flags().StringVar(&req.Email, "email", "", "Email address")
	cmd.Flags().StringVar(&req.Username, "username", "", "Login name")
	cmd.Flags().StringVar(&req.Password, "password", "", "Password")
	for _, f := range []string{"name", "email", "username", "password"} {
		_ = cmd.MarkFlagRequired(f)
	}
	return cmd
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	log, err := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		ServiceName: cfg.App.Name,
		Development: cfg.Log.Development,
		OutputPath:  cfg.Log.OutputPath,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return log, nil
}

// openStore connects the configured storage driver. The returned func
// releases it.
func openStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (service.Store, func(), error) {
	switch cfg.Storage.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory storage; data is lost on restart")
		return repository.NewMemory(), func() {}, nil
	case config.DriverPostgres:
		pool, err := database.NewPool(ctx, cfg.Database, log)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		if err := database.EnsureSchema(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		log.Info("connected to PostgreSQL", zap.String("host", cfg.Database.Host))
		return repository.NewPostgres(pool), pool.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	loc, err := cfg.App.Location()
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}

	// ── 1. Storage ────────────────────────────────────────────────────────
	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	// ── 2. Wire up layers ────────────────────────────────────────────────
	m := metrics.New()
	opts := []service.Option{service.WithLogger(log), service.WithMetrics(m), service.WithLocation(loc)}
	h := handler.New(handler.Deps{
		Registry: service.NewEventRegistry(store, store, opts...),
		Users:    service.NewUserService(store, opts...),
		Reports:  service.NewReportService(store, opts...),
		Tokens:   auth.NewTokens(cfg.JWT),
		Logger:   log,
		Metrics:  m,
	})

	// ── 3. Start server with graceful shutdown ────────────────────────────
	srv := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      h.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("storage", cfg.Storage.Driver),
			zap.String("version", Version),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	log.Info("server stopped")
	return nil
}
