package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/RepRech/internal/config"
	"github.com/JonMunkholm/RepRech/internal/core"
	"github.com/JonMunkholm/RepRech/internal/database"
	"github.com/JonMunkholm/RepRech/internal/logging"
	"github.com/JonMunkholm/RepRech/internal/web"
)

func main() {
	// Overload lets a local .env win over inherited variables.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"upload_max_concurrent", cfg.Upload.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	if err := run(cfg); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.URL); err != nil {
			return err
		}
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	service := core.NewService(core.NewPGStore(pool), core.OptionsFromConfig(cfg))

	if seeded, err := service.Bootstrap(ctx, cfg.Ingest.SeedFile, cfg.Ingest.SeedLabel); err != nil {
		slog.Error("seed ingest failed", "path", cfg.Ingest.SeedFile, "error", err)
	} else if !seeded {
		slog.Debug("seed ingest skipped", "path", cfg.Ingest.SeedFile)
	}

	server := web.NewServer(service, cfg)

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if status := service.UploadLimiterStatus(); status.Active > 0 {
		slog.Info("waiting for uploads to complete", "active", status.Active)
		if err := service.WaitForUploads(shutdownCtx); err != nil {
			slog.Warn("uploads did not complete in time", "error", err)
		}
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}
