package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/leadpipe/internal/auth"
	"github.com/JonMunkholm/leadpipe/internal/config"
	"github.com/JonMunkholm/leadpipe/internal/core"
	"github.com/JonMunkholm/leadpipe/internal/events"
	"github.com/JonMunkholm/leadpipe/internal/logging"
	"github.com/JonMunkholm/leadpipe/internal/metrics"
	"github.com/JonMunkholm/leadpipe/internal/store/postgres"
	"github.com/JonMunkholm/leadpipe/internal/web"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"db_max_conns", cfg.Database.MaxConns,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
		"events", eventsMode(cfg.Events),
	)

	if cfg.Database.AutoMigrate {
		if err := postgres.Migrate(cfg.Database.URL, postgres.DirectionUp); err != nil {
			return err
		}
		slog.Info("database migrations applied")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer pool.Close()

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	}

	publisher, closeEvents, err := events.FromConfig(cfg.Events, slog.Default())
	if err != nil {
		return err
	}
	defer func() {
		if err := closeEvents(); err != nil {
			slog.Warn("closing event publisher", "error", err)
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	service := core.NewService(postgres.New(pool), core.ServiceConfig{
		MaxFileSize:   cfg.Import.MaxFileSize,
		MaxConcurrent: cfg.Import.MaxConcurrent,
		MaxWait:       cfg.Import.MaxWaitTime,
		ImportTimeout: cfg.Import.Timeout,
	}, publisher, m)
	metrics.TrackLimiter(reg, service.Limiter())

	tokens, err := auth.NewTokenManager(cfg.Security.JWTSecret, cfg.Security.JWTIssuer, cfg.Security.TokenTTL)
	if err != nil {
		return err
	}

	server := web.NewServer(cfg, service, tokens, m)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Let running imports finish their insert before the pool closes.
		if st := service.Limiter().Status(); st.Active > 0 {
			slog.Info("waiting for imports to complete", "active", st.Active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("imports did not complete in time", "error", err)
			} else {
				slog.Info("all imports completed")
			}
		}
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func eventsMode(cfg config.EventsConfig) string {
	if cfg.AMQPURL == "" {
		return "log"
	}
	return "amqp"
}
