// Command leadctl runs lead imports, exports and stage moves from the shell,
// applies database migrations and issues operator tokens for the HTTP API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/leadpipe/internal/config"
	"github.com/JonMunkholm/leadpipe/internal/core"
	"github.com/JonMunkholm/leadpipe/internal/events"
	"github.com/JonMunkholm/leadpipe/internal/logging"
	"github.com/JonMunkholm/leadpipe/internal/store/postgres"
)

func main() {
	// A missing .env is fine; the environment may already be set.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

type rootOptions struct {
	owner     string
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	var opts rootOptions

	root := &cobra.Command{
		Use:           "leadctl",
		Short:         "Manage the lead pipeline from the command line",
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&opts.owner, "owner", os.Getenv("LEADCTL_OWNER"), "Operator the command acts for (env LEADCTL_OWNER)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")

	root.AddCommand(
		newImportCmd(&opts),
		newExportCmd(&opts),
		newMoveCmd(&opts),
		newMigrateCmd(&opts),
		newTokenCmd(&opts),
	)
	return root
}

// operator returns the operator named by --owner.
func (o *rootOptions) operator() (core.OperatorContext, error) {
	op := core.Operator(o.owner)
	if op.OwnerID == "" {
		return op, errors.New("--owner is required")
	}
	return op, nil
}

// logger writes to the command's stderr so stdout stays free for output.
func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	return logging.New(cmd.ErrOrStderr(), o.logLevel, o.logFormat)
}

// serviceConfig reads the import section shared by every store.
func serviceConfig() (core.ServiceConfig, error) {
	var imp config.ImportConfig
	if err := config.LoadSection(&imp); err != nil {
		return core.ServiceConfig{}, err
	}
	return core.ServiceConfig{
		MaxFileSize:   imp.MaxFileSize,
		MaxConcurrent: imp.MaxConcurrent,
		MaxWait:       imp.MaxWaitTime,
		ImportTimeout: imp.Timeout,
	}, nil
}

// openService connects to PostgreSQL and the event broker. The returned
// cleanup closes both.
func (o *rootOptions) openService(ctx context.Context, logger *slog.Logger) (*core.Service, func(), error) {
	var db config.DatabaseConfig
	if err := config.LoadSection(&db); err != nil {
		return nil, nil, err
	}
	var ev config.EventsConfig
	if err := config.LoadSection(&ev); err != nil {
		return nil, nil, err
	}
	svcCfg, err := serviceConfig()
	if err != nil {
		return nil, nil, err
	}

	pool, err := postgres.Open(ctx, db)
	if err != nil {
		return nil, nil, err
	}
	publisher, closeEvents, err := events.FromConfig(ev, logger)
	if err != nil {
		pool.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := closeEvents(); err != nil {
			logger.Warn("closing event publisher", "error", err)
		}
		pool.Close()
	}
	return core.NewService(postgres.New(pool), svcCfg, publisher, nil), cleanup, nil
}
