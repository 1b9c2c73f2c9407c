package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go-freelance-backend/config"
	"go-freelance-backend/internal/app"
	"go-freelance-backend/internal/cli"
	"go-freelance-backend/pkg/logger"
	"go-freelance-backend/pkg/security"

	"github.com/spf13/cobra"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	// Keep command output readable unless asked otherwise
	level := os.Getenv("MARKETCTL_LOG_LEVEL")
	if level == "" {
		level = "warn"
	}
	logger.Init(level)
	// Audit lines go to stderr so exports piped to stdout stay clean
	audit := security.NewSecurityLoggerTo("marketctl", cfg.Environment, "stderr")
	security.InitSecurityLogger(audit)
	defer audit.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer stores.Close()

	a := &cli.App{
		Usecases: app.NewUsecases(cfg, stores, app.NewRepositories(stores.Tree)),
	}
	if cfg.StoreDriver == config.StorePostgres {
		a.Migrate = func(cmd *cobra.Command) error {
			return app.Migrate(cmd.Context(), cfg)
		}
	}

	return cli.NewRootCmd(a).ExecuteContext(ctx)
}
