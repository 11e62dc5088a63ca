package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"ledgerbot/internal/log"
)

var rootCmd = &cobra.Command{
	Use:   "ledgerbot",
	Short: "Conversational expense ledger",
	Long: `ledgerbot keeps a per-user expense ledger behind a menu-driven chat
conversation. Events arrive over an HTTP webhook, an AMQP queue or the local
console; configuration is read from the environment and an optional .env file.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(chatCmd)
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// startup is the shared prologue of every command: env, config, logger,
// signal context and bootstrap.
func startup(opts BootstrapOptions) (context.Context, context.CancelFunc, *App, error) {
	LoadEnvFile()
	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return nil, nil, nil, fmt.Errorf("configuration: %w", err)
	}
	logger := SetupLogger(cfg)

	ctx, stop := GracefulShutdown(logger)
	app, err := Bootstrap(ctx, cfg, logger, opts)
	if err != nil {
		stop()
		logger.Error("Startup failed", log.FieldOperation, log.OpStartup, log.FieldError, err)
		return nil, nil, nil, err
	}
	return ctx, stop, app, nil
}

func closeApp(app *App) {
	if err := app.Close(); err != nil {
		app.Logger.Error("Shutdown finished with errors", log.FieldError, err)
	}
}
