// Package cli holds the ledgerbot commands and the bootstrap they share.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"ledgerbot/internal/amqp"
	"ledgerbot/internal/backend"
	"ledgerbot/internal/cache"
	"ledgerbot/internal/config"
	"ledgerbot/internal/conversation"
	"ledgerbot/internal/ledger"
	"ledgerbot/internal/locale"
	"ledgerbot/internal/log"
	"ledgerbot/internal/metrics"
	"ledgerbot/internal/services"
	gsheet "ledgerbot/internal/sheets/google"
)

const cacheSweepInterval = time.Minute

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from LOG_LEVEL and LOG_FORMAT and
// installs it as the slog default.
func SetupLogger(cfg *config.Config) *log.Logger {
	lc := log.DefaultConfig()
	lc.Level = log.ParseLevel(cfg.LogLevel)
	lc.Format = cfg.LogFormat
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration from the environment.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// GracefulShutdown returns a context cancelled on SIGINT or SIGTERM.
func GracefulShutdown(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
	}()
	return ctx, stop
}

// App is everything a command needs once startup succeeded.
type App struct {
	Config   *config.Config
	Logger   *log.Logger
	Registry *prometheus.Registry
	Store    *ledger.Store
	Driver   *conversation.Driver

	// Broker is nil when AMQP is not configured or not requested.
	Broker *amqp.Client

	closers []func() error
}

type BootstrapOptions struct {
	// Broker connects to AMQP when AMQP_URL is set.
	Broker bool
}

// Bootstrap opens the ledger, connects optional sinks and builds the
// conversation driver. On error everything opened so far is closed.
func Bootstrap(ctx context.Context, cfg *config.Config, logger *log.Logger, opts BootstrapOptions) (_ *App, err error) {
	app := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	app.Registry = prometheus.NewRegistry()
	app.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(app.Registry)

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", bc.Type, err)
	}
	if res.Cleanup != nil {
		app.closers = append(app.closers, res.Cleanup)
	}

	app.Store, err = ledger.Open(ctx, res.Persister, ledger.WithLogger(logger), ledger.WithMetrics(m))
	if err != nil {
		return nil, err
	}

	phrases := locale.Russian()
	if cfg.LocaleFile != "" {
		phrases, err = locale.Load(cfg.LocaleFile)
		if err != nil {
			return nil, fmt.Errorf("load locale: %w", err)
		}
		logger.Info("Locale loaded", "path", cfg.LocaleFile)
	}

	seen := cache.NewRecent(cfg.DedupeSize, cfg.DedupeTTL)
	sweeper := cache.NewManager(logger)
	sweeper.Register(seen)
	sweeper.StartCleanup(cacheSweepInterval)
	app.closers = append(app.closers, func() error { sweeper.Stop(); return nil })

	var sinks []services.Sink
	if opts.Broker && cfg.AMQPEnabled() {
		app.Broker, err = amqp.NewClient(amqp.Config{
			URL:          cfg.AMQPURL,
			Exchange:     cfg.AMQPExchange,
			InboundQueue: cfg.AMQPInboundQueue,
			OutboundKey:  cfg.AMQPOutboundKey,
			EventsKey:    cfg.AMQPEventsKey,
			Logger:       logger,
		})
		if err != nil {
			return nil, fmt.Errorf("connect AMQP: %w", err)
		}
		app.closers = append(app.closers, app.Broker.Close)
		sinks = append(sinks, services.NewAMQPSink(app.Broker))
		logger.Info("AMQP connected", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPInboundQueue)
	}
	if cfg.SheetsEnabled() {
		sheets, err := gsheet.New(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, logger)
		if err != nil {
			return nil, fmt.Errorf("google sheets: %w", err)
		}
		sinks = append(sinks, services.NewSheetsSink(sheets))
		logger.Info("Google Sheets mirror enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	notifier := services.NewNotificationService(logger, sinks...)
	app.closers = append(app.closers, notifier.Close)

	app.Driver = conversation.New(app.Store, phrases,
		conversation.WithLogger(logger),
		conversation.WithMetrics(m),
		conversation.WithDedupe(seen),
		conversation.WithNotifier(notifier),
	)
	return app, nil
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
