package cli

import (
	"context"
	"errors"
	"net"
	nethttp "net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"ledgerbot/internal/conversation"
	apphttp "ledgerbot/internal/http"
	"ledgerbot/internal/log"
	"ledgerbot/internal/worker"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP webhook, plus the AMQP consumer when configured",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop, app, err := startup(BootstrapOptions{Broker: true})
	if err != nil {
		return err
	}
	defer stop()
	defer closeApp(app)

	deps := apphttp.Deps{
		Driver:             app.Driver,
		Store:              app.Store,
		Gatherer:           app.Registry,
		RateLimitPerMinute: app.Config.RateLimitPerMinute,
		Logger:             app.Logger,
	}
	if app.Broker != nil {
		deps.Forward = conversation.SenderFunc(app.Broker.PublishPrompt)
	}
	srv := apphttp.NewServer(net.JoinHostPort("", app.Config.Port), deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		app.Logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if app.Broker != nil {
		w := worker.NewInboundWorker(app.Driver, app.Broker, app.Logger)
		g.Go(func() error {
			return w.Run(gctx, app.Broker, app.Config.WorkerConcurrency)
		})
	} else {
		app.Logger.Info("AMQP disabled, HTTP webhook only")
	}

	err = g.Wait()
	app.Logger.Info("Server stopped", log.FieldOperation, log.OpShutdown, "requests", srv.Requests())
	return err
}
