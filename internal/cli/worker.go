package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"ledgerbot/internal/worker"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume conversation events from the AMQP inbound queue",
	RunE:  runWorker,
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx, stop, app, err := startup(BootstrapOptions{Broker: true})
	if err != nil {
		return err
	}
	defer stop()
	defer closeApp(app)

	if app.Broker == nil {
		return errors.New("worker requires AMQP_URL")
	}
	w := worker.NewInboundWorker(app.Driver, app.Broker, app.Logger)
	return w.Run(ctx, app.Broker, app.Config.WorkerConcurrency)
}
