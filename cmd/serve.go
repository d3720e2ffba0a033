package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"projector/internal/app"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the event bus, the scheduled sweeps and the status API",
		Long: `Starts projector as a long-running service:

  - hook handlers react to record changes published on the event bus
  - with the file store and store.watch enabled, edits under store.path
    are detected and published as events
  - a full sweep runs on sync.schedule, and at startup with sync.onStartup
  - the status API serves /healthz, /status, /sync, /priorities and /metrics

The process stops on SIGINT or SIGTERM and notifies systemd when run under a
Type=notify unit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := app.NewApplication(app.NewConfig(debug, configPath), cmd.ErrOrStderr())
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			return application.Serve(cmd.Context())
		},
	}
}
