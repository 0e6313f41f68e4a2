package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/curaious/projectchron/internal/api"
	"github.com/curaious/projectchron/internal/config"
	"github.com/curaious/projectchron/internal/telemetry"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP API",
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.ReadConfig()

		shutdownTelemetry := telemetry.NewProvider("projectchron-server", conf.OTEL_EXPORTER_OTLP_ENDPOINT)
		defer shutdownTelemetry()

		s := api.New(conf)

		withWorker, _ := cmd.Flags().GetBool("with-worker")
		if withWorker {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			w := newMediaWorker(conf, s.Services())
			s.SetJobWaker(w)
			go w.Run(ctx)
		}

		s.Start()
	},
}

// Register the "server" command
func init() {
	serverCmd.Flags().Bool("with-worker", false, "Run the media worker inside the server process")
	rootCmd.AddCommand(serverCmd)
}
