package cmd

import (
	"context"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/curaious/projectchron/internal/config"
	"github.com/curaious/projectchron/internal/db"
	"github.com/curaious/projectchron/internal/pubsub"
	"github.com/curaious/projectchron/internal/services"
	"github.com/curaious/projectchron/internal/services/media"
	"github.com/curaious/projectchron/internal/telemetry"
)

var mediaWorkerCmd = &cobra.Command{
	Use:   "media-worker",
	Short: "Start the media job worker",
	Run: func(cmd *cobra.Command, args []string) {
		conf := config.ReadConfig()

		shutdownTelemetry := telemetry.NewProvider("projectchron-media-worker", conf.OTEL_EXPORTER_OTLP_ENDPOINT)
		defer shutdownTelemetry()

		svc := services.NewServices(conf)
		defer svc.DB.Close()

		w := newMediaWorker(conf, svc)

		// Registrations notify over LISTEN/NOTIFY on Postgres so the worker
		// does not wait for the next tick.
		if conf.DB_DRIVER != config.DriverSQLite {
			ps := pubsub.NewPubSub(db.PostgresDSN(conf), pubsub.MediaJobsChannel)
			ps.Subscribe(func(event pubsub.Event) {
				w.Wake()
			})
			if err := ps.Start(); err != nil {
				log.Fatalln("Unable to listen for media jobs", err)
			}
			defer ps.Stop()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		w.Run(ctx)
		slog.Info("Media worker exited")
	},
}

func newMediaWorker(conf *config.Config, svc *services.Services) *media.Worker {
	return media.NewWorker(svc.DB, media.WorkerConfig{
		Interval:     conf.MEDIA_WORKER_INTERVAL,
		BatchSize:    conf.MEDIA_WORKER_BATCH_SIZE,
		Processor:    media.StubProcessor{},
		Housekeeping: svc.Session.PurgeExpired,
	})
}

// Register the "media-worker" command
func init() {
	rootCmd.AddCommand(mediaWorkerCmd)
}
