package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"jobwire/db"
	"jobwire/events"
	"jobwire/ingest"
	"jobwire/models"
	"jobwire/queue"
)

func workCmd() *cli.Command {
	return &cli.Command{
		Name:  "work",
		Usage: "Run import workers consuming the task queue",
		Description: `Starts the configured number of worker slots. Each slot pulls one
import task at a time and runs the full import procedure: fetch the
feed, parse and normalize its items, upsert job records, persist the
run log, and publish run events.

Tasks whose handler fails are redelivered with exponential backoff up
to the attempt limit, after which an import:failed event is published.`,
		Action: func(cliCtx *cli.Context) error {
			cfg, err := loadConfig(cliCtx)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cliCtx.Context)
			defer cancel()

			store, err := db.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer store.Close()

			rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
			if err != nil {
				return err
			}
			defer rdb.Close()

			publisher := events.NewRedisPublisher(rdb)
			importer := ingest.NewImporter(ingest.NewFetcher(cfg.FetchTimeout), store, publisher)

			q := queue.New(rdb, publisher, queue.Options{
				Concurrency: cfg.Concurrency,
				MaxAttempts: cfg.MaxAttempts,
				BackoffBase: cfg.BackoffBase,
			})

			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-c
				log.Info("Gracefully shutting down workers...")
				cancel()
			}()

			log.WithFields(log.Fields{"concurrency": cfg.Concurrency}).Info("Starting import workers")
			q.Run(ctx, func(ctx context.Context, task models.ImportTask) error {
				_, err := importer.ImportFeed(ctx, task.URL)
				return err
			})

			log.Info("Workers stopped")
			return nil
		},
	}
}
