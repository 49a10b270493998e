package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"jobwire/db"
	"jobwire/events"
	"jobwire/queue"
	"jobwire/scheduler"
	"jobwire/server"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API, the SSE gateway, and the import scheduler",
		Description: `Starts the jobwire API server together with the cron scheduler that
enqueues one import task per registered feed every tick, and the SSE
gateway that relays run events from Redis pub/sub to dashboard clients.

Import workers run separately; see the work command.`,
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

			q := queue.New(rdb, events.NewRedisPublisher(rdb), queue.Options{
				MaxAttempts: cfg.MaxAttempts,
				BackoffBase: cfg.BackoffBase,
			})

			sched := scheduler.New(store, q, cfg.CronSpec)
			if err := sched.Start(ctx); err != nil {
				return err
			}
			defer sched.Stop()

			bc := server.NewBroadcaster()
			go server.Relay(ctx, rdb, bc)

			app := server.Server(&server.ServerConfig{
				Store:       store,
				Broadcaster: bc,
				AllowOrigin: cliCtx.String("allow-origin"),
			})

			// Graceful shutdown
			c := make(chan os.Signal, 1)
			signal.Notify(c, os.Interrupt, syscall.SIGTERM)
			go func() {
				<-c
				log.Info("Gracefully shutting down...")
				cancel()
				bc.Shutdown()
				if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
					log.WithFields(log.Fields{"error": err}).Error("Server shutdown failed")
				}
			}()

			log.WithFields(log.Fields{"listen": cfg.Listen}).Info("Starting server")
			return app.Listen(cfg.Listen)
		},
	}
}
