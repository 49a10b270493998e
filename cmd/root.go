// Package cmd wires the jobwire CLI: serve, work, migrate, seed.
package cmd

import (
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"jobwire/config"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "jobwire",
		Usage: "Job feed importer with live import monitoring",
		Description: `jobwire periodically pulls registered job-listing feeds, normalizes
		their items into deduplicated job records, and keeps an immutable
		audit log of every import run. Run lifecycle events are broadcast
		over Redis pub/sub and relayed to dashboard clients via SSE.

		Flags can generally be set via environment variables, e.g.:

		--database-url => JOBWIRE_DATABASE_URL=postgres://...
		--redis-url => JOBWIRE_REDIS_URL=redis://...
		`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Postgres connection URL",
				EnvVars: []string{"JOBWIRE_DATABASE_URL"},
			},
			&cli.StringFlag{
				Name:    "redis-url",
				Usage:   "Redis connection URL for the queue and pub/sub bus",
				EnvVars: []string{"JOBWIRE_REDIS_URL"},
			},
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "Address for the HTTP API",
				Value:   ":3001",
				EnvVars: []string{"JOBWIRE_LISTEN"},
			},
			&cli.StringFlag{
				Name:    "cron",
				Usage:   "Cron spec for the import scheduler",
				Value:   "0 * * * *",
				EnvVars: []string{"JOBWIRE_CRON"},
			},
			&cli.IntFlag{
				Name:    "concurrency",
				Usage:   "Number of import worker slots",
				Value:   5,
				EnvVars: []string{"JOBWIRE_CONCURRENCY"},
			},
			&cli.IntFlag{
				Name:    "attempts",
				Usage:   "Maximum delivery attempts per import task",
				Value:   3,
				EnvVars: []string{"JOBWIRE_ATTEMPTS"},
			},
			&cli.DurationFlag{
				Name:    "backoff-base",
				Usage:   "Initial retry delay, doubled on each attempt",
				Value:   time.Second,
				EnvVars: []string{"JOBWIRE_BACKOFF_BASE"},
			},
			&cli.DurationFlag{
				Name:    "fetch-timeout",
				Usage:   "HTTP timeout for feed fetches",
				Value:   15 * time.Second,
				EnvVars: []string{"JOBWIRE_FETCH_TIMEOUT"},
			},
			&cli.StringFlag{
				Name:    "allow-origin",
				Usage:   "CORS origin allowed to call the API",
				Value:   "http://localhost:3000",
				EnvVars: []string{"JOBWIRE_ALLOW_ORIGIN"},
			},
		},
		Commands: []*cli.Command{
			serveCmd(),
			workCmd(),
			migrateCmd(),
			rollbackCmd(),
			seedCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return cli.ShowAppHelp(ctx)
		},
	}
}

func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// loadConfig assembles and validates the runtime config from CLI context.
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg := &config.Config{
		DatabaseURL:  ctx.String("database-url"),
		RedisURL:     ctx.String("redis-url"),
		Listen:       ctx.String("listen"),
		CronSpec:     ctx.String("cron"),
		Concurrency:  ctx.Int("concurrency"),
		MaxAttempts:  ctx.Int("attempts"),
		BackoffBase:  ctx.Duration("backoff-base"),
		FetchTimeout: ctx.Duration("fetch-timeout"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
