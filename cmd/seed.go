package cmd

import (
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"jobwire/config"
	"jobwire/db"
)

func seedCmd() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Register feed URLs from a TOML file",
		Description: `Reads a TOML file with a feeds list and registers each URL in the
feed registry. Already-registered URLs are left untouched. This is the
explicit bulk-import path; the database remains the single source of
truth for registered feeds.

Example file:

	feeds = [
	  "https://jobs.example.com/rss",
	]`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "file",
				Usage:    "Path to the TOML seed file",
				Value:    "feeds.toml",
				Required: false,
			},
		},
		Action: func(ctx *cli.Context) error {
			cfg, err := config.LoadSeedFile(ctx.String("file"))
			if err != nil {
				return err
			}

			databaseURL := ctx.String("database-url")
			store, err := db.Connect(ctx.Context, databaseURL)
			if err != nil {
				return err
			}
			defer store.Close()

			urls := lo.Uniq(cfg.Feeds)
			added, err := store.SeedFeeds(ctx.Context, urls)
			if err != nil {
				return err
			}

			log.WithFields(log.Fields{
				"file":  ctx.String("file"),
				"urls":  len(urls),
				"added": added,
			}).Info("Seeded feed registry")
			return nil
		},
	}
}
