package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"jobwire/db"
)

func migrateCmd() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run the database migrations",
		Action: func(ctx *cli.Context) error {
			databaseURL := ctx.String("database-url")
			if databaseURL == "" {
				return fmt.Errorf("database URL is required")
			}
			fmt.Println("Running migrations...")
			if err := db.Migrate(databaseURL); err != nil {
				return err
			}
			fmt.Println("Migrations complete")
			return nil
		},
	}
}

func rollbackCmd() *cli.Command {
	return &cli.Command{
		Name:  "rollback",
		Usage: "Undo the most recent database migration",
		Action: func(ctx *cli.Context) error {
			databaseURL := ctx.String("database-url")
			if databaseURL == "" {
				return fmt.Errorf("database URL is required")
			}
			return db.Rollback(databaseURL)
		},
	}
}
