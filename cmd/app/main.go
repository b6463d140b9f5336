// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"

	"codeberg.org/oliverandrich/guard/internal/config"
	"codeberg.org/oliverandrich/guard/internal/database"
	"codeberg.org/oliverandrich/guard/internal/server"
	"github.com/urfave/cli/v3"
)

// Version information (set via ldflags during build)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cmd := &cli.Command{
		Name:    "guard",
		Usage:   "Run the recovery guard API",
		Version: fmt.Sprintf("%s (built %s)", Version, BuildTime),
		Flags:   config.Flags(),
		Action:  server.Run,
		Commands: []*cli.Command{
			migrateCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Manage the database schema",
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply all pending migrations",
				Action: withDatabase(database.RunMigrations),
			},
			{
				Name:   "down",
				Usage:  "Roll back the most recent migration",
				Action: withDatabase(database.MigrateDown),
			},
			{
				Name:   "reset",
				Usage:  "Roll back all migrations",
				Action: withDatabase(database.MigrateReset),
			},
			{
				Name:   "version",
				Usage:  "Print the current schema version",
				Action: withDatabase(func(*sql.DB) error { return nil }),
			},
		},
	}
}

// withDatabase connects without migrating, runs fn and prints the
// resulting schema version.
func withDatabase(fn func(*sql.DB) error) cli.ActionFunc {
	return func(_ context.Context, cmd *cli.Command) error {
		db, err := database.Connect(cmd.String("database-dsn"))
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		if err := fn(db.DB); err != nil {
			return err
		}

		version, err := database.Version(db.DB)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.Root().Writer, "schema version %d\n", version)
		return nil
	}
}
