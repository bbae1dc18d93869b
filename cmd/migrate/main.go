// Package main provides a CLI tool for paper feed database migrations.
//
// Usage:
//
//	migrate [-path DIR] up
//	migrate [-path DIR] down
//	migrate [-path DIR] steps N
//	migrate [-path DIR] status
//	migrate [-path DIR] force VERSION
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/helixir/paper-feed-service/internal/config"
	"github.com/helixir/paper-feed-service/internal/database"
	"github.com/helixir/paper-feed-service/internal/observability"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// command is one parsed CLI action.
type command struct {
	name string
	arg  int
}

func parseCommand(args []string) (command, error) {
	if len(args) == 0 {
		return command{}, fmt.Errorf("no command given; want one of up, down, steps N, status, force VERSION")
	}
	cmd := command{name: args[0]}
	switch cmd.name {
	case "up", "down", "status":
		if len(args) != 1 {
			return command{}, fmt.Errorf("%s takes no arguments", cmd.name)
		}
	case "steps", "force":
		if len(args) != 2 {
			return command{}, fmt.Errorf("%s requires one integer argument", cmd.name)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			return command{}, fmt.Errorf("%s: %q is not an integer", cmd.name, args[1])
		}
		if cmd.name == "steps" && n == 0 {
			return command{}, fmt.Errorf("steps must not be 0")
		}
		if cmd.name == "force" && n < 0 {
			return command{}, fmt.Errorf("force version must not be negative")
		}
		cmd.arg = n
	default:
		return command{}, fmt.Errorf("unknown command %q", cmd.name)
	}
	return cmd, nil
}

func run(args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	migrationsPath := fs.String("path", "", "Override the migrations directory path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	cmd, err := parseCommand(fs.Args())
	if err != nil {
		fs.Usage()
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      "info",
		Format:     "console",
		Output:     "stderr",
		TimeFormat: time.RFC3339,
	}).With().Str("component", "migrate").Logger()

	dir := cfg.Database.MigrationPath
	if *migrationsPath != "" {
		dir = *migrationsPath
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db, dir, logger)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			logger.Error().Err(closeErr).Msg("failed to close migrator")
		}
	}()

	switch cmd.name {
	case "up":
		err = migrator.Up()
	case "down":
		err = migrator.Down()
	case "steps":
		err = migrator.Steps(cmd.arg)
	case "force":
		err = migrator.Force(cmd.arg)
	}
	if err != nil {
		return err
	}

	// Every command ends by printing the resulting status as JSON on stdout.
	status, err := migrator.Status()
	if err != nil {
		return err
	}
	return json.NewEncoder(os.Stdout).Encode(status)
}
