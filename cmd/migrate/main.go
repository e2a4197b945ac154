// Command migrate applies or inspects the database schema.
//
// Usage:
//
//	migrate [-v] up|down|reset|status|version
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"

	"github.com/spendlog/spendlog/internal/config"
	"github.com/spendlog/spendlog/internal/repository"
)

type migrateConfig struct {
	DatabaseURL string `env:"DATABASE_URL,required"`
}

var errUsage = errors.New("usage: migrate [-v] up|down|reset|status|version")

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	command, verbose, err := parseArgs(args)
	if err != nil {
		return err
	}

	_ = godotenv.Load()
	var cfg migrateConfig
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	// status reports through the goose logger, so it always needs info level.
	level := slog.LevelWarn
	if verbose || command == "status" {
		level = slog.LevelInfo
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	repo, err := repository.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect: %s", config.SanitizeError(err, cfg.DatabaseURL))
	}
	defer repo.Close()

	m, err := repo.NewMigrator(logger)
	if err != nil {
		return err
	}
	defer m.Close()

	switch command {
	case "up":
		err = m.Up(ctx)
	case "down":
		err = m.Down(ctx)
	case "reset":
		err = m.Reset(ctx)
	case "status":
		err = m.Status(ctx)
	}
	if err != nil {
		return err
	}

	version, err := m.Version(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "schema version: %d\n", version)
	return nil
}

// parseArgs validates the command line before any connection is made.
func parseArgs(args []string) (command string, verbose bool, err error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.BoolVar(&verbose, "v", false, "log each migration step")
	if err := fs.Parse(args); err != nil {
		return "", false, fmt.Errorf("%w: %v", errUsage, err)
	}

	if fs.NArg() != 1 {
		return "", false, errUsage
	}
	switch command = fs.Arg(0); command {
	case "up", "down", "reset", "status", "version":
		return command, verbose, nil
	default:
		return "", false, fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
}
