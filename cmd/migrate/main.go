// Command migrate runs schema operations for the backend.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"conduit/internal/config"
	"conduit/internal/database"
	"conduit/internal/observability"
)

func main() {
	if err := run(); err != nil {
		observability.Logger.Error("migrate failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <auto|status>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	observability.SetLogger(observability.NewLogger(os.Stdout, cfg.Env))

	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer database.Close(db)

	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "auto":
		if err := database.Migrate(db); err != nil {
			return err
		}
		observability.Logger.Info("automigrations applied")
	case "status":
		status, err := database.SchemaStatus(db)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		for _, s := range status {
			fmt.Printf("%-14s %v\n", s.Table, s.Exists)
		}
	default:
		return usage()
	}
	return nil
}
