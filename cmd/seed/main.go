// Command seed fills the database with demo users, articles, follows,
// favorites and comments.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"conduit/internal/config"
	"conduit/internal/database"
	"conduit/internal/observability"
	"conduit/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "Number of users to create")
	numArticles := flag.Int("articles", 100, "Number of articles to create")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	randSeed := flag.Int64("seed", 0, "Random seed; 0 picks one")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("failed to load configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	observability.SetLogger(observability.NewLogger(os.Stdout, cfg.Env))
	logger := observability.Logger

	if cfg.IsProduction() {
		logger.Error("refusing to seed a production database")
		os.Exit(1)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		logger.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer database.Close(db)

	ctx := context.Background()
	s := seed.NewSeeder(db, *randSeed)

	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			logger.Error("cleanup failed", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	if _, err := s.Run(ctx, seed.Options{Users: *numUsers, Articles: *numArticles}); err != nil {
		logger.Error("seeding failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	logger.Info("seeded users share one password", slog.String("password", seed.DefaultPassword))
}
