package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"examflow/internal/app"
	"examflow/internal/config"
	"examflow/internal/exam"
	"examflow/internal/logging"
	"examflow/internal/user"
)

// Seed loads user and exam fixtures into the configured stores.
func main() {
	path := flag.String("file", "cmd/seed/testdata/fixtures.yaml", "YAML fixtures file")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fx, err := loadFixtures(*path)
	if err != nil {
		logger.Fatal().Err(err).Msg("load fixtures")
	}

	backends, err := app.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("open backends")
	}
	defer backends.Close()

	sum, err := seed(ctx, fx, user.NewService(backends.Users), exam.NewRepository(backends.Exams, backends.Feed, logger), logger)
	if err != nil {
		logger.Error().Err(err).Msg("seed failed")
		backends.Close()
		os.Exit(1)
	}
	logger.Info().
		Int("users_created", sum.UsersCreated).
		Int("users_skipped", sum.UsersSkipped).
		Int("exams_created", sum.ExamsCreated).
		Int("exams_skipped", sum.ExamsSkipped).
		Msg("seed complete")
}
