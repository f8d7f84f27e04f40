package main

import (
	"context"
	"io"

	"github.com/cord19q/cord19q/internal/config"
	"github.com/cord19q/cord19q/internal/normalize"
	"github.com/cord19q/cord19q/internal/pipeline"
	"github.com/cord19q/cord19q/internal/storage"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func runBuild(ctx context.Context, root string, stdout, stderr io.Writer) error {
	// Load .env file if present (ignore error if missing)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return withExitCode(ExitConfigError, "loading config: %v", err)
	}
	level, err := cfg.Level()
	if err != nil {
		return withExitCode(ExitConfigError, "loading config: %v", err)
	}

	logger := newLogger(stderr, level)
	defer func() { _ = logger.Sync() }()

	outputHuman(stdout, "Building %s from %s", config.DBFile, root)

	p := pipeline.New(pipeline.Options{
		CorpusRoot:    root,
		DBPath:        cfg.DBPath(),
		Tables:        storage.DefaultTables(),
		Tagger:        normalize.NewTagger(cfg.Tag.Label, cfg.Tag.Keywords),
		Workers:       cfg.Workers,
		ProgressEvery: cfg.ProgressEvery,
		Progress: func(n int) {
			outputHuman(stdout, "Inserted %d articles", n)
		},
		Logger: logger,
	})

	stats, err := p.Run(ctx)
	if err != nil {
		return withExitCode(ExitError, "building %s: %v", cfg.DBPath(), err)
	}

	logger.Info("build complete",
		zap.String("run_id", stats.RunID),
		zap.String("db", cfg.DBPath()),
		zap.Int("articles", stats.ArticlesWritten),
		zap.Int("sections", stats.SectionsWritten),
		zap.Int("rejected", stats.Rejected),
		zap.Int("side_car_failures", stats.SideCarFailures),
		zap.Int("untitled", stats.UntitledArticles),
		zap.Int("schema_errors", stats.SchemaErrors))

	outputHuman(stdout, "Total rows inserted: %d", stats.Articles)
	return nil
}
