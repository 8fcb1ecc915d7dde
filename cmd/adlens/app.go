package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/adlens/adlens/internal/aggregate"
	"github.com/adlens/adlens/internal/cachehealth"
	"github.com/adlens/adlens/internal/config"
	"github.com/adlens/adlens/internal/ingest"
	"github.com/adlens/adlens/internal/normalize"
	"github.com/adlens/adlens/internal/promx"
	"github.com/adlens/adlens/internal/refresh"
	"github.com/adlens/adlens/internal/report"
	"github.com/adlens/adlens/internal/store"
)

// app holds the wired service graph shared by all subcommands.
type app struct {
	cfg     config.Config
	log     *slog.Logger
	svc     *report.Service
	metrics *promx.Metrics
	close   func() error
}

func buildApp(cfgFile string) (*app, error) {
	cfg := config.FromEnv()
	if cfgFile != "" {
		if err := cfg.LoadFile(cfgFile); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	var st store.Store
	closer := func() error { return nil }
	if cfg.StorePath != "" {
		sq, err := store.NewSQLiteStore(cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("opening store %s: %w", cfg.StorePath, err)
		}
		st = sq
		closer = sq.Close
	} else {
		st = store.NewMemoryStore()
	}

	metrics := promx.New()
	fetcher := ingest.NewHTTPFetcher(
		ingest.NewHTTPClient(cfg.HTTPTimeout),
		cfg.MetaAPIURL, cfg.GoogleAPIURL, cfg.HTTPTimeout)
	normalizer := normalize.New(normalize.DefaultRules(cfg.EmailEventTags, cfg.PhoneEventTags), logger)
	aggregator := aggregate.New(cfg.OfflineConversionRate)
	orch := refresh.NewOrchestrator(
		fetcher, st, normalizer, aggregator,
		refresh.NewFlightGroup(), cfg.Workers, metrics, logger)

	classifier := cachehealth.NewClassifier(cfg.StaleThreshold, nil)
	evaluator := cachehealth.NewEvaluator(classifier, cfg.CriticalRatio)
	svc := report.NewService(st, classifier, evaluator, orch, metrics, logger)

	return &app{cfg: cfg, log: logger, svc: svc, metrics: metrics, close: closer}, nil
}
