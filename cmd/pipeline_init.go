package main

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/meridian-health/provider-qa/internal/correct"
	"github.com/meridian-health/provider-qa/internal/model"
	"github.com/meridian-health/provider-qa/internal/orchestrator"
	"github.com/meridian-health/provider-qa/internal/resilience"
	"github.com/meridian-health/provider-qa/internal/store"
	"github.com/meridian-health/provider-qa/internal/validate"
	"github.com/meridian-health/provider-qa/pkg/geocode"
	"github.com/meridian-health/provider-qa/pkg/npi"
)

// pipelineEnv bundles the initialized store and orchestrator for a command.
type pipelineEnv struct {
	Store store.Store
	Orch  *orchestrator.Orchestrator
}

func (e *pipelineEnv) Close() {
	if err := e.Store.Close(); err != nil {
		zap.L().Warn("store close failed", zap.Error(err))
	}
}

func initStore(ctx context.Context) (store.Store, error) {
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}
	return st, nil
}

// initPipeline builds the full stage stack from config.
func initPipeline(ctx context.Context) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	regOpts := []npi.Option{
		npi.WithBaseURL(cfg.Registry.BaseURL),
		npi.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Registry.TimeoutSecs) * time.Second}),
		npi.WithRetry(resilience.RetryConfig{MaxAttempts: cfg.Registry.MaxAttempts}),
	}
	if cfg.Registry.RateLimit > 0 {
		regOpts = append(regOpts, npi.WithRateLimit(cfg.Registry.RateLimit))
	}
	registry := npi.NewClient(regOpts...)

	geoOpts := []geocode.Option{
		geocode.WithHTTPClient(&http.Client{Timeout: time.Duration(cfg.Geocode.TimeoutSecs) * time.Second}),
		geocode.WithRetry(resilience.RetryConfig{MaxAttempts: cfg.Geocode.MaxAttempts}),
	}
	if cfg.Geocode.RateLimit > 0 {
		geoOpts = append(geoOpts, geocode.WithRateLimit(cfg.Geocode.RateLimit))
	}
	if cfg.Geocode.GoogleAPIKey != "" {
		geoOpts = append(geoOpts, geocode.WithGoogleAPIKey(cfg.Geocode.GoogleAPIKey))
	}
	geocoder := geocode.NewClient(geoOpts...)

	correctorOpts := []correct.Option{correct.WithThreshold(cfg.Correction.ConfidenceThreshold)}
	if cfg.Correction.VocabularyPath != "" {
		vocab, err := correct.LoadVocabulary(cfg.Correction.VocabularyPath)
		if err != nil {
			st.Close()
			return nil, eris.Wrap(err, "load vocabulary")
		}
		correctorOpts = append(correctorOpts, correct.WithVocabulary(vocab))
	}

	orch := orchestrator.New(st, validate.New(registry, geocoder),
		orchestrator.WithCorrector(orchestrator.RuleCorrector{C: correct.New(correctorOpts...)}),
		orchestrator.WithMeta(model.MetaContext{
			MemberCount:    cfg.QA.DefaultMemberCount,
			RegionPriority: cfg.QA.RegionPriority,
		}),
	)

	return &pipelineEnv{Store: st, Orch: orch}, nil
}
