// Package bootstrap assembles the sourcing pipeline from configuration. The
// worker runs it for queued jobs; the gateway runs it for synchronous
// sourcing requests.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"talent-sourcing-service/internal/config"
	"talent-sourcing-service/internal/enrich"
	"talent-sourcing-service/internal/entity"
	"talent-sourcing-service/internal/llm"
	"talent-sourcing-service/internal/llm/gemini"
	"talent-sourcing-service/internal/llm/openai"
	"talent-sourcing-service/internal/outreach"
	"talent-sourcing-service/internal/pipeline"
	"talent-sourcing-service/internal/repository/postgresql"
	"talent-sourcing-service/internal/repository/sqlite"
	"talent-sourcing-service/internal/scoring"
	"talent-sourcing-service/internal/search"
	"talent-sourcing-service/internal/search/rapidapi"
	"talent-sourcing-service/internal/search/websearch"
	"talent-sourcing-service/internal/util"
)

// Pruner drops enrichment cache rows older than a cutoff.
type Pruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type Stack struct {
	Pipeline *pipeline.Pipeline
	// Pruner is nil for the in-memory cache and when enrichment is off.
	Pruner Pruner

	closers []func()
}

// Close releases the enrichment cache.
func (s *Stack) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// BuildPipeline wires search, enrichment, scoring and outreach providers
// from cfg. Providers without credentials are logged and left out.
func BuildPipeline(ctx context.Context, cfg config.Config, observer pipeline.StageObserver, logger *slog.Logger) (*Stack, error) {
	if logger == nil {
		logger = slog.Default()
	}
	log := logger.With("component", "bootstrap")
	stack := &Stack{}

	// LLM
	var completer llm.Completer
	var geminiClient *gemini.Client
	if cfg.LLM.GeminiKey != "" {
		gc, err := gemini.New(ctx, gemini.Config{APIKey: cfg.LLM.GeminiKey, Model: cfg.LLM.GeminiModel})
		if err != nil {
			return nil, fmt.Errorf("gemini: %w", err)
		}
		geminiClient = gc
	}
	switch cfg.LLM.Provider {
	case "openai":
		oc, err := openai.New(openai.Config{
			APIKey:  cfg.LLM.OpenAIKey,
			Model:   cfg.LLM.OpenAIModel,
			BaseURL: cfg.LLM.OpenAIBaseURL,
			Timeout: cfg.Stage.RequestTimeout,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("openai: %w", err)
		}
		completer = oc
	case "gemini":
		if geminiClient == nil {
			return nil, errors.New("LLM_PROVIDER=gemini needs GEMINI_API_KEY")
		}
		completer = geminiClient
	default:
		log.Warn("bootstrap.llm.disabled", "detail", "scoring falls back to REJECT, outreach uses the template")
	}

	// Search
	providers := map[entity.Strategy]search.Provider{}
	if cfg.RapidAPI.Key != "" {
		rc, err := rapidapi.New(rapidapi.Config{
			APIKey:  cfg.RapidAPI.Key,
			Host:    cfg.RapidAPI.Host,
			BaseURL: cfg.RapidAPI.URL,
			Timeout: cfg.Stage.RequestTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("rapidapi: %w", err)
		}
		providers[entity.StrategyRapidAPI] = rc
	} else {
		log.Warn("bootstrap.search.unavailable", "strategy", entity.StrategyRapidAPI, "detail", "RAPIDAPI_KEY not set")
	}
	if geminiClient != nil {
		providers[entity.StrategyGoogleCrawler] = websearch.New(geminiClient, logger)
	} else {
		log.Warn("bootstrap.search.unavailable", "strategy", entity.StrategyGoogleCrawler, "detail", "GEMINI_API_KEY not set")
	}
	router := search.NewRouter(search.NewExtractor(completer, logger), providers, logger)

	// Enrichment
	var enricher pipeline.Enricher
	if !cfg.Enrich.Disabled {
		cache, pruner, closeCache, err := openEnrichmentCache(ctx, cfg)
		if err != nil {
			return nil, err
		}
		stack.closers = append(stack.closers, closeCache)
		stack.Pruner = pruner
		source, err := enrich.NewGitHubSource(enrich.GitHubConfig{
			Token:   cfg.Enrich.GitHubToken,
			Timeout: cfg.Stage.RequestTimeout,
		})
		if err != nil {
			stack.Close()
			return nil, err
		}
		enricher = enrich.NewCachedEnricher(source, cache,
			enrich.WithFreshness(cfg.Enrich.Freshness),
			enrich.WithLogger(logger),
		)
	}

	// Scoring and outreach
	var scorer pipeline.ScoreProvider = unavailableScorer{}
	var writer pipeline.OutreachWriter = outreach.TemplateWriter{}
	if completer != nil {
		scorer = scoring.NewLLMProvider(completer)
		writer = outreach.NewLLMWriter(completer)
	}

	stack.Pipeline = pipeline.New(pipeline.Config{
		Searcher: router,
		Enricher: enricher,
		Scorer:   scorer,
		Outreach: writer,
		Options: pipeline.Options{
			Workers:        cfg.Stage.Workers,
			MaxRetries:     cfg.Stage.MaxRetries,
			RequestTimeout: cfg.Stage.RequestTimeout,
			RateLimitRPS:   cfg.Stage.RateLimitRPS,
		},
		Observer: observer,
		Logger:   logger,
	})
	return stack, nil
}

// openEnrichmentCache returns the configured cache, its pruner (nil for the
// in-memory cache) and a close func.
func openEnrichmentCache(ctx context.Context, cfg config.Config) (enrich.Cache, Pruner, func(), error) {
	switch cfg.Enrich.CacheDriver {
	case "postgres":
		pool, err := postgresql.NewPool(ctx, cfg.Enrich.PostgresDSN)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("pg %s: %w", util.RedactDSN(cfg.Enrich.PostgresDSN), err)
		}
		repo := postgresql.NewProfileRepository(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, nil, fmt.Errorf("pg schema: %w", err)
		}
		return repo, repo, pool.Close, nil
	case "sqlite":
		db, err := sqlite.Open(cfg.Enrich.SQLitePath)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("sqlite %s: %w", cfg.Enrich.SQLitePath, err)
		}
		repo := sqlite.NewProfileRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, nil, fmt.Errorf("sqlite schema: %w", err)
		}
		return repo, repo, func() { _ = db.Close() }, nil
	default:
		return enrich.NewMemoryCache(), nil, func() {}, nil
	}
}

// unavailableScorer is used when no LLM is configured. Every candidate
// receives the fallback evaluation.
type unavailableScorer struct{}

func (unavailableScorer) Score(context.Context, entity.CandidateProfile, string) (scoring.Assessment, error) {
	return scoring.Assessment{}, errors.New("no LLM provider configured")
}
