package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"auto_sniper/config"
	"auto_sniper/geo"
	"auto_sniper/httputil"
	"auto_sniper/oracle"
	"auto_sniper/services"
	"auto_sniper/storage"
)

// pipeline holds the search stages shared by the daemon and offline runs.
type pipeline struct {
	clients   *httputil.Clients
	resolver  *geo.Resolver
	processor *services.Processor
	prefilter *services.PreFilter
	analyzer  *services.Analyzer
	closers   []func() error
}

func (p *pipeline) Close() {
	if err := p.resolver.Flush(context.Background()); err != nil {
		log.Warn().Err(err).Msg("failed to flush coordinates cache")
	}
	for i := len(p.closers) - 1; i >= 0; i-- {
		if err := p.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}

// newPipeline wires the geocoder, registry and AI collaborators. The AI
// stages are only enabled when an API key is configured.
func newPipeline(ctx context.Context, cfg *config.Config, sqliteStore *storage.SQLiteStore, withFilter bool) (*pipeline, error) {
	p := &pipeline{clients: httputil.NewClients(cfg.AI.Timeout)}

	cache, err := p.coordsCache(ctx, cfg, sqliteStore)
	if err != nil {
		return nil, err
	}
	geocoder, err := oracle.NewNominatim(cfg.Geo.GeocoderURL, p.clients.API)
	if err != nil {
		return nil, fmt.Errorf("geocoder: %w", err)
	}
	p.resolver = geo.NewResolver(cache, geocoder, cfg.Geo.Country)

	var history oracle.HistoryLookup
	if cfg.History.URL != "" {
		client, err := oracle.NewGovHistoryClient(cfg.History.URL, p.clients.API)
		if err != nil {
			return nil, fmt.Errorf("history client: %w", err)
		}
		history = client
	}
	p.processor = services.NewProcessor(p.resolver, history, cfg.Geo.Delay, cfg.History.Delay)

	var scorerOpts []services.ScorerOption
	if cfg.AI.APIKey != "" {
		chat, err := oracle.NewChatClient(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, oracle.WithHTTPClient(p.clients.API))
		if err != nil {
			return nil, fmt.Errorf("chat client: %w", err)
		}
		ai := oracle.NewAIOracles(chat)
		scorerOpts = append(scorerOpts,
			services.WithLooksMatcher(ai),
			services.WithDescriptionMatcher(ai, cfg.Pipeline.DescriptionScoring),
		)
		if history != nil {
			scorerOpts = append(scorerOpts, services.WithHistory(history, ai))
		}
		if withFilter {
			p.prefilter = services.NewPreFilter(ai, cfg.Pipeline.FilterBatchSize)
		}
	} else {
		log.Warn().Msg("OPENAI_API_KEY not set, AI filter and matchers disabled")
	}

	scorer := services.NewScorer(cfg.Weights, scorerOpts...)
	p.analyzer = services.NewAnalyzer(scorer, cfg.Pipeline.ScoreConcurrency)
	return p, nil
}

func (p *pipeline) coordsCache(ctx context.Context, cfg *config.Config, sqliteStore *storage.SQLiteStore) (geo.Cache, error) {
	switch cfg.Geo.CacheBackend {
	case "redis":
		client, err := storage.NewRedisClient(ctx, cfg.Database.RedisURL)
		if err != nil {
			return nil, err
		}
		cache := storage.NewRedisCoordsCache(client, "")
		p.closers = append(p.closers, cache.Close)
		log.Info().Str("backend", "redis").Msg("coordinates cache")
		return cache, nil
	case "sqlite":
		if sqliteStore == nil {
			return nil, fmt.Errorf("sqlite coordinates cache needs SQLITE_PATH")
		}
		log.Info().Str("backend", "sqlite").Msg("coordinates cache")
		return sqliteStore.CoordsCache(), nil
	case "file", "":
		log.Info().Str("backend", "file").Str("path", cfg.Geo.CachePath).Msg("coordinates cache")
		return geo.NewFileCache(cfg.Geo.CachePath), nil
	default:
		return nil, fmt.Errorf("unknown coordinates cache backend: %s", cfg.Geo.CacheBackend)
	}
}
