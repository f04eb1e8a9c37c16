package cmd

import (
	"context"
	"fmt"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/scoutline/scoutline/internal/ailink"
	"github.com/scoutline/scoutline/internal/config"
	"github.com/scoutline/scoutline/internal/core/engine"
	"github.com/scoutline/scoutline/internal/core/search"
	"github.com/scoutline/scoutline/internal/core/store"
)

// pipeline bundles the collaborators a chat turn needs.
type pipeline struct {
	LLM      *ailink.Service
	Searcher search.Searcher
	Store    *store.Store
	Logger   *logging.Logger
}

// buildPipeline wires the model service, the search provider and its cache from cfg. The
// caller owns the returned pipeline and must Close it.
func buildPipeline(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*pipeline, error) {
	llm, err := ailink.NewService(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("init model service: %w", err)
	}

	p := &pipeline{LLM: llm, Logger: logger}

	provider := &search.TavilyClient{
		BaseURL: cfg.Search.BaseURL,
		APIKey:  cfg.Search.APIKey,
		Timeout: cfg.Search.Timeout,
	}

	cache, err := p.openCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if cache == nil {
		p.Searcher = provider
		return p, nil
	}

	p.Searcher = &search.CachedSearcher{
		Next:   provider,
		Cache:  cache,
		TTL:    cfg.Cache.TTL,
		Logger: logger,
	}
	return p, nil
}

func (p *pipeline) openCache(ctx context.Context, cfg *config.Config) (search.Cache, error) {
	switch cfg.Cache.Backend {
	case "none":
		return nil, nil
	case "libsql":
		db, err := openStoreWith(ctx, cfg.Store)
		if err != nil {
			return nil, fmt.Errorf("open search cache store: %w", err)
		}
		p.Store = db
		if logger := p.Logger; logger != nil {
			logger.Debug("Search cache backed by store", zap.String("driver", db.Driver()))
		}
		return db, nil
	default:
		return search.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.CleanupInterval), nil
	}
}

// Orchestrator returns a turn runner over the pipeline's collaborators.
func (p *pipeline) Orchestrator() *engine.Orchestrator {
	o := &engine.Orchestrator{Searcher: p.Searcher, Logger: p.Logger}
	// A nil *ailink.Service stored in the interface would not compare equal to nil.
	if p.LLM != nil {
		o.LLM = p.LLM
	}
	return o
}

func (p *pipeline) searchConfigured() bool {
	return search.Configured(p.Searcher)
}

// Close releases the store when the libsql cache is in use.
func (p *pipeline) Close() error {
	if p == nil || p.Store == nil {
		return nil
	}
	return p.Store.Close()
}

func openStore(ctx context.Context) (*store.Store, error) {
	cfg, err := loadedConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return openStoreWith(ctx, cfg.Store)
}

func openStoreWith(ctx context.Context, cfg config.StoreConfig) (*store.Store, error) {
	db, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	return db, nil
}
