package search

import (
	"context"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/scoutline/scoutline/internal/core"
	"github.com/scoutline/scoutline/internal/metrics"
)

// DefaultCacheTTL is how long a search response stays reusable.
const DefaultCacheTTL = 10 * time.Minute

// Cache stores search responses by key. A miss is (nil, nil).
type Cache interface {
	GetCachedSearch(ctx context.Context, key string) (*core.SearchResponse, error)
	SetCachedSearch(ctx context.Context, key string, resp *core.SearchResponse, ttl time.Duration) error
}

// CachedSearcher serves repeated searches from Cache and only stores successful responses.
type CachedSearcher struct {
	Next   Searcher
	Cache  Cache
	TTL    time.Duration
	Logger *logging.Logger
}

// Configured delegates to the wrapped searcher.
func (c *CachedSearcher) Configured() bool {
	return c != nil && Configured(c.Next)
}

// Search returns a cached response when present and otherwise queries Next.
func (c *CachedSearcher) Search(ctx context.Context, query string, maxResults int) (*core.SearchResponse, error) {
	if c.Cache == nil {
		return c.Next.Search(ctx, query, maxResults)
	}

	key := CacheKey(query, maxResults)
	cached, err := c.Cache.GetCachedSearch(ctx, key)
	switch {
	case err != nil:
		metrics.RecordSearchCache("error")
		c.warn("search cache read failed", key, err)
	case cached != nil:
		metrics.RecordSearchCache("hit")
		return cloneResponse(cached), nil
	default:
		metrics.RecordSearchCache("miss")
	}

	resp, err := c.Next.Search(ctx, query, maxResults)
	if err != nil {
		return nil, err
	}

	if err := c.Cache.SetCachedSearch(ctx, key, resp, c.ttl()); err != nil {
		c.warn("search cache write failed", key, err)
	}
	return resp, nil
}

func (c *CachedSearcher) ttl() time.Duration {
	if c.TTL > 0 {
		return c.TTL
	}
	return DefaultCacheTTL
}

func (c *CachedSearcher) warn(msg, key string, err error) {
	if c.Logger == nil {
		return
	}
	c.Logger.Warn(msg, zap.String("key", key), zap.Error(err))
}

// MemoryCache keeps search responses in process memory.
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates an in-memory cache; expired entries are purged every cleanupInterval.
func NewMemoryCache(defaultTTL, cleanupInterval time.Duration) *MemoryCache {
	if defaultTTL <= 0 {
		defaultTTL = DefaultCacheTTL
	}
	if cleanupInterval <= 0 {
		cleanupInterval = defaultTTL
	}
	return &MemoryCache{items: gocache.New(defaultTTL, cleanupInterval)}
}

// GetCachedSearch implements Cache.
func (m *MemoryCache) GetCachedSearch(_ context.Context, key string) (*core.SearchResponse, error) {
	value, ok := m.items.Get(key)
	if !ok {
		return nil, nil
	}
	resp, ok := value.(*core.SearchResponse)
	if !ok {
		m.items.Delete(key)
		return nil, nil
	}
	return resp, nil
}

// SetCachedSearch implements Cache.
func (m *MemoryCache) SetCachedSearch(_ context.Context, key string, resp *core.SearchResponse, ttl time.Duration) error {
	if resp == nil {
		return nil
	}
	m.items.Set(key, cloneResponse(resp), ttl)
	return nil
}

// Len reports how many unexpired entries are held.
func (m *MemoryCache) Len() int {
	return m.items.ItemCount()
}

func cloneResponse(resp *core.SearchResponse) *core.SearchResponse {
	if resp == nil {
		return nil
	}
	out := &core.SearchResponse{Answer: resp.Answer}
	out.Results = append([]core.SearchResult(nil), resp.Results...)
	return out
}
