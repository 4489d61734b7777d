// Package enrich augments candidate stubs with secondary-source data and
// caches that data per profile identity.
package enrich

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"talent-sourcing-service/internal/entity"
)

// DefaultFreshness is how long a cached lookup is reused.
const DefaultFreshness = 7 * 24 * time.Hour

// Source looks an identity up in a secondary source.
type Source interface {
	Lookup(ctx context.Context, candidate entity.CandidateProfile) (entity.AuxiliaryData, error)
}

// Cache stores lookups by identity. Implementations: MemoryCache,
// postgresql.ProfileRepository, sqlite.ProfileRepository.
type Cache interface {
	Get(ctx context.Context, identity string) (entity.AuxiliaryData, bool, error)
	Put(ctx context.Context, identity string, data entity.AuxiliaryData) error
}

type CachedEnricher struct {
	source    Source
	cache     Cache
	freshness time.Duration
	now       func() time.Time
	log       *slog.Logger
}

type Option func(*CachedEnricher)

func WithFreshness(d time.Duration) Option {
	return func(e *CachedEnricher) {
		if d > 0 {
			e.freshness = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *CachedEnricher) { e.now = now }
}

func WithLogger(l *slog.Logger) Option {
	return func(e *CachedEnricher) {
		if l != nil {
			e.log = l
		}
	}
}

func NewCachedEnricher(source Source, cache Cache, opts ...Option) *CachedEnricher {
	e := &CachedEnricher{
		source:    source,
		cache:     cache,
		freshness: DefaultFreshness,
		now:       time.Now,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	e.log = e.log.With("component", "enrich")
	return e
}

// Enrich returns cached data younger than the freshness window, otherwise
// asks the source and refreshes the cache. Cache errors never fail the call.
func (e *CachedEnricher) Enrich(ctx context.Context, candidate entity.CandidateProfile) (entity.AuxiliaryData, error) {
	id := candidate.Identity()

	if cached, ok, err := e.cache.Get(ctx, id); err != nil {
		e.log.Warn("enrich.cache.get_error", "identity", id, "error", err)
	} else if ok && e.now().Sub(cached.FetchedAt) < e.freshness {
		return cached, nil
	}

	data, err := e.source.Lookup(ctx, candidate)
	if err != nil {
		return entity.AuxiliaryData{}, err
	}
	data.FetchedAt = e.now().UTC()

	if err := e.cache.Put(ctx, id, data); err != nil {
		e.log.Warn("enrich.cache.put_error", "identity", id, "error", err)
	}
	return data, nil
}

type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entity.AuxiliaryData
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: map[string]entity.AuxiliaryData{}}
}

func (c *MemoryCache) Get(_ context.Context, identity string) (entity.AuxiliaryData, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	d, ok := c.entries[identity]
	return d, ok, nil
}

func (c *MemoryCache) Put(_ context.Context, identity string, data entity.AuxiliaryData) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[identity] = data
	return nil
}
