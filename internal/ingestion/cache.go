package ingestion

import (
	"context"
	"sync"
	"time"

	"solana-risk-engine/internal/domain"
	"solana-risk-engine/internal/observability"
)

// cacheEntry is one cached value with its expiry.
type cacheEntry[V any] struct {
	value     V
	expiresAt time.Time
}

// ttlCache is a read-through cache with per-key expiry and in-flight
// deduplication: concurrent misses on the same key share one load.
type ttlCache[V any] struct {
	name string
	ttl  time.Duration
	now  func() time.Time

	mu       sync.Mutex
	entries  map[string]cacheEntry[V]
	inflight map[string]chan struct{}
}

func newTTLCache[V any](name string, ttl time.Duration) *ttlCache[V] {
	return &ttlCache[V]{
		name:     name,
		ttl:      ttl,
		now:      time.Now,
		entries:  make(map[string]cacheEntry[V]),
		inflight: make(map[string]chan struct{}),
	}
}

// get returns the cached value for key, loading it on miss. A load error
// is returned to every caller waiting on that key and nothing is cached.
func (c *ttlCache[V]) get(ctx context.Context, key string, load func() (V, error)) (V, error) {
	for {
		c.mu.Lock()
		if entry, ok := c.entries[key]; ok && c.now().Before(entry.expiresAt) {
			c.mu.Unlock()
			observability.RecordCacheLookup(c.name, true)
			return entry.value, nil
		}
		wait, loading := c.inflight[key]
		if !loading {
			done := make(chan struct{})
			c.inflight[key] = done
			c.mu.Unlock()

			observability.RecordCacheLookup(c.name, false)
			value, err := load()

			c.mu.Lock()
			delete(c.inflight, key)
			if err == nil {
				c.entries[key] = cacheEntry[V]{value: value, expiresAt: c.now().Add(c.ttl)}
			}
			close(done)
			c.mu.Unlock()

			return value, err
		}
		c.mu.Unlock()

		select {
		case <-wait:
			// Loader finished; re-check the entry. On loader failure the
			// entry is absent and this caller becomes the next loader.
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}
}

// CachedMetadataSource is a read-through TTL cache over a MetadataSource.
type CachedMetadataSource struct {
	source MetadataSource
	cache  *ttlCache[*domain.TokenMetadata]
}

// NewCachedMetadataSource wraps source with a per-mint TTL cache.
func NewCachedMetadataSource(source MetadataSource, ttl time.Duration) *CachedMetadataSource {
	return &CachedMetadataSource{
		source: source,
		cache:  newTTLCache[*domain.TokenMetadata]("metadata", ttl),
	}
}

// Fetch returns cached metadata for the mint, loading it on miss.
func (s *CachedMetadataSource) Fetch(ctx context.Context, mint string) (*domain.TokenMetadata, error) {
	return s.cache.get(ctx, mint, func() (*domain.TokenMetadata, error) {
		return s.source.Fetch(ctx, mint)
	})
}

var _ MetadataSource = (*CachedMetadataSource)(nil)

// CachedPriceSource is a read-through TTL cache over a PriceSource.
// The cache key is the mint alone: a fresh window is fetched at most once
// per TTL and trimmed to the requested range locally.
type CachedPriceSource struct {
	source PriceSource
	cache  *ttlCache[[]domain.PriceSample]
}

// NewCachedPriceSource wraps source with a per-mint TTL cache.
func NewCachedPriceSource(source PriceSource, ttl time.Duration) *CachedPriceSource {
	return &CachedPriceSource{
		source: source,
		cache:  newTTLCache[[]domain.PriceSample]("price", ttl),
	}
}

// Fetch returns cached samples for the mint trimmed to [from, to].
func (s *CachedPriceSource) Fetch(ctx context.Context, mint string, from, to int64) ([]domain.PriceSample, error) {
	samples, err := s.cache.get(ctx, mint, func() ([]domain.PriceSample, error) {
		return s.source.Fetch(ctx, mint, 0, int64(^uint64(0)>>1))
	})
	if err != nil {
		return nil, err
	}

	var out []domain.PriceSample
	for _, sample := range samples {
		if sample.TimestampMs >= from && sample.TimestampMs <= to {
			out = append(out, sample)
		}
	}
	return out, nil
}

var _ PriceSource = (*CachedPriceSource)(nil)
