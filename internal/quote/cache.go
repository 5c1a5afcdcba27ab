package quote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/portfolio-tracker/internal/models"
	"github.com/portfolio-tracker/internal/storage"
	"github.com/redis/go-redis/v9"
)

// SeriesCache stores daily price series per ticker with a fixed TTL.
type SeriesCache interface {
	// Get returns the cached series and whether a live entry was found.
	Get(ctx context.Context, ticker string) ([]models.PricePoint, bool, error)
	// Set stores a series for the ticker, replacing any previous entry.
	Set(ctx context.Context, ticker string, series []models.PricePoint) error
}

// seriesKey normalizes a ticker into a cache key.
func seriesKey(ticker string) string {
	return "series:" + strings.ToLower(ticker)
}

// MemorySeriesCache is a process-local SeriesCache. Entries expire after
// the TTL but are only dropped on overwrite; growth is bounded by the
// number of distinct tickers requested over the process lifetime.
type MemorySeriesCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

type memoryEntry struct {
	series    []models.PricePoint
	fetchedAt time.Time
}

// NewMemorySeriesCache creates an in-memory cache. The clock is injected
// so tests can advance time; pass time.Now in production.
func NewMemorySeriesCache(ttl time.Duration, now func() time.Time) *MemorySeriesCache {
	if now == nil {
		now = time.Now
	}
	return &MemorySeriesCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     now,
	}
}

// Get implements SeriesCache.
func (c *MemorySeriesCache) Get(ctx context.Context, ticker string) ([]models.PricePoint, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[seriesKey(ticker)]
	if !ok {
		return nil, false, nil
	}
	if c.now().Sub(entry.fetchedAt) >= c.ttl {
		return nil, false, nil
	}
	return entry.series, true, nil
}

// Set implements SeriesCache.
func (c *MemorySeriesCache) Set(ctx context.Context, ticker string, series []models.PricePoint) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[seriesKey(ticker)] = memoryEntry{series: series, fetchedAt: c.now()}
	return nil
}

// RedisSeriesCache is a SeriesCache backed by Redis, sharing cached series
// across processes. Expiry is delegated to Redis key TTLs.
type RedisSeriesCache struct {
	redis *storage.RedisCache
	ttl   time.Duration
}

// NewRedisSeriesCache creates a Redis-backed series cache.
func NewRedisSeriesCache(redisCache *storage.RedisCache, ttl time.Duration) *RedisSeriesCache {
	return &RedisSeriesCache{redis: redisCache, ttl: ttl}
}

// Get implements SeriesCache.
func (c *RedisSeriesCache) Get(ctx context.Context, ticker string) ([]models.PricePoint, bool, error) {
	data, err := c.redis.Get(ctx, seriesKey(ticker))
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get series from cache: %w", err)
	}

	var series []models.PricePoint
	if err := json.Unmarshal([]byte(data), &series); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached series: %w", err)
	}
	return series, true, nil
}

// Set implements SeriesCache.
func (c *RedisSeriesCache) Set(ctx context.Context, ticker string, series []models.PricePoint) error {
	data, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("failed to marshal series: %w", err)
	}
	return c.redis.Set(ctx, seriesKey(ticker), data, c.ttl)
}
