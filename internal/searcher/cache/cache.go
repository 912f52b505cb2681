package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/search-relevance-harness/pkg/resilience"
	"golang.org/x/sync/singleflight"
)

const keyPrefix = "ranking:"

// Store is the subset of the redis client the cache needs.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	FlushByPattern(ctx context.Context, pattern string) (int64, error)
}

// Key identifies one ranking: the index it was computed on plus the query and
// the search configuration.
type Key struct {
	Fingerprint string
	Normalizer  string
	Mode        string
	Model       string
	Slop        int
	Query       string
}

// QueryCache stores ranked results in redis. Failures are logged and treated
// as misses; after repeated failures the breaker opens and redis is skipped
// until it recovers.
type QueryCache struct {
	client  Store
	breaker *resilience.CircuitBreaker
	ttl     time.Duration
	group   singleflight.Group
	logger  *slog.Logger
	metrics *metrics.Metrics
	hits    atomic.Int64
	misses  atomic.Int64
}

var _ Store = (*pkgredis.Client)(nil)

func New(client Store, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	return &QueryCache{
		client:  client,
		breaker: resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{}),
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "ranking-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, k Key) (*executor.SearchResult, bool) {
	key := buildKey(k)
	var data string
	found := false
	err := c.breaker.Execute(func() error {
		v, err := c.client.Get(ctx, key)
		if pkgredis.IsNilError(err) {
			return nil
		}
		if err != nil {
			return err
		}
		data, found = v, true
		return nil
	})
	if err != nil {
		if !errors.Is(err, resilience.ErrCircuitOpen) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return nil, false
	}
	if !found {
		c.miss()
		return nil, false
	}
	var result executor.SearchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return nil, false
	}
	c.hit()
	c.logger.Debug("cache hit", "query", k.Query, "key", key)
	return &result, true
}

func (c *QueryCache) Set(ctx context.Context, k Key, result *executor.SearchResult) {
	key := buildKey(k)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.client.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached ranking for k, or runs computeFn once per
// key across concurrent callers and caches its result. The bool reports a
// cache hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	k Key,
	computeFn func() (*executor.SearchResult, error),
) (*executor.SearchResult, bool, error) {
	if result, ok := c.Get(ctx, k); ok {
		return result, true, nil
	}
	key := buildKey(k)
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.Set(ctx, k, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*executor.SearchResult), false, nil
}

// Invalidate deletes every cached ranking.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) hit() {
	c.hits.Add(1)
	if c.metrics != nil {
		c.metrics.CacheHitsTotal.Inc()
	}
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
}

func buildKey(k Key) string {
	raw := strings.Join([]string{
		k.Fingerprint,
		k.Normalizer,
		k.Mode,
		k.Model,
		fmt.Sprintf("slop=%d", k.Slop),
		k.Query,
	}, "|")
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
