// Package respcache caches serialized query responses in the store's key-value space.
// Entries are namespaced by a generation counter; bumping it invalidates every entry at once.
package respcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/coloradocollege/digitalcc/internal/db"
)

// store is the consumer interface for the response cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
}

// Cache is a generation-scoped response cache. A nil *Cache disables caching.
type Cache struct {
	store      store
	prefix     string
	ttl        time.Duration
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a cache under keyPrefix+"cache:". ttl 0 keeps entries until the next Invalidate.
// cacheTotal is a counter vec with label "result" ("hit"/"miss"/"error"), passed explicitly.
func New(
	s store,
	keyPrefix string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{
		store:      s,
		prefix:     keyPrefix + "cache:",
		ttl:        ttl,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Get returns the cached response for op and params, or calls load and caches its result.
// Cache failures are logged and never returned; load errors are returned and not cached.
func Get[T any](ctx context.Context, c *Cache, op string, params []string, load func(context.Context) (T, error)) (T, error) {
	if c == nil {
		return load(ctx)
	}

	key, ok := c.key(ctx, op, params)
	if ok {
		var cached T
		if c.read(ctx, key, &cached) {
			c.inc("hit")
			return cached, nil
		}
	}
	c.inc("miss")

	v, err := load(ctx)
	if err != nil {
		return v, err
	}
	if ok {
		c.write(ctx, key, v)
	}
	return v, nil
}

// Invalidate drops every entry by moving to a new generation.
func (c *Cache) Invalidate(ctx context.Context) error {
	if c == nil {
		return nil
	}
	gen, err := c.store.IncrBy(ctx, c.generationKey(), 1)
	if err != nil {
		return fmt.Errorf("bump cache generation: %w", err)
	}
	c.logger.Info("Response cache invalidated", zap.Int64("generation", gen))
	return nil
}

func (c *Cache) generationKey() string {
	return c.prefix + "generation"
}

func (c *Cache) generation(ctx context.Context) (int64, error) {
	data, err := c.store.Get(ctx, c.generationKey())
	if errors.Is(err, db.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	gen, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse generation %q: %w", data, err)
	}
	return gen, nil
}

func (c *Cache) key(ctx context.Context, op string, params []string) (string, bool) {
	gen, err := c.generation(ctx)
	if err != nil {
		c.inc("error")
		c.logger.Warn("Failed to read cache generation", zap.Error(err))
		return "", false
	}
	h := sha256.Sum256([]byte(strings.Join(params, "\x00")))
	return c.prefix + strconv.FormatInt(gen, 10) + ":" + op + ":" + hex.EncodeToString(h[:12]), true
}

func (c *Cache) read(ctx context.Context, key string, dst any) bool {
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.inc("error")
			c.logger.Warn("Failed to get cached response", zap.String("key", key), zap.Error(err))
		}
		return false
	}
	if err := json.Unmarshal(data, dst); err != nil {
		c.logger.Warn("Failed to decode cached response", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (c *Cache) write(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		c.logger.Warn("Failed to encode response for cache", zap.String("key", key), zap.Error(err))
		return
	}
	if c.ttl > 0 {
		err = c.store.SetWithTTL(ctx, key, data, c.ttl)
	} else {
		err = c.store.Set(ctx, key, data)
	}
	if err != nil {
		c.inc("error")
		c.logger.Warn("Failed to cache response", zap.String("key", key), zap.Error(err))
	}
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
