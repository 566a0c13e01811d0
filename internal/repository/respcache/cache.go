package respcache

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recommender/internal/db"
	"github.com/kailas-cloud/recommender/internal/domain"
	"github.com/kailas-cloud/recommender/internal/metrics"
)

// store is the consumer interface for the response cache (ISP).
type store interface {
	Ping(ctx context.Context) error
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Options tune the cache behaviour around the backing store.
type Options struct {
	OpTimeout       time.Duration // per-operation deadline, 0 disables it
	BreakerFailures uint32        // consecutive failures that open the breaker, 0 disables it
	BreakerOpen     time.Duration // how long the breaker stays open before probing
}

// Cache is a key/value response cache that never fails its caller:
// store errors degrade to Unavailable lookups and dropped writes.
type Cache struct {
	store   store
	opts    Options
	breaker *gobreaker.CircuitBreaker
	logger  *zap.Logger
}

// New creates a Cache over s. A nil store yields a permanently unavailable cache,
// used when the backend could not be reached at startup or caching is turned off.
func New(s store, opts Options, logger *zap.Logger) *Cache {
	c := &Cache{store: s, opts: opts, logger: logger}
	if s != nil && opts.BreakerFailures > 0 {
		c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "response-cache",
			MaxRequests: 1,
			Timeout:     opts.BreakerOpen,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= opts.BreakerFailures
			},
			IsSuccessful: func(err error) bool {
				return err == nil || errors.Is(err, db.ErrKeyNotFound)
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Cache circuit breaker state changed",
					zap.String("breaker", name),
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
	}
	return c
}

// Disabled returns a cache without a backing store.
func Disabled(logger *zap.Logger) *Cache {
	return New(nil, Options{}, logger)
}

// Get looks up key. Errors are never returned: a failing store reports Unavailable.
func (c *Cache) Get(ctx context.Context, key string) domain.CacheLookup {
	if c.store == nil {
		metrics.CacheLookupsTotal.WithLabelValues(domain.CacheUnavailable.String()).Inc()
		return domain.CacheLookup{Status: domain.CacheUnavailable}
	}

	start := time.Now()
	var data []byte
	err := c.execute(ctx, func(ctx context.Context) error {
		var err error
		data, err = c.store.Get(ctx, key)
		return err
	})
	metrics.CacheOperationDuration.WithLabelValues("get").Observe(time.Since(start).Seconds())

	var l domain.CacheLookup
	switch {
	case err == nil:
		l = domain.CacheLookup{Payload: data, Status: domain.CacheHit}
	case errors.Is(err, db.ErrKeyNotFound):
		l = domain.CacheLookup{Status: domain.CacheMiss}
	default:
		c.logger.Warn("Cache lookup failed, serving live",
			zap.String("key", key),
			zap.Error(err),
		)
		l = domain.CacheLookup{Status: domain.CacheUnavailable}
	}
	metrics.CacheLookupsTotal.WithLabelValues(l.Status.String()).Inc()
	return l
}

// Set stores payload under key with ttl, overwriting any existing entry.
// Failures are logged and swallowed.
func (c *Cache) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if c.store == nil {
		metrics.CacheWritesTotal.WithLabelValues("skipped").Inc()
		return
	}

	start := time.Now()
	err := c.execute(ctx, func(ctx context.Context) error {
		return c.store.SetWithTTL(ctx, key, payload, ttl)
	})
	metrics.CacheOperationDuration.WithLabelValues("set").Observe(time.Since(start).Seconds())

	if err != nil {
		metrics.CacheWritesTotal.WithLabelValues("error").Inc()
		c.logger.Warn("Cache write failed",
			zap.String("key", key),
			zap.Error(err),
		)
		return
	}
	metrics.CacheWritesTotal.WithLabelValues("ok").Inc()
}

// IsAvailable reports whether the store currently answers a ping.
// An open breaker reports false without touching the store.
func (c *Cache) IsAvailable(ctx context.Context) bool {
	if c.store == nil {
		return false
	}
	return c.execute(ctx, c.store.Ping) == nil
}

// Ping implements the health checker contract.
func (c *Cache) Ping(ctx context.Context) error {
	if c.store == nil {
		return ErrDisabled
	}
	return c.execute(ctx, c.store.Ping)
}

// ErrDisabled is returned by a guarded store when the cache has no backend.
var ErrDisabled = errors.New("response cache is disabled")

// GuardedStore is the cache's backing store seen through its per-operation
// timeout and breaker, for other caches that share the backend.
type GuardedStore struct {
	c *Cache
}

// Guard returns the guarded view of the backing store.
func (c *Cache) Guard() *GuardedStore {
	return &GuardedStore{c: c}
}

// Get returns the stored value, db.ErrKeyNotFound, or the guard's error.
func (g *GuardedStore) Get(ctx context.Context, key string) ([]byte, error) {
	if g.c.store == nil {
		return nil, ErrDisabled
	}
	var data []byte
	err := g.c.execute(ctx, func(ctx context.Context) error {
		var err error
		data, err = g.c.store.Get(ctx, key)
		return err
	})
	return data, err
}

// SetWithTTL stores value under the guard.
func (g *GuardedStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if g.c.store == nil {
		return ErrDisabled
	}
	return g.c.execute(ctx, func(ctx context.Context) error {
		return g.c.store.SetWithTTL(ctx, key, value, ttl)
	})
}

// execute runs op under the per-operation timeout and the breaker.
func (c *Cache) execute(ctx context.Context, op func(ctx context.Context) error) error {
	if c.opts.OpTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.OpTimeout)
		defer cancel()
	}

	if c.breaker == nil {
		return op(ctx)
	}

	_, err := c.breaker.Execute(func() (interface{}, error) {
		return nil, op(ctx)
	})
	return err //nolint:wrapcheck // breaker is a transparent guard
}
