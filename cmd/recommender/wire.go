package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/recommender/internal/config"
	"github.com/kailas-cloud/recommender/internal/db"
	dbMemory "github.com/kailas-cloud/recommender/internal/db/memory"
	dbRedis "github.com/kailas-cloud/recommender/internal/db/redis"
	"github.com/kailas-cloud/recommender/internal/domain"
	"github.com/kailas-cloud/recommender/internal/domain/query"
	"github.com/kailas-cloud/recommender/internal/metrics"
	"github.com/kailas-cloud/recommender/internal/repository/embcache"
	"github.com/kailas-cloud/recommender/internal/repository/respcache"
	searchrepo "github.com/kailas-cloud/recommender/internal/repository/search"
	onnxEmb "github.com/kailas-cloud/recommender/internal/transport/onnx"
	openaiEmb "github.com/kailas-cloud/recommender/internal/transport/openai"
	"github.com/kailas-cloud/recommender/internal/transport/qdrant"
	embeddinguc "github.com/kailas-cloud/recommender/internal/usecase/embedding"
	healthuc "github.com/kailas-cloud/recommender/internal/usecase/health"
	recommenduc "github.com/kailas-cloud/recommender/internal/usecase/recommend"
)

// app is the composition root: every client is built once and shared.
type app struct {
	recommend *recommenduc.Service
	health    *healthuc.Service
	limits    query.Limits
	closers   []func()
}

// Close releases clients in reverse construction order.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// vectorBackend is what the recommend and health services need from a vector driver.
type vectorBackend interface {
	domain.VectorSearcher
	Ping(ctx context.Context) error
}

// redisVectorBackend pairs the search repository with the store it pings.
type redisVectorBackend struct {
	*searchrepo.Repo
	store *dbRedis.Store
}

func (b redisVectorBackend) Ping(ctx context.Context) error {
	return b.store.Ping(ctx) //nolint:wrapcheck // transparent adapter
}

func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterRecommendMetrics()

	a := &app{
		limits: query.Limits{
			DefaultTopK:   cfg.Search.DefaultTopK,
			MaxTopK:       cfg.Search.MaxTopK,
			MinTextLength: cfg.Search.MinTextLength,
			MaxTextLength: query.MaxTextLength,
		},
	}

	kv := buildCacheStore(ctx, cfg, logger)
	var cache *respcache.Cache
	if kv != nil {
		a.closers = append(a.closers, kv.Close)
		cache = respcache.New(kv, respcache.Options{
			OpTimeout:       cfg.Cache.OpTimeout(),
			BreakerFailures: cfg.Cache.Breaker.ConsecutiveFailures,
			BreakerOpen:     time.Duration(cfg.Cache.Breaker.OpenSec) * time.Second,
		}, logger)
	} else {
		cache = respcache.Disabled(logger)
	}

	vector, closeVector, err := buildVectorBackend(ctx, cfg.Vector, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeVector)

	// The embedding cache shares the response cache's timeout and breaker.
	var embStore embcacheStore
	if kv != nil {
		embStore = cache.Guard()
	}
	embedder, closeEmbedder, err := buildEmbedder(cfg.Embedding, embStore, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.closers = append(a.closers, closeEmbedder)

	a.recommend = recommenduc.New(cache, embedder, vector, recommenduc.Options{
		Collection:    cfg.Vector.Collection,
		KeyPrefix:     cfg.Cache.KeyPrefix,
		TTL:           cfg.Cache.CacheTTL(),
		EmbedTimeout:  time.Duration(cfg.Embedding.TimeoutSec) * time.Second,
		SearchTimeout: time.Duration(cfg.Vector.TimeoutSec) * time.Second,
		VectorDriver:  cfg.Vector.Driver,
	}, logger)
	a.health = healthuc.New(cache, vector, newEmbeddingHealthChecker(embedder), cfg.Embedding.Model)

	return a, nil
}

// buildCacheStore returns the key-value store shared by the response and embedding
// caches, or nil when caching is off or the store is unreachable at startup.
func buildCacheStore(ctx context.Context, cfg config.Config, logger *zap.Logger) db.CacheStore {
	switch cfg.Cache.Driver {
	case "none":
		logger.Info("Response cache disabled")
		return nil
	case "memory":
		maxTTL := max(cfg.Cache.CacheTTL(), time.Duration(cfg.Embedding.CacheTTLSec)*time.Second)
		logger.Info("Using in-process response cache", zap.Int("size", cfg.Cache.MemorySize))
		return dbMemory.NewStore(cfg.Cache.MemorySize, maxTTL)
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:       cfg.Cache.Addrs,
		Password:    cfg.Cache.Password,
		DB:          cfg.Cache.DB,
		DialTimeout: time.Second,
	})
	if err != nil {
		logger.Warn("Cache store unreachable, serving without cache",
			zap.Strings("addrs", cfg.Cache.Addrs),
			zap.Error(err),
		)
		return nil
	}

	pingCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := store.Ping(pingCtx); err != nil {
		logger.Warn("Cache store ping failed, breaker will guard it", zap.Error(err))
	} else {
		logger.Info("Connected to cache store", zap.Strings("addrs", cfg.Cache.Addrs))
	}
	return store
}

func buildVectorBackend(
	ctx context.Context, cfg config.VectorConfig, logger *zap.Logger,
) (vectorBackend, func(), error) {
	readiness := time.Duration(cfg.ReadinessTimeout) * time.Second

	switch cfg.Driver {
	case "qdrant":
		client, err := qdrant.NewClient(qdrant.Config{
			Host:   cfg.Host,
			Port:   cfg.GRPCPort,
			APIKey: cfg.APIKey,
			UseTLS: cfg.UseTLS,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create qdrant client: %w", err)
		}
		closeClient := func() {
			if err := client.Close(); err != nil {
				logger.Warn("Failed to close qdrant client", zap.Error(err))
			}
		}
		if err := client.WaitForReady(ctx, readiness); err != nil {
			closeClient()
			return nil, nil, fmt.Errorf("vector backend not ready: %w", err)
		}
		logger.Info("Connected to vector backend",
			zap.String("driver", cfg.Driver),
			zap.String("host", cfg.Host),
			zap.Int("grpc_port", cfg.GRPCPort),
			zap.String("collection", cfg.Collection),
		)
		return client, closeClient, nil

	case "redis":
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Addrs,
			Password: cfg.Password,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create redis vector store: %w", err)
		}
		if err := store.WaitForReady(ctx, readiness); err != nil {
			store.Close()
			return nil, nil, fmt.Errorf("vector backend not ready: %w", err)
		}
		logger.Info("Connected to vector backend",
			zap.String("driver", cfg.Driver),
			zap.Strings("addrs", cfg.Addrs),
			zap.String("collection", cfg.Collection),
		)
		return redisVectorBackend{Repo: searchrepo.New(store), store: store}, store.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown vector driver %q", cfg.Driver)
}

// embcacheStore is the store the embedding cache reads and writes.
type embcacheStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// buildEmbedder assembles the decorator chain: provider -> Cached -> Instrumented -> Instruction.
func buildEmbedder(
	cfg config.EmbeddingConfig, kv embcacheStore, logger *zap.Logger,
) (domain.Embedder, func(), error) {
	var (
		base    domain.Embedder
		closeFn = func() {}
	)

	switch cfg.Provider {
	case "onnx":
		emb, err := onnxEmb.NewEmbedder(onnxEmb.Config{
			ModelPath:  cfg.ModelPath,
			VocabPath:  cfg.VocabPath,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			MaxTokens:  cfg.MaxTokens,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create onnx embedder: %w", err)
		}
		base = emb
		closeFn = func() {
			if err := emb.Close(); err != nil {
				logger.Warn("Failed to close onnx embedder", zap.Error(err))
			}
		}
	case "openai":
		base = openaiEmb.NewEmbedder(&openaiEmb.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Dimensions: cfg.Dimensions,
			Timeout:    time.Duration(cfg.TimeoutSec) * time.Second,
			Provider:   cfg.Provider,
			Logger:     logger,
		})
	default:
		return nil, nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	embedder := base
	if kv != nil && cfg.CacheTTLSec > 0 {
		embedder = embcache.New(base, kv, cfg.Model,
			time.Duration(cfg.CacheTTLSec)*time.Second, metrics.EmbeddingCacheTotal, logger)
	}

	embedder = embeddinguc.NewInstrumentedEmbedder(embedder, cfg.Provider, cfg.Model, logger)

	// Instruction prefix is outermost so cache keys include it.
	if cfg.QueryInstruction != "" {
		embedder = domain.NewInstructionEmbedder(embedder, cfg.QueryInstruction)
	}

	logger.Info("Embedder created",
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model),
		zap.Int("dimensions", cfg.Dimensions),
		zap.Bool("cached", kv != nil && cfg.CacheTTLSec > 0),
	)
	return embedder, closeFn, nil
}

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}
