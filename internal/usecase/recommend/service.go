package recommend

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/recommender/internal/domain"
	"github.com/kailas-cloud/recommender/internal/domain/query"
	"github.com/kailas-cloud/recommender/internal/domain/recommendation"
	"github.com/kailas-cloud/recommender/internal/logger"
	"github.com/kailas-cloud/recommender/internal/metrics"
)

// Default upstream bounds.
const (
	DefaultTTL           = time.Hour
	DefaultEmbedTimeout  = 10 * time.Second
	DefaultSearchTimeout = 5 * time.Second
)

// Options configures the read-through flow.
type Options struct {
	Collection    string
	KeyPrefix     string
	TTL           time.Duration
	EmbedTimeout  time.Duration
	SearchTimeout time.Duration
	VectorDriver  string // metrics label only
}

func (o *Options) applyDefaults() {
	if o.KeyPrefix == "" {
		o.KeyPrefix = DefaultKeyPrefix
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.EmbedTimeout <= 0 {
		o.EmbedTimeout = DefaultEmbedTimeout
	}
	if o.SearchTimeout <= 0 {
		o.SearchTimeout = DefaultSearchTimeout
	}
	if o.VectorDriver == "" {
		o.VectorDriver = "unknown"
	}
}

// Service is a read-through cache in front of embedding + vector search.
// Concurrent misses for the same key share one upstream computation.
type Service struct {
	cache  Cache
	embed  Embedder
	search Searcher
	opts   Options
	flight singleflight.Group
	logger *zap.Logger
}

// New creates a recommendation service.
func New(cache Cache, embed Embedder, search Searcher, opts Options, logger *zap.Logger) *Service {
	opts.applyDefaults()
	return &Service{
		cache:  cache,
		embed:  embed,
		search: search,
		opts:   opts,
		logger: logger,
	}
}

// Recommend returns the top-K catalog items for q. A cached response is tagged
// redis_cache; a live one is tagged vector_db and written back to the cache.
// Embedding or search failures wrap domain.ErrUpstreamSearch and are never cached.
func (s *Service) Recommend(ctx context.Context, q query.Query) (recommendation.Response, error) {
	key := Normalize(s.opts.KeyPrefix, q.Text(), q.TopK())

	if resp, ok := s.lookup(ctx, key); ok {
		metrics.RecommendationsTotal.WithLabelValues(string(recommendation.SourceCache)).Inc()
		return resp, nil
	}

	// The computation is detached from the caller so a disconnecting leader does not
	// fail the followers; embed and search timeouts still bound it.
	ch := s.flight.DoChan(key, func() (any, error) {
		return s.compute(context.WithoutCancel(ctx), key, q)
	})

	select {
	case <-ctx.Done():
		return recommendation.Response{}, fmt.Errorf("%w: %w", domain.ErrUpstreamSearch, ctx.Err())
	case res := <-ch:
		if res.Shared {
			metrics.SingleflightSharedTotal.Inc()
		}
		if res.Err != nil {
			metrics.RecommendationsTotal.WithLabelValues("error").Inc()
			return recommendation.Response{}, res.Err
		}
		metrics.RecommendationsTotal.WithLabelValues(string(recommendation.SourceVectorDB)).Inc()
		return res.Val.(recommendation.Response), nil //nolint:forcetypeassert // compute returns Response
	}
}

// lookup serves a hit. Misses, unavailable stores and corrupt entries all report false.
func (s *Service) lookup(ctx context.Context, key string) (recommendation.Response, bool) {
	l := s.cache.Get(ctx, key)
	if l.Status != domain.CacheHit {
		return recommendation.Response{}, false
	}

	resp, err := recommendation.Unmarshal(l.Payload)
	if err != nil {
		metrics.CacheLookupsTotal.WithLabelValues("corrupt").Inc()
		logger.FromContext(ctx, s.logger).Warn("Corrupt cache entry, recomputing",
			zap.String("key", key),
			zap.Error(err),
		)
		return recommendation.Response{}, false
	}
	return resp.WithSource(recommendation.SourceCache), true
}

// compute embeds, searches, shapes and caches a live response.
func (s *Service) compute(ctx context.Context, key string, q query.Query) (recommendation.Response, error) {
	log := logger.FromContext(ctx, s.logger)

	vec, err := s.vectorize(ctx, q.Text())
	if err != nil {
		log.Error("Query embedding failed", zap.String("key", key), zap.Error(err))
		return recommendation.Response{}, fmt.Errorf("%w: embed query: %w", domain.ErrUpstreamSearch, err)
	}

	hits, err := s.nearest(ctx, vec, q.TopK())
	if err != nil {
		log.Error("Vector search failed",
			zap.String("key", key),
			zap.String("collection", s.opts.Collection),
			zap.Error(err),
		)
		return recommendation.Response{}, fmt.Errorf("%w: vector search: %w", domain.ErrUpstreamSearch, err)
	}

	items := make([]recommendation.Item, len(hits))
	for i, h := range hits {
		items[i] = recommendation.ItemFromHit(h)
	}
	resp := recommendation.NewResponse(items, recommendation.SourceVectorDB)

	payload, err := resp.WithSource(recommendation.SourceCache).Marshal()
	if err != nil {
		log.Warn("Response not cacheable", zap.String("key", key), zap.Error(err))
		return resp, nil
	}
	s.cache.Set(ctx, key, payload, s.opts.TTL)

	return resp, nil
}

func (s *Service) vectorize(ctx context.Context, text string) ([]float32, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.EmbedTimeout)
	defer cancel()

	res, err := s.embed.Embed(ctx, text)
	if err != nil {
		return nil, err //nolint:wrapcheck // wrapped by compute
	}
	if len(res.Embedding) == 0 {
		return nil, domain.ErrEmptyEmbedding
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)
	return res.Embedding, nil
}

func (s *Service) nearest(ctx context.Context, vec []float32, topK int) ([]domain.SearchHit, error) {
	ctx, cancel := context.WithTimeout(ctx, s.opts.SearchTimeout)
	defer cancel()

	start := time.Now()
	hits, err := s.search.Search(ctx, s.opts.Collection, vec, topK)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.VectorSearchDuration.WithLabelValues(s.opts.VectorDriver, status).Observe(time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("timed out after %s: %w", s.opts.SearchTimeout, err)
		}
		return nil, err //nolint:wrapcheck // wrapped by compute
	}

	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}
