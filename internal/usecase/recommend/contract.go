package recommend

import (
	"context"
	"time"

	"github.com/kailas-cloud/recommender/internal/domain"
)

// Cache is the response cache contract. Implementations never fail the caller:
// store errors surface as domain.CacheUnavailable lookups and dropped writes.
type Cache interface {
	Get(ctx context.Context, key string) domain.CacheLookup
	Set(ctx context.Context, key string, payload []byte, ttl time.Duration)
}

// Embedder vectorizes query text.
type Embedder interface {
	Embed(ctx context.Context, text string) (domain.EmbeddingResult, error)
}

// Searcher finds the nearest catalog items to a vector.
type Searcher interface {
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]domain.SearchHit, error)
}
