package health

import "context"

// CacheProbe reports response cache availability.
type CacheProbe interface {
	IsAvailable(ctx context.Context) bool
}

// VectorPinger checks vector backend availability.
type VectorPinger interface {
	Ping(ctx context.Context) error
}

// EmbeddingChecker checks embedding provider availability.
type EmbeddingChecker interface {
	HealthCheck(ctx context.Context) error
}
