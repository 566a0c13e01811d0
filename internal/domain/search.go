package domain

import "context"

// SearchHit is a single nearest-neighbour match returned by a vector backend.
// Score is a similarity: higher is closer.
type SearchHit struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// VectorSearcher is the vector backend contract: hits are ordered by descending score.
type VectorSearcher interface {
	Search(ctx context.Context, collection string, vector []float32, limit int) ([]SearchHit, error)
}
