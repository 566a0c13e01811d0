package search

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kailas-cloud/recommender/internal/db"
	"github.com/kailas-cloud/recommender/internal/domain"
)

const (
	// vectorField holds the raw embedding bytes in each catalog hash.
	vectorField = "vector"
	// payloadField optionally holds the item payload as a JSON object.
	payloadField = "payload"
)

var _ domain.VectorSearcher = (*Repo)(nil)

// store is the consumer interface for search operations (ISP).
type store interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}

// Repo runs catalog nearest-neighbour search over a Redis vector index.
// A collection C is indexed as "C:idx" over hashes keyed "C:<id>".
type Repo struct {
	store store
}

// New creates a search repository.
func New(s store) *Repo {
	return &Repo{store: s}
}

// Search performs a KNN (vector similarity) search on a collection.
func (r *Repo) Search(
	ctx context.Context, collection string, vector []float32, limit int,
) ([]domain.SearchHit, error) {
	q := &db.KNNQuery{
		IndexName: collection + ":idx",
		Vector:    vector,
		K:         limit,
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn %s: %w", collection, err)
	}

	return parseKNNResults(sr, collection)
}

// parseKNNResults converts db.SearchResult into hits, preserving backend order.
func parseKNNResults(sr *db.SearchResult, collection string) ([]domain.SearchHit, error) {
	if sr == nil || len(sr.Entries) == 0 {
		return nil, nil
	}

	prefix := collection + ":"
	hits := make([]domain.SearchHit, 0, len(sr.Entries))

	for _, entry := range sr.Entries {
		payload, err := parsePayload(entry.Fields)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", entry.Key, err)
		}
		hits = append(hits, domain.SearchHit{
			ID:      strings.TrimPrefix(entry.Key, prefix),
			Score:   entry.Score,
			Payload: payload,
		})
	}

	return hits, nil
}

// parsePayload builds the item payload from flat hash fields.
// Hash fields are kept as strings; a JSON "payload" field is merged on top.
func parsePayload(fields map[string]string) (map[string]any, error) {
	payload := make(map[string]any, len(fields))
	for k, v := range fields {
		switch k {
		case vectorField:
			// raw embedding bytes are never part of the payload
		case payloadField:
			var extra map[string]any
			if err := json.Unmarshal([]byte(v), &extra); err != nil {
				return nil, fmt.Errorf("%w: malformed payload json: %w", domain.ErrVectorSearchFailed, err)
			}
			for ek, ev := range extra {
				payload[ek] = ev
			}
		default:
			if _, dup := payload[k]; !dup {
				payload[k] = v
			}
		}
	}
	return payload, nil
}
