// Package recommendation holds the response records served and cached by the recommender.
package recommendation

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/kailas-cloud/recommender/internal/domain"
)

// Source tells whether a response was computed live or served from the cache.
type Source string

const (
	// SourceVectorDB marks a response computed by embedding + vector search.
	SourceVectorDB Source = "vector_db"
	// SourceCache marks a response served from the cache store.
	SourceCache Source = "redis_cache"
)

// IsValid reports whether s is a known source.
func (s Source) IsValid() bool {
	return s == SourceVectorDB || s == SourceCache
}

const (
	productNameField   = "prod_name"
	unknownProductName = "Unknown"
)

// Item is one recommended catalog product.
type Item struct {
	ProductName     string         `json:"product_name"`
	SimilarityScore float64        `json:"similarity_score"`
	Details         map[string]any `json:"details"`
}

// ItemFromHit shapes a vector backend hit: product name from the prod_name
// payload field ("Unknown" when absent), score rounded to 4 decimals,
// details set to the full payload.
func ItemFromHit(hit domain.SearchHit) Item {
	name := unknownProductName
	if v, ok := hit.Payload[productNameField]; ok && v != nil {
		if s, ok := v.(string); ok {
			name = s
		} else {
			name = fmt.Sprint(v)
		}
	}

	details := hit.Payload
	if details == nil {
		details = map[string]any{}
	}

	return Item{
		ProductName:     name,
		SimilarityScore: RoundScore(hit.Score),
		Details:         details,
	}
}

// RoundScore rounds a similarity score to 4 decimal places.
func RoundScore(score float64) float64 {
	return math.Round(score*1e4) / 1e4
}

// Response is the recommend payload; Count always equals len(Results).
type Response struct {
	Results []Item `json:"results"`
	Source  Source `json:"source"`
	Count   int    `json:"count"`
}

// NewResponse builds a response preserving the order of items.
func NewResponse(items []Item, source Source) Response {
	if items == nil {
		items = []Item{}
	}
	return Response{Results: items, Source: source, Count: len(items)}
}

// WithSource returns a copy tagged with another source. Results are shared.
func (r Response) WithSource(source Source) Response {
	r.Source = source
	return r
}

// Marshal encodes the response for the cache store.
func (r Response) Marshal() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	return data, nil
}

// Unmarshal decodes a cached response. Payloads that do not decode or whose
// count disagrees with the results are reported as corrupt.
func Unmarshal(data []byte) (Response, error) {
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return Response{}, fmt.Errorf("unmarshal response: %w", err)
	}
	if r.Results == nil {
		return Response{}, fmt.Errorf("unmarshal response: missing results")
	}
	if r.Count != len(r.Results) {
		return Response{}, fmt.Errorf("unmarshal response: count %d does not match %d results",
			r.Count, len(r.Results))
	}
	if !r.Source.IsValid() {
		return Response{}, fmt.Errorf("unmarshal response: unknown source %q", r.Source)
	}
	return r, nil
}
