package recommender

// Result sources reported by the service.
const (
	SourceVectorDB = "vector_db"
	SourceCache    = "redis_cache"
)

// Item is one recommended catalog product.
type Item struct {
	ProductName     string         `json:"product_name"`
	SimilarityScore float64        `json:"similarity_score"`
	Details         map[string]any `json:"details"`
}

// Recommendations is the ranked answer to a query.
type Recommendations struct {
	Results []Item `json:"results"`
	Source  string `json:"source"`
	Count   int    `json:"count"`
}

// Cached reports whether the answer came from the service's response cache.
func (r *Recommendations) Cached() bool { return r.Source == SourceCache }

// Status is the liveness payload of GET /.
type Status struct {
	Status     string `json:"status"`
	RedisCache string `json:"redis_cache"`
	Model      string `json:"model"`
}

// CacheActive reports whether the service currently reaches its cache.
func (s *Status) CacheActive() bool { return s.RedisCache == "active" }

// Health is the aggregated component report of GET /health.
type Health struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// FieldError is one rejected request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type recommendRequest struct {
	Text string `json:"text"`
	TopK *int   `json:"top_k,omitempty"`
}
