package domain

import "errors"

var (
	// ErrUpstreamSearch signals that embedding or vector search failed while
	// computing a recommendation. Handlers map it to a server error.
	ErrUpstreamSearch = errors.New("upstream search failure")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrVectorSearchFailed signals a vector backend failure.
	ErrVectorSearchFailed = errors.New("vector search failed")
	// ErrEmptyEmbedding signals that the provider returned no vector.
	ErrEmptyEmbedding = errors.New("empty embedding")
)

// ErrInvalidQuery signals a client-side validation failure.
var ErrInvalidQuery = errors.New("invalid query")
