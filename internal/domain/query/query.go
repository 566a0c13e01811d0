// Package query holds the validated recommendation request.
package query

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/kailas-cloud/recommender/internal/domain"
)

// Request parameter limits.
const (
	DefaultTopK   = 5
	MaxTopK       = 20
	MinTextLength = 2
	// MaxTextLength caps the text forwarded to the embedder.
	MaxTextLength = 4096
)

// Limits bounds the accepted request parameters.
type Limits struct {
	DefaultTopK   int
	MaxTopK       int
	MinTextLength int
	MaxTextLength int
}

// DefaultLimits returns text length in [2, 4096] and top_k in [1, 20], default 5.
func DefaultLimits() Limits {
	return Limits{
		DefaultTopK:   DefaultTopK,
		MaxTopK:       MaxTopK,
		MinTextLength: MinTextLength,
		MaxTextLength: MaxTextLength,
	}
}

// FieldError describes a single invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return fmt.Sprintf("%s: %s", domain.ErrInvalidQuery.Error(), strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error { return domain.ErrInvalidQuery }

// Add appends a field violation.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Query is a validated recommendation request.
type Query struct {
	text string
	topK int
}

// New trims and validates text and top_k. A nil topK takes the default.
// All violations are collected into a single *ValidationError.
func New(text string, topK *int, limits Limits) (Query, error) {
	verr := &ValidationError{}

	trimmed := strings.TrimSpace(text)
	n := utf8.RuneCountInString(trimmed)
	switch {
	case n < limits.MinTextLength:
		verr.Add("text", fmt.Sprintf("must be at least %d characters", limits.MinTextLength))
	case limits.MaxTextLength > 0 && n > limits.MaxTextLength:
		verr.Add("text", fmt.Sprintf("must be at most %d characters", limits.MaxTextLength))
	}

	k := limits.DefaultTopK
	if topK != nil {
		k = *topK
	}
	if k < 1 || k > limits.MaxTopK {
		verr.Add("top_k", fmt.Sprintf("must be between 1 and %d", limits.MaxTopK))
	}

	if len(verr.Fields) > 0 {
		return Query{}, verr
	}
	return Query{text: trimmed, topK: k}, nil
}

// Text returns the trimmed query text.
func (q Query) Text() string { return q.text }

// TopK returns the number of results requested.
func (q Query) TopK() int { return q.topK }
