package recommender

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Sentinel errors matched by APIError. Use errors.Is() to check.
var (
	ErrValidation   = errors.New("recommender: invalid request")
	ErrUnauthorized = errors.New("recommender: unauthorized")
	ErrUpstream     = errors.New("recommender: upstream search failure")
	ErrUnavailable  = errors.New("recommender: service unavailable")
)

// APIError is a non-2xx answer from the service.
type APIError struct {
	StatusCode int
	Detail     string
	Fields     []FieldError // set on 422
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		parts := make([]string, len(e.Fields))
		for i, f := range e.Fields {
			parts[i] = f.Field + ": " + f.Message
		}
		return fmt.Sprintf("recommender: HTTP %d: %s", e.StatusCode, strings.Join(parts, "; "))
	}
	return fmt.Sprintf("recommender: HTTP %d: %s", e.StatusCode, e.Detail)
}

// Is maps status codes onto the package sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrValidation:
		return e.StatusCode == http.StatusUnprocessableEntity
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrUpstream:
		return e.StatusCode == http.StatusInternalServerError
	case ErrUnavailable:
		return e.StatusCode == http.StatusServiceUnavailable ||
			e.StatusCode == http.StatusBadGateway ||
			e.StatusCode == http.StatusGatewayTimeout
	}
	return false
}

// decodeAPIError reads {"detail": "..."} or {"detail": [{field, message}]}.
func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		apiErr.Detail = strings.TrimSpace(string(body))
		if apiErr.Detail == "" {
			apiErr.Detail = http.StatusText(status)
		}
		return apiErr
	}

	if err := json.Unmarshal(envelope.Detail, &apiErr.Detail); err == nil {
		return apiErr
	}
	if err := json.Unmarshal(envelope.Detail, &apiErr.Fields); err == nil {
		apiErr.Detail = "validation failed"
		return apiErr
	}
	apiErr.Detail = string(envelope.Detail)
	return apiErr
}
