package chi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/recommender/internal/domain"
	"github.com/kailas-cloud/recommender/internal/domain/query"
	"github.com/kailas-cloud/recommender/internal/domain/recommendation"
	logpkg "github.com/kailas-cloud/recommender/internal/logger"
	healthuc "github.com/kailas-cloud/recommender/internal/usecase/health"
)

// maxRequestBytes caps the POST /recommend body.
const maxRequestBytes = 64 << 10

// Recommender answers validated recommendation queries.
type Recommender interface {
	Recommend(ctx context.Context, q query.Query) (recommendation.Response, error)
}

// HealthReporter reports liveness and aggregated component health.
type HealthReporter interface {
	Liveness(ctx context.Context) healthuc.Liveness
	Check(ctx context.Context) healthuc.Report
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server holds the HTTP handlers of the recommender API.
type Server struct {
	recommender   Recommender
	health        HealthReporter
	limits        query.Limits
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(recommender Recommender, health HealthReporter, limits query.Limits, logger *zap.Logger) *Server {
	s := &Server{
		recommender: recommender,
		health:      health,
		limits:      limits,
		logger:      logger,
	}
	s.errorHandlers = []errorHandler{
		validationHandler,
		sentinelHandler(domain.ErrUpstreamSearch, http.StatusInternalServerError),
	}
	return s
}

type recommendRequest struct {
	Text string `json:"text"`
	TopK *int   `json:"top_k"`
}

type livenessResponse struct {
	Status     string `json:"status"`
	RedisCache string `json:"redis_cache"`
	Model      string `json:"model"`
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

type errorResponse struct {
	Detail any `json:"detail"`
}

// Root handles GET /.
func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	l := s.health.Liveness(r.Context())
	writeJSON(w, http.StatusOK, livenessResponse{
		Status:     l.Status,
		RedisCache: l.RedisCache,
		Model:      l.Model,
	})
}

// Recommend handles POST /recommend.
func (s *Server) Recommend(w http.ResponseWriter, r *http.Request) {
	req, err := decodeRecommendRequest(w, r)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	q, err := query.New(req.Text, req.TopK, s.limits)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	resp, err := s.recommender.Recommend(ctx, q)
	if err != nil {
		s.handleDomainError(w, r, err)
		return
	}

	setEmbeddingHeaders(w, usage)
	writeJSON(w, http.StatusOK, resp)
}

// HealthCheck handles GET /health. A degraded service (no cache) still answers 200.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, healthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

// decodeRecommendRequest reads the JSON body. Malformed bodies are reported as
// a *query.ValidationError so they share the 422 path with field violations.
func decodeRecommendRequest(w http.ResponseWriter, r *http.Request) (recommendRequest, error) {
	var req recommendRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req)
	if err == nil {
		return req, nil
	}

	verr := &query.ValidationError{}
	var typeErr *json.UnmarshalTypeError
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &typeErr):
		verr.Add(typeErr.Field, typeMessage(typeErr.Field))
	case errors.As(err, &maxErr):
		verr.Add("body", "must be at most "+strconv.Itoa(maxRequestBytes)+" bytes")
	case errors.Is(err, io.EOF):
		verr.Add("body", "must not be empty")
	default:
		verr.Add("body", "must be a valid JSON object")
	}
	return recommendRequest{}, verr
}

func typeMessage(field string) string {
	switch field {
	case "text":
		return "must be a string"
	case "top_k":
		return "must be an integer"
	default:
		return "has an invalid type"
	}
}

func setEmbeddingHeaders(w http.ResponseWriter, usage *domain.EmbeddingUsage) {
	if usage.Embedded() {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.Tokens()))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Detail: message})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrUpstreamSearch,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, msg)
		return true
	}
}

// validationHandler answers 422 listing every invalid field.
func validationHandler(w http.ResponseWriter, err error, msg string) bool {
	var verr *query.ValidationError
	if !errors.As(err, &verr) {
		return false
	}
	if len(verr.Fields) == 0 {
		writeError(w, http.StatusUnprocessableEntity, msg)
		return true
	}
	writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Detail: verr.Fields})
	return true
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error) {
	log := logpkg.FromContext(r.Context(), s.logger)
	if errors.Is(err, domain.ErrInvalidQuery) {
		log.Debug("invalid request", zap.Error(err))
	} else {
		log.Warn("domain error", zap.Error(err))
	}

	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal error")
}
