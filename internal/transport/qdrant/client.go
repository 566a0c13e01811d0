package qdrant

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	qc "github.com/qdrant/go-client/qdrant"

	"github.com/kailas-cloud/recommender/internal/domain"
)

var _ domain.VectorSearcher = (*Client)(nil)

// Config holds Qdrant gRPC connection settings.
type Config struct {
	Host   string
	Port   int // gRPC port, 6334 by default in Qdrant
	APIKey string
	UseTLS bool
}

// pointsAPI is the subset of the Qdrant client used here.
type pointsAPI interface {
	Query(ctx context.Context, request *qc.QueryPoints) ([]*qc.ScoredPoint, error)
	HealthCheck(ctx context.Context) (*qc.HealthCheckReply, error)
	Close() error
}

// Client searches a Qdrant collection over gRPC.
type Client struct {
	api pointsAPI
}

// NewClient creates a Qdrant client. The connection is established lazily.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, errors.New("qdrant host is required")
	}
	api, err := qc.NewClient(&qc.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}
	return &Client{api: api}, nil
}

// Search queries the nearest points of collection. Hits keep Qdrant's descending score order.
func (c *Client) Search(
	ctx context.Context, collection string, vector []float32, limit int,
) ([]domain.SearchHit, error) {
	points, err := c.api.Query(ctx, &qc.QueryPoints{
		CollectionName: collection,
		Query:          qc.NewQuery(vector...),
		Limit:          qc.PtrOf(uint64(limit)),
		WithPayload:    qc.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("search %s: %w: %w", collection, domain.ErrVectorSearchFailed, err)
	}

	hits := make([]domain.SearchHit, 0, len(points))
	for _, p := range points {
		hits = append(hits, domain.SearchHit{
			ID:      pointID(p.GetId()),
			Score:   float64(p.GetScore()),
			Payload: payloadMap(p.GetPayload()),
		})
	}
	return hits, nil
}

// Ping checks that the service answers health checks.
func (c *Client) Ping(ctx context.Context) error {
	if _, err := c.api.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant health check: %w", err)
	}
	return nil
}

// Close releases the gRPC connection.
func (c *Client) Close() error {
	if err := c.api.Close(); err != nil {
		return fmt.Errorf("close qdrant client: %w", err)
	}
	return nil
}

// WaitForReady retries Ping with exponential backoff until Qdrant responds or timeout expires.
func (c *Client) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = timeout

	if err := backoff.Retry(func() error { return c.Ping(ctx) }, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("timeout waiting for qdrant: %w", err)
	}
	return nil
}

// pointID renders numeric ids in decimal and UUIDs as is.
func pointID(id *qc.PointId) string {
	if u := id.GetUuid(); u != "" {
		return u
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

func payloadMap(fields map[string]*qc.Value) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = plainValue(v)
	}
	return out
}

// plainValue converts a payload value into the JSON-compatible Go value.
func plainValue(v *qc.Value) any {
	switch kind := v.GetKind().(type) {
	case *qc.Value_StringValue:
		return kind.StringValue
	case *qc.Value_IntegerValue:
		return kind.IntegerValue
	case *qc.Value_DoubleValue:
		return kind.DoubleValue
	case *qc.Value_BoolValue:
		return kind.BoolValue
	case *qc.Value_StructValue:
		return payloadMap(kind.StructValue.GetFields())
	case *qc.Value_ListValue:
		values := kind.ListValue.GetValues()
		out := make([]any, 0, len(values))
		for _, item := range values {
			out = append(out, plainValue(item))
		}
		return out
	default:
		return nil
	}
}
