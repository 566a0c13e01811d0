package recommender

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// maxResponseBytes caps how much of a response body is read.
const maxResponseBytes = 4 << 20

// Client talks to a recommender service. Safe for concurrent use.
type Client struct {
	baseURL string
	apiKey  string
	http    *retryablehttp.Client
	obs     *observer
}

// New creates a client for the service at baseURL, e.g. "http://localhost:8000".
func New(baseURL string, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(&cfg)
	}

	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("recommender: invalid base URL %q", baseURL)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	rc := retryablehttp.NewClient()
	rc.HTTPClient = hc
	rc.Logger = nil
	if cfg.logger != nil {
		rc.Logger = cfg.logger
	}
	rc.RetryMax = cfg.retryMax
	rc.RetryWaitMin = cfg.retryWait
	rc.RetryWaitMax = 10 * cfg.retryWait
	rc.CheckRetry = checkRetry
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		baseURL: strings.TrimRight(u.String(), "/"),
		apiKey:  cfg.apiKey,
		http:    rc,
		obs:     obs,
	}, nil
}

// Recommend returns up to topK items closest to text.
// topK <= 0 lets the service apply its default.
func (c *Client) Recommend(ctx context.Context, text string, topK int) (*Recommendations, error) {
	req := recommendRequest{Text: text}
	if topK > 0 {
		req.TopK = &topK
	}

	var out Recommendations
	if err := c.do(ctx, "recommend", http.MethodPost, "/recommend", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status returns the liveness payload, including whether the cache is reachable.
func (c *Client) Status(ctx context.Context) (*Status, error) {
	var out Status
	if err := c.do(ctx, "status", http.MethodGet, "/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns the component report. An unhealthy service yields both the
// report and an error matching ErrUnavailable.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	err := c.do(ctx, "health", http.MethodGet, "/health", nil, &out)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable && out.Status != "" {
			return &out, err
		}
		return nil, err
	}
	return &out, nil
}

// Close releases idle connections.
func (c *Client) Close() {
	c.http.HTTPClient.CloseIdleConnections()
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) (err error) {
	start := time.Now()
	defer func() { c.obs.observe(op, start, err) }()

	var rawBody any
	if body != nil {
		data, mErr := json.Marshal(body)
		if mErr != nil {
			return fmt.Errorf("recommender: encode %s request: %w", op, mErr)
		}
		rawBody = data
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, rawBody)
	if err != nil {
		return fmt.Errorf("recommender: build %s request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("recommender: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("recommender: read %s response: %w", op, err)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		apiErr := decodeAPIError(resp.StatusCode, data)
		// GET /health carries its report on 503 as well.
		if resp.StatusCode == http.StatusServiceUnavailable && out != nil {
			_ = json.NewDecoder(bytes.NewReader(data)).Decode(out)
		}
		return apiErr
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("recommender: decode %s response: %w", op, err)
	}
	return nil
}

// checkRetry retries transport failures and gateway errors. A 500 is an answer
// from the service (upstream search failure) and is not retried; neither is 503,
// which /health uses to report an unhealthy backend.
func checkRetry(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err() //nolint:wrapcheck // surfaced by retryablehttp
	}
	if err != nil {
		return retryablehttp.DefaultRetryPolicy(ctx, resp, err) //nolint:wrapcheck // library policy
	}
	switch resp.StatusCode {
	case http.StatusTooManyRequests, http.StatusBadGateway, http.StatusGatewayTimeout:
		return true, nil
	}
	return false, nil
}
