package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/poiesic/docent/core"
	"github.com/poiesic/docent/vector"
)

// Config holds connection settings for a Qdrant server.
type Config struct {
	// URL is the base URL of the Qdrant REST API, e.g. "http://localhost:6333".
	URL string

	// APIKey is sent as the api-key header when non-empty.
	APIKey string

	// Timeout bounds each HTTP request. Default: 15s.
	Timeout time.Duration

	// MaxRetries is the maximum number of attempts for upsert and search
	// calls. Default: 3.
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff between
	// attempts. Default: 1s.
	RetryDelay time.Duration
}

// Client is a minimal REST client to Qdrant implementing vector.Store.
// Upsert and search calls are retried with exponential backoff; collection
// management calls are single-shot since their failures are fatal to a run.
type Client struct {
	baseURL    string
	apiKey     string
	maxRetries int
	retryDelay time.Duration
	client     *http.Client
	logger     *slog.Logger
}

// NewClient creates a Qdrant client from the given configuration.
//
// Returns vector.Store interface to enforce abstraction.
func NewClient(cfg Config) vector.Store {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		client:     &http.Client{Timeout: timeout},
		logger:     slog.Default().With("component", "qdrant"),
	}
}

// ListCollections returns the names of all collections on the server.
func (c *Client) ListCollections(ctx context.Context) ([]string, error) {
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := c.getJSON(ctx, c.baseURL+"/collections", &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Result.Collections))
	for _, col := range resp.Result.Collections {
		names = append(names, col.Name)
	}
	return names, nil
}

// CreateCollection creates a collection with the given vector size and metric.
// Qdrant returns 200 OK when the collection already exists with the same
// schema, so the call is idempotent.
func (c *Client) CreateCollection(ctx context.Context, name string, size int, distance vector.Distance) error {
	if size <= 0 {
		return vector.ErrInvalidDimension
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     size,
			"distance": string(distance),
		},
	}
	if err := c.putJSON(ctx, fmt.Sprintf("%s/collections/%s", c.baseURL, name), body); err != nil {
		return err
	}
	c.logger.Info("collection ready", "collection", name, "size", size, "distance", distance)
	return nil
}

// Upsert inserts or replaces points in the collection, keyed by point ID.
func (c *Client) Upsert(ctx context.Context, collection string, points []vector.Point) error {
	if len(points) == 0 {
		return nil
	}

	type upsertPoint struct {
		ID      string             `json:"id"`
		Vector  []float32          `json:"vector"`
		Payload core.VectorPayload `json:"payload"`
	}
	batch := make([]upsertPoint, len(points))
	for i, p := range points {
		batch[i] = upsertPoint{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}
	body := map[string]any{"points": batch}
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, collection)

	return RetryWithBackoff(ctx, func() error {
		return c.putJSON(ctx, url, body)
	}, c.maxRetries, c.retryDelay)
}

// Search returns up to limit points most similar to the query vector,
// ordered by descending score and filtered by scoreThreshold.
func (c *Client) Search(ctx context.Context, collection string, vec []float32, limit int, scoreThreshold float32) ([]vector.ScoredPoint, error) {
	if limit <= 0 {
		limit = 5
	}
	body := map[string]any{
		"vector":       vec,
		"limit":        limit,
		"with_payload": true,
	}
	if scoreThreshold > 0 {
		body["score_threshold"] = scoreThreshold
	}

	var resp struct {
		Result []struct {
			ID      json.RawMessage    `json:"id"`
			Score   float32            `json:"score"`
			Payload core.VectorPayload `json:"payload"`
		} `json:"result"`
	}
	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, collection)
	err := RetryWithBackoff(ctx, func() error {
		return c.postJSON(ctx, url, body, &resp)
	}, c.maxRetries, c.retryDelay)
	if err != nil {
		return nil, err
	}

	results := make([]vector.ScoredPoint, 0, len(resp.Result))
	for _, r := range resp.Result {
		results = append(results, vector.ScoredPoint{
			ID:      pointID(r.ID),
			Score:   r.Score,
			Payload: r.Payload,
		})
	}
	return results, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// pointID renders a Qdrant point ID, which may be a JSON string or number.
func pointID(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func (c *Client) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) putJSON(ctx context.Context, url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) postJSON(ctx context.Context, url string, body any, out any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("qdrant %s %s failed: %s: %s",
			req.Method, req.URL.Path, resp.Status, strings.TrimSpace(string(detail)))
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
