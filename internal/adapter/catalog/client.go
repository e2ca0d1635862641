// Package catalog reads raster slices from the hosted imagery catalog.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/wildfire-risk-service/internal/domain"
	"github.com/couchcryptid/wildfire-risk-service/internal/observability"
	"github.com/twpayne/go-geom"
	"golang.org/x/time/rate"
)

// Client implements domain.Catalog over the catalog's HTTP API.
type Client struct {
	token      string
	httpClient *http.Client
	baseURL    string
	limiter    *rate.Limiter
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates a catalog client. requestsPerSecond <= 0 disables rate
// limiting.
func NewClient(baseURL, token string, timeout time.Duration, requestsPerSecond float64, metrics *observability.Metrics, logger *slog.Logger) *Client {
	limit := rate.Inf
	if requestsPerSecond > 0 {
		limit = rate.Limit(requestsPerSecond)
	}
	return &Client{
		token: token,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL: strings.TrimRight(baseURL, "/"),
		limiter: rate.NewLimiter(limit, 1),
		metrics: metrics,
		logger:  logger,
	}
}

// Slices fetches the slices matching q.
func (c *Client) Slices(ctx context.Context, q domain.SliceQuery) ([]domain.Slice, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("catalog rate limit: %w", err)
	}

	start := time.Now()
	slices, err := c.doRequest(ctx, c.sliceURL(q))
	c.metrics.CatalogAPIDuration.WithLabelValues(q.Collection).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		c.metrics.CatalogRequests.WithLabelValues(q.Collection, "error").Inc()
		return nil, fmt.Errorf("catalog %s/%s: %w", q.Collection, q.Band, err)
	case len(slices) == 0:
		c.metrics.CatalogRequests.WithLabelValues(q.Collection, "empty").Inc()
	default:
		c.metrics.CatalogRequests.WithLabelValues(q.Collection, "success").Inc()
	}

	c.logger.Debug("catalog slices fetched",
		"collection", q.Collection,
		"band", q.Band,
		"range", q.Range.String(),
		"count", len(slices),
	)
	return slices, nil
}

func (c *Client) sliceURL(q domain.SliceQuery) string {
	params := url.Values{
		"band":  {q.Band},
		"start": {q.Range.Start.Format(time.RFC3339)},
		"end":   {q.Range.End.Format(time.RFC3339)},
	}
	if q.Bounds != nil && !q.Bounds.IsEmpty() {
		params.Set("bbox", formatBBox(q.Bounds))
	}
	return fmt.Sprintf("%s/collections/%s/slices?%s", c.baseURL, url.PathEscape(q.Collection), params.Encode())
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]domain.Slice, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("slices request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<10))
		return nil, fmt.Errorf("catalog API error: status %d: %s", resp.StatusCode, body)
	}

	var catalogResp response
	if err := json.NewDecoder(resp.Body).Decode(&catalogResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return catalogResp.Slices, nil
}

// formatBBox renders bounds as "minLon,minLat,maxLon,maxLat".
func formatBBox(b *geom.Bounds) string {
	parts := []float64{b.Min(0), b.Min(1), b.Max(0), b.Max(1)}
	out := make([]string, len(parts))
	for i, v := range parts {
		out[i] = strconv.FormatFloat(v, 'f', -1, 64)
	}
	return strings.Join(out, ",")
}

// Catalog API response types.

type response struct {
	Slices []domain.Slice `json:"slices"`
}
