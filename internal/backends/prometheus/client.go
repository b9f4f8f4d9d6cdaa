// Package prometheus implements the pull-metrics backend over the Prometheus
// HTTP range-query API.
package prometheus

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gaugehq/gauge/internal/backends"
	"github.com/gaugehq/gauge/internal/timerange"
	"github.com/gaugehq/gauge/pkg/models"
)

const (
	// DefaultStep is the range-query resolution used when the request does
	// not specify one.
	DefaultStep = "60s"

	defaultQueryTimeout    = 30 * time.Second
	defaultHealthTimeout   = 5 * time.Second
	defaultMetadataTimeout = 10 * time.Second
)

var _ backends.Backend = (*Client)(nil)

// Client queries a Prometheus-compatible backend over HTTP.
type Client struct {
	httpClient      *http.Client
	baseURL         string
	queryTimeout    time.Duration
	healthTimeout   time.Duration
	metadataTimeout time.Duration
	logger          *slog.Logger
}

// Options configures a Client.
type Options struct {
	URL             string
	QueryTimeout    time.Duration
	HealthTimeout   time.Duration
	MetadataTimeout time.Duration
}

// New constructs a Client. The URL is required.
func New(opts Options, logger *slog.Logger) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("prometheus URL is required")
	}

	queryTimeout := opts.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	healthTimeout := opts.HealthTimeout
	if healthTimeout <= 0 {
		healthTimeout = defaultHealthTimeout
	}
	metadataTimeout := opts.MetadataTimeout
	if metadataTimeout <= 0 {
		metadataTimeout = defaultMetadataTimeout
	}

	return &Client{
		httpClient:      &http.Client{},
		baseURL:         strings.TrimSuffix(opts.URL, "/"),
		queryTimeout:    queryTimeout,
		healthTimeout:   healthTimeout,
		metadataTimeout: metadataTimeout,
		logger:          logger.With("component", "prometheus_backend"),
	}, nil
}

// Type reports the backend class.
func (c *Client) Type() models.DatasourceType {
	return models.DatasourcePrometheus
}

// rangeResponse is the wire envelope of /api/v1/query_range.
type rangeResponse struct {
	Status string `json:"status"`
	Data   struct {
		ResultType string                  `json:"resultType"`
		Result     []backends.NativeSeries `json:"result"`
	} `json:"data"`
}

// RangeQuery issues a range query and normalizes the response. The request's
// raw query text wins; otherwise a query is built from the metric name and
// aggregation options.
func (c *Client) RangeQuery(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error) {
	query := req.Query
	if query == "" {
		query = BuildQuery(req.Metric, QueryOptions{
			Aggregation: req.Aggregation,
			GroupBy:     req.GroupBy,
			Rate:        req.Rate,
		})
	}
	if query == "" {
		return nil, fmt.Errorf("%w: no query or metric provided", backends.ErrQueryExecution)
	}

	from, to := timerange.Resolve(req.From, req.To)
	step := req.Step
	if step == "" {
		step = DefaultStep
	}

	params := url.Values{}
	params.Set("query", query)
	params.Set("start", timerange.EpochSeconds(from))
	params.Set("end", timerange.EpochSeconds(to))
	params.Set("step", step)

	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	resp, err := c.doRequest(ctx, "/api/v1/query_range", params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backends.ErrQueryExecution, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("%w: status %d: %s", backends.ErrQueryExecution, resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed rangeResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("%w: malformed response: %v", backends.ErrQueryExecution, err)
	}
	if parsed.Status != "success" {
		return nil, fmt.Errorf("%w: status %q", backends.ErrQueryExecution, parsed.Status)
	}

	return backends.NormalizeSeriesSet(parsed.Data.Result), nil
}

// HealthCheck probes the build-info endpoint.
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	resp, err := c.doRequest(ctx, "/api/v1/status/buildinfo", nil)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// ListMetricNames fetches the known metric names, best effort.
func (c *Client) ListMetricNames(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, c.metadataTimeout)
	defer cancel()

	resp, err := c.doRequest(ctx, "/api/v1/label/__name__/values", nil)
	if err != nil {
		c.logger.Debug("metric name listing failed", "error", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	var parsed struct {
		Status string   `json:"status"`
		Data   []string `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil || parsed.Status != "success" {
		return nil
	}
	return parsed.Data
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) doRequest(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	fullURL := c.baseURL + path
	if len(params) > 0 {
		fullURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	c.logger.Debug("executing prometheus request", "path", path, "query", params.Get("query"))
	return c.httpClient.Do(req)
}
