// Package client provides the HTTP client for the Gauge API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gaugehq/gauge/pkg/models"
)

const defaultTimeout = 30 * time.Second

// Client is the Gauge API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new Gauge API client.
func New(serverURL string, timeout time.Duration) (*Client, error) {
	if serverURL == "" {
		return nil, fmt.Errorf("server URL is required")
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL:    strings.TrimSuffix(serverURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

// RequestOptions describes a single API request.
type RequestOptions struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
}

// APIError represents an error response from the API.
type APIError struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	ErrorType  string `json:"error_type,omitempty"`
	StatusCode int    `json:"-"`
}

func (e *APIError) Error() string {
	if e.ErrorType != "" {
		return fmt.Sprintf("%s: %s", e.ErrorType, e.Message)
	}
	return e.Message
}

// Do performs an HTTP request against the Gauge API.
func (c *Client) Do(ctx context.Context, opts RequestOptions) (*http.Response, error) {
	reqURL, err := url.Parse(c.baseURL + opts.Path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if opts.Query != nil {
		reqURL.RawQuery = opts.Query.Encode()
	}

	var body io.Reader
	if opts.Body != nil {
		data, err := json.Marshal(opts.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, opts.Method, reqURL.String(), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "gauge-cli/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// DoJSON performs a request and decodes the JSON envelope's data field
// into result.
func (c *Client) DoJSON(ctx context.Context, opts RequestOptions, result any) error {
	resp, err := c.Do(ctx, opts)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr APIError
		if err := json.Unmarshal(respBody, &apiErr); err != nil {
			return &APIError{
				Status:     "error",
				Message:    string(respBody),
				StatusCode: resp.StatusCode,
			}
		}
		apiErr.StatusCode = resp.StatusCode
		return &apiErr
	}

	if result != nil {
		var envelope struct {
			Status string          `json:"status"`
			Data   json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		if err := json.Unmarshal(envelope.Data, result); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

// Health checks whether the server is up.
func (c *Client) Health(ctx context.Context) error {
	return c.DoJSON(ctx, RequestOptions{
		Method: http.MethodGet,
		Path:   "/health",
	}, nil)
}

// Query runs a range query through the datasource registry.
func (c *Client) Query(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error) {
	var result models.QueryResult
	err := c.DoJSON(ctx, RequestOptions{
		Method: http.MethodPost,
		Path:   "/api/query",
		Body:   req,
	}, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListAlerts returns all alert rules.
func (c *Client) ListAlerts(ctx context.Context) ([]*models.Alert, error) {
	var alerts []*models.Alert
	err := c.DoJSON(ctx, RequestOptions{
		Method: http.MethodGet,
		Path:   "/api/alerts",
	}, &alerts)
	if err != nil {
		return nil, err
	}
	return alerts, nil
}

// GetAlert returns a single alert rule.
func (c *Client) GetAlert(ctx context.Context, id models.AlertID) (*models.Alert, error) {
	var alert models.Alert
	err := c.DoJSON(ctx, RequestOptions{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/api/alerts/%d", id),
	}, &alert)
	if err != nil {
		return nil, err
	}
	return &alert, nil
}

// ListAlertHistory returns the newest-first evaluation history of a rule.
func (c *Client) ListAlertHistory(ctx context.Context, id models.AlertID, limit int) ([]*models.AlertHistoryEntry, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", fmt.Sprintf("%d", limit))
	}
	var history []*models.AlertHistoryEntry
	err := c.DoJSON(ctx, RequestOptions{
		Method: http.MethodGet,
		Path:   fmt.Sprintf("/api/alerts/%d/history", id),
		Query:  query,
	}, &history)
	if err != nil {
		return nil, err
	}
	return history, nil
}

// ListChannels returns all notification channels.
func (c *Client) ListChannels(ctx context.Context) ([]*models.NotificationChannel, error) {
	var channels []*models.NotificationChannel
	err := c.DoJSON(ctx, RequestOptions{
		Method: http.MethodGet,
		Path:   "/api/channels",
	}, &channels)
	if err != nil {
		return nil, err
	}
	return channels, nil
}

// ListDatasources returns the live status of each registered backend.
func (c *Client) ListDatasources(ctx context.Context) ([]models.DatasourceStatus, error) {
	var statuses []models.DatasourceStatus
	err := c.DoJSON(ctx, RequestOptions{
		Method: http.MethodGet,
		Path:   "/api/datasources",
	}, &statuses)
	if err != nil {
		return nil, err
	}
	return statuses, nil
}

// TestDatasource runs a connectivity check against a named backend.
func (c *Client) TestDatasource(ctx context.Context, name string) (bool, error) {
	var result struct {
		Connected bool `json:"connected"`
	}
	err := c.DoJSON(ctx, RequestOptions{
		Method: http.MethodPost,
		Path:   "/api/datasources/" + url.PathEscape(name) + "/test",
	}, &result)
	if err != nil {
		return false, err
	}
	return result.Connected, nil
}

// GetDatasourceLogs returns the diagnostic entries recorded for a backend.
func (c *Client) GetDatasourceLogs(ctx context.Context, name string) ([]models.LogEntry, error) {
	var entries []models.LogEntry
	err := c.DoJSON(ctx, RequestOptions{
		Method: http.MethodGet,
		Path:   "/api/datasources/" + url.PathEscape(name) + "/logs",
	}, &entries)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ListMetrics returns the known metric names per backend.
func (c *Client) ListMetrics(ctx context.Context) (map[string][]string, error) {
	var metrics map[string][]string
	err := c.DoJSON(ctx, RequestOptions{
		Method: http.MethodGet,
		Path:   "/api/datasources/metrics",
	}, &metrics)
	if err != nil {
		return nil, err
	}
	return metrics, nil
}
