package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gaugehq/gauge/internal/backends"
	"github.com/gaugehq/gauge/internal/config"
	"github.com/gaugehq/gauge/internal/sqlite"
	"github.com/gaugehq/gauge/pkg/models"
)

type stubBackend struct {
	result  *models.QueryResult
	err     error
	lastReq models.QueryRequest
}

func (b *stubBackend) Type() models.DatasourceType { return models.DatasourcePrometheus }

func (b *stubBackend) RangeQuery(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error) {
	b.lastReq = req
	return b.result, b.err
}

func (b *stubBackend) HealthCheck(ctx context.Context) bool { return true }

func (b *stubBackend) ListMetricNames(ctx context.Context) []string { return []string{"cpu_usage"} }

func (b *stubBackend) Close() error { return nil }

func newTestServer(t *testing.T, backend backends.Backend) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := sqlite.New(sqlite.Options{
		Logger: logger,
		Config: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "gauge.db")},
	})
	if err != nil {
		t.Fatalf("sqlite.New() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })

	registry := backends.NewRegistry(logger)
	if backend != nil {
		registry.Register(context.Background(), "prometheus", backend)
	}

	return New(Options{
		Config:   config.Default().Server,
		SQLite:   db,
		Registry: registry,
		Logger:   logger,
	})
}

func doJSON(t *testing.T, s *Server, method, path string, body any) (*http.Response, APIResponse) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}

	var envelope APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decoding envelope: %v", err)
	}
	return resp, envelope
}

func TestHealthEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	resp, envelope := doJSON(t, s, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK || envelope.Status != "success" {
		t.Errorf("health = %d %q, want 200 success", resp.StatusCode, envelope.Status)
	}
}

func TestQueryEndpoint(t *testing.T) {
	s := newTestServer(t, &stubBackend{
		result: &models.QueryResult{Type: models.ResultTypeTimeseries, Data: []models.Point{{Value: 42}}},
	})

	resp, envelope := doJSON(t, s, http.MethodPost, "/api/query", models.QueryRequest{Metric: "cpu_usage"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	data, _ := json.Marshal(envelope.Data)
	var result models.QueryResult
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if result.Type != models.ResultTypeTimeseries || len(result.Data) != 1 {
		t.Errorf("result = %+v, want single-point timeseries", result)
	}
}

func TestQueryEndpointSubstitutesVariables(t *testing.T) {
	backend := &stubBackend{
		result: &models.QueryResult{Type: models.ResultTypeTimeseries},
	}
	s := newTestServer(t, backend)

	resp, _ := doJSON(t, s, http.MethodPost, "/api/query", map[string]any{
		"query": "avg(cpu_usage{instance={{instance}}})",
		"variables": []map[string]any{
			{"name": "instance", "type": "string", "value": "host-1"},
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if want := "avg(cpu_usage{instance='host-1'})"; backend.lastReq.Query != want {
		t.Errorf("query = %q, want %q", backend.lastReq.Query, want)
	}

	resp, envelope := doJSON(t, s, http.MethodPost, "/api/query", map[string]any{
		"query": "avg(cpu_usage{instance={{instance}}})",
		"variables": []map[string]any{
			{"name": "other", "type": "string", "value": "host-1"},
		},
	})
	if resp.StatusCode != http.StatusBadRequest || envelope.ErrorType != models.ValidationErrorType {
		t.Errorf("response = %d %q, want 400 validation for undefined variable", resp.StatusCode, envelope.ErrorType)
	}
}

func TestQueryEndpointValidation(t *testing.T) {
	s := newTestServer(t, &stubBackend{})

	resp, envelope := doJSON(t, s, http.MethodPost, "/api/query", models.QueryRequest{})
	if resp.StatusCode != http.StatusBadRequest || envelope.ErrorType != models.ValidationErrorType {
		t.Errorf("response = %d %q, want 400 validation", resp.StatusCode, envelope.ErrorType)
	}

	resp, envelope = doJSON(t, s, http.MethodPost, "/api/query", models.QueryRequest{
		Datasource: "influx", Metric: "cpu_usage",
	})
	if resp.StatusCode != http.StatusNotFound || envelope.ErrorType != models.NotFoundErrorType {
		t.Errorf("response = %d %q, want 404 not_found for unknown datasource", resp.StatusCode, envelope.ErrorType)
	}
}

func TestAlertLifecycleOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)

	resp, envelope := doJSON(t, s, http.MethodPost, "/api/alerts", models.CreateAlertRequest{
		Name:       "high cpu",
		Datasource: "prometheus",
		Query:      "avg(cpu_usage)",
		Comparator: models.ComparatorGreaterThan,
		Threshold:  80,
		IsEnabled:  true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d (%s), want 201", resp.StatusCode, envelope.Message)
	}
	data, _ := json.Marshal(envelope.Data)
	var created models.Alert
	if err := json.Unmarshal(data, &created); err != nil {
		t.Fatalf("decoding alert: %v", err)
	}
	if created.ID == 0 || created.State != models.AlertStatePending {
		t.Errorf("created = %+v, want pending rule with id", created)
	}

	resp, _ = doJSON(t, s, http.MethodGet, "/api/alerts/1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("get status = %d, want 200", resp.StatusCode)
	}

	resp, envelope = doJSON(t, s, http.MethodGet, "/api/alerts/1/history", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("history status = %d, want 200", resp.StatusCode)
	}

	resp, _ = doJSON(t, s, http.MethodDelete, "/api/alerts/1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("delete status = %d, want 200", resp.StatusCode)
	}
	resp, _ = doJSON(t, s, http.MethodGet, "/api/alerts/1", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("get after delete status = %d, want 404", resp.StatusCode)
	}
}

func TestAlertValidationOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)

	max := 50.0
	resp, envelope := doJSON(t, s, http.MethodPost, "/api/alerts", models.CreateAlertRequest{
		Name:         "bad range",
		Query:        "avg(cpu_usage)",
		Comparator:   models.ComparatorWithinRange,
		Threshold:    80,
		ThresholdMax: &max,
	})
	if resp.StatusCode != http.StatusBadRequest || envelope.ErrorType != models.ValidationErrorType {
		t.Errorf("response = %d %q, want 400 validation for inverted range", resp.StatusCode, envelope.ErrorType)
	}
}

func TestChannelValidationOverHTTP(t *testing.T) {
	s := newTestServer(t, nil)

	resp, envelope := doJSON(t, s, http.MethodPost, "/api/channels", models.CreateChannelRequest{
		Name: "ops",
		Type: models.ChannelSlack,
	})
	if resp.StatusCode != http.StatusBadRequest || envelope.ErrorType != models.ValidationErrorType {
		t.Errorf("response = %d %q, want 400 validation for missing url", resp.StatusCode, envelope.ErrorType)
	}

	resp, _ = doJSON(t, s, http.MethodPost, "/api/channels", models.CreateChannelRequest{
		Name:      "ops",
		Type:      models.ChannelSlack,
		Config:    models.ChannelConfig{URL: "https://hooks.slack.example/T/B"},
		IsEnabled: true,
	})
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("create status = %d, want 201", resp.StatusCode)
	}
}

func TestDatasourceEndpoints(t *testing.T) {
	s := newTestServer(t, &stubBackend{})

	resp, _ := doJSON(t, s, http.MethodGet, "/api/datasources", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("list status = %d, want 200", resp.StatusCode)
	}

	resp, _ = doJSON(t, s, http.MethodPost, "/api/datasources/prometheus/test", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("test status = %d, want 200", resp.StatusCode)
	}

	resp, envelope := doJSON(t, s, http.MethodPost, "/api/datasources/influx/test", nil)
	if resp.StatusCode != http.StatusNotFound || envelope.ErrorType != models.NotFoundErrorType {
		t.Errorf("unknown test = %d %q, want 404 not_found", resp.StatusCode, envelope.ErrorType)
	}

	resp, _ = doJSON(t, s, http.MethodGet, "/api/datasources/prometheus/logs", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("logs status = %d, want 200", resp.StatusCode)
	}

	resp, _ = doJSON(t, s, http.MethodGet, "/api/datasources/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("metrics status = %d, want 200", resp.StatusCode)
	}
}
