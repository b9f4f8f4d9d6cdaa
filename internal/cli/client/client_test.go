package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gaugehq/gauge/pkg/models"
)

func envelope(data any) map[string]any {
	return map[string]any{"status": "success", "data": data}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := New(srv.URL, 5*time.Second)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func TestNewRequiresURL(t *testing.T) {
	if _, err := New("", 0); err == nil {
		t.Error("New(\"\") error = nil, want error")
	}
}

func TestQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/query" {
			t.Errorf("request = %s %s, want POST /api/query", r.Method, r.URL.Path)
		}
		var req models.QueryRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if req.Metric != "cpu_usage" {
			t.Errorf("metric = %q, want cpu_usage", req.Metric)
		}
		json.NewEncoder(w).Encode(envelope(models.QueryResult{
			Type: models.ResultTypeTimeseries,
			Data: []models.Point{{Value: 42}},
		}))
	})

	result, err := c.Query(context.Background(), models.QueryRequest{Metric: "cpu_usage"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if result.Type != models.ResultTypeTimeseries || len(result.Data) != 1 || result.Data[0].Value != 42 {
		t.Errorf("result = %+v, want single point timeseries", result)
	}
}

func TestAPIErrorDecoding(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		json.NewEncoder(w).Encode(map[string]any{
			"status":     "error",
			"message":    "alert not found",
			"error_type": "not_found",
		})
	})

	_, err := c.GetAlert(context.Background(), 99)
	if err == nil {
		t.Fatal("GetAlert() error = nil, want APIError")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.ErrorType != "not_found" {
		t.Errorf("apiErr = %+v, want 404 not_found", apiErr)
	}
}

func TestAPIErrorNonJSONBody(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream exploded"))
	})

	err := c.Health(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want *APIError", err)
	}
	if apiErr.StatusCode != http.StatusBadGateway || apiErr.Message != "upstream exploded" {
		t.Errorf("apiErr = %+v, want raw body preserved", apiErr)
	}
}

func TestListAlertHistoryPassesLimit(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/alerts/3/history" {
			t.Errorf("path = %s, want /api/alerts/3/history", r.URL.Path)
		}
		if got := r.URL.Query().Get("limit"); got != "10" {
			t.Errorf("limit = %q, want 10", got)
		}
		json.NewEncoder(w).Encode(envelope([]*models.AlertHistoryEntry{
			{ID: 1, AlertID: 3, State: models.AlertStateFiring},
		}))
	})

	history, err := c.ListAlertHistory(context.Background(), 3, 10)
	if err != nil {
		t.Fatalf("ListAlertHistory() error = %v", err)
	}
	if len(history) != 1 || history[0].AlertID != 3 {
		t.Errorf("history = %+v, want one entry for alert 3", history)
	}
}

func TestTestDatasource(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/datasources/prometheus/test" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(envelope(map[string]any{"name": "prometheus", "connected": true}))
	})

	connected, err := c.TestDatasource(context.Background(), "prometheus")
	if err != nil {
		t.Fatalf("TestDatasource() error = %v", err)
	}
	if !connected {
		t.Error("connected = false, want true")
	}
}

func TestListMetrics(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(envelope(map[string][]string{
			"prometheus": {"cpu_usage", "mem_usage"},
		}))
	})

	metrics, err := c.ListMetrics(context.Background())
	if err != nil {
		t.Fatalf("ListMetrics() error = %v", err)
	}
	if len(metrics["prometheus"]) != 2 {
		t.Errorf("metrics = %+v, want two prometheus entries", metrics)
	}
}
