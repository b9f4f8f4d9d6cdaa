package prometheus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gaugehq/gauge/internal/backends"
	"github.com/gaugehq/gauge/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(Options{URL: server.URL}, testLogger())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client, server
}

func TestRangeQuerySuccess(t *testing.T) {
	var gotQuery, gotStep string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/query_range" {
			t.Errorf("path = %q, want /api/v1/query_range", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("query")
		gotStep = r.URL.Query().Get("step")
		w.Write([]byte(`{
			"status": "success",
			"data": {
				"resultType": "matrix",
				"result": [{
					"metric": {"__name__": "cpu_usage", "instance": "host-1"},
					"values": [[1700000000, "42.5"], [1700000060, "43"]]
				}]
			}
		}`))
	}))

	result, err := client.RangeQuery(context.Background(), models.QueryRequest{
		Metric:      "cpu_usage",
		Aggregation: "avg",
		From:        "now-1h",
		To:          "now",
	})
	if err != nil {
		t.Fatalf("RangeQuery() error = %v", err)
	}
	if gotQuery != "avg(cpu_usage)" {
		t.Errorf("query param = %q, want avg(cpu_usage)", gotQuery)
	}
	if gotStep != DefaultStep {
		t.Errorf("step param = %q, want %q", gotStep, DefaultStep)
	}
	if result.Type != models.ResultTypeTimeseries {
		t.Fatalf("type = %q, want timeseries", result.Type)
	}
	if len(result.Data) != 2 || result.Data[0].Value != 42.5 {
		t.Errorf("points = %v, want two points starting at 42.5", result.Data)
	}
}

func TestRangeQueryRawQueryWins(t *testing.T) {
	var gotQuery string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("query")
		w.Write([]byte(`{"status": "success", "data": {"resultType": "matrix", "result": []}}`))
	}))

	_, err := client.RangeQuery(context.Background(), models.QueryRequest{
		Query:  `up{job="api"}`,
		Metric: "ignored_metric",
	})
	if err != nil {
		t.Fatalf("RangeQuery() error = %v", err)
	}
	if gotQuery != `up{job="api"}` {
		t.Errorf("query param = %q, want the raw query untouched", gotQuery)
	}
}

func TestRangeQueryServerError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "query processing would load too many samples", http.StatusUnprocessableEntity)
	}))

	_, err := client.RangeQuery(context.Background(), models.QueryRequest{Metric: "cpu_usage"})
	if !errors.Is(err, backends.ErrQueryExecution) {
		t.Fatalf("error = %v, want ErrQueryExecution", err)
	}
}

func TestRangeQueryNonSuccessStatus(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "error", "data": {}}`))
	}))

	_, err := client.RangeQuery(context.Background(), models.QueryRequest{Metric: "cpu_usage"})
	if !errors.Is(err, backends.ErrQueryExecution) {
		t.Fatalf("error = %v, want ErrQueryExecution", err)
	}
}

func TestRangeQueryRequiresQueryOrMetric(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request should be issued")
	}))

	_, err := client.RangeQuery(context.Background(), models.QueryRequest{})
	if !errors.Is(err, backends.ErrQueryExecution) {
		t.Fatalf("error = %v, want ErrQueryExecution", err)
	}
}

func TestHealthCheck(t *testing.T) {
	healthy, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/status/buildinfo" {
			t.Errorf("path = %q, want /api/v1/status/buildinfo", r.URL.Path)
		}
		w.Write([]byte(`{"status": "success"}`))
	}))
	if !healthy.HealthCheck(context.Background()) {
		t.Error("HealthCheck() = false, want true")
	}

	down, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	if down.HealthCheck(context.Background()) {
		t.Error("HealthCheck() = true, want false")
	}
}

func TestListMetricNames(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/label/__name__/values" {
			t.Errorf("path = %q, want label values endpoint", r.URL.Path)
		}
		w.Write([]byte(`{"status": "success", "data": ["cpu_usage", "memory_bytes"]}`))
	}))

	names := client.ListMetricNames(context.Background())
	if len(names) != 2 || names[0] != "cpu_usage" {
		t.Errorf("names = %v, want [cpu_usage memory_bytes]", names)
	}
}
