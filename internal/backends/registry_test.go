package backends

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/gaugehq/gauge/pkg/models"
)

type fakeBackend struct {
	healthy bool
	result  *models.QueryResult
	err     error
	closed  bool
}

func (f *fakeBackend) Type() models.DatasourceType { return models.DatasourcePrometheus }

func (f *fakeBackend) RangeQuery(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error) {
	return f.result, f.err
}

func (f *fakeBackend) HealthCheck(ctx context.Context) bool { return f.healthy }

func (f *fakeBackend) ListMetricNames(ctx context.Context) []string { return []string{"cpu_usage"} }

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestRegisterSkipsUnreachableBackend(t *testing.T) {
	reg := newTestRegistry()
	down := &fakeBackend{healthy: false}
	reg.Register(context.Background(), "prometheus", down)

	if _, ok := reg.Get("prometheus"); ok {
		t.Error("unreachable backend should not be registered")
	}
	if !down.closed {
		t.Error("unreachable backend should be closed")
	}

	logs := reg.GetLogs("prometheus")
	if len(logs) != 1 || logs[0].Level != models.LogLevelWarn {
		t.Errorf("logs = %v, want a single warn entry", logs)
	}
}

func TestRegisterHealthyBackend(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(context.Background(), "prometheus", &fakeBackend{healthy: true})

	if _, ok := reg.Get("prometheus"); !ok {
		t.Fatal("healthy backend should be registered")
	}
	if names := reg.Names(); len(names) != 1 || names[0] != "prometheus" {
		t.Errorf("names = %v, want [prometheus]", names)
	}
}

func TestQueryDefaultsToPrometheus(t *testing.T) {
	reg := newTestRegistry()
	want := &models.QueryResult{Type: models.ResultTypeTimeseries}
	reg.Register(context.Background(), "prometheus", &fakeBackend{healthy: true, result: want})

	got, err := reg.Query(context.Background(), models.QueryRequest{Metric: "cpu_usage"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if got != want {
		t.Error("result should come from the default backend")
	}
}

func TestQueryUnknownDatasource(t *testing.T) {
	reg := newTestRegistry()
	_, err := reg.Query(context.Background(), models.QueryRequest{Datasource: "influx"})
	if !errors.Is(err, ErrUnknownDatasource) {
		t.Fatalf("error = %v, want ErrUnknownDatasource", err)
	}
}

func TestQueryRecordsErrorLog(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(context.Background(), "prometheus", &fakeBackend{
		healthy: true,
		err:     ErrQueryExecution,
	})

	_, err := reg.Query(context.Background(), models.QueryRequest{Metric: "cpu_usage"})
	if !errors.Is(err, ErrQueryExecution) {
		t.Fatalf("error = %v, want ErrQueryExecution", err)
	}

	logs := reg.GetLogs("prometheus")
	var sawError bool
	for _, entry := range logs {
		if entry.Level == models.LogLevelError {
			sawError = true
		}
	}
	if !sawError {
		t.Error("query failure should be recorded in the diagnostic buffer")
	}
}

func TestClearLogs(t *testing.T) {
	reg := newTestRegistry()
	reg.PushLog("postgres", models.LogLevelInfo, "hello")
	reg.ClearLogs("postgres")
	if logs := reg.GetLogs("postgres"); len(logs) != 0 {
		t.Errorf("logs = %v, want empty after clear", logs)
	}
}

func TestTestConnection(t *testing.T) {
	reg := newTestRegistry()
	reg.Register(context.Background(), "prometheus", &fakeBackend{healthy: true})

	ok, err := reg.TestConnection(context.Background(), "prometheus")
	if err != nil || !ok {
		t.Errorf("TestConnection() = %v, %v, want true, nil", ok, err)
	}

	if _, err := reg.TestConnection(context.Background(), "missing"); !errors.Is(err, ErrUnknownDatasource) {
		t.Errorf("error = %v, want ErrUnknownDatasource", err)
	}
}
