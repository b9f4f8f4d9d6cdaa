package backends

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/gaugehq/gauge/pkg/models"
)

// DefaultDatasource is used when a query request does not name a backend.
const DefaultDatasource = "prometheus"

// Registry holds the named, health-checked backend instances and routes
// query requests to the right one. It owns one bounded diagnostic log buffer
// per backend name.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
	logs     map[string]*LogBuffer
	log      *slog.Logger
}

// NewRegistry constructs an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		backends: make(map[string]Backend),
		logs:     make(map[string]*LogBuffer),
		log:      logger.With("component", "datasource_registry"),
	}
}

// Register adds a backend under the given name after a connectivity probe.
// An unreachable backend is omitted rather than registered: its absence is
// recorded as a warn entry in the name's diagnostic buffer and startup
// continues.
func (r *Registry) Register(ctx context.Context, name string, backend Backend) {
	if backend.HealthCheck(ctx) {
		r.mu.Lock()
		r.backends[name] = backend
		r.mu.Unlock()
		r.PushLog(name, models.LogLevelInfo, fmt.Sprintf("connected to %s", backend.Type()))
		r.log.Info("datasource connected", "name", name, "type", backend.Type())
		return
	}
	r.PushLog(name, models.LogLevelWarn, fmt.Sprintf("%s not available", backend.Type()))
	r.log.Warn("datasource not available, skipping registration", "name", name, "type", backend.Type())
	_ = backend.Close()
}

// Get returns the backend registered under name.
func (r *Registry) Get(name string) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[name]
	return b, ok
}

// Names returns the registered backend names in stable order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Query dispatches the request to the backend named by req.Datasource,
// defaulting to prometheus. An unknown datasource name is a hard error.
func (r *Registry) Query(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error) {
	name := req.Datasource
	if name == "" {
		name = DefaultDatasource
	}

	backend, ok := r.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDatasource, name)
	}

	r.PushLog(name, models.LogLevelInfo, fmt.Sprintf("query %q from %s to %s", queryLabel(req), req.From, req.To))

	result, err := backend.RangeQuery(ctx, req)
	if err != nil {
		r.PushLog(name, models.LogLevelError, fmt.Sprintf("query error: %v", err))
		return nil, err
	}
	return result, nil
}

func queryLabel(req models.QueryRequest) string {
	if req.Query != "" {
		return req.Query
	}
	return req.Metric
}

// TestConnection runs a live health check against the named backend.
func (r *Registry) TestConnection(ctx context.Context, name string) (bool, error) {
	backend, ok := r.Get(name)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnknownDatasource, name)
	}
	return backend.HealthCheck(ctx), nil
}

// Statuses reports the live health of every registered backend.
func (r *Registry) Statuses(ctx context.Context) []models.DatasourceStatus {
	statuses := make([]models.DatasourceStatus, 0)
	for _, name := range r.Names() {
		backend, _ := r.Get(name)
		statuses = append(statuses, models.DatasourceStatus{
			Name:      name,
			Type:      backend.Type(),
			Connected: backend.HealthCheck(ctx),
		})
	}
	return statuses
}

// ListAvailableMetrics returns the best-effort union of known metric names
// per backend. A backend that fails contributes an empty list.
func (r *Registry) ListAvailableMetrics(ctx context.Context) map[string][]string {
	metrics := make(map[string][]string)
	for _, name := range r.Names() {
		backend, _ := r.Get(name)
		names := backend.ListMetricNames(ctx)
		if names == nil {
			names = []string{}
		}
		metrics[name] = names
	}
	return metrics
}

// PushLog appends a diagnostic entry to the named backend's buffer. Buffers
// are created lazily so entries can be recorded for backends that failed
// registration.
func (r *Registry) PushLog(name string, level models.LogLevel, message string) {
	r.mu.Lock()
	buf, ok := r.logs[name]
	if !ok {
		buf = NewLogBuffer()
		r.logs[name] = buf
	}
	r.mu.Unlock()
	buf.Push(level, message)
}

// GetLogs returns the diagnostic entries recorded for the named backend.
func (r *Registry) GetLogs(name string) []models.LogEntry {
	r.mu.RLock()
	buf, ok := r.logs[name]
	r.mu.RUnlock()
	if !ok {
		return []models.LogEntry{}
	}
	return buf.Entries()
}

// ClearLogs drops the diagnostic entries recorded for the named backend.
func (r *Registry) ClearLogs(name string) {
	r.mu.RLock()
	buf, ok := r.logs[name]
	r.mu.RUnlock()
	if ok {
		buf.Clear()
	}
}

// Close closes all registered backends.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var lastErr error
	for _, backend := range r.backends {
		if err := backend.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
