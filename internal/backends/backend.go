// Package backends provides a unified query interface over heterogeneous
// time-series backends. It abstracts the differences between the pull-based
// Prometheus backend and the row-oriented PostgreSQL metrics store, so the
// alert evaluator and panel queries work with any registered backend
// transparently.
package backends

import (
	"context"

	"github.com/gaugehq/gauge/pkg/models"
)

// Backend is the capability interface every registered datasource implements.
// Implementations must be safe for concurrent use.
type Backend interface {
	// Type reports the backend class.
	Type() models.DatasourceType

	// RangeQuery executes a range query over the request's time window and
	// returns the result in canonical normalized form. When the request
	// carries no raw query text, the backend builds one from the metric and
	// aggregation options.
	RangeQuery(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error)

	// HealthCheck reports whether the backend is currently reachable.
	HealthCheck(ctx context.Context) bool

	// ListMetricNames returns the known metric names, best effort. Failures
	// yield an empty list, never an error surfaced to the caller.
	ListMetricNames(ctx context.Context) []string

	// Close releases any resources held by the backend.
	Close() error
}
