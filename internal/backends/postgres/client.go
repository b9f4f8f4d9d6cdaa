// Package postgres implements the row-store metrics backend over a
// PostgreSQL table queried with parameterized aggregation SQL.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/gaugehq/gauge/internal/backends"
	"github.com/gaugehq/gauge/internal/timerange"
	"github.com/gaugehq/gauge/pkg/models"
)

const (
	defaultMetricColumn  = "metric_name"
	defaultQueryTimeout  = 30 * time.Second
	defaultHealthTimeout = 5 * time.Second
)

var _ backends.Backend = (*Client)(nil)

// Client queries a PostgreSQL metrics table.
type Client struct {
	db            *sql.DB
	table         string
	timeColumn    string
	valueColumn   string
	metricColumn  string
	queryTimeout  time.Duration
	healthTimeout time.Duration
	logger        *slog.Logger
}

// Options configures a Client. The zero values of the table and column
// fields select the conventional metrics-table layout.
type Options struct {
	URL           string
	Table         string
	TimeColumn    string
	ValueColumn   string
	MetricColumn  string
	QueryTimeout  time.Duration
	HealthTimeout time.Duration
}

// New opens a connection pool against the metrics database. Connectivity is
// probed separately through HealthCheck so an unreachable store does not
// fail construction.
func New(opts Options, logger *slog.Logger) (*Client, error) {
	if opts.URL == "" {
		return nil, fmt.Errorf("postgres URL is required")
	}

	db, err := sql.Open("pgx", opts.URL)
	if err != nil {
		return nil, fmt.Errorf("opening metrics database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxIdleTime(30 * time.Second)

	queryTimeout := opts.QueryTimeout
	if queryTimeout <= 0 {
		queryTimeout = defaultQueryTimeout
	}
	healthTimeout := opts.HealthTimeout
	if healthTimeout <= 0 {
		healthTimeout = defaultHealthTimeout
	}

	metricColumn := opts.MetricColumn
	if metricColumn == "" {
		metricColumn = defaultMetricColumn
	}

	return &Client{
		db:            db,
		table:         safeIdentifier(opts.Table, defaultTable),
		timeColumn:    safeIdentifier(opts.TimeColumn, defaultTimeColumn),
		valueColumn:   safeIdentifier(opts.ValueColumn, defaultValueColumn),
		metricColumn:  safeIdentifier(metricColumn, defaultMetricColumn),
		queryTimeout:  queryTimeout,
		healthTimeout: healthTimeout,
		logger:        logger.With("component", "postgres_backend"),
	}, nil
}

// Type reports the backend class.
func (c *Client) Type() models.DatasourceType {
	return models.DatasourcePostgres
}

// RangeQuery executes either a raw pass-through query with $__from/$__to
// substitution, or a parameterized aggregation query built from the request's
// metric and group-by options.
func (c *Client) RangeQuery(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error) {
	from, to := timerange.Resolve(req.From, req.To)

	ctx, cancel := context.WithTimeout(ctx, c.queryTimeout)
	defer cancel()

	if req.Query != "" {
		rows, err := c.queryRows(ctx, timerange.InterpolateSQL(req.Query, from, to))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", backends.ErrQueryExecution, err)
		}
		return backends.NormalizeRows(rows), nil
	}

	query := timeSeriesQuery{
		Table:        c.table,
		TimeColumn:   c.timeColumn,
		ValueColumn:  c.valueColumn,
		MetricColumn: c.metricColumn,
		Metric:       req.Metric,
		Aggregation:  req.Aggregation,
		GroupBy:      req.GroupBy,
		From:         from,
		To:           to,
	}
	sqlText, args, groupBy := query.build()
	c.logger.Debug("executing timeseries query", "sql", sqlText, "metric", req.Metric)

	points, err := c.queryPoints(ctx, sqlText, args, groupBy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", backends.ErrQueryExecution, err)
	}
	return &models.QueryResult{Type: models.ResultTypeTimeseries, Data: points}, nil
}

func (c *Client) queryPoints(ctx context.Context, sqlText string, args []any, groupBy []string) ([]models.Point, error) {
	rows, err := c.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	points := make([]models.Point, 0)
	for rows.Next() {
		dest := make([]any, 2+len(groupBy))
		var ts time.Time
		var value sql.NullFloat64
		dest[0] = &ts
		dest[1] = &value
		labels := make([]sql.NullString, len(groupBy))
		for i := range groupBy {
			dest[2+i] = &labels[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if !value.Valid {
			continue
		}
		point := models.Point{Timestamp: ts, Value: value.Float64}
		if len(groupBy) > 0 {
			point.Labels = make(map[string]string, len(groupBy))
			for i, col := range groupBy {
				point.Labels[col] = labels[i].String
			}
		}
		points = append(points, point)
	}
	return points, rows.Err()
}

// queryRows runs raw query text and scans the result into generic row maps.
func (c *Client) queryRows(ctx context.Context, sqlText string) ([]map[string]any, error) {
	rows, err := c.db.QueryContext(ctx, sqlText)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := make([]map[string]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			row[col] = normalizeDBValue(values[i])
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// normalizeDBValue converts driver byte slices to strings, parsing numerics
// where possible so downstream introspection sees usable values.
func normalizeDBValue(v any) any {
	b, ok := v.([]byte)
	if !ok {
		return v
	}
	s := string(b)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return s
}

// HealthCheck pings the database.
func (c *Client) HealthCheck(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()
	return c.db.PingContext(ctx) == nil
}

// ListMetricNames returns the distinct metric names in the metrics table,
// best effort.
func (c *Client) ListMetricNames(ctx context.Context) []string {
	ctx, cancel := context.WithTimeout(ctx, c.healthTimeout)
	defer cancel()

	sqlText := fmt.Sprintf("SELECT DISTINCT %s FROM %s ORDER BY %s", c.metricColumn, c.table, c.metricColumn)
	rows, err := c.db.QueryContext(ctx, sqlText)
	if err != nil {
		c.logger.Debug("metric name listing failed", "error", err)
		return nil
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil
		}
		names = append(names, name)
	}
	if rows.Err() != nil {
		return nil
	}
	return names
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.db.Close()
}
