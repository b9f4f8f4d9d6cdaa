package prometheus

import (
	"fmt"
	"strings"
)

// DefaultRateInterval is the lookback used inside rate() when unspecified.
const DefaultRateInterval = "5m"

// QueryOptions control how a query expression is built from a bare metric
// name.
type QueryOptions struct {
	Aggregation  string
	GroupBy      []string
	Rate         bool
	RateInterval string
}

// BuildQuery composes a query expression from a metric name: an optional
// rate() wrap, an optional aggregation wrap, and an optional by (labels...)
// suffix. An empty metric yields an empty query.
func BuildQuery(metric string, opts QueryOptions) string {
	if metric == "" {
		return ""
	}

	query := metric

	if opts.Rate {
		interval := opts.RateInterval
		if interval == "" {
			interval = DefaultRateInterval
		}
		query = fmt.Sprintf("rate(%s[%s])", query, interval)
	}

	if opts.Aggregation != "" && opts.Aggregation != "none" {
		query = fmt.Sprintf("%s(%s)", opts.Aggregation, query)
	}

	if len(opts.GroupBy) > 0 {
		query += fmt.Sprintf(" by (%s)", strings.Join(opts.GroupBy, ", "))
	}

	return query
}
