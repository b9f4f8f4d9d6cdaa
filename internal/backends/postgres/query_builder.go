package postgres

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// identRegex is the strict identifier check applied to every caller-supplied
// table or column name. Identifiers cannot be bound as query parameters, so
// anything failing the check is silently replaced by its safe default rather
// than interpolated.
var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// allowedAggregations is the explicit allow-list for the aggregation
// function, the only piece of caller input interpolated verbatim.
var allowedAggregations = map[string]struct{}{
	"AVG":   {},
	"SUM":   {},
	"MIN":   {},
	"MAX":   {},
	"COUNT": {},
}

const (
	defaultTable       = "metrics"
	defaultTimeColumn  = "timestamp"
	defaultValueColumn = "value"
	defaultAggregation = "AVG"
)

func safeIdentifier(name, fallback string) string {
	if identRegex.MatchString(name) {
		return name
	}
	return fallback
}

func safeAggregation(name string) string {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if _, ok := allowedAggregations[upper]; ok {
		return upper
	}
	return defaultAggregation
}

// timeSeriesQuery describes a parameterized aggregation query over the
// metrics table. Time bounds and the metric filter value are always bound
// parameters, never interpolated.
type timeSeriesQuery struct {
	Table        string
	TimeColumn   string
	ValueColumn  string
	MetricColumn string
	Metric       string
	Aggregation  string
	GroupBy      []string
	From         time.Time
	To           time.Time
}

// build returns the SQL text, its bound arguments, and the group-by columns
// that survived the identifier check.
func (q timeSeriesQuery) build() (string, []any, []string) {
	table := safeIdentifier(q.Table, defaultTable)
	timeCol := safeIdentifier(q.TimeColumn, defaultTimeColumn)
	valueCol := safeIdentifier(q.ValueColumn, defaultValueColumn)
	agg := safeAggregation(q.Aggregation)

	metricCol := ""
	if q.MetricColumn != "" {
		metricCol = safeIdentifier(q.MetricColumn, "")
	}

	groupBy := make([]string, 0, len(q.GroupBy))
	for _, col := range q.GroupBy {
		if identRegex.MatchString(col) {
			groupBy = append(groupBy, col)
		}
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("SELECT DATE_TRUNC('minute', %s) AS timestamp, %s(%s) AS value", timeCol, agg, valueCol))
	if len(groupBy) > 0 {
		sb.WriteString(", " + strings.Join(groupBy, ", "))
	}
	sb.WriteString(fmt.Sprintf(" FROM %s WHERE %s >= $1 AND %s <= $2", table, timeCol, timeCol))

	args := []any{q.From, q.To}
	if metricCol != "" && q.Metric != "" {
		sb.WriteString(fmt.Sprintf(" AND %s = $3", metricCol))
		args = append(args, q.Metric)
	}

	sb.WriteString(" GROUP BY timestamp")
	if len(groupBy) > 0 {
		sb.WriteString(", " + strings.Join(groupBy, ", "))
	}
	sb.WriteString(" ORDER BY timestamp ASC")

	return sb.String(), args, groupBy
}
