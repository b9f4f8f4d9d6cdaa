package postgres

import (
	"reflect"
	"testing"
	"time"
)

func TestSafeIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		fallback string
		want     string
	}{
		{name: "valid", input: "cpu_usage", fallback: "metrics", want: "cpu_usage"},
		{name: "empty uses fallback", input: "", fallback: "metrics", want: "metrics"},
		{name: "injection uses fallback", input: "metrics; DROP TABLE users", fallback: "metrics", want: "metrics"},
		{name: "leading digit rejected", input: "1metrics", fallback: "metrics", want: "metrics"},
		{name: "quoted rejected", input: `"metrics"`, fallback: "metrics", want: "metrics"},
		{name: "underscore prefix allowed", input: "_internal", fallback: "metrics", want: "_internal"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := safeIdentifier(tt.input, tt.fallback); got != tt.want {
				t.Errorf("safeIdentifier(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSafeAggregation(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{input: "avg", want: "AVG"},
		{input: "SUM", want: "SUM"},
		{input: "Min", want: "MIN"},
		{input: "max", want: "MAX"},
		{input: "count", want: "COUNT"},
		{input: "", want: "AVG"},
		{input: "median", want: "AVG"},
		{input: "SUM(value); --", want: "AVG"},
	}

	for _, tt := range tests {
		if got := safeAggregation(tt.input); got != tt.want {
			t.Errorf("safeAggregation(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestTimeSeriesQueryBuild(t *testing.T) {
	from := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 1, 11, 0, 0, 0, time.UTC)

	t.Run("metric filter is bound", func(t *testing.T) {
		q := timeSeriesQuery{
			Table:        "metrics",
			TimeColumn:   "timestamp",
			ValueColumn:  "value",
			MetricColumn: "metric_name",
			Metric:       "cpu_usage",
			Aggregation:  "avg",
			From:         from,
			To:           to,
		}
		sqlText, args, groupBy := q.build()

		wantSQL := "SELECT DATE_TRUNC('minute', timestamp) AS timestamp, AVG(value) AS value" +
			" FROM metrics WHERE timestamp >= $1 AND timestamp <= $2 AND metric_name = $3" +
			" GROUP BY timestamp ORDER BY timestamp ASC"
		if sqlText != wantSQL {
			t.Errorf("sql = %q, want %q", sqlText, wantSQL)
		}
		if !reflect.DeepEqual(args, []any{from, to, "cpu_usage"}) {
			t.Errorf("args = %v, want [from to cpu_usage]", args)
		}
		if len(groupBy) != 0 {
			t.Errorf("groupBy = %v, want empty", groupBy)
		}
	})

	t.Run("no metric filter without metric", func(t *testing.T) {
		q := timeSeriesQuery{
			Table:        "metrics",
			MetricColumn: "metric_name",
			From:         from,
			To:           to,
		}
		sqlText, args, _ := q.build()

		wantSQL := "SELECT DATE_TRUNC('minute', timestamp) AS timestamp, AVG(value) AS value" +
			" FROM metrics WHERE timestamp >= $1 AND timestamp <= $2" +
			" GROUP BY timestamp ORDER BY timestamp ASC"
		if sqlText != wantSQL {
			t.Errorf("sql = %q, want %q", sqlText, wantSQL)
		}
		if len(args) != 2 {
			t.Errorf("args = %v, want time bounds only", args)
		}
	})

	t.Run("group by columns survive and join clauses", func(t *testing.T) {
		q := timeSeriesQuery{
			Table:       "samples",
			TimeColumn:  "ts",
			ValueColumn: "val",
			Aggregation: "max",
			GroupBy:     []string{"host", "region"},
			From:        from,
			To:          to,
		}
		sqlText, _, groupBy := q.build()

		wantSQL := "SELECT DATE_TRUNC('minute', ts) AS timestamp, MAX(val) AS value, host, region" +
			" FROM samples WHERE ts >= $1 AND ts <= $2" +
			" GROUP BY timestamp, host, region ORDER BY timestamp ASC"
		if sqlText != wantSQL {
			t.Errorf("sql = %q, want %q", sqlText, wantSQL)
		}
		if !reflect.DeepEqual(groupBy, []string{"host", "region"}) {
			t.Errorf("groupBy = %v, want [host region]", groupBy)
		}
	})

	t.Run("invalid group by columns dropped", func(t *testing.T) {
		q := timeSeriesQuery{
			GroupBy: []string{"host", "region; DROP TABLE metrics", "1bad"},
			From:    from,
			To:      to,
		}
		_, _, groupBy := q.build()
		if !reflect.DeepEqual(groupBy, []string{"host"}) {
			t.Errorf("groupBy = %v, want [host]", groupBy)
		}
	})

	t.Run("unsafe identifiers fall back to defaults", func(t *testing.T) {
		q := timeSeriesQuery{
			Table:       "metrics; --",
			TimeColumn:  "ts)",
			ValueColumn: "drop table",
			From:        from,
			To:          to,
		}
		sqlText, _, _ := q.build()

		wantSQL := "SELECT DATE_TRUNC('minute', timestamp) AS timestamp, AVG(value) AS value" +
			" FROM metrics WHERE timestamp >= $1 AND timestamp <= $2" +
			" GROUP BY timestamp ORDER BY timestamp ASC"
		if sqlText != wantSQL {
			t.Errorf("sql = %q, want %q", sqlText, wantSQL)
		}
	})
}
