package backends

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/prometheus/common/model"

	"github.com/gaugehq/gauge/pkg/models"
)

// NativeSeries is one series of a pull-metrics range response in its wire
// shape: a label set and a list of [epochSeconds, "stringValue"] pairs. The
// pairs are kept raw so malformed points can be dropped individually instead
// of failing the whole response.
type NativeSeries struct {
	Metric model.Metric        `json:"metric"`
	Values [][]json.RawMessage `json:"values"`
}

// timeFields and valueFields are the column names a raw row set is
// introspected for, in priority order.
var (
	timeFields  = []string{"time", "timestamp", "ts", "date"}
	valueFields = []string{"value", "val"}
)

// NormalizeSeriesSet converts a pull-metrics response into the canonical
// result shape: a single series becomes a flat timeseries, multiple series
// become a grouped result with one entry per label set. Malformed points are
// dropped, never coerced to zero.
func NormalizeSeriesSet(set []NativeSeries) *models.QueryResult {
	if len(set) > 1 {
		series := make([]models.GroupedSeries, 0, len(set))
		for _, s := range set {
			series = append(series, models.GroupedSeries{
				Label:  s.Metric.String(),
				Points: extractPoints(s.Values),
			})
		}
		return &models.QueryResult{Type: models.ResultTypeGrouped, Series: series}
	}

	var points []models.Point
	if len(set) == 1 {
		points = extractPoints(set[0].Values)
	}
	return &models.QueryResult{Type: models.ResultTypeTimeseries, Data: points}
}

// extractPoints coerces raw [timestamp, value] pairs into canonical points.
// Timestamps are UNIX seconds with fractional resolution; they are scaled to
// milliseconds before conversion to an absolute instant.
func extractPoints(values [][]json.RawMessage) []models.Point {
	points := make([]models.Point, 0, len(values))
	for _, pair := range values {
		if len(pair) != 2 {
			continue
		}
		var epoch float64
		if err := json.Unmarshal(pair[0], &epoch); err != nil {
			continue
		}
		value, ok := coerceJSONValue(pair[1])
		if !ok {
			continue
		}
		points = append(points, models.Point{
			Timestamp: time.UnixMilli(int64(epoch * 1000)),
			Value:     value,
		})
	}
	return points
}

func coerceJSONValue(raw json.RawMessage) (float64, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f, true
	}
	return 0, false
}

// NormalizeRows opportunistically converts a raw row set into a timeseries
// when the rows carry recognizable time and value columns; otherwise the
// rows pass through as an opaque result.
func NormalizeRows(rows []map[string]any) *models.QueryResult {
	if len(rows) == 0 {
		return &models.QueryResult{Type: models.ResultTypeRaw, Rows: rows}
	}

	timeField := findField(rows[0], timeFields)
	valueField := findField(rows[0], valueFields)
	if timeField == "" || valueField == "" {
		return &models.QueryResult{Type: models.ResultTypeRaw, Rows: rows}
	}

	points := make([]models.Point, 0, len(rows))
	for _, row := range rows {
		ts, ok := coerceTime(row[timeField])
		if !ok {
			continue
		}
		value, ok := coerceNumeric(row[valueField])
		if !ok {
			continue
		}
		points = append(points, models.Point{Timestamp: ts, Value: value})
	}
	return &models.QueryResult{Type: models.ResultTypeTimeseries, Data: points}
}

func findField(row map[string]any, candidates []string) string {
	for _, name := range candidates {
		if v, ok := row[name]; ok && v != nil {
			return name
		}
	}
	return ""
}

func coerceTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		for _, format := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
			if parsed, err := time.Parse(format, t); err == nil {
				return parsed, true
			}
		}
	}
	return time.Time{}, false
}

func coerceNumeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n) && !math.IsInf(n, 0)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}
