package backends

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/prometheus/common/model"

	"github.com/gaugehq/gauge/pkg/models"
)

func rawPair(ts, value string) []json.RawMessage {
	return []json.RawMessage{json.RawMessage(ts), json.RawMessage(value)}
}

func TestNormalizeSeriesSetSingleSeries(t *testing.T) {
	set := []NativeSeries{
		{
			Metric: model.Metric{"__name__": "cpu_usage", "instance": "host-1"},
			Values: [][]json.RawMessage{
				rawPair("1700000000", `"42.5"`),
				rawPair("1700000060", `"43.1"`),
			},
		},
	}

	result := NormalizeSeriesSet(set)
	if result.Type != models.ResultTypeTimeseries {
		t.Fatalf("type = %q, want timeseries", result.Type)
	}
	if len(result.Data) != 2 {
		t.Fatalf("points = %d, want 2", len(result.Data))
	}
	if result.Data[0].Value != 42.5 {
		t.Errorf("first value = %v, want 42.5", result.Data[0].Value)
	}
	want := time.UnixMilli(1700000000 * 1000)
	if !result.Data[0].Timestamp.Equal(want) {
		t.Errorf("first timestamp = %v, want %v", result.Data[0].Timestamp, want)
	}
}

func TestNormalizeSeriesSetGrouped(t *testing.T) {
	set := []NativeSeries{
		{
			Metric: model.Metric{"__name__": "cpu_usage", "instance": "host-1"},
			Values: [][]json.RawMessage{rawPair("1700000000", `"1"`)},
		},
		{
			Metric: model.Metric{"__name__": "cpu_usage", "instance": "host-2"},
			Values: [][]json.RawMessage{rawPair("1700000000", `"2"`)},
		},
	}

	result := NormalizeSeriesSet(set)
	if result.Type != models.ResultTypeGrouped {
		t.Fatalf("type = %q, want grouped", result.Type)
	}
	if len(result.Series) != 2 {
		t.Fatalf("series = %d, want 2", len(result.Series))
	}
	if result.Series[0].Label != `cpu_usage{instance="host-1"}` {
		t.Errorf("label = %q, want metric name with non-name labels", result.Series[0].Label)
	}
}

func TestNormalizeSeriesSetEmpty(t *testing.T) {
	result := NormalizeSeriesSet(nil)
	if result.Type != models.ResultTypeTimeseries {
		t.Fatalf("type = %q, want timeseries", result.Type)
	}
	if len(result.Data) != 0 {
		t.Errorf("points = %d, want 0", len(result.Data))
	}
}

func TestExtractPointsDropsMalformed(t *testing.T) {
	values := [][]json.RawMessage{
		rawPair("1700000000", `"1.5"`),
		{json.RawMessage("1700000060")},
		rawPair("1700000120", `"NaN"`),
		rawPair("1700000180", `"+Inf"`),
		rawPair(`"not-a-time"`, `"2"`),
		rawPair("1700000240", `"3.5"`),
		rawPair("1700000300", "4.25"),
	}

	points := extractPoints(values)
	if len(points) != 3 {
		t.Fatalf("points = %d, want 3 (malformed dropped, not zeroed)", len(points))
	}
	if points[0].Value != 1.5 || points[1].Value != 3.5 || points[2].Value != 4.25 {
		t.Errorf("values = %v %v %v, want 1.5 3.5 4.25", points[0].Value, points[1].Value, points[2].Value)
	}
}

func TestNormalizeRowsTimeseries(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := []map[string]any{
		{"time": now, "value": 12.5},
		{"time": now.Add(time.Minute), "value": "13.5"},
		{"time": "bogus", "value": 14.0},
	}

	result := NormalizeRows(rows)
	if result.Type != models.ResultTypeTimeseries {
		t.Fatalf("type = %q, want timeseries", result.Type)
	}
	if len(result.Data) != 2 {
		t.Fatalf("points = %d, want 2", len(result.Data))
	}
	if result.Data[1].Value != 13.5 {
		t.Errorf("second value = %v, want 13.5", result.Data[1].Value)
	}
}

func TestNormalizeRowsFieldPriority(t *testing.T) {
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	rows := []map[string]any{
		{"ts": now, "val": 7.0, "label": "a"},
	}

	result := NormalizeRows(rows)
	if result.Type != models.ResultTypeTimeseries {
		t.Fatalf("type = %q, want timeseries", result.Type)
	}
	if len(result.Data) != 1 || result.Data[0].Value != 7.0 {
		t.Errorf("points = %v, want single point with value 7", result.Data)
	}
}

func TestNormalizeRowsOpaquePassthrough(t *testing.T) {
	rows := []map[string]any{
		{"name": "cpu", "count": 3},
	}

	result := NormalizeRows(rows)
	if result.Type != models.ResultTypeRaw {
		t.Fatalf("type = %q, want raw", result.Type)
	}
	if len(result.Rows) != 1 {
		t.Errorf("rows = %d, want 1", len(result.Rows))
	}
}

func TestNormalizeRowsEmpty(t *testing.T) {
	result := NormalizeRows(nil)
	if result.Type != models.ResultTypeRaw {
		t.Fatalf("type = %q, want raw", result.Type)
	}
}
