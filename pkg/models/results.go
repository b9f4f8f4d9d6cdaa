package models

import "time"

// ResultType tags the canonical shape a backend response was normalized into.
type ResultType string

const (
	// ResultTypeTimeseries is a flat, chronologically ordered point list.
	ResultTypeTimeseries ResultType = "timeseries"
	// ResultTypeGrouped is a named list of series, produced when a backend
	// query returns more than one series for the same expression.
	ResultTypeGrouped ResultType = "grouped"
	// ResultTypeRaw is a pass-through row set with no recognizable
	// time/value columns.
	ResultTypeRaw ResultType = "raw"
)

// Point is the canonical post-normalization sample. This is the only shape
// the alert evaluator and panel renderers consume.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Value     float64   `json:"value"`
	// Labels carries group-by column values for row-store queries.
	Labels map[string]string `json:"labels,omitempty"`
}

// GroupedSeries is one named series within a grouped result. Label is the
// metric name followed by the series' non-internal label pairs.
type GroupedSeries struct {
	Label  string  `json:"metric"`
	Points []Point `json:"data"`
}

// QueryResult is the tagged union returned by the datasource registry.
// Exactly one of Data, Series, or Rows is populated, matching Type.
type QueryResult struct {
	Type   ResultType       `json:"type"`
	Data   []Point          `json:"data,omitempty"`
	Series []GroupedSeries  `json:"series,omitempty"`
	Rows   []map[string]any `json:"rows,omitempty"`
}
