package models

import "time"

// DatasourceType distinguishes the two backend classes.
type DatasourceType string

const (
	DatasourcePrometheus DatasourceType = "prometheus"
	DatasourcePostgres   DatasourceType = "postgres"
)

// DatasourceStatus is the operator-facing view of a registered backend. The
// Connected flag is the result of a live check, never a cached value.
type DatasourceStatus struct {
	Name      string         `json:"name"`
	Type      DatasourceType `json:"type"`
	Connected bool           `json:"connected"`
}

// LogLevel is the severity of a diagnostic log entry.
type LogLevel string

const (
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LogEntry is one record in a backend's bounded diagnostic buffer. Used
// purely for operator visibility.
type LogEntry struct {
	Level     LogLevel  `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Panel is the slice of a dashboard panel the alert engine needs: the
// datasource and query targets a rule without its own query falls back to.
type Panel struct {
	ID          int64         `json:"id"`
	DashboardID int64         `json:"dashboard_id"`
	Title       string        `json:"title"`
	Datasource  string        `json:"datasource"`
	Targets     []PanelTarget `json:"targets"`
}

// PanelTarget is a single query attached to a panel.
type PanelTarget struct {
	Datasource string `json:"datasource,omitempty"`
	Query      string `json:"query"`
}
