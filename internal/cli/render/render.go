// Package render provides output rendering for the Gauge CLI.
package render

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/gaugehq/gauge/pkg/models"
)

// Valid output formats.
const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatCSV   = "csv"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))

	stateStyles = map[models.AlertState]lipgloss.Style{
		models.AlertStateFiring:  lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true),
		models.AlertStateOK:      lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")),
		models.AlertStatePending: lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")),
	}
)

// Renderer writes CLI output in one of the supported formats.
type Renderer struct {
	w      io.Writer
	format string
	color  bool
}

// New creates a renderer. An empty format defaults to table.
func New(w io.Writer, format string, color bool) (*Renderer, error) {
	if format == "" {
		format = FormatTable
	}
	switch format {
	case FormatTable, FormatJSON, FormatCSV:
	default:
		return nil, fmt.Errorf("unknown output format: %s (valid: table, json, csv)", format)
	}
	return &Renderer{w: w, format: format, color: color}, nil
}

// QueryResult renders a normalized query result.
func (r *Renderer) QueryResult(result *models.QueryResult) error {
	if r.format == FormatJSON {
		return r.renderJSON(result)
	}

	switch result.Type {
	case models.ResultTypeTimeseries:
		return r.renderRows(
			[]string{"TIMESTAMP", "VALUE"},
			pointRows(result.Data, nil),
		)
	case models.ResultTypeGrouped:
		var rows [][]string
		for _, series := range result.Series {
			rows = append(rows, pointRows(series.Points, func(p models.Point) string { return series.Label })...)
		}
		return r.renderRows([]string{"TIMESTAMP", "VALUE", "SERIES"}, rows)
	case models.ResultTypeRaw:
		return r.renderRawRows(result.Rows)
	default:
		return fmt.Errorf("unknown result type: %s", result.Type)
	}
}

func pointRows(points []models.Point, label func(models.Point) string) [][]string {
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		row := []string{
			p.Timestamp.UTC().Format(time.RFC3339),
			strconv.FormatFloat(p.Value, 'f', -1, 64),
		}
		if label != nil {
			row = append(row, label(p))
		}
		rows = append(rows, row)
	}
	return rows
}

func (r *Renderer) renderRawRows(rows []map[string]any) error {
	if len(rows) == 0 {
		fmt.Fprintln(r.w, "No results.")
		return nil
	}

	// Stable column order: first row's keys, sorted.
	columns := make([]string, 0, len(rows[0]))
	for key := range rows[0] {
		columns = append(columns, key)
	}
	sort.Strings(columns)

	out := make([][]string, 0, len(rows))
	for _, row := range rows {
		line := make([]string, len(columns))
		for i, col := range columns {
			line[i] = formatCell(row[col])
		}
		out = append(out, line)
	}

	headers := make([]string, len(columns))
	for i, col := range columns {
		headers[i] = strings.ToUpper(col)
	}
	return r.renderRows(headers, out)
}

// Alerts renders a list of alert rules.
func (r *Renderer) Alerts(alerts []*models.Alert) error {
	if r.format == FormatJSON {
		return r.renderJSON(alerts)
	}

	rows := make([][]string, 0, len(alerts))
	for _, a := range alerts {
		rows = append(rows, []string{
			strconv.FormatInt(int64(a.ID), 10),
			a.Name,
			r.state(a.State),
			string(a.Comparator),
			strconv.FormatFloat(a.Threshold, 'f', -1, 64),
			a.Frequency,
			enabledLabel(a.IsEnabled),
		})
	}
	return r.renderRows([]string{"ID", "NAME", "STATE", "COND", "THRESHOLD", "EVERY", "ENABLED"}, rows)
}

// AlertHistory renders a rule's evaluation history.
func (r *Renderer) AlertHistory(history []*models.AlertHistoryEntry) error {
	if r.format == FormatJSON {
		return r.renderJSON(history)
	}

	rows := make([][]string, 0, len(history))
	for _, h := range history {
		rows = append(rows, []string{
			h.TriggeredAt.UTC().Format(time.RFC3339),
			r.state(h.State),
			strconv.FormatFloat(h.Value, 'f', -1, 64),
			strconv.FormatFloat(h.Threshold, 'f', -1, 64),
			notifiedLabel(h.NotificationSent),
		})
	}
	return r.renderRows([]string{"TRIGGERED", "STATE", "VALUE", "THRESHOLD", "NOTIFIED"}, rows)
}

// Channels renders notification channels.
func (r *Renderer) Channels(channels []*models.NotificationChannel) error {
	if r.format == FormatJSON {
		return r.renderJSON(channels)
	}

	rows := make([][]string, 0, len(channels))
	for _, ch := range channels {
		rows = append(rows, []string{
			strconv.FormatInt(int64(ch.ID), 10),
			ch.Name,
			string(ch.Type),
			enabledLabel(ch.IsEnabled),
		})
	}
	return r.renderRows([]string{"ID", "NAME", "TYPE", "ENABLED"}, rows)
}

// Datasources renders backend statuses.
func (r *Renderer) Datasources(statuses []models.DatasourceStatus) error {
	if r.format == FormatJSON {
		return r.renderJSON(statuses)
	}

	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		connected := "down"
		if s.Connected {
			connected = "up"
		}
		rows = append(rows, []string{s.Name, string(s.Type), connected})
	}
	return r.renderRows([]string{"NAME", "TYPE", "STATUS"}, rows)
}

// DatasourceLogs renders a backend's diagnostic entries.
func (r *Renderer) DatasourceLogs(entries []models.LogEntry) error {
	if r.format == FormatJSON {
		return r.renderJSON(entries)
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.Timestamp.UTC().Format(time.RFC3339),
			string(e.Level),
			e.Message,
		})
	}
	return r.renderRows([]string{"TIME", "LEVEL", "MESSAGE"}, rows)
}

func (r *Renderer) renderJSON(v any) error {
	encoder := json.NewEncoder(r.w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

func (r *Renderer) renderRows(headers []string, rows [][]string) error {
	if len(rows) == 0 && r.format != FormatCSV {
		fmt.Fprintln(r.w, "No results.")
		return nil
	}

	if r.format == FormatCSV {
		writer := csv.NewWriter(r.w)
		if err := writer.Write(headers); err != nil {
			return err
		}
		if err := writer.WriteAll(rows); err != nil {
			return err
		}
		writer.Flush()
		return writer.Error()
	}

	t := table.New().
		Headers(headers...).
		Rows(rows...).
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow && r.color {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	_, err := fmt.Fprintln(r.w, t.Render())
	return err
}

func (r *Renderer) state(state models.AlertState) string {
	if !r.color {
		return string(state)
	}
	if style, ok := stateStyles[state]; ok {
		return style.Render(string(state))
	}
	return string(state)
}

func formatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func enabledLabel(enabled bool) string {
	if enabled {
		return "yes"
	}
	return "no"
}

func notifiedLabel(sent bool) string {
	if sent {
		return "yes"
	}
	return "no"
}
