package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gaugehq/gauge/pkg/models"
)

const (
	insertAlertQuery = `INSERT INTO alerts (
    dashboard_id,
    panel_id,
    name,
    message,
    datasource,
    query,
    comparator,
    threshold,
    threshold_max,
    time_window,
    frequency,
    is_enabled,
    state,
    notifications
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, created_at, updated_at`

	selectAlertBase = `SELECT
    id,
    dashboard_id,
    panel_id,
    name,
    message,
    datasource,
    query,
    comparator,
    threshold,
    threshold_max,
    time_window,
    frequency,
    is_enabled,
    state,
    notifications,
    last_evaluated_at,
    last_triggered,
    created_at,
    updated_at
FROM alerts`

	updateAlertQuery = `UPDATE alerts
SET name = ?,
    message = ?,
    datasource = ?,
    query = ?,
    comparator = ?,
    threshold = ?,
    threshold_max = ?,
    time_window = ?,
    frequency = ?,
    is_enabled = ?,
    notifications = ?,
    updated_at = datetime('now')
WHERE id = ?`

	deleteAlertQuery = `DELETE FROM alerts WHERE id = ?`

	markAlertEvaluatedQuery = `UPDATE alerts
SET last_evaluated_at = ?
WHERE id = ?`

	updateAlertStateQuery = `UPDATE alerts
SET state = ?,
    last_triggered = COALESCE(?, last_triggered),
    updated_at = datetime('now')
WHERE id = ?`

	insertAlertHistoryQuery = `INSERT INTO alert_history (
    alert_id,
    state,
    message,
    value,
    threshold,
    triggered_at
) VALUES (?, ?, ?, ?, ?, ?)
RETURNING id`

	attachDispatchOutcomeQuery = `UPDATE alert_history
SET notification_sent = ?,
    notification_channels = ?
WHERE id = ?`

	selectAlertHistoryQuery = `SELECT
    id,
    alert_id,
    state,
    message,
    value,
    threshold,
    triggered_at,
    notification_sent,
    notification_channels
FROM alert_history
WHERE alert_id = ?
ORDER BY triggered_at DESC, id DESC
LIMIT ?`
)

// CreateAlert inserts a new rule. The rule starts in the pending state.
func (db *DB) CreateAlert(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert payload is required")
	}
	if alert.State == "" {
		alert.State = models.AlertStatePending
	}

	notificationsJSON, err := json.Marshal(alert.Notifications)
	if err != nil {
		return fmt.Errorf("failed to marshal notification ids: %w", err)
	}

	row := db.writeDB.QueryRowContext(ctx, insertAlertQuery,
		alert.DashboardID,
		alert.PanelID,
		alert.Name,
		alert.Message,
		alert.Datasource,
		alert.Query,
		string(alert.Comparator),
		alert.Threshold,
		alert.ThresholdMax,
		alert.TimeWindow,
		alert.Frequency,
		boolToInt(alert.IsEnabled),
		string(alert.State),
		string(notificationsJSON),
	)

	var id int64
	if err := row.Scan(&id, &alert.CreatedAt, &alert.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	alert.ID = models.AlertID(id)
	return nil
}

// GetAlert retrieves a rule by id.
func (db *DB) GetAlert(ctx context.Context, id models.AlertID) (*models.Alert, error) {
	row := db.readDB.QueryRowContext(ctx, selectAlertBase+" WHERE id = ?", int64(id))
	return scanAlert(row)
}

// ListAlerts fetches all rules, newest first.
func (db *DB) ListAlerts(ctx context.Context) ([]*models.Alert, error) {
	return db.queryAlerts(ctx, selectAlertBase+" ORDER BY created_at DESC, id DESC")
}

// ListEnabledAlerts fetches the enabled rules in id order, the order the
// scheduler evaluates them in.
func (db *DB) ListEnabledAlerts(ctx context.Context) ([]*models.Alert, error) {
	return db.queryAlerts(ctx, selectAlertBase+" WHERE is_enabled = 1 ORDER BY id ASC")
}

func (db *DB) queryAlerts(ctx context.Context, query string, args ...any) ([]*models.Alert, error) {
	rows, err := db.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlert(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alerts: %w", err)
	}
	return alerts, nil
}

// UpdateAlert persists changes to an existing rule's definition. Lifecycle
// columns (state, evaluation stamps) are untouched.
func (db *DB) UpdateAlert(ctx context.Context, alert *models.Alert) error {
	if alert == nil {
		return fmt.Errorf("alert payload is required")
	}

	notificationsJSON, err := json.Marshal(alert.Notifications)
	if err != nil {
		return fmt.Errorf("failed to marshal notification ids: %w", err)
	}

	res, err := db.writeDB.ExecContext(ctx, updateAlertQuery,
		alert.Name,
		alert.Message,
		alert.Datasource,
		alert.Query,
		string(alert.Comparator),
		alert.Threshold,
		alert.ThresholdMax,
		alert.TimeWindow,
		alert.Frequency,
		boolToInt(alert.IsEnabled),
		string(notificationsJSON),
		int64(alert.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update alert: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteAlert removes a rule and, via cascade, its history.
func (db *DB) DeleteAlert(ctx context.Context, id models.AlertID) error {
	res, err := db.writeDB.ExecContext(ctx, deleteAlertQuery, int64(id))
	if err != nil {
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkAlertEvaluated stamps the rule's last evaluation time.
func (db *DB) MarkAlertEvaluated(ctx context.Context, id models.AlertID, at time.Time) error {
	_, err := db.writeDB.ExecContext(ctx, markAlertEvaluatedQuery, at.UTC(), int64(id))
	if err != nil {
		return fmt.Errorf("failed to mark alert evaluated: %w", err)
	}
	return nil
}

// UpdateAlertState persists a state transition. A non-nil lastTriggered
// also stamps the last firing time.
func (db *DB) UpdateAlertState(ctx context.Context, id models.AlertID, state models.AlertState, lastTriggered *time.Time) error {
	var triggered any
	if lastTriggered != nil {
		triggered = lastTriggered.UTC()
	}
	_, err := db.writeDB.ExecContext(ctx, updateAlertStateQuery, string(state), triggered, int64(id))
	if err != nil {
		return fmt.Errorf("failed to update alert state: %w", err)
	}
	return nil
}

// InsertAlertHistory appends a firing record and returns its id.
func (db *DB) InsertAlertHistory(ctx context.Context, entry *models.AlertHistoryEntry) (int64, error) {
	if entry == nil {
		return 0, fmt.Errorf("history payload is required")
	}

	row := db.writeDB.QueryRowContext(ctx, insertAlertHistoryQuery,
		int64(entry.AlertID),
		string(entry.State),
		entry.Message,
		entry.Value,
		entry.Threshold,
		entry.TriggeredAt.UTC(),
	)

	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert alert history: %w", err)
	}
	entry.ID = id
	return id, nil
}

// AttachHistoryDispatchOutcome amends a history record with the channels a
// dispatch attempted and whether any delivery succeeded. This is the only
// permitted mutation of history.
func (db *DB) AttachHistoryDispatchOutcome(ctx context.Context, historyID int64, sent bool, channels []models.ChannelID) error {
	channelsJSON, err := json.Marshal(channels)
	if err != nil {
		return fmt.Errorf("failed to marshal channel ids: %w", err)
	}
	_, err = db.writeDB.ExecContext(ctx, attachDispatchOutcomeQuery, boolToInt(sent), string(channelsJSON), historyID)
	if err != nil {
		return fmt.Errorf("failed to attach dispatch outcome: %w", err)
	}
	return nil
}

// ListAlertHistory returns the rule's most recent history entries.
func (db *DB) ListAlertHistory(ctx context.Context, alertID models.AlertID, limit int) ([]*models.AlertHistoryEntry, error) {
	if limit <= 0 {
		limit = models.DefaultAlertHistoryLimit
	}

	rows, err := db.readDB.QueryContext(ctx, selectAlertHistoryQuery, int64(alertID), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list alert history: %w", err)
	}
	defer rows.Close()

	var entries []*models.AlertHistoryEntry
	for rows.Next() {
		var (
			entry        models.AlertHistoryEntry
			channelsJSON string
			sent         int
		)
		if err := rows.Scan(
			&entry.ID,
			&entry.AlertID,
			&entry.State,
			&entry.Message,
			&entry.Value,
			&entry.Threshold,
			&entry.TriggeredAt,
			&sent,
			&channelsJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert history: %w", err)
		}
		entry.NotificationSent = sent != 0
		if err := json.Unmarshal([]byte(channelsJSON), &entry.NotificationChannels); err != nil {
			return nil, fmt.Errorf("failed to unmarshal channel ids: %w", err)
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert history: %w", err)
	}
	return entries, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAlert(row rowScanner) (*models.Alert, error) {
	var (
		alert             models.Alert
		thresholdMax      sql.NullFloat64
		enabled           int
		notificationsJSON string
		lastEvaluatedAt   sql.NullTime
		lastTriggered     sql.NullTime
	)
	if err := row.Scan(
		&alert.ID,
		&alert.DashboardID,
		&alert.PanelID,
		&alert.Name,
		&alert.Message,
		&alert.Datasource,
		&alert.Query,
		&alert.Comparator,
		&alert.Threshold,
		&thresholdMax,
		&alert.TimeWindow,
		&alert.Frequency,
		&enabled,
		&alert.State,
		&notificationsJSON,
		&lastEvaluatedAt,
		&lastTriggered,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan alert: %w", err)
	}

	if thresholdMax.Valid {
		alert.ThresholdMax = &thresholdMax.Float64
	}
	alert.IsEnabled = enabled != 0
	if lastEvaluatedAt.Valid {
		alert.LastEvaluatedAt = &lastEvaluatedAt.Time
	}
	if lastTriggered.Valid {
		alert.LastTriggered = &lastTriggered.Time
	}
	if err := json.Unmarshal([]byte(notificationsJSON), &alert.Notifications); err != nil {
		return nil, fmt.Errorf("failed to unmarshal notification ids: %w", err)
	}
	return &alert, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
