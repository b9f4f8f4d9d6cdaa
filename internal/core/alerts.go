// Package core contains the business logic between the HTTP handlers and
// the persistence layer: request validation, merge-on-update semantics, and
// the not-found/invalid-configuration error taxonomy handlers map to status
// codes.
package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gaugehq/gauge/internal/sqlite"
	"github.com/gaugehq/gauge/internal/timerange"
	"github.com/gaugehq/gauge/pkg/models"
)

var (
	// ErrAlertNotFound is returned when an alert rule cannot be located.
	ErrAlertNotFound = errors.New("alert not found")
	// ErrInvalidAlertConfiguration indicates the request payload failed
	// validation.
	ErrInvalidAlertConfiguration = errors.New("invalid alert configuration")
)

// validateAlertConfig checks the invariants shared by create and update: a
// recognized comparator, a parseable window and frequency, and a coherent
// range when the comparator needs an upper bound.
func validateAlertConfig(alert *models.Alert) error {
	if strings.TrimSpace(alert.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !alert.Comparator.IsValid() {
		return fmt.Errorf("invalid comparator %q", alert.Comparator)
	}
	if alert.Comparator.IsRange() {
		if alert.ThresholdMax == nil {
			return fmt.Errorf("threshold_max is required for comparator %q", alert.Comparator)
		}
		if *alert.ThresholdMax <= alert.Threshold {
			return fmt.Errorf("threshold_max must be greater than threshold")
		}
	}
	if alert.Query == "" && alert.PanelID <= 0 {
		return fmt.Errorf("query or panel_id is required")
	}
	if alert.TimeWindow != "" {
		if _, err := timerange.ParseDuration(alert.TimeWindow); err != nil {
			return fmt.Errorf("invalid time_window %q", alert.TimeWindow)
		}
	}
	if alert.Frequency != "" {
		if _, err := timerange.ParseDuration(alert.Frequency); err != nil {
			return fmt.Errorf("invalid frequency %q", alert.Frequency)
		}
	}
	return nil
}

// CreateAlert validates and persists a new rule.
func CreateAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, req *models.CreateAlertRequest) (*models.Alert, error) {
	if req == nil {
		return nil, ErrInvalidAlertConfiguration
	}

	alert := &models.Alert{
		DashboardID:   req.DashboardID,
		PanelID:       req.PanelID,
		Name:          strings.TrimSpace(req.Name),
		Message:       strings.TrimSpace(req.Message),
		Datasource:    strings.TrimSpace(req.Datasource),
		Query:         strings.TrimSpace(req.Query),
		Comparator:    req.Comparator,
		Threshold:     req.Threshold,
		ThresholdMax:  req.ThresholdMax,
		TimeWindow:    req.TimeWindow,
		Frequency:     req.Frequency,
		IsEnabled:     req.IsEnabled,
		Notifications: req.Notifications,
		State:         models.AlertStatePending,
	}
	if alert.TimeWindow == "" {
		alert.TimeWindow = models.DefaultTimeWindow
	}
	if alert.Frequency == "" {
		alert.Frequency = models.DefaultFrequency
	}
	if alert.Notifications == nil {
		alert.Notifications = []models.ChannelID{}
	}

	if err := validateAlertConfig(alert); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAlertConfiguration, err)
	}

	if err := db.CreateAlert(ctx, alert); err != nil {
		log.Error("failed to create alert", "error", err)
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}
	log.Info("alert created", "alert_id", alert.ID, "name", alert.Name)
	return alert, nil
}

// GetAlert retrieves a single rule by id.
func GetAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, id models.AlertID) (*models.Alert, error) {
	alert, err := db.GetAlert(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		log.Error("failed to get alert", "alert_id", id, "error", err)
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}

// UpdateAlert merges non-nil request fields onto the stored rule, validates
// the result, and persists it.
func UpdateAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, id models.AlertID, req *models.UpdateAlertRequest) (*models.Alert, error) {
	if req == nil {
		return nil, ErrInvalidAlertConfiguration
	}

	existing, err := GetAlert(ctx, db, log, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		existing.Name = strings.TrimSpace(*req.Name)
	}
	if req.Message != nil {
		existing.Message = strings.TrimSpace(*req.Message)
	}
	if req.Datasource != nil {
		existing.Datasource = strings.TrimSpace(*req.Datasource)
	}
	if req.Query != nil {
		existing.Query = strings.TrimSpace(*req.Query)
	}
	if req.Comparator != nil {
		existing.Comparator = *req.Comparator
	}
	if req.Threshold != nil {
		existing.Threshold = *req.Threshold
	}
	if req.ThresholdMax != nil {
		existing.ThresholdMax = req.ThresholdMax
	}
	if req.TimeWindow != nil {
		existing.TimeWindow = *req.TimeWindow
	}
	if req.Frequency != nil {
		existing.Frequency = *req.Frequency
	}
	if req.IsEnabled != nil {
		existing.IsEnabled = *req.IsEnabled
	}
	if req.Notifications != nil {
		existing.Notifications = *req.Notifications
	}

	if err := validateAlertConfig(existing); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidAlertConfiguration, err)
	}

	if err := db.UpdateAlert(ctx, existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrAlertNotFound
		}
		log.Error("failed to update alert", "alert_id", id, "error", err)
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}
	return existing, nil
}

// DeleteAlert removes a rule.
func DeleteAlert(ctx context.Context, db *sqlite.DB, log *slog.Logger, id models.AlertID) error {
	if err := db.DeleteAlert(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAlertNotFound
		}
		log.Error("failed to delete alert", "alert_id", id, "error", err)
		return fmt.Errorf("failed to delete alert: %w", err)
	}
	log.Info("alert deleted", "alert_id", id)
	return nil
}

// ListAlertHistory returns a rule's recent history entries, verifying the
// rule exists first.
func ListAlertHistory(ctx context.Context, db *sqlite.DB, log *slog.Logger, id models.AlertID, limit int) ([]*models.AlertHistoryEntry, error) {
	if _, err := GetAlert(ctx, db, log, id); err != nil {
		return nil, err
	}
	entries, err := db.ListAlertHistory(ctx, id, limit)
	if err != nil {
		log.Error("failed to list alert history", "alert_id", id, "error", err)
		return nil, fmt.Errorf("failed to list alert history: %w", err)
	}
	if entries == nil {
		entries = []*models.AlertHistoryEntry{}
	}
	return entries, nil
}
