package models

import "time"

// AlertID identifies an alert rule.
type AlertID int64

// AlertState captures the lifecycle state of an alert rule.
type AlertState string

const (
	// AlertStatePending is the initial state of a freshly created rule. It is
	// never re-entered once the rule has left it.
	AlertStatePending AlertState = "pending"
	AlertStateOK      AlertState = "ok"
	AlertStateFiring  AlertState = "alerting"
)

// Comparator represents the condition applied to the observed value.
type Comparator string

const (
	ComparatorGreaterThan    Comparator = ">"
	ComparatorLessThan       Comparator = "<"
	ComparatorGreaterOrEqual Comparator = ">="
	ComparatorLessOrEqual    Comparator = "<="
	ComparatorEqual          Comparator = "=="
	ComparatorNotEqual       Comparator = "!="
	ComparatorOutsideRange   Comparator = "outside_range"
	ComparatorWithinRange    Comparator = "within_range"
	ComparatorNoValue        Comparator = "no_value"

	// Aliases accepted alongside the symbolic forms.
	ComparatorAbove Comparator = "above"
	ComparatorBelow Comparator = "below"
)

// IsValid reports whether the comparator is one of the recognized forms.
func (c Comparator) IsValid() bool {
	switch c {
	case ComparatorGreaterThan, ComparatorLessThan, ComparatorGreaterOrEqual,
		ComparatorLessOrEqual, ComparatorEqual, ComparatorNotEqual,
		ComparatorOutsideRange, ComparatorWithinRange, ComparatorNoValue,
		ComparatorAbove, ComparatorBelow:
		return true
	default:
		return false
	}
}

// IsRange reports whether the comparator needs an upper bound.
func (c Comparator) IsRange() bool {
	return c == ComparatorOutsideRange || c == ComparatorWithinRange
}

// Alert is a rule that is periodically evaluated against a datasource.
// Query may be empty, in which case it is resolved from the linked panel's
// first target at evaluation time.
type Alert struct {
	ID            AlertID     `json:"id"`
	DashboardID   int64       `json:"dashboard_id,omitempty"`
	PanelID       int64       `json:"panel_id,omitempty"`
	Name          string      `json:"name"`
	Message       string      `json:"message,omitempty"`
	Datasource    string      `json:"datasource"`
	Query         string      `json:"query"`
	Comparator    Comparator  `json:"comparator"`
	Threshold     float64     `json:"threshold"`
	ThresholdMax  *float64    `json:"threshold_max,omitempty"`
	TimeWindow    string      `json:"time_window"`
	Frequency     string      `json:"frequency"`
	IsEnabled     bool        `json:"is_enabled"`
	State         AlertState  `json:"state"`
	Notifications []ChannelID `json:"notifications"`

	LastEvaluatedAt *time.Time `json:"last_evaluated_at,omitempty"`
	LastTriggered   *time.Time `json:"last_triggered,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// AlertHistoryEntry is an append-only record of a firing evaluation. The only
// permitted mutation is attaching the notification dispatch outcome after the
// sends have settled.
type AlertHistoryEntry struct {
	ID          int64      `json:"id"`
	AlertID     AlertID    `json:"alert_id"`
	State       AlertState `json:"state"`
	Message     string     `json:"message,omitempty"`
	Value       float64    `json:"value"`
	Threshold   float64    `json:"threshold"`
	TriggeredAt time.Time  `json:"triggered_at"`

	NotificationSent     bool        `json:"notification_sent"`
	NotificationChannels []ChannelID `json:"notification_channels,omitempty"`
}

// CreateAlertRequest defines the payload required to create a new alert rule.
type CreateAlertRequest struct {
	DashboardID   int64       `json:"dashboard_id"`
	PanelID       int64       `json:"panel_id"`
	Name          string      `json:"name"`
	Message       string      `json:"message"`
	Datasource    string      `json:"datasource"`
	Query         string      `json:"query"`
	Comparator    Comparator  `json:"comparator"`
	Threshold     float64     `json:"threshold"`
	ThresholdMax  *float64    `json:"threshold_max"`
	TimeWindow    string      `json:"time_window"`
	Frequency     string      `json:"frequency"`
	IsEnabled     bool        `json:"is_enabled"`
	Notifications []ChannelID `json:"notifications"`
}

// UpdateAlertRequest defines updatable fields for an alert rule. Nil fields
// are left untouched.
type UpdateAlertRequest struct {
	Name          *string      `json:"name"`
	Message       *string      `json:"message"`
	Datasource    *string      `json:"datasource"`
	Query         *string      `json:"query"`
	Comparator    *Comparator  `json:"comparator"`
	Threshold     *float64     `json:"threshold"`
	ThresholdMax  *float64     `json:"threshold_max"`
	TimeWindow    *string      `json:"time_window"`
	Frequency     *string      `json:"frequency"`
	IsEnabled     *bool        `json:"is_enabled"`
	Notifications *[]ChannelID `json:"notifications"`
}

// DefaultAlertHistoryLimit controls the number of history entries returned
// when unspecified.
const DefaultAlertHistoryLimit = 50

const (
	// DefaultTimeWindow is the lookback window queried when a rule does not
	// configure one.
	DefaultTimeWindow = "5m"
	// DefaultFrequency is the minimum interval between evaluations of a rule.
	DefaultFrequency = "1m"
)
