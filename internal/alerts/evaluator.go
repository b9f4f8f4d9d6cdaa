// Package alerts implements the alert engine: a periodic scheduler that
// evaluates enabled rules against their datasources, maintains the rule
// state machine, and dispatches notifications to configured channels when a
// rule starts firing.
package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/gaugehq/gauge/pkg/models"
)

// ErrSkipEvaluation marks an evaluation that produced no verdict: the rule
// has no resolvable query, or the query returned no data for a comparator
// that needs one. Skipped rules keep their state untouched.
var ErrSkipEvaluation = errors.New("evaluation skipped")

// Outcome is the verdict of a single rule evaluation.
type Outcome struct {
	State models.AlertState
	Value float64
}

// Querier executes normalized range queries. Satisfied by the datasource
// registry.
type Querier interface {
	Query(ctx context.Context, req models.QueryRequest) (*models.QueryResult, error)
}

// PanelStore resolves the panel a rule without its own query falls back to.
type PanelStore interface {
	GetPanel(ctx context.Context, id int64) (*models.Panel, error)
}

// Evaluator runs a single rule against its datasource and applies the
// rule's condition to the latest observed value.
type Evaluator struct {
	querier Querier
	panels  PanelStore
	log     *slog.Logger
}

// NewEvaluator constructs an Evaluator.
func NewEvaluator(querier Querier, panels PanelStore, logger *slog.Logger) *Evaluator {
	return &Evaluator{
		querier: querier,
		panels:  panels,
		log:     logger.With("component", "alert_evaluator"),
	}
}

// Evaluate resolves the rule's query, fetches the rule's time window, and
// applies the condition to the latest value. A rule whose query cannot be
// resolved, or whose result carries no usable value for a value-based
// comparator, returns ErrSkipEvaluation.
func (e *Evaluator) Evaluate(ctx context.Context, alert *models.Alert) (Outcome, error) {
	datasource, query, err := e.resolveQuery(ctx, alert)
	if err != nil {
		return Outcome{}, err
	}

	window := alert.TimeWindow
	if window == "" {
		window = models.DefaultTimeWindow
	}

	result, err := e.querier.Query(ctx, models.QueryRequest{
		Datasource: datasource,
		Query:      query,
		From:       "now-" + window,
		To:         "now",
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("alert query failed: %w", err)
	}

	value, hasValue := LatestValue(result)
	if !hasValue && alert.Comparator != models.ComparatorNoValue {
		return Outcome{}, fmt.Errorf("%w: query returned no value", ErrSkipEvaluation)
	}

	state := models.AlertStateOK
	if conditionMet(value, hasValue, alert.Comparator, alert.Threshold, alert.ThresholdMax) {
		state = models.AlertStateFiring
	}
	return Outcome{State: state, Value: value}, nil
}

// resolveQuery returns the datasource and query text to evaluate. A rule
// without its own query falls back to the first target of its linked panel.
func (e *Evaluator) resolveQuery(ctx context.Context, alert *models.Alert) (string, string, error) {
	datasource := alert.Datasource
	query := alert.Query

	if query == "" && alert.PanelID > 0 {
		panel, err := e.panels.GetPanel(ctx, alert.PanelID)
		if err != nil {
			return "", "", fmt.Errorf("%w: linked panel %d not found", ErrSkipEvaluation, alert.PanelID)
		}
		if len(panel.Targets) == 0 {
			return "", "", fmt.Errorf("%w: linked panel %d has no targets", ErrSkipEvaluation, alert.PanelID)
		}
		target := panel.Targets[0]
		query = target.Query
		if datasource == "" {
			datasource = target.Datasource
		}
		if datasource == "" {
			datasource = panel.Datasource
		}
	}

	if query == "" {
		return "", "", fmt.Errorf("%w: rule has no query and no linked panel", ErrSkipEvaluation)
	}
	return datasource, query, nil
}

// LatestValue extracts the most recent observed value from a normalized
// result: the last point of a timeseries, the last point of the first
// populated series of a grouped result, or the value/val column of the last
// raw row.
func LatestValue(result *models.QueryResult) (float64, bool) {
	if result == nil {
		return 0, false
	}

	switch result.Type {
	case models.ResultTypeTimeseries:
		if len(result.Data) > 0 {
			return result.Data[len(result.Data)-1].Value, true
		}
	case models.ResultTypeGrouped:
		for _, series := range result.Series {
			if len(series.Points) > 0 {
				return series.Points[len(series.Points)-1].Value, true
			}
		}
	case models.ResultTypeRaw:
		if len(result.Rows) > 0 {
			row := result.Rows[len(result.Rows)-1]
			for _, field := range []string{"value", "val"} {
				if v, ok := rowNumeric(row[field]); ok {
					return v, true
				}
			}
		}
	}
	return 0, false
}

func rowNumeric(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// conditionMet applies a rule's comparator to the observed value. The
// no_value comparator fires exactly when no value was extractable; every
// other comparator requires one. A range comparator with no upper bound
// collapses to its lower bound.
func conditionMet(value float64, hasValue bool, comparator models.Comparator, threshold float64, thresholdMax *float64) bool {
	if comparator == models.ComparatorNoValue {
		return !hasValue
	}
	if !hasValue {
		return false
	}

	upper := threshold
	if thresholdMax != nil {
		upper = *thresholdMax
	}

	switch comparator {
	case models.ComparatorGreaterThan, models.ComparatorAbove:
		return value > threshold
	case models.ComparatorLessThan, models.ComparatorBelow:
		return value < threshold
	case models.ComparatorGreaterOrEqual:
		return value >= threshold
	case models.ComparatorLessOrEqual:
		return value <= threshold
	case models.ComparatorEqual:
		return value == threshold
	case models.ComparatorNotEqual:
		return value != threshold
	case models.ComparatorOutsideRange:
		return value < threshold || value > upper
	case models.ComparatorWithinRange:
		return value >= threshold && value <= upper
	default:
		return false
	}
}
