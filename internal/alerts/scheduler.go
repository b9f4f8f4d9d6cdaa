package alerts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"

	"github.com/gaugehq/gauge/internal/config"
	"github.com/gaugehq/gauge/internal/timerange"
	"github.com/gaugehq/gauge/pkg/models"
)

var (
	evaluationsTotal   = metrics.NewCounter("gauge_alert_evaluations_total")
	evaluationsSkipped = metrics.NewCounter("gauge_alert_evaluations_skipped_total")
	evaluationsFailed  = metrics.NewCounter("gauge_alert_evaluations_failed_total")
	transitionsTotal   = metrics.NewCounter("gauge_alert_state_transitions_total")
)

// Store is the persistence surface the scheduler needs.
type Store interface {
	ListEnabledAlerts(ctx context.Context) ([]*models.Alert, error)
	MarkAlertEvaluated(ctx context.Context, id models.AlertID, at time.Time) error
	UpdateAlertState(ctx context.Context, id models.AlertID, state models.AlertState, lastTriggered *time.Time) error
	InsertAlertHistory(ctx context.Context, entry *models.AlertHistoryEntry) (int64, error)
	AttachHistoryDispatchOutcome(ctx context.Context, historyID int64, sent bool, channels []models.ChannelID) error
}

// RuleEvaluator produces a verdict for a single rule.
type RuleEvaluator interface {
	Evaluate(ctx context.Context, alert *models.Alert) (Outcome, error)
}

// ChannelDispatcher fans a notification out to the named channels.
type ChannelDispatcher interface {
	DispatchToChannels(ctx context.Context, ids []models.ChannelID, payload Payload) []DispatchResult
}

// Options encapsulates the dependencies required to run the scheduler.
type Options struct {
	Config     config.AlertsConfig
	Store      Store
	Evaluator  RuleEvaluator
	Dispatcher ChannelDispatcher
	Logger     *slog.Logger
}

// Scheduler drives alert evaluation on a fixed tick. Each cycle runs
// synchronously inside the scheduler goroutine, so ticks never overlap: a
// slow cycle delays the next one rather than racing it.
type Scheduler struct {
	cfg        config.AlertsConfig
	store      Store
	evaluator  RuleEvaluator
	dispatcher ChannelDispatcher
	log        *slog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
}

// NewScheduler constructs a Scheduler.
func NewScheduler(opts Options) *Scheduler {
	return &Scheduler{
		cfg:        opts.Config,
		store:      opts.Store,
		evaluator:  opts.Evaluator,
		dispatcher: opts.Dispatcher,
		log:        opts.Logger.With("component", "alert_scheduler"),
		stop:       make(chan struct{}),
	}
}

// Start launches the evaluation loop. It is a no-op when alerting is
// disabled.
func (s *Scheduler) Start(ctx context.Context) {
	if !s.cfg.Enabled {
		s.log.Info("alerting disabled; scheduler will not start")
		return
	}
	interval := s.cfg.TickInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	s.log.Info("starting alert scheduler", "interval", interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// Run an initial cycle so due rules fire soon after startup.
		s.evaluateCycle(ctx)

		for {
			select {
			case <-ticker.C:
				s.evaluateCycle(ctx)
			case <-s.stop:
				s.log.Info("alert scheduler stopping")
				return
			case <-ctx.Done():
				s.log.Info("alert scheduler context cancelled")
				return
			}
		}
	}()
}

// Stop signals the scheduler to stop and waits for the current cycle to
// finish.
func (s *Scheduler) Stop() {
	close(s.stop)
	s.wg.Wait()
}

// evaluateCycle evaluates every enabled rule that is due. Rules are
// processed sequentially in id order; a failure in one rule never stops the
// cycle.
func (s *Scheduler) evaluateCycle(ctx context.Context) {
	alerts, err := s.store.ListEnabledAlerts(ctx)
	if err != nil {
		s.log.Error("failed to fetch rules for evaluation", "error", err)
		return
	}
	if len(alerts) == 0 {
		s.log.Debug("no enabled rules")
		return
	}

	now := time.Now()
	for _, alert := range alerts {
		if !s.due(alert, now) {
			continue
		}
		if err := s.store.MarkAlertEvaluated(ctx, alert.ID, now); err != nil {
			s.log.Error("failed to stamp evaluation time", "alert_id", alert.ID, "error", err)
		}
		s.evaluateAlert(ctx, alert, now)
	}
}

// due reports whether the rule's per-rule frequency has elapsed since its
// last evaluation. A never-evaluated rule is always due.
func (s *Scheduler) due(alert *models.Alert, now time.Time) bool {
	if alert.LastEvaluatedAt == nil {
		return true
	}
	frequency := s.ruleFrequency(alert)
	return now.Sub(*alert.LastEvaluatedAt) >= frequency
}

func (s *Scheduler) ruleFrequency(alert *models.Alert) time.Duration {
	raw := alert.Frequency
	if raw == "" {
		raw = models.DefaultFrequency
	}
	frequency, err := timerange.ParseDuration(raw)
	if err != nil {
		s.log.Warn("unparseable rule frequency, using default", "alert_id", alert.ID, "frequency", raw)
		frequency, _ = timerange.ParseDuration(models.DefaultFrequency)
	}
	return frequency
}

func (s *Scheduler) evaluateAlert(ctx context.Context, alert *models.Alert, now time.Time) {
	evaluationsTotal.Inc()

	outcome, err := s.evaluator.Evaluate(ctx, alert)
	if err != nil {
		if errors.Is(err, ErrSkipEvaluation) {
			evaluationsSkipped.Inc()
			s.log.Debug("rule skipped", "alert_id", alert.ID, "reason", err)
			return
		}
		evaluationsFailed.Inc()
		s.log.Error("rule evaluation failed", "alert_id", alert.ID, "error", err)
		return
	}

	firing := outcome.State == models.AlertStateFiring

	// Every firing tick gets a history entry, not just the first one.
	var historyID int64
	if firing {
		entry := &models.AlertHistoryEntry{
			AlertID:     alert.ID,
			State:       models.AlertStateFiring,
			Message:     s.alertMessage(alert, outcome),
			Value:       outcome.Value,
			Threshold:   alert.Threshold,
			TriggeredAt: now,
		}
		id, err := s.store.InsertAlertHistory(ctx, entry)
		if err != nil {
			s.log.Error("failed to record alert history", "alert_id", alert.ID, "error", err)
		} else {
			historyID = id
		}
	}

	if outcome.State == alert.State {
		return
	}

	// State transitions persist the new state; entering alerting also stamps
	// lastTriggered. Every transition notifies, recovery included;
	// steady-state ticks never re-notify.
	transitionsTotal.Inc()
	var lastTriggered *time.Time
	if firing {
		lastTriggered = &now
	}
	if err := s.store.UpdateAlertState(ctx, alert.ID, outcome.State, lastTriggered); err != nil {
		s.log.Error("failed to persist rule state", "alert_id", alert.ID, "error", err)
	}
	s.log.Info("rule state changed", "alert_id", alert.ID, "name", alert.Name, "from", alert.State, "to", outcome.State, "value", outcome.Value)

	if len(alert.Notifications) == 0 {
		return
	}

	results := s.dispatcher.DispatchToChannels(ctx, alert.Notifications, Payload{
		AlertName: alert.Name,
		Message:   s.alertMessage(alert, outcome),
		State:     outcome.State,
		Value:     outcome.Value,
		Threshold: alert.Threshold,
		Timestamp: now,
	})

	sent := false
	attempted := make([]models.ChannelID, 0, len(results))
	for _, result := range results {
		attempted = append(attempted, result.ChannelID)
		if result.Err == nil {
			sent = true
		}
	}
	if historyID > 0 {
		if err := s.store.AttachHistoryDispatchOutcome(ctx, historyID, sent, attempted); err != nil {
			s.log.Error("failed to attach dispatch outcome", "alert_id", alert.ID, "error", err)
		}
	}
}

func (s *Scheduler) alertMessage(alert *models.Alert, outcome Outcome) string {
	if alert.Message != "" {
		return alert.Message
	}
	return fmt.Sprintf("%s is %s (value %.4f, threshold %.4f)", alert.Name, outcome.State, outcome.Value, alert.Threshold)
}
