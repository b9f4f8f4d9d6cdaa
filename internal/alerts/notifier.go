package alerts

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"

	"github.com/gaugehq/gauge/pkg/models"
)

var (
	notificationsSent   = metrics.NewCounter("gauge_notifications_sent_total")
	notificationsFailed = metrics.NewCounter("gauge_notifications_failed_total")
)

// defaultChannelTimeout bounds each channel send independently. One slow
// channel never delays or starves the others.
const defaultChannelTimeout = 10 * time.Second

// Payload carries everything a sender needs to format a notification.
type Payload struct {
	AlertName string
	Message   string
	State     models.AlertState
	Value     float64
	Threshold float64
	Timestamp time.Time
}

// DispatchResult is the per-channel outcome of a dispatch. Err is nil on
// successful delivery.
type DispatchResult struct {
	ChannelID   models.ChannelID
	ChannelName string
	Type        models.ChannelType
	Err         error
}

// Sender delivers a notification over one channel type.
type Sender interface {
	Send(ctx context.Context, channel *models.NotificationChannel, payload Payload) error
}

// ChannelStore loads the channels referenced by a rule.
type ChannelStore interface {
	ListChannelsByIDs(ctx context.Context, ids []models.ChannelID) ([]*models.NotificationChannel, error)
}

// Dispatcher fans notifications out to a rule's channels concurrently. Every
// send settles; one failing channel never aborts the rest. The dispatcher
// itself never returns an error, the per-channel outcomes do.
type Dispatcher struct {
	store   ChannelStore
	senders map[models.ChannelType]Sender
	timeout time.Duration
	log     *slog.Logger
}

// DispatcherOptions configures a Dispatcher. A nil Senders map installs the
// default sender set.
type DispatcherOptions struct {
	Store   ChannelStore
	Senders map[models.ChannelType]Sender
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	logger := opts.Logger
	senders := opts.Senders
	if senders == nil {
		senders = map[models.ChannelType]Sender{
			models.ChannelSlack:   NewSlackSender(logger),
			models.ChannelDiscord: NewDiscordSender(logger),
			models.ChannelWebhook: NewWebhookSender(logger),
			models.ChannelEmail:   NewEmailSender(logger),
		}
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultChannelTimeout
	}
	return &Dispatcher{
		store:   opts.Store,
		senders: senders,
		timeout: timeout,
		log:     logger.With("component", "notification_dispatcher"),
	}
}

// DispatchToChannels delivers the payload to every enabled channel among the
// given ids. Ids that no longer resolve to a channel are skipped silently;
// disabled channels are excluded by the store. Sends run concurrently with
// an independent timeout each, and all of them settle before the results are
// returned.
func (d *Dispatcher) DispatchToChannels(ctx context.Context, ids []models.ChannelID, payload Payload) []DispatchResult {
	if len(ids) == 0 {
		return nil
	}

	channels, err := d.store.ListChannelsByIDs(ctx, ids)
	if err != nil {
		d.log.Error("failed to load notification channels", "error", err)
		return nil
	}
	if len(channels) == 0 {
		d.log.Debug("no enabled channels among rule's notifications", "ids", ids)
		return nil
	}

	dispatchID := uuid.NewString()
	d.log.Info("dispatching notifications", "dispatch_id", dispatchID, "alert", payload.AlertName, "channels", len(channels))

	results := make([]DispatchResult, len(channels))
	var wg sync.WaitGroup
	for i, channel := range channels {
		wg.Add(1)
		go func(i int, channel *models.NotificationChannel) {
			defer wg.Done()
			results[i] = DispatchResult{
				ChannelID:   channel.ID,
				ChannelName: channel.Name,
				Type:        channel.Type,
				Err:         d.send(ctx, channel, payload),
			}
		}(i, channel)
	}
	wg.Wait()

	for _, result := range results {
		if result.Err != nil {
			notificationsFailed.Inc()
			d.log.Warn("notification failed", "dispatch_id", dispatchID, "channel", result.ChannelName, "type", result.Type, "error", result.Err)
			continue
		}
		notificationsSent.Inc()
		d.log.Info("notification delivered", "dispatch_id", dispatchID, "channel", result.ChannelName, "type", result.Type)
	}
	return results
}

func (d *Dispatcher) send(ctx context.Context, channel *models.NotificationChannel, payload Payload) error {
	sender, ok := d.senders[channel.Type]
	if !ok {
		return fmt.Errorf("unsupported channel type %q", channel.Type)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()
	return sender.Send(ctx, channel, payload)
}
