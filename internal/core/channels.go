package core

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gaugehq/gauge/internal/sqlite"
	"github.com/gaugehq/gauge/pkg/models"
)

var (
	// ErrChannelNotFound is returned when a notification channel cannot be
	// located.
	ErrChannelNotFound = errors.New("notification channel not found")
	// ErrInvalidChannelConfiguration indicates the request payload failed
	// validation.
	ErrInvalidChannelConfiguration = errors.New("invalid channel configuration")
)

// validateChannelConfig enforces the per-type delivery requirements: URL
// based channels need a URL, email needs recipients.
func validateChannelConfig(channel *models.NotificationChannel) error {
	if strings.TrimSpace(channel.Name) == "" {
		return fmt.Errorf("name is required")
	}
	if !channel.Type.IsValid() {
		return fmt.Errorf("invalid channel type %q", channel.Type)
	}
	switch channel.Type {
	case models.ChannelSlack, models.ChannelDiscord, models.ChannelWebhook:
		if strings.TrimSpace(channel.Config.URL) == "" {
			return fmt.Errorf("url is required for %s channels", channel.Type)
		}
	case models.ChannelEmail:
		if len(channel.Config.Recipients) == 0 {
			return fmt.Errorf("recipients are required for email channels")
		}
	}
	return nil
}

// CreateChannel validates and persists a new notification channel.
func CreateChannel(ctx context.Context, db *sqlite.DB, log *slog.Logger, req *models.CreateChannelRequest) (*models.NotificationChannel, error) {
	if req == nil {
		return nil, ErrInvalidChannelConfiguration
	}

	channel := &models.NotificationChannel{
		Name:      strings.TrimSpace(req.Name),
		Type:      req.Type,
		Config:    req.Config,
		IsEnabled: req.IsEnabled,
	}
	if err := validateChannelConfig(channel); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidChannelConfiguration, err)
	}

	if err := db.CreateChannel(ctx, channel); err != nil {
		log.Error("failed to create channel", "error", err)
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}
	log.Info("notification channel created", "channel_id", channel.ID, "type", channel.Type)
	return channel, nil
}

// GetChannel retrieves a channel by id.
func GetChannel(ctx context.Context, db *sqlite.DB, log *slog.Logger, id models.ChannelID) (*models.NotificationChannel, error) {
	channel, err := db.GetChannel(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChannelNotFound
		}
		log.Error("failed to get channel", "channel_id", id, "error", err)
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}
	return channel, nil
}

// UpdateChannel merges non-nil request fields onto the stored channel,
// validates, and persists.
func UpdateChannel(ctx context.Context, db *sqlite.DB, log *slog.Logger, id models.ChannelID, req *models.UpdateChannelRequest) (*models.NotificationChannel, error) {
	if req == nil {
		return nil, ErrInvalidChannelConfiguration
	}

	existing, err := GetChannel(ctx, db, log, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		existing.Name = strings.TrimSpace(*req.Name)
	}
	if req.Type != nil {
		existing.Type = *req.Type
	}
	if req.Config != nil {
		existing.Config = *req.Config
	}
	if req.IsEnabled != nil {
		existing.IsEnabled = *req.IsEnabled
	}

	if err := validateChannelConfig(existing); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidChannelConfiguration, err)
	}

	if err := db.UpdateChannel(ctx, existing); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrChannelNotFound
		}
		log.Error("failed to update channel", "channel_id", id, "error", err)
		return nil, fmt.Errorf("failed to update channel: %w", err)
	}
	return existing, nil
}

// DeleteChannel removes a channel. Rules referencing it are untouched:
// dispatch skips dangling ids.
func DeleteChannel(ctx context.Context, db *sqlite.DB, log *slog.Logger, id models.ChannelID) error {
	if err := db.DeleteChannel(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrChannelNotFound
		}
		log.Error("failed to delete channel", "channel_id", id, "error", err)
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	log.Info("notification channel deleted", "channel_id", id)
	return nil
}
