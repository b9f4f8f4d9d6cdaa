package models

import "time"

// ChannelID identifies a notification channel.
type ChannelID int64

// ChannelType enumerates supported outbound notification channels.
type ChannelType string

const (
	ChannelEmail   ChannelType = "email"
	ChannelSlack   ChannelType = "slack"
	ChannelDiscord ChannelType = "discord"
	ChannelWebhook ChannelType = "webhook"
)

// IsValid checks if the channel type is recognized.
func (t ChannelType) IsValid() bool {
	switch t {
	case ChannelEmail, ChannelSlack, ChannelDiscord, ChannelWebhook:
		return true
	default:
		return false
	}
}

// ChannelConfig holds the type specific delivery configuration. URL based
// channels use URL/Method/Headers; email uses Recipients.
type ChannelConfig struct {
	URL        string            `json:"url,omitempty"`
	Method     string            `json:"method,omitempty"`
	Headers    map[string]string `json:"headers,omitempty"`
	Recipients []string          `json:"recipients,omitempty"`
}

// NotificationChannel is a configured notification destination. Channels are
// owned independently of alerts and referenced by id only; deleting a channel
// never cascades to the alerts referencing it.
type NotificationChannel struct {
	ID        ChannelID     `json:"id"`
	Name      string        `json:"name"`
	Type      ChannelType   `json:"type"`
	Config    ChannelConfig `json:"config"`
	IsEnabled bool          `json:"is_enabled"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// CreateChannelRequest defines the payload for creating a notification channel.
type CreateChannelRequest struct {
	Name      string        `json:"name"`
	Type      ChannelType   `json:"type"`
	Config    ChannelConfig `json:"config"`
	IsEnabled bool          `json:"is_enabled"`
}

// UpdateChannelRequest defines updatable fields for a notification channel.
type UpdateChannelRequest struct {
	Name      *string        `json:"name"`
	Type      *ChannelType   `json:"type"`
	Config    *ChannelConfig `json:"config"`
	IsEnabled *bool          `json:"is_enabled"`
}
