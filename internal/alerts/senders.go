package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gaugehq/gauge/pkg/models"
)

// WebhookErrorKind classifies a delivery failure for logging and retry
// decisions downstream.
type WebhookErrorKind string

const (
	WebhookErrorRateLimited WebhookErrorKind = "rate_limited"
	WebhookErrorNotFound    WebhookErrorKind = "not_found"
	WebhookErrorServer      WebhookErrorKind = "server_error"
	WebhookErrorClient      WebhookErrorKind = "client_error"
	WebhookErrorNetwork     WebhookErrorKind = "network"
)

// WebhookError is a classified outbound HTTP delivery failure.
type WebhookError struct {
	Kind       WebhookErrorKind
	StatusCode int
	URL        string
	cause      error
}

func (e *WebhookError) Error() string {
	if e.Kind == WebhookErrorNetwork {
		return fmt.Sprintf("webhook %s: no response: %v", e.URL, e.cause)
	}
	return fmt.Sprintf("webhook %s: %s (status %d)", e.URL, e.Kind, e.StatusCode)
}

func (e *WebhookError) Unwrap() error { return e.cause }

// classifyStatus maps an HTTP response code to an error, nil for 2xx.
func classifyStatus(url string, code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return &WebhookError{Kind: WebhookErrorRateLimited, StatusCode: code, URL: url}
	case code == http.StatusNotFound:
		return &WebhookError{Kind: WebhookErrorNotFound, StatusCode: code, URL: url}
	case code >= 500:
		return &WebhookError{Kind: WebhookErrorServer, StatusCode: code, URL: url}
	default:
		return &WebhookError{Kind: WebhookErrorClient, StatusCode: code, URL: url}
	}
}

// postJSON delivers a JSON body and classifies the response. The context
// carries the per-channel timeout, so the client itself sets none.
func postJSON(ctx context.Context, client *http.Client, method, url string, headers map[string]string, body any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}
	if method == "" {
		method = http.MethodPost
	}

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(method), url, bytes.NewReader(buf))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &WebhookError{Kind: WebhookErrorNetwork, URL: url, cause: err}
	}
	defer resp.Body.Close()
	return classifyStatus(url, resp.StatusCode)
}

const (
	slackColorFiring   = "danger"
	slackColorResolved = "good"

	discordColorFiring   = 15158332
	discordColorResolved = 3066993
)

// SlackSender posts an incoming-webhook attachment.
type SlackSender struct {
	client *http.Client
	log    *slog.Logger
}

func NewSlackSender(logger *slog.Logger) *SlackSender {
	return &SlackSender{client: &http.Client{}, log: logger.With("sender", "slack")}
}

func (s *SlackSender) Send(ctx context.Context, channel *models.NotificationChannel, payload Payload) error {
	if channel.Config.URL == "" {
		return fmt.Errorf("slack channel %q has no url", channel.Name)
	}

	color := slackColorResolved
	title := payload.AlertName
	if payload.State == models.AlertStateFiring {
		color = slackColorFiring
		title = "🚨 " + payload.AlertName
	}

	body := map[string]any{
		"attachments": []map[string]any{{
			"color": color,
			"title": title,
			"text":  payload.Message,
			"fields": []map[string]any{
				{"title": "State", "value": string(payload.State), "short": true},
				{"title": "Value", "value": fmt.Sprintf("%.4f", payload.Value), "short": true},
				{"title": "Threshold", "value": fmt.Sprintf("%.4f", payload.Threshold), "short": true},
			},
			"footer": "Gauge Monitoring",
			"ts":     payload.Timestamp.Unix(),
		}},
	}
	return postJSON(ctx, s.client, http.MethodPost, channel.Config.URL, nil, body)
}

// DiscordSender posts a webhook embed.
type DiscordSender struct {
	client *http.Client
	log    *slog.Logger
}

func NewDiscordSender(logger *slog.Logger) *DiscordSender {
	return &DiscordSender{client: &http.Client{}, log: logger.With("sender", "discord")}
}

func (s *DiscordSender) Send(ctx context.Context, channel *models.NotificationChannel, payload Payload) error {
	if channel.Config.URL == "" {
		return fmt.Errorf("discord channel %q has no url", channel.Name)
	}

	color := discordColorResolved
	title := payload.AlertName
	if payload.State == models.AlertStateFiring {
		color = discordColorFiring
		title = "🚨 " + payload.AlertName
	}

	body := map[string]any{
		"embeds": []map[string]any{{
			"title":       title,
			"description": payload.Message,
			"color":       color,
			"fields": []map[string]any{
				{"name": "State", "value": string(payload.State), "inline": true},
				{"name": "Value", "value": fmt.Sprintf("%.4f", payload.Value), "inline": true},
				{"name": "Threshold", "value": fmt.Sprintf("%.4f", payload.Threshold), "inline": true},
			},
			"timestamp": payload.Timestamp.UTC().Format(time.RFC3339),
		}},
	}
	return postJSON(ctx, s.client, http.MethodPost, channel.Config.URL, nil, body)
}

// WebhookSender posts a flat JSON payload to an arbitrary endpoint,
// honoring the channel's configured method and extra headers.
type WebhookSender struct {
	client *http.Client
	log    *slog.Logger
}

func NewWebhookSender(logger *slog.Logger) *WebhookSender {
	return &WebhookSender{client: &http.Client{}, log: logger.With("sender", "webhook")}
}

func (s *WebhookSender) Send(ctx context.Context, channel *models.NotificationChannel, payload Payload) error {
	if channel.Config.URL == "" {
		return fmt.Errorf("webhook channel %q has no url", channel.Name)
	}

	body := map[string]any{
		"alert":     payload.AlertName,
		"message":   payload.Message,
		"state":     string(payload.State),
		"value":     payload.Value,
		"threshold": payload.Threshold,
		"timestamp": payload.Timestamp.UTC().Format(time.RFC3339),
	}
	return postJSON(ctx, s.client, channel.Config.Method, channel.Config.URL, channel.Config.Headers, body)
}

// EmailSender is a delivery stub: it records the notification in the
// structured log instead of speaking SMTP.
type EmailSender struct {
	log *slog.Logger
}

func NewEmailSender(logger *slog.Logger) *EmailSender {
	return &EmailSender{log: logger.With("sender", "email")}
}

func (s *EmailSender) Send(ctx context.Context, channel *models.NotificationChannel, payload Payload) error {
	s.log.Info("email notification",
		"channel", channel.Name,
		"recipients", channel.Config.Recipients,
		"alert", payload.AlertName,
		"state", payload.State,
		"value", payload.Value,
		"message", payload.Message,
	)
	return nil
}
