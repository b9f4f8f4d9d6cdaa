package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gaugehq/gauge/pkg/models"
)

const (
	insertChannelQuery = `INSERT INTO notification_channels (
    name,
    type,
    config,
    is_enabled
) VALUES (?, ?, ?, ?)
RETURNING id, created_at, updated_at`

	selectChannelBase = `SELECT
    id,
    name,
    type,
    config,
    is_enabled,
    created_at,
    updated_at
FROM notification_channels`

	updateChannelQuery = `UPDATE notification_channels
SET name = ?,
    type = ?,
    config = ?,
    is_enabled = ?,
    updated_at = datetime('now')
WHERE id = ?`

	deleteChannelQuery = `DELETE FROM notification_channels WHERE id = ?`
)

// CreateChannel inserts a new notification channel.
func (db *DB) CreateChannel(ctx context.Context, channel *models.NotificationChannel) error {
	if channel == nil {
		return fmt.Errorf("channel payload is required")
	}

	configJSON, err := json.Marshal(channel.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal channel config: %w", err)
	}

	row := db.writeDB.QueryRowContext(ctx, insertChannelQuery,
		channel.Name,
		string(channel.Type),
		string(configJSON),
		boolToInt(channel.IsEnabled),
	)

	var id int64
	if err := row.Scan(&id, &channel.CreatedAt, &channel.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert channel: %w", err)
	}
	channel.ID = models.ChannelID(id)
	return nil
}

// GetChannel retrieves a channel by id.
func (db *DB) GetChannel(ctx context.Context, id models.ChannelID) (*models.NotificationChannel, error) {
	row := db.readDB.QueryRowContext(ctx, selectChannelBase+" WHERE id = ?", int64(id))
	return scanChannel(row)
}

// ListChannels fetches all channels, newest first.
func (db *DB) ListChannels(ctx context.Context) ([]*models.NotificationChannel, error) {
	return db.queryChannels(ctx, selectChannelBase+" ORDER BY created_at DESC, id DESC")
}

// ListChannelsByIDs fetches the enabled channels among the given ids,
// returned in the order the ids were requested. Ids that are unknown or
// disabled are simply absent from the result; the caller treats them as
// skipped destinations.
func (db *DB) ListChannelsByIDs(ctx context.Context, ids []models.ChannelID) ([]*models.NotificationChannel, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	query := selectChannelBase + " WHERE is_enabled = 1 AND id IN (" + placeholders + ")"
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = int64(id)
	}

	channels, err := db.queryChannels(ctx, query, args...)
	if err != nil {
		return nil, err
	}

	byID := make(map[models.ChannelID]*models.NotificationChannel, len(channels))
	for _, channel := range channels {
		byID[channel.ID] = channel
	}
	ordered := make([]*models.NotificationChannel, 0, len(channels))
	for _, id := range ids {
		if channel, ok := byID[id]; ok {
			ordered = append(ordered, channel)
		}
	}
	return ordered, nil
}

func (db *DB) queryChannels(ctx context.Context, query string, args ...any) ([]*models.NotificationChannel, error) {
	rows, err := db.readDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	defer rows.Close()

	var channels []*models.NotificationChannel
	for rows.Next() {
		channel, err := scanChannel(rows)
		if err != nil {
			return nil, err
		}
		channels = append(channels, channel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating channels: %w", err)
	}
	return channels, nil
}

// UpdateChannel persists changes to an existing channel.
func (db *DB) UpdateChannel(ctx context.Context, channel *models.NotificationChannel) error {
	if channel == nil {
		return fmt.Errorf("channel payload is required")
	}

	configJSON, err := json.Marshal(channel.Config)
	if err != nil {
		return fmt.Errorf("failed to marshal channel config: %w", err)
	}

	res, err := db.writeDB.ExecContext(ctx, updateChannelQuery,
		channel.Name,
		string(channel.Type),
		string(configJSON),
		boolToInt(channel.IsEnabled),
		int64(channel.ID),
	)
	if err != nil {
		return fmt.Errorf("failed to update channel: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteChannel removes a channel. Alerts referencing it keep the dangling
// id; dispatch skips it.
func (db *DB) DeleteChannel(ctx context.Context, id models.ChannelID) error {
	res, err := db.writeDB.ExecContext(ctx, deleteChannelQuery, int64(id))
	if err != nil {
		return fmt.Errorf("failed to delete channel: %w", err)
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func scanChannel(row rowScanner) (*models.NotificationChannel, error) {
	var (
		channel    models.NotificationChannel
		configJSON string
		enabled    int
	)
	if err := row.Scan(
		&channel.ID,
		&channel.Name,
		&channel.Type,
		&configJSON,
		&enabled,
		&channel.CreatedAt,
		&channel.UpdatedAt,
	); err != nil {
		return nil, fmt.Errorf("failed to scan channel: %w", err)
	}
	channel.IsEnabled = enabled != 0
	if err := json.Unmarshal([]byte(configJSON), &channel.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal channel config: %w", err)
	}
	return &channel, nil
}
