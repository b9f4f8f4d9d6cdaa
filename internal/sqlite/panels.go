package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gaugehq/gauge/pkg/models"
)

const (
	insertDashboardQuery = `INSERT INTO dashboards (title) VALUES (?) RETURNING id`

	insertPanelQuery = `INSERT INTO panels (
    dashboard_id,
    title,
    datasource,
    targets
) VALUES (?, ?, ?, ?)
RETURNING id`

	selectPanelBase = `SELECT
    id,
    dashboard_id,
    title,
    datasource,
    targets
FROM panels`
)

// CreateDashboard inserts a dashboard and returns its id.
func (db *DB) CreateDashboard(ctx context.Context, title string) (int64, error) {
	var id int64
	if err := db.writeDB.QueryRowContext(ctx, insertDashboardQuery, title).Scan(&id); err != nil {
		return 0, fmt.Errorf("failed to insert dashboard: %w", err)
	}
	return id, nil
}

// CreatePanel inserts a panel under a dashboard.
func (db *DB) CreatePanel(ctx context.Context, panel *models.Panel) error {
	if panel == nil {
		return fmt.Errorf("panel payload is required")
	}

	targetsJSON, err := json.Marshal(panel.Targets)
	if err != nil {
		return fmt.Errorf("failed to marshal panel targets: %w", err)
	}

	row := db.writeDB.QueryRowContext(ctx, insertPanelQuery,
		panel.DashboardID,
		panel.Title,
		panel.Datasource,
		string(targetsJSON),
	)
	if err := row.Scan(&panel.ID); err != nil {
		return fmt.Errorf("failed to insert panel: %w", err)
	}
	return nil
}

// GetPanel retrieves a panel by id. Used to resolve the query of a rule
// that borrows its linked panel's first target.
func (db *DB) GetPanel(ctx context.Context, id int64) (*models.Panel, error) {
	row := db.readDB.QueryRowContext(ctx, selectPanelBase+" WHERE id = ?", id)

	var (
		panel       models.Panel
		targetsJSON string
	)
	if err := row.Scan(
		&panel.ID,
		&panel.DashboardID,
		&panel.Title,
		&panel.Datasource,
		&targetsJSON,
	); err != nil {
		return nil, fmt.Errorf("failed to scan panel: %w", err)
	}
	if err := json.Unmarshal([]byte(targetsJSON), &panel.Targets); err != nil {
		return nil, fmt.Errorf("failed to unmarshal panel targets: %w", err)
	}
	return &panel, nil
}

// ListPanels fetches a dashboard's panels.
func (db *DB) ListPanels(ctx context.Context, dashboardID int64) ([]*models.Panel, error) {
	rows, err := db.readDB.QueryContext(ctx, selectPanelBase+" WHERE dashboard_id = ? ORDER BY id ASC", dashboardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list panels: %w", err)
	}
	defer rows.Close()

	var panels []*models.Panel
	for rows.Next() {
		var (
			panel       models.Panel
			targetsJSON string
		)
		if err := rows.Scan(&panel.ID, &panel.DashboardID, &panel.Title, &panel.Datasource, &targetsJSON); err != nil {
			return nil, fmt.Errorf("failed to scan panel: %w", err)
		}
		if err := json.Unmarshal([]byte(targetsJSON), &panel.Targets); err != nil {
			return nil, fmt.Errorf("failed to unmarshal panel targets: %w", err)
		}
		panels = append(panels, &panel)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating panels: %w", err)
	}
	return panels, nil
}
