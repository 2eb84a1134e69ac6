package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"telescreen-backend/internal/models"
)

type AlertRepo struct {
	pool *pgxpool.Pool
}

func NewAlertRepo(pool *pgxpool.Pool) *AlertRepo {
	return &AlertRepo{pool: pool}
}

func (r *AlertRepo) Create(ctx context.Context, a *models.AlertReport) error {
	query := `
		INSERT INTO alert_reports (employee_id, alert_type, action_attempted, details, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	return r.pool.QueryRow(ctx, query, a.EmployeeID, a.AlertType, a.ActionAttempted, a.Details, a.CreatedAt).
		Scan(&a.ID)
}

func (r *AlertRepo) ListRecent(ctx context.Context, limit int) ([]models.AlertReport, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, employee_id, alert_type, action_attempted, details, created_at
		FROM alert_reports
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var alerts []models.AlertReport
	for rows.Next() {
		var a models.AlertReport
		if err := rows.Scan(&a.ID, &a.EmployeeID, &a.AlertType, &a.ActionAttempted, &a.Details, &a.CreatedAt); err != nil {
			return nil, err
		}
		alerts = append(alerts, a)
	}
	return alerts, rows.Err()
}
