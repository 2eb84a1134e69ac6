package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"telescreen-backend/internal/models"
)

type AttendanceRepo struct {
	pool *pgxpool.Pool
}

func NewAttendanceRepo(pool *pgxpool.Pool) *AttendanceRepo {
	return &AttendanceRepo{pool: pool}
}

const attendanceColumns = `id, employee_id, work_date, login_time, working_hours, break_hours,
	idle_hours, overtime_hours, screenshot_count, status, last_seen_at`

func scanRecord(row interface{ Scan(...any) error }, rec *models.DailyAttendanceRecord) error {
	return row.Scan(
		&rec.ID, &rec.EmployeeID, &rec.WorkDate, &rec.LoginTime,
		&rec.WorkingHours, &rec.BreakHours, &rec.IdleHours, &rec.OvertimeHours,
		&rec.ScreenshotCount, &rec.Status, &rec.LastSeenAt,
	)
}

// GetOrCreate returns the record for (employee, date), inserting it on the
// first heartbeat of that day. login_time is only ever set by the insert.
func (r *AttendanceRepo) GetOrCreate(ctx context.Context, employeeID uuid.UUID, date time.Time, loginTime time.Time) (*models.DailyAttendanceRecord, error) {
	rec := &models.DailyAttendanceRecord{}
	query := `
		INSERT INTO attendance_records (employee_id, work_date, login_time, status, last_seen_at)
		VALUES ($1, $2, $3, $4, $3)
		ON CONFLICT (employee_id, work_date) DO UPDATE SET employee_id = EXCLUDED.employee_id
		RETURNING ` + attendanceColumns
	err := scanRecord(r.pool.QueryRow(ctx, query, employeeID, date, loginTime, models.StatusOff), rec)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *AttendanceRepo) Update(ctx context.Context, rec *models.DailyAttendanceRecord) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE attendance_records
		SET working_hours = $2,
			break_hours = $3,
			idle_hours = $4,
			overtime_hours = $5,
			status = $6,
			last_seen_at = $7
		WHERE id = $1
	`, rec.ID, rec.WorkingHours, rec.BreakHours, rec.IdleHours, rec.OvertimeHours, rec.Status, rec.LastSeenAt)
	return err
}

func (r *AttendanceRepo) IncrementScreenshot(ctx context.Context, employeeID uuid.UUID, date time.Time, ts time.Time) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO attendance_records (employee_id, work_date, login_time, status, last_seen_at, screenshot_count)
		VALUES ($1, $2, $3, $4, $3, 1)
		ON CONFLICT (employee_id, work_date)
		DO UPDATE SET screenshot_count = attendance_records.screenshot_count + 1
	`, employeeID, date, ts, models.StatusOff)
	return err
}

func (r *AttendanceRepo) GetByEmployeeAndDate(ctx context.Context, employeeID uuid.UUID, date time.Time) (*models.DailyAttendanceRecord, error) {
	rec := &models.DailyAttendanceRecord{}
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE employee_id = $1 AND work_date = $2`
	err := scanRecord(r.pool.QueryRow(ctx, query, employeeID, date), rec)
	if err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *AttendanceRepo) ListByDate(ctx context.Context, date time.Time) ([]models.DailyAttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE work_date = $1 ORDER BY login_time`
	rows, err := r.pool.Query(ctx, query, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.DailyAttendanceRecord
	for rows.Next() {
		var rec models.DailyAttendanceRecord
		if err := scanRecord(rows, &rec); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}
