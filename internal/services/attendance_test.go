package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"telescreen-backend/internal/models"
)

type fakeAccounts struct {
	accounts map[uuid.UUID]*models.Account
}

func (f *fakeAccounts) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	a, ok := f.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

type fakeStore struct {
	records map[string]*models.DailyAttendanceRecord
	updates int
}

func storeKey(employeeID uuid.UUID, date time.Time) string {
	return employeeID.String() + "|" + date.Format("2006-01-02")
}

func (f *fakeStore) GetOrCreate(_ context.Context, employeeID uuid.UUID, date, loginTime time.Time) (*models.DailyAttendanceRecord, error) {
	key := storeKey(employeeID, date)
	if rec, ok := f.records[key]; ok {
		return rec, nil
	}
	rec := &models.DailyAttendanceRecord{
		ID:         uuid.New(),
		EmployeeID: employeeID,
		WorkDate:   date,
		LoginTime:  loginTime,
		Status:     models.StatusOff,
		LastSeenAt: loginTime,
	}
	f.records[key] = rec
	return rec, nil
}

func (f *fakeStore) Update(_ context.Context, rec *models.DailyAttendanceRecord) error {
	f.updates++
	return nil
}

func (f *fakeStore) IncrementScreenshot(_ context.Context, employeeID uuid.UUID, date, ts time.Time) error {
	rec, _ := f.GetOrCreate(context.Background(), employeeID, date, ts)
	rec.ScreenshotCount++
	return nil
}

type fakePresence struct {
	touches    int
	activities []models.ActivityEvent
}

func (f *fakePresence) Touch(uuid.UUID, string, time.Time) { f.touches++ }

func (f *fakePresence) PublishActivity(_ context.Context, ev models.ActivityEvent) {
	f.activities = append(f.activities, ev)
}

func newTestService() (*AttendanceService, *fakeStore, *fakePresence, uuid.UUID) {
	employeeID := uuid.New()
	accounts := &fakeAccounts{accounts: map[uuid.UUID]*models.Account{
		employeeID: {ID: employeeID, Role: models.RoleEmployee, IsActive: true},
	}}
	store := &fakeStore{records: make(map[string]*models.DailyAttendanceRecord)}
	presence := &fakePresence{}
	svc := NewAttendanceService(accounts, store, presence, 5*time.Minute)
	return svc, store, presence, employeeID
}

func TestOnHeartbeat_AccumulatesWorkingHours(t *testing.T) {
	svc, store, presence, employeeID := newTestService()
	start := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)

	// WORKING at 09:00, 09:05, 09:10.
	for i := 0; i < 3; i++ {
		ts := start.Add(time.Duration(i) * 5 * time.Minute)
		if err := svc.OnHeartbeat(context.Background(), employeeID, models.StatusWorking, ts, "PC-07"); err != nil {
			t.Fatalf("heartbeat %d: %v", i, err)
		}
	}

	rec := store.records[storeKey(employeeID, time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC))]
	if rec == nil {
		t.Fatal("no record created")
	}

	if diff := rec.WorkingHours - 0.25; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("working_hours = %v, want 0.25", rec.WorkingHours)
	}
	if rec.OvertimeHours != 0 {
		t.Errorf("overtime_hours = %v, want 0", rec.OvertimeHours)
	}
	if !rec.LoginTime.Equal(start) {
		t.Errorf("login_time = %v, want %v", rec.LoginTime, start)
	}
	if len(presence.activities) != 3 {
		t.Errorf("expected 3 presence broadcasts, got %d", len(presence.activities))
	}
}

func TestOnHeartbeat_OvertimeAfterEightHours(t *testing.T) {
	svc, store, _, employeeID := newTestService()
	start := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)

	// 99 heartbeats of 5 minutes each: 8.25 hours worked.
	for i := 0; i < 99; i++ {
		ts := start.Add(time.Duration(i) * 5 * time.Minute)
		if err := svc.OnHeartbeat(context.Background(), employeeID, models.StatusWorking, ts, ""); err != nil {
			t.Fatalf("heartbeat %d: %v", i, err)
		}
	}

	rec := store.records[storeKey(employeeID, time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC))]
	if diff := rec.WorkingHours - 8.25; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("working_hours = %v, want 8.25", rec.WorkingHours)
	}
	if diff := rec.OvertimeHours - 0.25; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("overtime_hours = %v, want 0.25", rec.OvertimeHours)
	}
}

func TestOnHeartbeat_StatusesFillSeparateBuckets(t *testing.T) {
	svc, store, _, employeeID := newTestService()
	ts := time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC)

	statuses := []string{
		models.StatusWorking, models.StatusBreak, models.StatusIdle, models.StatusOff,
	}
	for i, status := range statuses {
		if err := svc.OnHeartbeat(context.Background(), employeeID, status, ts.Add(time.Duration(i)*5*time.Minute), ""); err != nil {
			t.Fatalf("heartbeat %s: %v", status, err)
		}
	}

	rec := store.records[storeKey(employeeID, time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC))]
	interval := 5.0 / 60.0
	if diff := rec.WorkingHours - interval; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("working_hours = %v, want %v", rec.WorkingHours, interval)
	}
	if diff := rec.BreakHours - interval; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("break_hours = %v, want %v", rec.BreakHours, interval)
	}
	if diff := rec.IdleHours - interval; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("idle_hours = %v, want %v", rec.IdleHours, interval)
	}
	// OFF must not move any bucket but must update status.
	if rec.Status != models.StatusOff {
		t.Errorf("status = %q, want OFF", rec.Status)
	}
}

func TestOnHeartbeat_NewDayNewRecord(t *testing.T) {
	svc, store, _, employeeID := newTestService()

	day1 := time.Date(2026, 8, 3, 23, 55, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 4, 0, 0, 0, 0, time.UTC)

	svc.OnHeartbeat(context.Background(), employeeID, models.StatusWorking, day1, "")
	svc.OnHeartbeat(context.Background(), employeeID, models.StatusWorking, day2, "")

	if len(store.records) != 2 {
		t.Fatalf("expected 2 daily records, got %d", len(store.records))
	}

	rec2 := store.records[storeKey(employeeID, time.Date(2026, 8, 4, 0, 0, 0, 0, time.UTC))]
	if !rec2.LoginTime.Equal(day2) {
		t.Errorf("second day login_time = %v, want %v", rec2.LoginTime, day2)
	}
}

func TestOnHeartbeat_UnknownIdentity(t *testing.T) {
	svc, store, _, _ := newTestService()

	err := svc.OnHeartbeat(context.Background(), uuid.New(), models.StatusWorking, time.Now(), "")

	var unauthorized *UnauthorizedError
	if !errors.As(err, &unauthorized) {
		t.Fatalf("expected UnauthorizedError, got %v", err)
	}
	if !unauthorized.ShouldLogout {
		t.Error("unknown identity must force logout")
	}
	if len(store.records) != 0 {
		t.Error("unknown identity must not create records")
	}
}

func TestOnHeartbeat_InvalidStatus(t *testing.T) {
	svc, _, _, employeeID := newTestService()

	err := svc.OnHeartbeat(context.Background(), employeeID, "NAPPING", time.Now(), "")

	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestRecordScreenshot(t *testing.T) {
	svc, store, _, employeeID := newTestService()
	ts := time.Date(2026, 8, 3, 11, 0, 0, 0, time.UTC)

	svc.RecordScreenshot(context.Background(), employeeID, ts)
	svc.RecordScreenshot(context.Background(), employeeID, ts.Add(time.Minute))

	rec := store.records[storeKey(employeeID, time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC))]
	if rec.ScreenshotCount != 2 {
		t.Errorf("screenshot_count = %d, want 2", rec.ScreenshotCount)
	}
}
