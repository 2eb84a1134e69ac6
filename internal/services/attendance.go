package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"telescreen-backend/internal/models"
)

// attendanceStore is the persistence slice the aggregator needs.
type attendanceStore interface {
	GetOrCreate(ctx context.Context, employeeID uuid.UUID, date time.Time, loginTime time.Time) (*models.DailyAttendanceRecord, error)
	Update(ctx context.Context, rec *models.DailyAttendanceRecord) error
	IncrementScreenshot(ctx context.Context, employeeID uuid.UUID, date time.Time, ts time.Time) error
}

type identityStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Account, error)
}

// presenceNotifier is the hub slice the aggregator needs: last-seen updates
// and the admin-facing activity rebroadcast.
type presenceNotifier interface {
	Touch(employeeID uuid.UUID, status string, ts time.Time)
	PublishActivity(ctx context.Context, ev models.ActivityEvent)
}

// AttendanceService turns periodic heartbeats into accumulated daily
// work/break/idle/overtime time. State transitions happen only on inbound
// heartbeats; nothing here promotes status on a timer.
type AttendanceService struct {
	accounts identityStore
	store    attendanceStore
	presence presenceNotifier
	interval time.Duration

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

func NewAttendanceService(accounts identityStore, store attendanceStore, presence presenceNotifier, interval time.Duration) *AttendanceService {
	return &AttendanceService{
		accounts: accounts,
		store:    store,
		presence: presence,
		interval: interval,
		locks:    make(map[uuid.UUID]*sync.Mutex),
	}
}

// lockFor serializes the read-increment-write cycle per employee. One agent
// per employee makes contention rare, but a racing duplicate must not cause
// a lost update.
func (s *AttendanceService) lockFor(employeeID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[employeeID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[employeeID] = l
	}
	return l
}

// OnHeartbeat upserts the employee's record for the heartbeat's calendar day,
// credits one interval to the status bucket, recomputes overtime, and
// rebroadcasts presence to admin viewers.
func (s *AttendanceService) OnHeartbeat(ctx context.Context, employeeID uuid.UUID, status string, ts time.Time, pcName string) error {
	if !models.ValidStatus(status) {
		return &ValidationError{Fields: map[string]string{"status": "must be WORKING, BREAK, IDLE, or OFF"}}
	}

	account, err := s.accounts.GetByID(ctx, employeeID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &UnauthorizedError{Message: "Unknown identity", ShouldLogout: true}
		}
		return err
	}
	if account.Role != models.RoleEmployee || !account.IsActive {
		return &UnauthorizedError{Message: "Identity is not an active employee", ShouldLogout: true}
	}

	l := s.lockFor(employeeID)
	l.Lock()
	defer l.Unlock()

	date := dayOf(ts)
	rec, err := s.store.GetOrCreate(ctx, employeeID, date, ts)
	if err != nil {
		return err
	}

	rec.Apply(status, s.interval.Hours(), ts)

	if err := s.store.Update(ctx, rec); err != nil {
		return err
	}

	s.presence.Touch(employeeID, status, ts)
	s.presence.PublishActivity(ctx, models.ActivityEvent{
		EmployeeID: employeeID,
		Status:     status,
		Timestamp:  ts,
	})

	return nil
}

// RecordScreenshot bumps today's screenshot counter for the employee.
func (s *AttendanceService) RecordScreenshot(ctx context.Context, employeeID uuid.UUID, ts time.Time) error {
	l := s.lockFor(employeeID)
	l.Lock()
	defer l.Unlock()
	return s.store.IncrementScreenshot(ctx, employeeID, dayOf(ts), ts)
}

func dayOf(ts time.Time) time.Time {
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, ts.Location())
}
