package services

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"telescreen-backend/internal/models"
)

// missedBeats is how many heartbeat intervals may elapse before an employee
// is shown as offline in admin views.
const missedBeats = 3

type presenceSweeperHub interface {
	StaleEmployees(maxAge time.Duration, now time.Time) []uuid.UUID
	PublishActivity(ctx context.Context, ev models.ActivityEvent)
}

// PresenceSweeper demotes silent employees to OFF for admin UI purposes
// only. The stored attendance status stays whatever the last heartbeat said;
// this sweep is purely a liveness view.
type PresenceSweeper struct {
	hub               presenceSweeperHub
	heartbeatInterval time.Duration
	sweepEvery        time.Duration
	stopChan          chan struct{}
}

func NewPresenceSweeper(hub presenceSweeperHub, heartbeatInterval, sweepEvery time.Duration) *PresenceSweeper {
	return &PresenceSweeper{
		hub:               hub,
		heartbeatInterval: heartbeatInterval,
		sweepEvery:        sweepEvery,
		stopChan:          make(chan struct{}),
	}
}

func (s *PresenceSweeper) Start() {
	go s.loop()
	log.Printf("Presence sweeper started (every %s, offline after %s)", s.sweepEvery, s.maxAge())
}

func (s *PresenceSweeper) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
}

func (s *PresenceSweeper) maxAge() time.Duration {
	return missedBeats * s.heartbeatInterval
}

func (s *PresenceSweeper) loop() {
	ticker := time.NewTicker(s.sweepEvery)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case now := <-ticker.C:
			s.sweep(context.Background(), now)
		}
	}
}

func (s *PresenceSweeper) sweep(ctx context.Context, now time.Time) {
	for _, employeeID := range s.hub.StaleEmployees(s.maxAge(), now) {
		s.hub.PublishActivity(ctx, models.ActivityEvent{
			EmployeeID: employeeID,
			Status:     models.StatusOff,
			Timestamp:  now,
		})
	}
}
