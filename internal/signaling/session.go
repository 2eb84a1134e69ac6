package signaling

import (
	"time"

	"github.com/google/uuid"
)

type State string

const (
	StateIdle      State = "IDLE"
	StateRequested State = "REQUESTED"
	StateOfferSent State = "OFFER_SENT"
	StateAnswered  State = "ANSWERED"
	StateConnected State = "CONNECTED"
	StateClosed    State = "CLOSED"
	StateFailed    State = "FAILED"
)

// Session tracks one live-view negotiation between an admin and an employee.
// Exactly one session exists per employee; a new request supersedes the old.
type Session struct {
	ID           uuid.UUID
	AdminID      uuid.UUID
	EmployeeID   uuid.UUID
	AdminConn    uuid.UUID
	EmployeeConn uuid.UUID
	State        State
	CreatedAt    time.Time
	RetryCount   int
}

func (s *Session) terminal() bool {
	return s.State == StateClosed || s.State == StateFailed
}

// canFail reports whether FAILED is reachable from the current state. Once
// CONNECTED, degradation is handled by teardown and a fresh request, not by
// marking failure.
func (s *Session) canFail() bool {
	switch s.State {
	case StateRequested, StateOfferSent, StateAnswered:
		return true
	}
	return false
}

func (s *Session) hasParticipant(connID uuid.UUID) bool {
	return s.AdminConn == connID || s.EmployeeConn == connID
}
