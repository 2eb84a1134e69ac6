package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	IdentityAdmin    = "ADMIN"
	IdentityEmployee = "EMPLOYEE"
)

// Identity is the logical party behind an ephemeral connection.
type Identity struct {
	Kind string
	ID   uuid.UUID
}

// PresenceEntry maps an employee to its authoritative (latest) connection.
// Only the latest registration routes; earlier connections may still be open.
type PresenceEntry struct {
	ConnID     uuid.UUID `json:"conn_id"`
	Status     string    `json:"status"`
	VideoReady bool      `json:"video_ready"`
	LastSeenAt time.Time `json:"last_seen_at"`
}

// ActivityEvent is the presence broadcast admins receive on connect,
// disconnect, and every heartbeat-carried status change.
type ActivityEvent struct {
	EmployeeID uuid.UUID `json:"employeeId"`
	Status     string    `json:"status"`
	Timestamp  time.Time `json:"timestamp"`
}

type PresenceSnapshot struct {
	EmployeeID uuid.UUID `json:"employee_id"`
	Status     string    `json:"status"`
	VideoReady bool      `json:"video_ready"`
	LastSeenAt time.Time `json:"last_seen_at"`
}
