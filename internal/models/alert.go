package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	AlertUserIdle      = "USER_IDLE"
	AlertMouseInactive = "MOUSE_INACTIVE"
	AlertLowTyping     = "LOW_TYPING_SPEED"
	AlertRestrictedApp = "RESTRICTED_APP_DETECTED"
)

func ValidAlertType(t string) bool {
	switch t {
	case AlertUserIdle, AlertMouseInactive, AlertLowTyping, AlertRestrictedApp:
		return true
	}
	return false
}

type AlertReport struct {
	ID              uuid.UUID `json:"id"`
	EmployeeID      uuid.UUID `json:"employee_id"`
	AlertType       string    `json:"alert_type"`
	ActionAttempted string    `json:"action_attempted"`
	Details         string    `json:"details"`
	CreatedAt       time.Time `json:"created_at"`
}

type AlertReportRequest struct {
	AlertType       string `json:"alert_type"`
	ActionAttempted string `json:"action_attempted"`
	Details         string `json:"details"`
}

// AlertJob is what the heartbeat handler enqueues to Redis and the worker
// pool drains.
type AlertJob struct {
	EmployeeID      uuid.UUID `json:"employee_id"`
	AlertType       string    `json:"alert_type"`
	ActionAttempted string    `json:"action_attempted"`
	Details         string    `json:"details"`
	ReportedAt      time.Time `json:"reported_at"`
	Attempts        int       `json:"attempts"`
}
