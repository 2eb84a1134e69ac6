package models

import (
	"time"

	"github.com/google/uuid"
)

// Employee status as carried by heartbeats. Transitions happen only when a
// heartbeat arrives; a silent agent leaves the last status in place.
const (
	StatusWorking = "WORKING"
	StatusBreak   = "BREAK"
	StatusIdle    = "IDLE"
	StatusOff     = "OFF"
)

func ValidStatus(s string) bool {
	switch s {
	case StatusWorking, StatusBreak, StatusIdle, StatusOff:
		return true
	}
	return false
}

// DailyAttendanceRecord is the one row per (employee, date) that heartbeats
// accumulate into. Hour buckets are decimal hours.
type DailyAttendanceRecord struct {
	ID              uuid.UUID `json:"id"`
	EmployeeID      uuid.UUID `json:"employee_id"`
	WorkDate        time.Time `json:"work_date"`
	LoginTime       time.Time `json:"login_time"`
	WorkingHours    float64   `json:"working_hours"`
	BreakHours      float64   `json:"break_hours"`
	IdleHours       float64   `json:"idle_hours"`
	OvertimeHours   float64   `json:"overtime_hours"`
	ScreenshotCount int       `json:"screenshot_count"`
	Status          string    `json:"status"`
	LastSeenAt      time.Time `json:"last_seen_at"`
}

const standardWorkDay = 8.0

// Apply credits one heartbeat interval (in hours) to the bucket selected by
// status. OFF credits nothing. Overtime is derived, never stored independently.
func (r *DailyAttendanceRecord) Apply(status string, intervalHours float64, ts time.Time) {
	switch status {
	case StatusWorking:
		r.WorkingHours += intervalHours
	case StatusBreak:
		r.BreakHours += intervalHours
	case StatusIdle:
		r.IdleHours += intervalHours
	}
	r.OvertimeHours = overtime(r.WorkingHours)
	r.Status = status
	r.LastSeenAt = ts
}

func overtime(workingHours float64) float64 {
	if workingHours > standardWorkDay {
		return workingHours - standardWorkDay
	}
	return 0
}

// LateStatus classifies a login time against the 09:30:00 cutoff in that
// timestamp's own location. Exactly 09:30:00 is on time.
func LateStatus(loginTime time.Time) string {
	cutoff := time.Date(loginTime.Year(), loginTime.Month(), loginTime.Day(), 9, 30, 0, 0, loginTime.Location())
	if loginTime.After(cutoff) {
		return "Late"
	}
	return "On Time"
}

type HeartbeatRequest struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	PCName    string    `json:"pc_name"`
}
