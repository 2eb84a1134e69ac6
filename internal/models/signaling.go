package models

import (
	"encoding/json"

	"github.com/google/uuid"
)

// Event is the websocket envelope both directions use.
type Event struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

type RequestLiveScreen struct {
	EmployeeID uuid.UUID `json:"employeeId"`
	AdminID    uuid.UUID `json:"adminId"`
}

type StopLiveScreen struct {
	EmployeeID uuid.UUID `json:"employeeId"`
}

type StartStreamDirective struct {
	AdminID       uuid.UUID `json:"adminId"`
	AdminSocketID uuid.UUID `json:"adminSocketId"`
}

// SignalPayload carries offers, answers, and ICE candidates. The relay adds
// senderSocketId so the recipient can address its reply; everything else is
// forwarded verbatim.
type SignalPayload struct {
	TargetSocketID uuid.UUID       `json:"targetSocketId"`
	SenderSocketID uuid.UUID       `json:"senderSocketId,omitempty"`
	SDP            json.RawMessage `json:"sdp,omitempty"`
	Candidate      json.RawMessage `json:"candidate,omitempty"`
}

type StreamError struct {
	EmployeeID uuid.UUID `json:"employeeId"`
	Message    string    `json:"message"`
}

// ConnectionStateReport is how peers tell the relay the end-to-end WebRTC
// connection reached "connected" or degraded to "failed".
type ConnectionStateReport struct {
	EmployeeID uuid.UUID `json:"employeeId"`
	State      string    `json:"state"`
}

type ScreenshotRequest struct {
	EmployeeID uuid.UUID `json:"employeeId"`
	AdminID    uuid.UUID `json:"adminId"`
}
