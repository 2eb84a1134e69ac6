package ws

import (
	"fmt"

	"github.com/google/uuid"
)

// Wire event names shared by admin dashboards and endpoint agents.
const (
	EvEmployeeHeartbeat          = "employee:heartbeat"
	EvEmployeeActivity           = "employee:activity"
	EvEmployeeLiveReady          = "employee:live-ready"
	EvEmployeeVideoReady         = "employee:video-ready"
	EvEmployeeDisconnected       = "employee:disconnected"
	EvEmployeeScreenshotCaptured = "employee:screenshot-captured"

	EvAdminRequestLiveScreen = "admin:request-live-screen"
	EvAdminStopLiveScreen    = "admin:stop-live-screen"
	EvAdminStreamError       = "admin:stream-error"
	EvAdminStreamStopped     = "admin:stream-stopped"
	EvAdminRequestScreenshot = "admin:request-screenshot"
	EvAdminSecurityAlert     = "admin:security-alert"

	EvWebRTCOffer           = "webrtc:offer"
	EvWebRTCAnswer          = "webrtc:answer"
	EvWebRTCCandidate       = "webrtc:ice-candidate"
	EvWebRTCConnectionState = "webrtc:connection-state"

	EvSessionExpired = "auth:session-expired"
)

// RoomAdmins is the room every admin connection joins on register.
const RoomAdmins = "admins"

func EmployeeRoom(employeeID uuid.UUID) string {
	return "employee:" + employeeID.String()
}

// Per-employee targeted directives.
func StartStreamEvent(employeeID uuid.UUID) string {
	return fmt.Sprintf("employee:%s:start-stream", employeeID)
}

func StopStreamEvent(employeeID uuid.UUID) string {
	return fmt.Sprintf("employee:%s:stop-stream", employeeID)
}

func CaptureScreenshotEvent(employeeID uuid.UUID) string {
	return fmt.Sprintf("employee:%s:capture-screenshot", employeeID)
}
