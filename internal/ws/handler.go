package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"telescreen-backend/internal/models"
	"telescreen-backend/internal/services"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWebSocket authenticates via token query param, upgrades, registers
// the connection, and runs its read loop.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	identity, err := h.jwt.ParseToken(tokenStr)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	sock, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	c := newConn(sock, identity)
	h.Register(c)

	go h.readLoop(c)
}

func (h *Hub) readLoop(c *Conn) {
	defer h.Unregister(c.ID)
	for {
		_, data, err := c.sock.ReadMessage()
		if err != nil {
			return
		}

		var ev models.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Printf("ws bad envelope: conn=%s: %v", c.ID, err)
			continue
		}
		h.dispatch(c, ev)
	}
}

// dispatch routes one inbound envelope. Signaling forwarding is
// fire-and-forget: the sender gets a synchronous error event only when the
// target is gone, never an acknowledgement.
func (h *Hub) dispatch(c *Conn, ev models.Event) {
	switch ev.Event {
	case EvEmployeeHeartbeat:
		if c.Identity.Kind != models.IdentityEmployee {
			return
		}
		var req models.HeartbeatRequest
		if err := json.Unmarshal(ev.Data, &req); err != nil || !models.ValidStatus(req.Status) {
			return
		}
		ts := req.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := h.heartbeats.OnHeartbeat(ctx, c.Identity.ID, req.Status, ts, req.PCName)
		cancel()
		if err != nil {
			var unauthorized *services.UnauthorizedError
			if errors.As(err, &unauthorized) {
				// Identity has no backing record: force re-login, stop retrying.
				c.send(EvSessionExpired, nil)
				return
			}
			log.Printf("heartbeat failed: employee=%s: %v", c.Identity.ID, err)
		}

	case EvEmployeeLiveReady:
		if c.Identity.Kind != models.IdentityEmployee {
			return
		}
		if h.MarkVideoReady(c.Identity.ID) {
			h.PublishToAdmins(context.Background(), EvEmployeeVideoReady,
				map[string]interface{}{"employeeId": c.Identity.ID})
		}

	case EvAdminRequestLiveScreen:
		if c.Identity.Kind != models.IdentityAdmin {
			return
		}
		var req models.RequestLiveScreen
		if err := json.Unmarshal(ev.Data, &req); err != nil {
			return
		}
		if err := h.relay.RequestStream(c.ID, c.Identity.ID, req.EmployeeID); err != nil {
			c.send(EvAdminStreamError, models.StreamError{
				EmployeeID: req.EmployeeID,
				Message:    "Employee is offline or unreachable",
			})
		}

	case EvAdminStopLiveScreen:
		var req models.StopLiveScreen
		if err := json.Unmarshal(ev.Data, &req); err != nil {
			return
		}
		h.relay.StopStream(req.EmployeeID, c.ID)

	case EvWebRTCOffer, EvWebRTCAnswer, EvWebRTCCandidate:
		var p models.SignalPayload
		if err := json.Unmarshal(ev.Data, &p); err != nil {
			return
		}
		var err error
		switch ev.Event {
		case EvWebRTCOffer:
			err = h.relay.ForwardOffer(c.ID, p)
		case EvWebRTCAnswer:
			err = h.relay.ForwardAnswer(c.ID, p)
		default:
			err = h.relay.ForwardCandidate(c.ID, p)
		}
		if err != nil && c.Identity.Kind == models.IdentityAdmin {
			// Employee-side relay errors stay silent (stealth mode).
			c.send(EvAdminStreamError, models.StreamError{Message: "Peer connection lost"})
		}

	case EvWebRTCConnectionState:
		var report models.ConnectionStateReport
		if err := json.Unmarshal(ev.Data, &report); err != nil {
			return
		}
		h.relay.ReportConnectionState(report)

	case EvAdminRequestScreenshot:
		if c.Identity.Kind != models.IdentityAdmin {
			return
		}
		var req models.ScreenshotRequest
		if err := json.Unmarshal(ev.Data, &req); err != nil {
			return
		}
		connID, ok := h.LookupConnection(req.EmployeeID)
		if !ok {
			c.send(EvAdminStreamError, models.StreamError{
				EmployeeID: req.EmployeeID,
				Message:    "Employee is offline or unreachable",
			})
			return
		}
		h.SendToConn(connID, CaptureScreenshotEvent(req.EmployeeID),
			map[string]interface{}{"adminId": c.Identity.ID})

	case EvEmployeeScreenshotCaptured:
		if c.Identity.Kind != models.IdentityEmployee {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := h.heartbeats.RecordScreenshot(ctx, c.Identity.ID, time.Now()); err != nil {
			log.Printf("screenshot count failed: employee=%s: %v", c.Identity.ID, err)
		}
		cancel()

	default:
		log.Printf("ws unknown event %q from conn=%s", ev.Event, c.ID)
	}
}
