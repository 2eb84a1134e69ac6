package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"telescreen-backend/internal/middleware"
	"telescreen-backend/internal/models"
)

// presenceChannel is the shared Redis pub/sub channel carrying every
// admin-facing event, so fan-out stays consistent across server instances.
const presenceChannel = "presence:events"

// ErrTargetUnavailable is returned when a message is addressed to a
// connection that no longer exists. Callers surface it synchronously; nothing
// in the relay path ever waits on an unreachable target.
var ErrTargetUnavailable = errors.New("target connection unavailable")

// Relay is what the hub needs from the signaling layer: event dispatch for
// admin/webrtc messages plus the disconnect hook that closes orphaned
// sessions.
type Relay interface {
	RequestStream(adminConnID, adminID, employeeID uuid.UUID) error
	StopStream(employeeID, byConnID uuid.UUID)
	ForwardOffer(fromConnID uuid.UUID, p models.SignalPayload) error
	ForwardAnswer(fromConnID uuid.UUID, p models.SignalPayload) error
	ForwardCandidate(fromConnID uuid.UUID, p models.SignalPayload) error
	ReportConnectionState(r models.ConnectionStateReport)
	HandleDisconnect(connID uuid.UUID)
}

// HeartbeatSink is the attendance aggregator as seen from the hub.
type HeartbeatSink interface {
	OnHeartbeat(ctx context.Context, employeeID uuid.UUID, status string, ts time.Time, pcName string) error
	RecordScreenshot(ctx context.Context, employeeID uuid.UUID, ts time.Time) error
}

// Hub is the connection/presence registry. Constructed once at startup and
// injected; it owns the connection table, room membership, and the
// employee -> authoritative-connection index.
type Hub struct {
	mu       sync.RWMutex
	conns    map[uuid.UUID]*Conn
	rooms    map[string]map[uuid.UUID]*Conn
	presence map[uuid.UUID]models.PresenceEntry

	jwt    *middleware.JWTAuth
	pubsub *redis.Client

	relay      Relay
	heartbeats HeartbeatSink
}

func NewHub(pubsubClient *redis.Client, jwtAuth *middleware.JWTAuth) *Hub {
	return &Hub{
		conns:    make(map[uuid.UUID]*Conn),
		rooms:    make(map[string]map[uuid.UUID]*Conn),
		presence: make(map[uuid.UUID]models.PresenceEntry),
		jwt:      jwtAuth,
		pubsub:   pubsubClient,
	}
}

// SetRelay and SetHeartbeatSink break the construction cycle: the relay and
// the aggregator are built with the hub as their directory/publisher.
func (h *Hub) SetRelay(r Relay)                 { h.relay = r }
func (h *Hub) SetHeartbeatSink(s HeartbeatSink) { h.heartbeats = s }

// Run subscribes to the presence channel and rebroadcasts every message to
// local admin connections until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	sub := h.pubsub.Subscribe(ctx, presenceChannel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcastRaw(RoomAdmins, []byte(msg.Payload))
		}
	}
}

// Register binds a connection to its identity and rooms. Registering an
// employee that already has a live connection replaces the mapping; the prior
// connection stays open but no longer routes (last-connected-wins).
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	switch c.Identity.Kind {
	case models.IdentityAdmin:
		h.joinRoomLocked(c, RoomAdmins)
	case models.IdentityEmployee:
		h.joinRoomLocked(c, EmployeeRoom(c.Identity.ID))
		h.presence[c.Identity.ID] = models.PresenceEntry{
			ConnID:     c.ID,
			Status:     "ONLINE",
			LastSeenAt: time.Now(),
		}
	}
	h.conns[c.ID] = c
	h.mu.Unlock()

	log.Printf("ws connected: %s %s conn=%s", c.Identity.Kind, c.Identity.ID, c.ID)

	if c.Identity.Kind == models.IdentityEmployee {
		h.PublishToAdmins(context.Background(), EvEmployeeActivity, models.ActivityEvent{
			EmployeeID: c.Identity.ID,
			Status:     "ONLINE",
			Timestamp:  time.Now(),
		})
	}
}

// Unregister is idempotent. It removes the connection, drops the presence
// entry only if this connection is still authoritative, lets the relay close
// any session the connection participated in, and then notifies admins.
func (h *Hub) Unregister(connID uuid.UUID) {
	h.mu.Lock()
	c, ok := h.conns[connID]
	if !ok {
		h.mu.Unlock()
		return
	}
	delete(h.conns, connID)
	for room := range c.rooms {
		delete(h.rooms[room], connID)
		if len(h.rooms[room]) == 0 {
			delete(h.rooms, room)
		}
	}

	droppedEmployee := uuid.Nil
	if c.Identity.Kind == models.IdentityEmployee {
		if entry, ok := h.presence[c.Identity.ID]; ok && entry.ConnID == connID {
			delete(h.presence, c.Identity.ID)
			droppedEmployee = c.Identity.ID
		}
	}
	h.mu.Unlock()

	c.close()
	if h.relay != nil {
		h.relay.HandleDisconnect(connID)
	}

	log.Printf("ws disconnected: %s %s conn=%s", c.Identity.Kind, c.Identity.ID, connID)

	if droppedEmployee != uuid.Nil {
		ctx := context.Background()
		h.PublishToAdmins(ctx, EvEmployeeDisconnected, map[string]uuid.UUID{"employeeId": droppedEmployee})
		h.PublishToAdmins(ctx, EvEmployeeActivity, models.ActivityEvent{
			EmployeeID: droppedEmployee,
			Status:     "OFFLINE",
			Timestamp:  time.Now(),
		})
	}
}

func (h *Hub) joinRoomLocked(c *Conn, room string) {
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[uuid.UUID]*Conn)
	}
	h.rooms[room][c.ID] = c
	c.rooms[room] = struct{}{}
}

// LookupConnection resolves an employee to its authoritative connection id.
func (h *Hub) LookupConnection(employeeID uuid.UUID) (uuid.UUID, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	entry, ok := h.presence[employeeID]
	if !ok {
		return uuid.Nil, false
	}
	return entry.ConnID, true
}

func (h *Hub) IsConnected(employeeID uuid.UUID) bool {
	_, ok := h.LookupConnection(employeeID)
	return ok
}

// SendToConn is fire-and-forget delivery by connection id.
func (h *Hub) SendToConn(connID uuid.UUID, event string, payload interface{}) error {
	h.mu.RLock()
	c, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return ErrTargetUnavailable
	}
	if err := c.send(event, payload); err != nil {
		log.Printf("ws send failed: conn=%s event=%s: %v", connID, event, err)
	}
	return nil
}

// Broadcast delivers to every connection in a room on this instance.
func (h *Hub) Broadcast(room, event string, payload interface{}) {
	h.mu.RLock()
	members := make([]*Conn, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		if err := c.send(event, payload); err != nil {
			log.Printf("ws broadcast failed: room=%s conn=%s: %v", room, c.ID, err)
		}
	}
}

func (h *Hub) broadcastRaw(room string, data []byte) {
	h.mu.RLock()
	members := make([]*Conn, 0, len(h.rooms[room]))
	for _, c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		c.sendRaw(data)
	}
}

// PublishToAdmins routes an event through Redis so every server instance's
// admin room receives it.
func (h *Hub) PublishToAdmins(ctx context.Context, event string, payload interface{}) {
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			log.Printf("ws publish marshal failed: event=%s: %v", event, err)
			return
		}
		data = b
	}
	msg, err := json.Marshal(models.Event{Event: event, Data: data})
	if err != nil {
		return
	}
	if err := h.pubsub.Publish(ctx, presenceChannel, msg).Err(); err != nil {
		// Degrade to local-only delivery rather than dropping the event.
		log.Printf("ws publish failed, broadcasting locally: %v", err)
		h.broadcastRaw(RoomAdmins, msg)
	}
}

// PublishActivity is the presence-change notification admins subscribe to.
// The aggregator calls it on every heartbeat; register/unregister use it for
// ONLINE/OFFLINE transitions.
func (h *Hub) PublishActivity(ctx context.Context, ev models.ActivityEvent) {
	h.PublishToAdmins(ctx, EvEmployeeActivity, ev)
}

// Touch updates the presence entry after a heartbeat. Called by the
// aggregator; a heartbeat from a connection that lost the registration race
// is a no-op here.
func (h *Hub) Touch(employeeID uuid.UUID, status string, ts time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.presence[employeeID]
	if !ok {
		return
	}
	entry.Status = status
	entry.LastSeenAt = ts
	h.presence[employeeID] = entry
}

// MarkVideoReady flags the employee's endpoint as able to serve a stream.
func (h *Hub) MarkVideoReady(employeeID uuid.UUID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.presence[employeeID]
	if !ok {
		return false
	}
	entry.VideoReady = true
	h.presence[employeeID] = entry
	return true
}

// Snapshot lists currently registered employees for the admin presence view.
func (h *Hub) Snapshot() []models.PresenceSnapshot {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]models.PresenceSnapshot, 0, len(h.presence))
	for id, entry := range h.presence {
		out = append(out, models.PresenceSnapshot{
			EmployeeID: id,
			Status:     entry.Status,
			VideoReady: entry.VideoReady,
			LastSeenAt: entry.LastSeenAt,
		})
	}
	return out
}

// StaleEmployees returns registered employees whose last heartbeat is older
// than maxAge. The sweeper uses this for UI-level offline demotion; the
// stored attendance status is never touched.
func (h *Hub) StaleEmployees(maxAge time.Duration, now time.Time) []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	var stale []uuid.UUID
	for id, entry := range h.presence {
		if now.Sub(entry.LastSeenAt) > maxAge {
			stale = append(stale, id)
		}
	}
	return stale
}
