package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"telescreen-backend/internal/models"
)

// fakeSocket records everything written to it.
type fakeSocket struct {
	mu      sync.Mutex
	written [][]byte
	closed  bool
}

func (f *fakeSocket) ReadMessage() (int, []byte, error) {
	return 0, nil, errors.New("not used")
}

func (f *fakeSocket) WriteMessage(_ int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.written = append(f.written, data)
	return nil
}

func (f *fakeSocket) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSocket) events(t *testing.T) []models.Event {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Event, 0, len(f.written))
	for _, raw := range f.written {
		var ev models.Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("unparseable frame %q: %v", raw, err)
		}
		out = append(out, ev)
	}
	return out
}

func (f *fakeSocket) received(t *testing.T, event string) bool {
	for _, ev := range f.events(t) {
		if ev.Event == event {
			return true
		}
	}
	return false
}

type fakeRelay struct {
	disconnected []uuid.UUID
}

func (f *fakeRelay) RequestStream(adminConnID, adminID, employeeID uuid.UUID) error { return nil }
func (f *fakeRelay) StopStream(employeeID, byConnID uuid.UUID)                      {}
func (f *fakeRelay) ForwardOffer(fromConnID uuid.UUID, p models.SignalPayload) error {
	return nil
}
func (f *fakeRelay) ForwardAnswer(fromConnID uuid.UUID, p models.SignalPayload) error {
	return nil
}
func (f *fakeRelay) ForwardCandidate(fromConnID uuid.UUID, p models.SignalPayload) error {
	return nil
}
func (f *fakeRelay) ReportConnectionState(r models.ConnectionStateReport) {}
func (f *fakeRelay) HandleDisconnect(connID uuid.UUID) {
	f.disconnected = append(f.disconnected, connID)
}

// newTestHub points the pub/sub client at a dead address, so PublishToAdmins
// always degrades to local broadcast and tests run without Redis.
func newTestHub() *Hub {
	return NewHub(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	}), nil)
}

func registerEmployee(h *Hub, employeeID uuid.UUID) (*Conn, *fakeSocket) {
	sock := &fakeSocket{}
	c := newConn(sock, models.Identity{Kind: models.IdentityEmployee, ID: employeeID})
	h.Register(c)
	return c, sock
}

func registerAdmin(h *Hub, adminID uuid.UUID) (*Conn, *fakeSocket) {
	sock := &fakeSocket{}
	c := newConn(sock, models.Identity{Kind: models.IdentityAdmin, ID: adminID})
	h.Register(c)
	return c, sock
}

func TestRegisterEmployee_RoutesAndNotifiesAdmins(t *testing.T) {
	h := newTestHub()
	_, adminSock := registerAdmin(h, uuid.New())

	employeeID := uuid.New()
	c, _ := registerEmployee(h, employeeID)

	connID, ok := h.LookupConnection(employeeID)
	if !ok || connID != c.ID {
		t.Fatalf("LookupConnection = %s, %v; want %s, true", connID, ok, c.ID)
	}
	if !h.IsConnected(employeeID) {
		t.Error("IsConnected must be true after register")
	}
	if !adminSock.received(t, EvEmployeeActivity) {
		t.Error("admins did not receive the ONLINE activity event")
	}
}

func TestRegister_LastConnectedWins(t *testing.T) {
	h := newTestHub()
	employeeID := uuid.New()

	first, _ := registerEmployee(h, employeeID)
	second, _ := registerEmployee(h, employeeID)

	connID, _ := h.LookupConnection(employeeID)
	if connID != second.ID {
		t.Fatalf("authoritative conn = %s, want the latest %s", connID, second.ID)
	}

	// The superseded connection closing must not drop the new registration.
	h.Unregister(first.ID)
	if connID, ok := h.LookupConnection(employeeID); !ok || connID != second.ID {
		t.Error("unregistering a stale connection must not remove presence")
	}
}

func TestUnregister_Idempotent(t *testing.T) {
	h := newTestHub()
	relay := &fakeRelay{}
	h.SetRelay(relay)
	employeeID := uuid.New()
	c, sock := registerEmployee(h, employeeID)

	h.Unregister(c.ID)
	h.Unregister(c.ID)
	h.Unregister(uuid.New()) // never registered

	if h.IsConnected(employeeID) {
		t.Error("presence must be gone after unregister")
	}
	if !sock.closed {
		t.Error("underlying socket must be closed")
	}
	if len(relay.disconnected) != 1 || relay.disconnected[0] != c.ID {
		t.Errorf("relay disconnect hook calls = %v, want exactly one for %s", relay.disconnected, c.ID)
	}
}

func TestUnregister_NotifiesAdmins(t *testing.T) {
	h := newTestHub()
	_, adminSock := registerAdmin(h, uuid.New())
	employeeID := uuid.New()
	c, _ := registerEmployee(h, employeeID)

	h.Unregister(c.ID)

	if !adminSock.received(t, EvEmployeeDisconnected) {
		t.Error("admins did not receive employee:disconnected")
	}
}

func TestSendToConn_UnknownTarget(t *testing.T) {
	h := newTestHub()
	err := h.SendToConn(uuid.New(), EvAdminStreamError, nil)
	if !errors.Is(err, ErrTargetUnavailable) {
		t.Fatalf("expected ErrTargetUnavailable, got %v", err)
	}
}

func TestBroadcast_ReachesRoomOnly(t *testing.T) {
	h := newTestHub()
	_, adminSock := registerAdmin(h, uuid.New())
	_, employeeSock := registerEmployee(h, uuid.New())

	h.Broadcast(RoomAdmins, EvAdminSecurityAlert, map[string]string{"detail": "x"})

	if !adminSock.received(t, EvAdminSecurityAlert) {
		t.Error("admin room member did not receive the broadcast")
	}
	if employeeSock.received(t, EvAdminSecurityAlert) {
		t.Error("broadcast leaked outside the room")
	}
}

func TestTouchAndSnapshot(t *testing.T) {
	h := newTestHub()
	employeeID := uuid.New()
	registerEmployee(h, employeeID)

	ts := time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC)
	h.Touch(employeeID, models.StatusBreak, ts)
	h.Touch(uuid.New(), models.StatusWorking, ts) // unregistered: no-op

	snap := h.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("snapshot length = %d, want 1", len(snap))
	}
	if snap[0].Status != models.StatusBreak || !snap[0].LastSeenAt.Equal(ts) {
		t.Errorf("snapshot entry = %+v, want BREAK at %s", snap[0], ts)
	}
}

func TestMarkVideoReady(t *testing.T) {
	h := newTestHub()
	employeeID := uuid.New()
	registerEmployee(h, employeeID)

	if !h.MarkVideoReady(employeeID) {
		t.Fatal("MarkVideoReady must succeed for a registered employee")
	}
	if h.MarkVideoReady(uuid.New()) {
		t.Error("MarkVideoReady must fail for an unregistered employee")
	}
	if snap := h.Snapshot(); !snap[0].VideoReady {
		t.Error("snapshot must reflect video readiness")
	}
}

func TestStaleEmployees(t *testing.T) {
	h := newTestHub()
	fresh := uuid.New()
	stale := uuid.New()
	registerEmployee(h, fresh)
	registerEmployee(h, stale)

	now := time.Now()
	h.Touch(fresh, models.StatusWorking, now)
	h.Touch(stale, models.StatusWorking, now.Add(-20*time.Minute))

	got := h.StaleEmployees(15*time.Minute, now)
	if len(got) != 1 || got[0] != stale {
		t.Fatalf("StaleEmployees = %v, want [%s]", got, stale)
	}
}

func TestPublishToAdmins_LocalFallback(t *testing.T) {
	h := newTestHub()
	_, adminSock := registerAdmin(h, uuid.New())

	// Redis is unreachable in tests; delivery must still happen locally.
	h.PublishToAdmins(context.Background(), EvAdminSecurityAlert, map[string]string{"detail": "x"})

	if !adminSock.received(t, EvAdminSecurityAlert) {
		t.Error("publish did not fall back to local broadcast")
	}
}
