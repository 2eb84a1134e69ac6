package signaling

import (
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"telescreen-backend/internal/models"
	"telescreen-backend/internal/ws"
)

// ErrTargetUnavailable is the single most important failure contract: a
// request aimed at an offline or vanished endpoint fails synchronously, so
// callers never wait on an unreachable target.
var ErrTargetUnavailable = errors.New("signaling: target unavailable")

// Directory is the presence registry as the relay sees it.
type Directory interface {
	LookupConnection(employeeID uuid.UUID) (uuid.UUID, bool)
	SendToConn(connID uuid.UUID, event string, payload interface{}) error
}

// Relay ferries offer/answer/candidate messages between exactly two parties
// and owns the per-employee stream session table.
type Relay struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*Session // keyed by employee id
	dir      Directory
}

func NewRelay(dir Directory) *Relay {
	return &Relay{
		sessions: make(map[uuid.UUID]*Session),
		dir:      dir,
	}
}

// RequestStream starts a new live-view negotiation. Any prior session for
// the employee is closed first; its admin is told so the dashboard does not
// spin. The employee receives a start directive carrying the admin's
// connection id as the reply address.
func (r *Relay) RequestStream(adminConnID, adminID, employeeID uuid.UUID) error {
	employeeConn, ok := r.dir.LookupConnection(employeeID)
	if !ok {
		return ErrTargetUnavailable
	}

	r.mu.Lock()
	if prior, exists := r.sessions[employeeID]; exists && !prior.terminal() {
		prior.State = StateClosed
		if prior.AdminConn != adminConnID {
			r.dir.SendToConn(prior.AdminConn, ws.EvAdminStreamStopped,
				models.StopLiveScreen{EmployeeID: employeeID})
		}
		log.Printf("stream session superseded: employee=%s old_admin=%s", employeeID, prior.AdminID)
	}

	s := &Session{
		ID:           uuid.New(),
		AdminID:      adminID,
		EmployeeID:   employeeID,
		AdminConn:    adminConnID,
		EmployeeConn: employeeConn,
		State:        StateRequested,
		CreatedAt:    time.Now(),
	}
	r.sessions[employeeID] = s
	r.mu.Unlock()

	if err := r.dir.SendToConn(employeeConn, ws.StartStreamEvent(employeeID), models.StartStreamDirective{
		AdminID:       adminID,
		AdminSocketID: adminConnID,
	}); err != nil {
		r.release(employeeID, s.ID)
		return ErrTargetUnavailable
	}

	log.Printf("stream session requested: employee=%s admin=%s", employeeID, adminID)
	return nil
}

// ForwardOffer relays an SDP offer to the target connection, tagged with the
// sender's connection id, and advances the session to OFFER_SENT.
func (r *Relay) ForwardOffer(fromConnID uuid.UUID, p models.SignalPayload) error {
	if err := r.forward(fromConnID, ws.EvWebRTCOffer, p); err != nil {
		return err
	}
	r.advance(fromConnID, StateRequested, StateOfferSent)
	return nil
}

// ForwardAnswer relays an SDP answer and advances to ANSWERED.
func (r *Relay) ForwardAnswer(fromConnID uuid.UUID, p models.SignalPayload) error {
	if err := r.forward(fromConnID, ws.EvWebRTCAnswer, p); err != nil {
		return err
	}
	r.advance(fromConnID, StateOfferSent, StateAnswered)
	return nil
}

// ForwardCandidate is pure store-and-forward. Candidates arrive in any order
// and any quantity until the session closes; ICE semantics belong to the
// peers, not the relay.
func (r *Relay) ForwardCandidate(fromConnID uuid.UUID, p models.SignalPayload) error {
	return r.forward(fromConnID, ws.EvWebRTCCandidate, p)
}

func (r *Relay) forward(fromConnID uuid.UUID, event string, p models.SignalPayload) error {
	p.SenderSocketID = fromConnID
	if err := r.dir.SendToConn(p.TargetSocketID, event, p); err != nil {
		return ErrTargetUnavailable
	}
	return nil
}

// advance moves the session the connection participates in from one expected
// state to the next. A message from a superseded session finds no matching
// session and is simply ignored; stale traffic needs no extra fencing.
func (r *Relay) advance(connID uuid.UUID, from, to State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.hasParticipant(connID) && s.State == from {
			s.State = to
			return
		}
	}
}

// ReportConnectionState applies the peers' own end-to-end verdict:
// "connected" completes the negotiation, "failed" ends it. The relay never
// auto-retries a failed session; the endpoint re-announces readiness and the
// admin re-requests.
func (r *Relay) ReportConnectionState(report models.ConnectionStateReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[report.EmployeeID]
	if !ok {
		return
	}
	switch report.State {
	case "connected":
		if s.State == StateAnswered || s.State == StateOfferSent {
			s.State = StateConnected
			log.Printf("stream session connected: employee=%s", s.EmployeeID)
		}
	case "failed":
		if s.canFail() {
			s.State = StateFailed
			s.RetryCount++
			delete(r.sessions, report.EmployeeID)
			log.Printf("stream session failed: employee=%s retries=%d", s.EmployeeID, s.RetryCount)
		}
	}
}

// StopStream ends the session from either side and notifies the other party.
func (r *Relay) StopStream(employeeID, byConnID uuid.UUID) {
	r.mu.Lock()
	s, ok := r.sessions[employeeID]
	if !ok {
		r.mu.Unlock()
		return
	}
	s.State = StateClosed
	delete(r.sessions, employeeID)
	r.mu.Unlock()

	if byConnID == s.AdminConn {
		r.dir.SendToConn(s.EmployeeConn, ws.StopStreamEvent(employeeID),
			models.StopLiveScreen{EmployeeID: employeeID})
	} else {
		r.dir.SendToConn(s.AdminConn, ws.EvAdminStreamStopped,
			models.StopLiveScreen{EmployeeID: employeeID})
	}
	log.Printf("stream session stopped: employee=%s", employeeID)
}

// HandleDisconnect closes every session the vanished connection participated
// in and notifies the surviving party. No session outlives both of its
// participants' connections.
func (r *Relay) HandleDisconnect(connID uuid.UUID) {
	r.mu.Lock()
	type closed struct {
		s         *Session
		adminGone bool
	}
	var affected []closed
	for employeeID, s := range r.sessions {
		if !s.hasParticipant(connID) {
			continue
		}
		s.State = StateClosed
		delete(r.sessions, employeeID)
		affected = append(affected, closed{s: s, adminGone: s.AdminConn == connID})
	}
	r.mu.Unlock()

	for _, c := range affected {
		if c.adminGone {
			r.dir.SendToConn(c.s.EmployeeConn, ws.StopStreamEvent(c.s.EmployeeID),
				models.StopLiveScreen{EmployeeID: c.s.EmployeeID})
		} else {
			r.dir.SendToConn(c.s.AdminConn, ws.EvAdminStreamStopped,
				models.StopLiveScreen{EmployeeID: c.s.EmployeeID})
		}
		log.Printf("stream session closed on disconnect: employee=%s", c.s.EmployeeID)
	}
}

// ActiveSession exposes the current session for an employee, if any.
func (r *Relay) ActiveSession(employeeID uuid.UUID) (Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[employeeID]
	if !ok {
		return Session{}, false
	}
	return *s, true
}

// release drops a session only if it is still the one we created; a
// concurrent supersede must not lose the newer session.
func (r *Relay) release(employeeID, sessionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.sessions[employeeID]; ok && s.ID == sessionID {
		delete(r.sessions, employeeID)
	}
}
