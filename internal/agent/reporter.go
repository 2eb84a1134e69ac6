package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"telescreen-backend/internal/models"
)

// ErrSessionExpired means the server no longer recognizes this identity.
// The agent must stop its schedules and force a re-login; retrying is
// pointless.
var ErrSessionExpired = errors.New("agent: session expired, re-login required")

// Reporter is the agent's HTTP client for heartbeats and alert reports.
// Failures are returned for logging but the caller's fixed-interval schedule
// is the only retry mechanism; a 429 makes the reporter skip its next
// attempt instead of backing off exponentially.
type Reporter struct {
	baseURL string
	client  *http.Client

	mu       sync.Mutex
	token    string
	skipNext bool
}

func NewReporter(baseURL string) *Reporter {
	return &Reporter{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func (r *Reporter) SetToken(token string) {
	r.mu.Lock()
	r.token = token
	r.mu.Unlock()
}

func (r *Reporter) SendHeartbeat(ctx context.Context, status string, ts time.Time, pcName string) error {
	return r.post(ctx, "/api/v1/attendance/heartbeat", models.HeartbeatRequest{
		Status:    status,
		Timestamp: ts,
		PCName:    pcName,
	})
}

func (r *Reporter) SendAlert(ctx context.Context, alertType, actionAttempted, details string) error {
	return r.post(ctx, "/api/v1/alerts/report", models.AlertReportRequest{
		AlertType:       alertType,
		ActionAttempted: actionAttempted,
		Details:         details,
	})
}

func (r *Reporter) post(ctx context.Context, path string, body interface{}) error {
	r.mu.Lock()
	if r.skipNext {
		r.skipNext = false
		r.mu.Unlock()
		return nil
	}
	token := r.token
	r.mu.Unlock()

	data, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusUnauthorized:
		var envelope models.ErrorResponse
		json.NewDecoder(resp.Body).Decode(&envelope)
		if envelope.ShouldLogout {
			return ErrSessionExpired
		}
		return fmt.Errorf("unauthorized: %s", envelope.Error.Message)
	case resp.StatusCode == http.StatusTooManyRequests:
		// Respect the limit by sitting out one cycle.
		r.mu.Lock()
		r.skipNext = true
		r.mu.Unlock()
		return nil
	default:
		return fmt.Errorf("server returned %d for %s", resp.StatusCode, path)
	}
}
