package handlers

import (
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"

	"telescreen-backend/internal/models"
	"telescreen-backend/internal/services"
)

func decodeError(t *testing.T, body string) models.ErrorResponse {
	t.Helper()
	var resp models.ErrorResponse
	if err := json.Unmarshal([]byte(body), &resp); err != nil {
		t.Fatalf("response is not an error envelope: %v\nbody: %s", err, body)
	}
	return resp
}

func TestHeartbeat_InvalidBody(t *testing.T) {
	h := NewAttendanceHandler(nil, nil)

	req := httptest.NewRequest("POST", "/api/v1/attendance/heartbeat", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	h.Heartbeat(rec, req)

	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp := decodeError(t, rec.Body.String()); resp.Error.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %s, want VALIDATION_ERROR", resp.Error.Code)
	}
}

func TestHeartbeat_RejectsUnknownStatus(t *testing.T) {
	h := NewAttendanceHandler(nil, nil)

	body := `{"status":"SLEEPING"}`
	req := httptest.NewRequest("POST", "/api/v1/attendance/heartbeat", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Heartbeat(rec, req)

	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAlertReport_RejectsUnknownType(t *testing.T) {
	h := NewAlertHandler(nil, nil)

	body := `{"alert_type":"SOMETHING_ELSE","details":"x"}`
	req := httptest.NewRequest("POST", "/api/v1/alerts/report", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.Report(rec, req)

	if rec.Code != 400 {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandleServiceError_Mapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"validation", &services.ValidationError{Fields: map[string]string{"status": "required"}}, 400, "VALIDATION_ERROR"},
		{"not found", &services.NotFoundError{Message: "No such record"}, 404, "NOT_FOUND"},
		{"unauthorized", &services.UnauthorizedError{Message: "Unknown account"}, 401, "UNAUTHORIZED"},
		{"forbidden", &services.ForbiddenError{Message: "Admins only"}, 403, "FORBIDDEN"},
		{"conflict", &services.ConflictError{Message: "Already exists"}, 409, "CONFLICT"},
		{"rate limited", &services.RateLimitError{Message: "Slow down"}, 429, "RATE_LIMITED"},
		{"unknown", errors.New("boom"), 500, "INTERNAL_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			rec := httptest.NewRecorder()
			handleServiceError(rec, req, tt.err)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if resp := decodeError(t, rec.Body.String()); resp.Error.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", resp.Error.Code, tt.wantCode)
			}
		})
	}
}

func TestHandleServiceError_ShouldLogout(t *testing.T) {
	req := httptest.NewRequest("GET", "/", nil)
	rec := httptest.NewRecorder()
	handleServiceError(rec, req, &services.UnauthorizedError{Message: "Account removed", ShouldLogout: true})

	resp := decodeError(t, rec.Body.String())
	if !resp.ShouldLogout {
		t.Error("should_logout flag must survive the HTTP mapping")
	}
}
