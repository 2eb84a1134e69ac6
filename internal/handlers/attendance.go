package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"telescreen-backend/internal/middleware"
	"telescreen-backend/internal/models"
	"telescreen-backend/internal/repository"
	"telescreen-backend/internal/services"
)

type AttendanceHandler struct {
	aggregator *services.AttendanceService
	repo       *repository.AttendanceRepo
}

func NewAttendanceHandler(aggregator *services.AttendanceService, repo *repository.AttendanceRepo) *AttendanceHandler {
	return &AttendanceHandler{aggregator: aggregator, repo: repo}
}

// Heartbeat is the HTTP twin of the websocket heartbeat event. Agents fall
// back to it when the socket is down so attendance accrual never depends on
// the realtime channel being up.
func (h *AttendanceHandler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	employeeID := middleware.GetAccountID(r.Context())

	var req models.HeartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !models.ValidStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "status must be WORKING, BREAK, IDLE, or OFF", r))
		return
	}

	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	if err := h.aggregator.OnHeartbeat(r.Context(), employeeID, req.Status, ts, req.PCName); err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Heartbeat recorded"})
}

// Today lists today's records for the admin dashboard, annotated with the
// 09:30 late cutoff.
func (h *AttendanceHandler) Today(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	records, err := h.repo.ListByDate(r.Context(), date)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load attendance", r))
		return
	}

	type annotated struct {
		models.DailyAttendanceRecord
		LateStatus string `json:"late_status"`
	}
	out := make([]annotated, 0, len(records))
	for _, rec := range records {
		out = append(out, annotated{DailyAttendanceRecord: rec, LateStatus: models.LateStatus(rec.LoginTime)})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"records": out})
}

// Get returns one employee's record for a given date (default today).
func (h *AttendanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	employeeID, err := uuid.Parse(chi.URLParam(r, "employeeId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid employee ID", r))
		return
	}

	date := time.Now()
	if q := r.URL.Query().Get("date"); q != "" {
		date, err = time.Parse("2006-01-02", q)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "date must be YYYY-MM-DD", r))
			return
		}
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, date.Location())

	rec, err := h.repo.GetByEmployeeAndDate(r.Context(), employeeID, date)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", "No attendance record for that date", r))
			return
		}
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load attendance", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"record":      rec,
		"late_status": models.LateStatus(rec.LoginTime),
	})
}
