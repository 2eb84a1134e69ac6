package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"telescreen-backend/internal/middleware"
	"telescreen-backend/internal/models"
	"telescreen-backend/internal/repository"
	"telescreen-backend/internal/worker"
)

type AlertHandler struct {
	queue *redis.Client
	repo  *repository.AlertRepo
}

func NewAlertHandler(queue *redis.Client, repo *repository.AlertRepo) *AlertHandler {
	return &AlertHandler{queue: queue, repo: repo}
}

// Report accepts a tamper/activity alert from an endpoint agent and queues
// it for the dispatch workers. The agent gets its 200 before any database
// write happens.
func (h *AlertHandler) Report(w http.ResponseWriter, r *http.Request) {
	employeeID := middleware.GetAccountID(r.Context())

	var req models.AlertReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return
	}
	if !models.ValidAlertType(req.AlertType) {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Unknown alert_type", r))
		return
	}

	job := models.AlertJob{
		EmployeeID:      employeeID,
		AlertType:       req.AlertType,
		ActionAttempted: req.ActionAttempted,
		Details:         req.Details,
		ReportedAt:      time.Now(),
	}
	data, err := json.Marshal(job)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to queue alert", r))
		return
	}

	if err := h.queue.LPush(r.Context(), worker.AlertQueue, data).Err(); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to queue alert", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Alert received"})
}

// List returns recent alert reports for the admin dashboard.
func (h *AlertHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := 100
	if q := r.URL.Query().Get("limit"); q != "" {
		if n, err := strconv.Atoi(q); err == nil {
			limit = n
		}
	}

	alerts, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "Failed to load alerts", r))
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"alerts": alerts})
}
