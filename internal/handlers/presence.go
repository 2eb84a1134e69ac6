package handlers

import (
	"net/http"

	"telescreen-backend/internal/ws"
)

type PresenceHandler struct {
	hub *ws.Hub
}

func NewPresenceHandler(hub *ws.Hub) *PresenceHandler {
	return &PresenceHandler{hub: hub}
}

// List returns the employees with a live registered connection right now.
func (h *PresenceHandler) List(w http.ResponseWriter, r *http.Request) {
	snapshot := h.hub.Snapshot()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":     len(snapshot),
		"employees": snapshot,
	})
}
