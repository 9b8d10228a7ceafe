package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/gavel/internal/auth"
	"github.com/dukerupert/gavel/internal/court"
	"github.com/dukerupert/gavel/internal/model"
	"github.com/dukerupert/gavel/internal/store"
	"github.com/dukerupert/gavel/internal/websocket"
)

type StateHandler struct {
	states *store.StateStore
	hub    websocket.Broadcaster
	logger *slog.Logger
}

func NewStateHandler(ss *store.StateStore, hub websocket.Broadcaster, logger *slog.Logger) *StateHandler {
	return &StateHandler{states: ss, hub: hub, logger: logger}
}

// Export handles GET /api/state. The body is the whole document, with the
// calling device's role, ready to be saved as a file.
func (h *StateHandler) Export(w http.ResponseWriter, r *http.Request) {
	state, err := h.states.Load()
	if err != nil {
		h.logger.Error("load state", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load state"})
		return
	}
	if role, ok := auth.RoleFrom(r.Context()); ok {
		state.DeviceRole = &role
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+model.StateKey+`.json"`)
	writeJSON(w, http.StatusOK, state)
}

// Import handles PUT /api/state. The stored document is only replaced when
// the upload parses and validates.
func (h *StateHandler) Import(w http.ResponseWriter, r *http.Request) {
	var state model.AppState
	if err := decodeJSON(w, r, &state); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	state.DeviceRole = nil
	if err := court.ValidateDocument(&state); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := h.states.Replace(&state); err != nil {
		h.logger.Error("import state", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to import state"})
		return
	}

	h.logger.Info("state imported", "rules", len(state.Rules), "violations", len(state.Violations))
	h.hub.Broadcast(websocket.NewMessage(websocket.EntityState, "imported", "", nil))
	h.Export(w, r)
}

// Reset handles POST /api/state/reset.
func (h *StateHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.states.Reset(); err != nil {
		h.logger.Error("reset state", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to reset state"})
		return
	}

	h.logger.Info("state reset")
	h.hub.Broadcast(websocket.NewMessage(websocket.EntityState, "reset", "", nil))
	h.Export(w, r)
}
