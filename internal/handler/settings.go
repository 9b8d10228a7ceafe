package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/gavel/internal/store"
	"github.com/dukerupert/gavel/internal/websocket"
)

type SettingsHandler struct {
	settingsStore *store.SettingsStore
	hub           websocket.Broadcaster
	logger        *slog.Logger
}

func NewSettingsHandler(ss *store.SettingsStore, hub websocket.Broadcaster, logger *slog.Logger) *SettingsHandler {
	return &SettingsHandler{settingsStore: ss, hub: hub, logger: logger}
}

// Get handles GET /api/settings.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	us, err := h.settingsStore.GetUserSettings()
	if err != nil {
		h.logger.Error("get settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load settings"})
		return
	}
	writeJSON(w, http.StatusOK, us)
}

// Update handles PUT /api/settings. Omitted fields keep their value.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Partner1Name       *string `json:"partner1Name"`
		Partner2Name       *string `json:"partner2Name"`
		Partner1Punishment *string `json:"partner1Punishment"`
		Partner2Punishment *string `json:"partner2Punishment"`
		PenaltyThreshold   *int    `json:"penaltyThreshold"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	us, err := h.settingsStore.GetUserSettings()
	if err != nil {
		h.logger.Error("get settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load settings"})
		return
	}

	for _, f := range []struct {
		name string
		in   *string
		out  *string
	}{
		{"partner1Name", req.Partner1Name, &us.Partner1Name},
		{"partner2Name", req.Partner2Name, &us.Partner2Name},
	} {
		if f.in == nil {
			continue
		}
		v := strings.TrimSpace(*f.in)
		if v == "" {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": f.name + " must not be empty"})
			return
		}
		*f.out = v
	}
	if req.Partner1Punishment != nil {
		us.Partner1Punishment = strings.TrimSpace(*req.Partner1Punishment)
	}
	if req.Partner2Punishment != nil {
		us.Partner2Punishment = strings.TrimSpace(*req.Partner2Punishment)
	}
	if req.PenaltyThreshold != nil {
		if *req.PenaltyThreshold < 1 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "penaltyThreshold must be at least 1"})
			return
		}
		us.PenaltyThreshold = *req.PenaltyThreshold
	}

	if err := h.settingsStore.PutUserSettings(us); err != nil {
		h.logger.Error("put settings", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save settings"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage(websocket.EntitySettings, "updated", "", nil))
	writeJSON(w, http.StatusOK, us)
}
