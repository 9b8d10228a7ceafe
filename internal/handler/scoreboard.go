package handler

import (
	"log/slog"
	"net/http"

	"github.com/dukerupert/gavel/internal/court"
	"github.com/dukerupert/gavel/internal/store"
)

type ScoreboardHandler struct {
	states *store.StateStore
	logger *slog.Logger
}

func NewScoreboardHandler(ss *store.StateStore, logger *slog.Logger) *ScoreboardHandler {
	return &ScoreboardHandler{states: ss, logger: logger}
}

// Get handles GET /api/scoreboard.
func (h *ScoreboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	state, err := h.states.Load()
	if err != nil {
		h.logger.Error("load state", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load scoreboard"})
		return
	}
	writeJSON(w, http.StatusOK, court.Scoreboard(state))
}
