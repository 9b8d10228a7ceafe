package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/dukerupert/gavel/internal/model"
	"github.com/dukerupert/gavel/internal/store"
	"github.com/dukerupert/gavel/internal/websocket"
)

// Suggester proposes rules and punishments.
type Suggester interface {
	Configured() bool
	SuggestRules(ctx context.Context, familyType string) ([]model.RuleDraft, error)
	SuggestPunishments(ctx context.Context) ([]string, error)
}

type SuggestionHandler struct {
	suggester Suggester
	rules     *store.RuleStore
	hub       websocket.Broadcaster
	logger    *slog.Logger
}

func NewSuggestionHandler(s Suggester, rs *store.RuleStore, hub websocket.Broadcaster, logger *slog.Logger) *SuggestionHandler {
	return &SuggestionHandler{suggester: s, rules: rs, hub: hub, logger: logger}
}

func (h *SuggestionHandler) available(w http.ResponseWriter) bool {
	if h.suggester == nil || !h.suggester.Configured() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "suggestions are not configured"})
		return false
	}
	return true
}

// Rules handles POST /api/suggestions/rules. With apply set, every
// suggestion is added to the rule list.
func (h *SuggestionHandler) Rules(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	var req struct {
		FamilyType string `json:"familyType"`
		Apply      bool   `json:"apply"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	drafts, err := h.suggester.SuggestRules(r.Context(), req.FamilyType)
	if err != nil {
		h.logger.Error("suggest rules", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to get suggestions"})
		return
	}

	resp := struct {
		Suggestions []model.RuleDraft `json:"suggestions"`
		Created     []model.Rule      `json:"created,omitempty"`
	}{Suggestions: drafts}

	if req.Apply {
		for _, d := range drafts {
			rule, err := h.rules.Create(d.Title, d.Description, d.Severity)
			if err != nil {
				h.logger.Error("create suggested rule", "error", err)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to save suggested rules"})
				return
			}
			resp.Created = append(resp.Created, *rule)
			h.hub.Broadcast(websocket.NewMessage(websocket.EntityRule, "created", rule.ID, nil))
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Punishments handles POST /api/suggestions/punishments.
func (h *SuggestionHandler) Punishments(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	punishments, err := h.suggester.SuggestPunishments(r.Context())
	if err != nil {
		h.logger.Error("suggest punishments", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "failed to get suggestions"})
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"suggestions": punishments})
}
