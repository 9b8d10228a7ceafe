package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/dukerupert/gavel/internal/model"
	"github.com/dukerupert/gavel/internal/store"
	"github.com/dukerupert/gavel/internal/websocket"
)

type RuleHandler struct {
	rules  *store.RuleStore
	hub    websocket.Broadcaster
	logger *slog.Logger
}

func NewRuleHandler(rs *store.RuleStore, hub websocket.Broadcaster, logger *slog.Logger) *RuleHandler {
	return &RuleHandler{rules: rs, hub: hub, logger: logger}
}

type ruleRequest struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Severity    model.Severity `json:"severity"`
}

func (req *ruleRequest) validate() string {
	req.Title = strings.TrimSpace(req.Title)
	req.Description = strings.TrimSpace(req.Description)
	if req.Title == "" {
		return "title is required"
	}
	if req.Severity == "" {
		req.Severity = model.SeverityLow
	}
	if !req.Severity.Valid() {
		return "severity must be low, medium, or high"
	}
	return ""
}

func (h *RuleHandler) List(w http.ResponseWriter, r *http.Request) {
	rules, err := h.rules.List()
	if err != nil {
		h.logger.Error("list rules", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list rules"})
		return
	}
	if rules == nil {
		rules = []model.Rule{}
	}
	writeJSON(w, http.StatusOK, rules)
}

func (h *RuleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req ruleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	rule, err := h.rules.Create(req.Title, req.Description, req.Severity)
	if err != nil {
		h.logger.Error("create rule", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create rule"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage(websocket.EntityRule, "created", rule.ID, nil))
	writeJSON(w, http.StatusCreated, rule)
}

func (h *RuleHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	existing, err := h.rules.GetByID(id)
	if err != nil {
		h.logger.Error("get rule", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to get rule"})
		return
	}
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "rule not found"})
		return
	}

	var req ruleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Severity == "" {
		req.Severity = existing.Severity
	}
	if msg := req.validate(); msg != "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
		return
	}

	rule, err := h.rules.Update(id, req.Title, req.Description, req.Severity)
	if err != nil {
		h.logger.Error("update rule", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update rule"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage(websocket.EntityRule, "updated", rule.ID, nil))
	writeJSON(w, http.StatusOK, rule)
}

// Delete removes a rule. Cases filed under it stay and show as an unknown rule.
func (h *RuleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := h.rules.Delete(id); err != nil {
		h.logger.Error("delete rule", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete rule"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage(websocket.EntityRule, "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
