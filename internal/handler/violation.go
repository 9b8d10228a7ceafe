package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukerupert/gavel/internal/auth"
	"github.com/dukerupert/gavel/internal/court"
	"github.com/dukerupert/gavel/internal/model"
	"github.com/dukerupert/gavel/internal/store"
	"github.com/dukerupert/gavel/internal/websocket"
)

const notifyTimeout = 30 * time.Second

// PenaltyNotifier delivers a penalty notice outside the request.
type PenaltyNotifier interface {
	Penalty(ctx context.Context, notice court.PenaltyNotice) (int, error)
}

// ViolationHandler serves the case endpoints. Every write holds the
// StateStore document lock, so two verdicts cannot race past the threshold
// check and an import cannot be overwritten by a stale case.
type ViolationHandler struct {
	states     *store.StateStore
	violations *store.ViolationStore
	hub        websocket.Broadcaster
	notifier   PenaltyNotifier
	logger     *slog.Logger
	now        func() time.Time
}

// NewViolationHandler wires the case endpoints. notifier may be nil when web
// push is not configured.
func NewViolationHandler(ss *store.StateStore, vs *store.ViolationStore, hub websocket.Broadcaster, notifier PenaltyNotifier, logger *slog.Logger) *ViolationHandler {
	return &ViolationHandler{
		states:     ss,
		violations: vs,
		hub:        hub,
		notifier:   notifier,
		logger:     logger,
		now:        time.Now,
	}
}

type violationResponse struct {
	court.HistoryEntry
	Penalty *court.PenaltyNotice `json:"penalty,omitempty"`
}

// List handles GET /api/violations, newest first.
func (h *ViolationHandler) List(w http.ResponseWriter, r *http.Request) {
	state, err := h.states.Load()
	if err != nil {
		h.logger.Error("load state", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list violations"})
		return
	}
	writeJSON(w, http.StatusOK, court.History(state))
}

// Pending handles GET /api/violations/pending, oldest first.
func (h *ViolationHandler) Pending(w http.ResponseWriter, r *http.Request) {
	state, err := h.states.Load()
	if err != nil {
		h.logger.Error("load state", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list violations"})
		return
	}
	pending := court.Pending(state)
	out := make([]court.HistoryEntry, 0, len(pending))
	for _, v := range pending {
		out = append(out, court.Describe(state, v))
	}
	writeJSON(w, http.StatusOK, out)
}

// Create handles POST /api/violations.
func (h *ViolationHandler) Create(w http.ResponseWriter, r *http.Request) {
	role, _ := auth.RoleFrom(r.Context())

	var req struct {
		Violator       model.Partner `json:"violator"`
		RuleID         string        `json:"ruleId"`
		AccusalComment string        `json:"accusalComment"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if !req.Violator.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "violator must be partner1 or partner2"})
		return
	}
	if err := court.CanAccuse(role, req.Violator); err != nil {
		writeCourtError(w, err)
		return
	}

	h.states.Lock()
	defer h.states.Unlock()

	state, err := h.states.Load()
	if err != nil {
		h.logger.Error("load state", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create violation"})
		return
	}
	if state.FindRule(req.RuleID) == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown rule"})
		return
	}

	v, err := h.violations.Create(req.RuleID, req.Violator, strings.TrimSpace(req.AccusalComment), h.now())
	if err != nil {
		h.logger.Error("create violation", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create violation"})
		return
	}

	h.logger.Info("violation filed", "id", v.ID, "rule", v.RuleID, "violator", v.Violator, "by", role)
	h.hub.Broadcast(websocket.NewMessage(websocket.EntityViolation, "created", v.ID, map[string]any{
		"violator": v.Violator,
	}))
	writeJSON(w, http.StatusCreated, violationResponse{HistoryEntry: court.Describe(state, *v)})
}

// Defend handles POST /api/violations/{id}/defense.
func (h *ViolationHandler) Defend(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Defense string `json:"defense"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	req.Defense = strings.TrimSpace(req.Defense)
	if req.Defense == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "defense is required"})
		return
	}

	h.transition(w, r, "defended", court.CanDefend, func(v *model.Violation) {
		v.Defense = req.Defense
		v.Status = model.StatusDefended
	})
}

// Admit handles POST /api/violations/{id}/admit.
func (h *ViolationHandler) Admit(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "admitted", court.CanAdmit, func(v *model.Violation) {
		v.Status = model.StatusGuilty
	})
}

// Verdict handles POST /api/violations/{id}/verdict.
func (h *ViolationHandler) Verdict(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status          model.ViolationStatus `json:"status"`
		JudgmentComment string                `json:"judgmentComment"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Status != model.StatusGuilty && req.Status != model.StatusInnocent {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be guilty or innocent"})
		return
	}

	h.transition(w, r, "judged", court.CanJudge, func(v *model.Violation) {
		v.Status = req.Status
		v.JudgmentComment = strings.TrimSpace(req.JudgmentComment)
	})
}

// Update handles PUT /api/violations/{id}. It edits a case without the
// turn-taking checks, which is how a case is re-opened.
func (h *ViolationHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status          *model.ViolationStatus `json:"status"`
		Defense         *string                `json:"defense"`
		AccusalComment  *string                `json:"accusalComment"`
		JudgmentComment *string                `json:"judgmentComment"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Status != nil && !req.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
		return
	}

	h.transition(w, r, "updated", nil, func(v *model.Violation) {
		if req.Status != nil {
			v.Status = *req.Status
		}
		if req.Defense != nil {
			v.Defense = strings.TrimSpace(*req.Defense)
		}
		if req.AccusalComment != nil {
			v.AccusalComment = strings.TrimSpace(*req.AccusalComment)
		}
		if req.JudgmentComment != nil {
			v.JudgmentComment = strings.TrimSpace(*req.JudgmentComment)
		}
	})
}

// Delete handles DELETE /api/violations/{id}. Deleting twice is not an error.
func (h *ViolationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	h.states.Lock()
	err := h.violations.Delete(id)
	h.states.Unlock()
	if err != nil {
		h.logger.Error("delete violation", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to delete violation"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage(websocket.EntityViolation, "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}

// transition loads the case, checks the caller may act on it, applies
// mutate and stores the result. A nil check skips the turn rules.
func (h *ViolationHandler) transition(w http.ResponseWriter, r *http.Request, action string, check func(model.Role, model.Violation) error, mutate func(*model.Violation)) {
	role, _ := auth.RoleFrom(r.Context())
	id := r.PathValue("id")

	h.states.Lock()
	defer h.states.Unlock()

	state, err := h.states.Load()
	if err != nil {
		h.logger.Error("load state", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update violation"})
		return
	}
	existing := state.FindViolation(id)
	if existing == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "violation not found"})
		return
	}
	if check != nil {
		if err := check(role, *existing); err != nil {
			writeCourtError(w, err)
			return
		}
	}

	updated := *existing
	mutate(&updated)
	if updated.Status == model.StatusGuilty {
		points := court.RulePoints(state, updated.RuleID)
		updated.ScoreApplied = &points
	} else {
		updated.ScoreApplied = nil
	}

	notice, _ := court.Apply(state, updated)

	saved, err := h.violations.Update(updated)
	if err != nil {
		h.logger.Error("update violation", "id", id, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to update violation"})
		return
	}
	if saved == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "violation not found"})
		return
	}

	h.logger.Info("violation "+action, "id", id, "status", saved.Status, "by", role)
	h.hub.Broadcast(websocket.NewMessage(websocket.EntityViolation, action, id, map[string]any{
		"status": saved.Status,
	}))
	if notice != nil {
		h.announce(r.Context(), id, *notice)
	}

	writeJSON(w, http.StatusOK, violationResponse{
		HistoryEntry: court.Describe(state, *saved),
		Penalty:      notice,
	})
}

func (h *ViolationHandler) announce(ctx context.Context, id string, notice court.PenaltyNotice) {
	h.logger.Info("penalty threshold reached", "partner", notice.Partner, "score", notice.Score, "threshold", notice.Threshold)
	h.hub.Broadcast(websocket.NewMessage(websocket.EntityVerdict, "penalty", id, map[string]any{
		"partner":    notice.Partner,
		"name":       notice.Name,
		"score":      notice.Score,
		"threshold":  notice.Threshold,
		"punishment": notice.Punishment,
	}))

	if h.notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		ctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		defer cancel()
		sent, err := h.notifier.Penalty(ctx, notice)
		if err != nil {
			h.logger.Error("push penalty", "error", err)
			return
		}
		h.logger.Debug("penalty pushed", "devices", sent)
	}()
}
