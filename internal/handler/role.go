package handler

import (
	"log/slog"
	"net/http"

	"golang.org/x/crypto/bcrypt"

	"github.com/dukerupert/gavel/internal/auth"
	"github.com/dukerupert/gavel/internal/middleware"
	"github.com/dukerupert/gavel/internal/model"
	"github.com/dukerupert/gavel/internal/store"
)

type RoleHandler struct {
	pins     *store.PINStore
	sessions *store.SessionStore
	logger   *slog.Logger
}

func NewRoleHandler(ps *store.PINStore, ss *store.SessionStore, logger *slog.Logger) *RoleHandler {
	return &RoleHandler{pins: ps, sessions: ss, logger: logger}
}

type roleResponse struct {
	Role        *model.Role `json:"role"`
	PINRequired struct {
		Partner1 bool `json:"partner1"`
		Partner2 bool `json:"partner2"`
	} `json:"pinRequired"`
}

// Get handles GET /api/role. role is null until the device picks one.
func (h *RoleHandler) Get(w http.ResponseWriter, r *http.Request) {
	var resp roleResponse
	if role, ok := auth.RoleFrom(r.Context()); ok {
		resp.Role = &role
	}
	for _, p := range []struct {
		partner model.Partner
		out     *bool
	}{
		{model.Partner1, &resp.PINRequired.Partner1},
		{model.Partner2, &resp.PINRequired.Partner2},
	} {
		hash, err := h.pins.GetPINHash(p.partner)
		if err != nil {
			h.logger.Error("get PIN", "partner", p.partner, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load role"})
			return
		}
		*p.out = hash != ""
	}
	writeJSON(w, http.StatusOK, resp)
}

// Select handles POST /api/role. A partner role locked with a PIN needs it.
func (h *RoleHandler) Select(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Role model.Role `json:"role"`
		PIN  string     `json:"pin"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if !req.Role.Valid() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "role must be partner1, partner2, or observer"})
		return
	}

	if p, ok := req.Role.Partner(); ok {
		hash, err := h.pins.GetPINHash(p)
		if err != nil {
			h.logger.Error("get PIN", "partner", p, "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to check PIN"})
			return
		}
		if hash != "" {
			if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.PIN)); err != nil {
				h.logger.Warn("incorrect PIN", "partner", p, "remote", middleware.RealIP(r))
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "incorrect PIN"})
				return
			}
		}
	}

	sess, err := h.sessions.Create(req.Role)
	if err != nil {
		h.logger.Error("create session", "role", req.Role, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to select role"})
		return
	}
	if old := middleware.SessionToken(r); old != "" {
		if err := h.sessions.Delete(old); err != nil {
			h.logger.Warn("delete previous session", "error", err)
		}
	}

	middleware.SetRoleCookie(w, r, sess)
	writeJSON(w, http.StatusOK, map[string]model.Role{"role": req.Role})
}

// Clear handles DELETE /api/role.
func (h *RoleHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if token := middleware.SessionToken(r); token != "" {
		if err := h.sessions.Delete(token); err != nil {
			h.logger.Error("delete session", "error", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to clear role"})
			return
		}
	}
	middleware.ClearRoleCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// partnerParam returns the {partner} path value when the caller holds that
// role, writing the error response otherwise.
func partnerParam(w http.ResponseWriter, r *http.Request) (model.Partner, bool) {
	p := model.Partner(r.PathValue("partner"))
	if !p.Valid() {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown partner"})
		return "", false
	}
	if own, ok := auth.Partner(r.Context()); !ok || own != p {
		writeJSON(w, http.StatusForbidden, map[string]string{"error": "only " + string(p) + " can change this PIN"})
		return "", false
	}
	return p, true
}

// SetPIN handles PUT /api/partners/{partner}/pin. Other devices holding the
// role are signed out and must enter the new PIN.
func (h *RoleHandler) SetPIN(w http.ResponseWriter, r *http.Request) {
	p, ok := partnerParam(w, r)
	if !ok {
		return
	}

	var req struct {
		PIN string `json:"pin"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if len(req.PIN) != 4 || !isDigits(req.PIN) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "PIN must be exactly 4 digits"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.PIN), bcrypt.DefaultCost)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to hash PIN"})
		return
	}
	if err := h.pins.SetPIN(p, string(hash)); err != nil {
		h.logger.Error("set PIN", "partner", p, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to set PIN"})
		return
	}

	role := model.Role(p)
	revoked, err := h.sessions.DeleteByRole(role, middleware.SessionToken(r))
	if err != nil {
		h.logger.Error("revoke sessions", "role", role, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to sign out other devices"})
		return
	}
	h.logger.Info("PIN set", "partner", p, "signed_out", revoked)

	writeJSON(w, http.StatusOK, map[string]string{"status": "pin set"})
}

// ClearPIN handles DELETE /api/partners/{partner}/pin.
func (h *RoleHandler) ClearPIN(w http.ResponseWriter, r *http.Request) {
	p, ok := partnerParam(w, r)
	if !ok {
		return
	}
	if err := h.pins.ClearPIN(p); err != nil {
		h.logger.Error("clear PIN", "partner", p, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to clear PIN"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "pin cleared"})
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
