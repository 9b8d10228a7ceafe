package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/gavel/internal/backup"
	"github.com/dukerupert/gavel/internal/court"
	"github.com/dukerupert/gavel/internal/websocket"
)

const backupListLimit = 50

type BackupHandler struct {
	manager *backup.Manager
	hub     websocket.Broadcaster
	logger  *slog.Logger
}

func NewBackupHandler(m *backup.Manager, hub websocket.Broadcaster, logger *slog.Logger) *BackupHandler {
	return &BackupHandler{manager: m, hub: hub, logger: logger}
}

// Status handles GET /api/backups/status
func (h *BackupHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.manager.Status())
}

// List handles GET /api/backups
func (h *BackupHandler) List(w http.ResponseWriter, r *http.Request) {
	backups, err := h.manager.List(backupListLimit)
	if err != nil {
		h.logger.Error("list backups", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to list backups"})
		return
	}
	writeJSON(w, http.StatusOK, backups)
}

// Create handles POST /api/backups
func (h *BackupHandler) Create(w http.ResponseWriter, r *http.Request) {
	rec, err := h.manager.RunNow(r.Context())
	if err != nil {
		if errors.Is(err, backup.ErrNotConfigured) {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "backups are not configured"})
			return
		}
		h.logger.Error("run backup", "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "backup failed"})
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// Restore handles POST /api/backups/{id}/restore
func (h *BackupHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
		return
	}

	state, err := h.manager.Restore(r.Context(), id)
	switch {
	case err == nil:
	case errors.Is(err, backup.ErrNotConfigured):
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "backups are not configured"})
		return
	case errors.Is(err, backup.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "backup not found"})
		return
	case errors.Is(err, backup.ErrNotRestorable):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, court.ErrInvalidDocument):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
		return
	default:
		h.logger.Error("restore backup", "id", id, "error", err)
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "restore failed"})
		return
	}

	h.hub.Broadcast(websocket.NewMessage(websocket.EntityState, "restored", "", nil))
	writeJSON(w, http.StatusOK, state)
}
