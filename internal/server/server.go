// Package server assembles stores, handlers and middleware into the HTTP API.
package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/gavel/internal/backup"
	"github.com/dukerupert/gavel/internal/config"
	"github.com/dukerupert/gavel/internal/handler"
	"github.com/dukerupert/gavel/internal/middleware"
	"github.com/dukerupert/gavel/internal/push"
	"github.com/dukerupert/gavel/internal/store"
	"github.com/dukerupert/gavel/internal/suggest"
	ws "github.com/dukerupert/gavel/internal/websocket"
)

const (
	roleRateLimit    = 10
	suggestRateLimit = 5
	rateWindow       = time.Minute
)

type Server struct {
	db            *sql.DB
	hub           *ws.Hub
	stateH        *handler.StateHandler
	ruleH         *handler.RuleHandler
	violationH    *handler.ViolationHandler
	scoreboardH   *handler.ScoreboardHandler
	settingsH     *handler.SettingsHandler
	roleH         *handler.RoleHandler
	suggestionH   *handler.SuggestionHandler
	pushH         *handler.PushHandler
	backupH       *handler.BackupHandler
	rateLimiter   *middleware.RateLimiter
	backupManager *backup.Manager
	sessions      *store.SessionStore
	trustProxy    bool
	logger        *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger)

	stateStore := store.NewStateStore(db)
	ruleStore := store.NewRuleStore(db)
	violationStore := store.NewViolationStore(db)
	settingsStore := store.NewSettingsStore(db)
	pinStore := store.NewPINStore(db)
	pushStore := store.NewPushStore(db)
	backupStore := store.NewBackupStore(db)
	sessionStore := store.NewSessionStore(db)

	backupMgr := backup.NewManager(backup.Config{
		S3: backup.S3Config{
			Endpoint:  cfg.Backup.S3Endpoint,
			Bucket:    cfg.Backup.S3Bucket,
			Region:    cfg.Backup.S3Region,
			AccessKey: cfg.Backup.S3AccessKey,
			SecretKey: cfg.Backup.S3SecretKey,
		},
		Passphrase: cfg.Backup.Passphrase,
		Interval:   cfg.Backup.Interval,
	}, stateStore, backupStore, logger, func(s backup.Status) {
		hub.Broadcast(ws.NewMessage(ws.EntityBackup, string(s.State), "", map[string]any{
			"error": s.Error,
		}))
	})

	var pushH *handler.PushHandler
	var notifier handler.PenaltyNotifier
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushSvc := push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subscriber)
		notifier = push.NewNotifier(pushSvc, pushStore, logger)
		pushH = handler.NewPushHandler(pushStore, pushSvc, logger.With("component", "push_handler"))
	}

	suggester := suggest.New(suggest.Config{
		APIKey:  cfg.AI.APIKey,
		BaseURL: cfg.AI.BaseURL,
		Model:   cfg.AI.Model,
	})

	return &Server{
		db:            db,
		hub:           hub,
		stateH:        handler.NewStateHandler(stateStore, hub, logger.With("component", "state")),
		ruleH:         handler.NewRuleHandler(ruleStore, hub, logger.With("component", "rule")),
		violationH:    handler.NewViolationHandler(stateStore, violationStore, hub, notifier, logger.With("component", "violation")),
		scoreboardH:   handler.NewScoreboardHandler(stateStore, logger.With("component", "scoreboard")),
		settingsH:     handler.NewSettingsHandler(settingsStore, hub, logger.With("component", "settings")),
		roleH:         handler.NewRoleHandler(pinStore, sessionStore, logger.With("component", "role")),
		suggestionH:   handler.NewSuggestionHandler(suggester, ruleStore, hub, logger.With("component", "suggest")),
		pushH:         pushH,
		backupH:       handler.NewBackupHandler(backupMgr, hub, logger.With("component", "backup_handler")),
		rateLimiter:   middleware.NewRateLimiter(),
		backupManager: backupMgr,
		sessions:      sessionStore,
		trustProxy:    cfg.TrustProxy,
		logger:        logger,
	}
}

// Cleanup drops expired rate-limit windows and device sessions.
func (s *Server) Cleanup() {
	s.rateLimiter.Cleanup()
	n, err := s.sessions.DeleteExpired()
	if err != nil {
		s.logger.Error("delete expired sessions", "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("expired sessions removed", "count", n)
	}
}

func (s *Server) BackupManager() *backup.Manager {
	return s.backupManager
}

func (s *Server) Hub() *ws.Hub {
	return s.hub
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.healthHandler)
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	s.registerAPIRoutes(mux)

	logged := middleware.RequestLogger(s.logger.With("component", "http"))(mux)
	h := middleware.DeviceRole(s.sessions, s.logger.With("component", "session"))(logged)
	if s.trustProxy {
		h = middleware.ProxyHeaders(h)
	}
	return h
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.Error("health check", "error", err)
		status, code = "unavailable", http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]any{
		"status":  status,
		"clients": s.hub.ClientCount(),
	})
}

func (s *Server) rateLimited(limit int, h http.Handler) http.Handler {
	return middleware.RateLimit(s.rateLimiter, middleware.ByIPAndPath, limit, rateWindow)(h)
}

// role wraps h so only devices that picked a role reach it.
func role(h http.HandlerFunc) http.Handler {
	return middleware.RequireRole(h)
}

// partner wraps h so only partner1 or partner2 reach it.
func partner(h http.HandlerFunc) http.Handler {
	return middleware.RequirePartner(h)
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	// Whole document
	mux.HandleFunc("GET /api/state", s.stateH.Export)
	mux.Handle("PUT /api/state", partner(s.stateH.Import))
	mux.Handle("POST /api/state/reset", partner(s.stateH.Reset))

	// Rules
	mux.HandleFunc("GET /api/rules", s.ruleH.List)
	mux.Handle("POST /api/rules", partner(s.ruleH.Create))
	mux.Handle("PUT /api/rules/{id}", partner(s.ruleH.Update))
	mux.Handle("DELETE /api/rules/{id}", partner(s.ruleH.Delete))

	// Cases
	mux.HandleFunc("GET /api/violations", s.violationH.List)
	mux.HandleFunc("GET /api/violations/pending", s.violationH.Pending)
	mux.Handle("POST /api/violations", role(s.violationH.Create))
	mux.Handle("POST /api/violations/{id}/defense", role(s.violationH.Defend))
	mux.Handle("POST /api/violations/{id}/admit", role(s.violationH.Admit))
	mux.Handle("POST /api/violations/{id}/verdict", role(s.violationH.Verdict))
	mux.Handle("PUT /api/violations/{id}", partner(s.violationH.Update))
	mux.Handle("DELETE /api/violations/{id}", partner(s.violationH.Delete))

	mux.HandleFunc("GET /api/scoreboard", s.scoreboardH.Get)

	mux.HandleFunc("GET /api/settings", s.settingsH.Get)
	mux.Handle("PUT /api/settings", partner(s.settingsH.Update))

	// Device role
	mux.HandleFunc("GET /api/role", s.roleH.Get)
	mux.Handle("POST /api/role", s.rateLimited(roleRateLimit, http.HandlerFunc(s.roleH.Select)))
	mux.HandleFunc("DELETE /api/role", s.roleH.Clear)
	mux.Handle("PUT /api/partners/{partner}/pin", partner(s.roleH.SetPIN))
	mux.Handle("DELETE /api/partners/{partner}/pin", partner(s.roleH.ClearPIN))

	// Suggestions
	mux.Handle("POST /api/suggestions/rules", s.rateLimited(suggestRateLimit, partner(s.suggestionH.Rules)))
	mux.Handle("POST /api/suggestions/punishments", s.rateLimited(suggestRateLimit, partner(s.suggestionH.Punishments)))

	// Backups
	mux.HandleFunc("GET /api/backups", s.backupH.List)
	mux.HandleFunc("GET /api/backups/status", s.backupH.Status)
	mux.Handle("POST /api/backups", partner(s.backupH.Create))
	mux.Handle("POST /api/backups/{id}/restore", partner(s.backupH.Restore))

	// Web push
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.GetVAPIDKey)
		mux.Handle("POST /api/push/subscribe", role(s.pushH.Subscribe))
		mux.Handle("GET /api/push/subscriptions", role(s.pushH.ListSubscriptions))
		mux.Handle("DELETE /api/push/subscriptions/{id}", role(s.pushH.Unsubscribe))
		mux.Handle("POST /api/push/test", role(s.pushH.TestNotification))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
