package middleware

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/gavel/internal/auth"
	"github.com/dukerupert/gavel/internal/model"
)

// RoleCookieName holds the opaque session token of the role chosen on a device.
const RoleCookieName = "gavel_role"

// SessionLookup resolves a role cookie token to its session.
type SessionLookup interface {
	GetByToken(token string) (*model.DeviceSession, error)
}

// DeviceRole resolves the role cookie against the server-side sessions and
// attaches the session's role to the request context. Unknown or expired
// tokens are ignored, so a hand-written cookie carries no role.
func DeviceRole(sessions SessionLookup, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := SessionToken(r); token != "" {
				sess, err := sessions.GetByToken(token)
				if err != nil {
					logger.Error("look up device session", "error", err)
				} else if sess != nil && sess.Role.Valid() {
					r = r.WithContext(auth.WithRole(r.Context(), sess.Role))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// SessionToken returns the role cookie value, or "" when the device has none.
func SessionToken(r *http.Request) string {
	cookie, err := r.Cookie(RoleCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

// RequireRole rejects requests from devices that have not picked a role yet.
func RequireRole(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.RoleFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "choose a role first")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequirePartner rejects observers and devices without a role.
func RequirePartner(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := auth.RoleFrom(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "choose a role first")
			return
		}
		if _, ok := auth.Partner(r.Context()); !ok {
			writeError(w, http.StatusForbidden, "observers are read-only")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetRoleCookie hands the device its session token.
func SetRoleCookie(w http.ResponseWriter, r *http.Request, sess *model.DeviceSession) {
	http.SetCookie(w, &http.Cookie{
		Name:     RoleCookieName,
		Value:    sess.Token,
		Path:     "/",
		Expires:  sess.ExpiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearRoleCookie forgets the device role.
func ClearRoleCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     RoleCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
