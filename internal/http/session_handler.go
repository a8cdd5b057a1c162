package http

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"repodelete/internal/auth"
)

const sessionCookieName = "repodelete_session"

// cookieSettings carries the environment-dependent session cookie attributes.
// Outside development the UI runs on another site, so the cookie must be
// Secure with SameSite=None to be sent on credentialed cross-site requests.
type cookieSettings struct {
	secure   bool
	sameSite http.SameSite
}

func newCookieSettings(env string) cookieSettings {
	if strings.EqualFold(env, "development") {
		return cookieSettings{secure: false, sameSite: http.SameSiteLaxMode}
	}
	return cookieSettings{secure: true, sameSite: http.SameSiteNoneMode}
}

func (c cookieSettings) session(value string, ttl time.Duration) *http.Cookie {
	return &http.Cookie{
		Name:     sessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: c.sameSite,
		MaxAge:   int(ttl.Seconds()),
		Expires:  time.Now().Add(ttl),
	}
}

func (c cookieSettings) cleared() *http.Cookie {
	cookie := c.session("", 0)
	cookie.MaxAge = -1
	cookie.Expires = time.Unix(0, 0)
	return cookie
}

func sessionTokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

type statusResponse struct {
	Authenticated bool           `json:"authenticated"`
	User          *auth.Identity `json:"user,omitempty"`
}

// SessionHandler reports the state of the caller's session. It never exposes the access token.
type SessionHandler struct {
	sessions *auth.Service
	logger   *slog.Logger
}

// NewSessionHandler returns a SessionHandler.
func NewSessionHandler(sessions *auth.Service, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, logger: logger}
}

// Status handles GET /auth/status and always answers 200.
func (h *SessionHandler) Status(w http.ResponseWriter, r *http.Request) {
	session := lookupSession(r, h.sessions, h.logger)
	if session == nil {
		writeJSON(w, http.StatusOK, statusResponse{Authenticated: false})
		return
	}
	identity := session.Identity
	writeJSON(w, http.StatusOK, statusResponse{Authenticated: true, User: &identity})
}

// User handles GET /api/user behind the auth middleware.
func (h *SessionHandler) User(w http.ResponseWriter, r *http.Request) {
	session := SessionFromContext(r.Context())
	if session == nil {
		unauthorized(w)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": session.Identity})
}
