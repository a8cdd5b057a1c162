package http

import (
	"context"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"repodelete/internal/auth"
)

// oauthStatePayload holds the CSRF state and optional redirect path.
type oauthStatePayload struct {
	State      string `json:"s"`
	RedirectTo string `json:"r,omitempty"`
}

const (
	oauthStateCookieName = "repodelete_oauth_state"
	oauthStateCookiePath = "/auth/github"
	oauthStateCookieTTL  = 10 * time.Minute

	defaultLandingPath = "/dashboard"
)

type githubAuthenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.Grant, error)
}

type tokenStore interface {
	Put(userID, token string)
	Delete(userID string)
}

// OAuthHandler handles the GitHub login round trip and logout.
type OAuthHandler struct {
	github      githubAuthenticator
	sessions    *auth.Service
	tokens      tokenStore
	cookies     cookieSettings
	logger      *slog.Logger
	frontendURL string
}

// NewOAuthHandler creates a new OAuthHandler. A nil authenticator disables login.
func NewOAuthHandler(github githubAuthenticator, sessions *auth.Service, tokens tokenStore, frontendURL, env string, logger *slog.Logger) *OAuthHandler {
	return &OAuthHandler{
		github:      github,
		sessions:    sessions,
		tokens:      tokens,
		cookies:     newCookieSettings(env),
		logger:      logger,
		frontendURL: strings.TrimSuffix(frontendURL, "/"),
	}
}

// InitiateGitHub handles GET /auth/github
// Redirects the user to GitHub's OAuth consent screen.
func (h *OAuthHandler) InitiateGitHub(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		h.logger.Warn("oauth login requested but GitHub OAuth is not configured")
		h.redirectWithError(w, r, "oauth_disabled", "GitHub login is not configured.")
		return
	}

	state, err := auth.GenerateState()
	if err != nil {
		h.logger.Error("failed to generate state", "error", err)
		h.redirectWithError(w, r, "internal_error", "Failed to start authentication.")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    state,
		Path:     oauthStateCookiePath,
		HttpOnly: true,
		Secure:   h.cookies.secure,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(oauthStateCookieTTL.Seconds()),
	})

	payload := oauthStatePayload{State: state}
	if redirectTo := r.URL.Query().Get("redirectTo"); redirectTo != "" && isValidRedirectPath(redirectTo) {
		payload.RedirectTo = redirectTo
	}

	stateJSON, _ := json.Marshal(payload)
	fullState := base64.RawURLEncoding.EncodeToString(stateJSON)

	http.Redirect(w, r, h.github.AuthURL(fullState), http.StatusFound)
}

// CallbackGitHub handles GET /auth/github/callback
// Exchanges the authorization code, records the access token and issues a session.
func (h *OAuthHandler) CallbackGitHub(w http.ResponseWriter, r *http.Request) {
	if h.github == nil {
		h.redirectWithError(w, r, "oauth_disabled", "GitHub login is not configured.")
		return
	}

	stateCookie, err := r.Cookie(oauthStateCookieName)
	if err != nil {
		h.logger.Warn("oauth callback: missing state cookie")
		h.redirectWithError(w, r, "invalid_request", "Session expired. Please try again.")
		return
	}

	stateBytes, err := base64.RawURLEncoding.DecodeString(r.URL.Query().Get("state"))
	if err != nil {
		h.logger.Warn("oauth callback: invalid state encoding")
		h.redirectWithError(w, r, "invalid_request", "Invalid state. Please try again.")
		return
	}

	var statePayload oauthStatePayload
	if err := json.Unmarshal(stateBytes, &statePayload); err != nil {
		h.logger.Warn("oauth callback: invalid state JSON")
		h.redirectWithError(w, r, "invalid_request", "Invalid state. Please try again.")
		return
	}

	if subtle.ConstantTimeCompare([]byte(statePayload.State), []byte(stateCookie.Value)) != 1 {
		h.logger.Warn("oauth callback: state mismatch")
		h.redirectWithError(w, r, "invalid_request", "Invalid state. Please try again.")
		return
	}

	redirectTo := defaultLandingPath
	if statePayload.RedirectTo != "" && isValidRedirectPath(statePayload.RedirectTo) {
		redirectTo = statePayload.RedirectTo
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookieName,
		Value:    "",
		Path:     oauthStateCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookies.secure,
	})

	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.logger.Warn("oauth callback: provider error", "error", errParam)
		h.redirectWithError(w, r, errParam, r.URL.Query().Get("error_description"))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		h.redirectWithError(w, r, "invalid_request", "Missing authorization code.")
		return
	}

	grant, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("oauth callback: exchange failed", "error", err)
		h.redirectWithError(w, r, "exchange_error", "Failed to complete authentication.")
		return
	}

	token, err := h.sessions.CreateSession(r.Context(), grant.Identity, r.UserAgent(), clientIPFromRequest(r))
	if err != nil {
		h.logger.Error("oauth callback: session creation failed", "error", err, "user_id", grant.Identity.ID)
		h.redirectWithError(w, r, "internal_error", "Failed to create session.")
		return
	}

	// Last login wins: a newer token replaces whatever this user had before.
	h.tokens.Put(grant.Identity.ID, grant.AccessToken)

	http.SetCookie(w, h.cookies.session(token, h.sessions.SessionTTL()))

	h.logger.Info("oauth login successful", "user_id", grant.Identity.ID, "username", grant.Identity.Username)

	http.Redirect(w, r, h.frontendURL+redirectTo, http.StatusFound)
}

// Logout handles GET /logout
// Drops the user's access token and sessions, then returns the browser to the frontend.
// Calling it without a session is a plain redirect.
func (h *OAuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if session := lookupSession(r, h.sessions, h.logger); session != nil {
		userID := session.Identity.ID
		h.tokens.Delete(userID)
		// The token is gone, so any other session for this user could only fail upstream.
		removed, err := h.sessions.DeleteUserSessions(r.Context(), userID)
		if err != nil {
			h.logger.Error("logout: delete sessions failed", "error", err, "user_id", userID)
			if err := h.sessions.DeleteSession(r.Context(), sessionTokenFromRequest(r)); err != nil {
				h.logger.Error("logout: delete session failed", "error", err, "user_id", userID)
			}
		} else {
			h.logger.Info("logout", "user_id", userID, "sessions_removed", removed)
		}
	}

	http.SetCookie(w, h.cookies.cleared())
	http.Redirect(w, r, h.frontendURL, http.StatusFound)
}

// redirectWithError redirects to the login page with error details.
func (h *OAuthHandler) redirectWithError(w http.ResponseWriter, r *http.Request, code, message string) {
	target := h.frontendURL + "/login?error=" + url.QueryEscape(code)
	if message != "" {
		target += "&message=" + url.QueryEscape(message)
	}
	http.Redirect(w, r, target, http.StatusFound)
}
