package http

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"repodelete/internal/auth"
	"repodelete/internal/config"
)

// Dependencies groups the collaborators the router wires into handlers.
type Dependencies struct {
	Sessions *auth.Service
	// GitHub is nil when OAuth credentials are not configured.
	GitHub githubAuthenticator
	Tokens tokenStore
	Repos  repoService
}

// NewRouter wires application routes and middleware using chi.
func NewRouter(cfg config.Config, deps Dependencies, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		ExposedHeaders:   []string{truncatedHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(newSecurityHeadersMiddleware(cfg.Environment))
	r.Use(newSlogMiddleware(logger))
	r.Use(newRateLimitMiddleware(newClientRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow), logger))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("Welcome to the GitHub OAuth App!"))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"environment": cfg.Environment,
		})
	})

	if deps.GitHub == nil {
		logger.Warn("GitHub OAuth is not configured; login is disabled")
	}

	oauthHandler := NewOAuthHandler(deps.GitHub, deps.Sessions, deps.Tokens, cfg.FrontendURL, cfg.Environment, logger)
	sessionHandler := NewSessionHandler(deps.Sessions, logger)
	repoHandler := NewRepoHandler(deps.Repos, logger)

	r.Route("/auth", func(r chi.Router) {
		r.Get("/github", oauthHandler.InitiateGitHub)
		r.Get("/github/callback", oauthHandler.CallbackGitHub)
		r.Get("/status", sessionHandler.Status)
	})
	r.Get("/logout", oauthHandler.Logout)

	r.Route("/api", func(r chi.Router) {
		r.Use(newAuthMiddleware(deps.Sessions, logger))
		r.Get("/user", sessionHandler.User)
		r.Route("/repos", func(r chi.Router) {
			r.Get("/", repoHandler.List)
			r.Delete("/{owner}/{repo}", repoHandler.Delete)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	return r
}
