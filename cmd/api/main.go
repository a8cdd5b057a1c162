package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"log/slog"

	"golang.org/x/oauth2"

	"repodelete/internal/auth"
	"repodelete/internal/config"
	"repodelete/internal/githubapi"
	transporthttp "repodelete/internal/http"
	"repodelete/internal/platform/database"
	"repodelete/internal/platform/logging"
	"repodelete/internal/platform/migrate"
	"repodelete/internal/repos"
	"repodelete/internal/tokens"
)

const userAgent = "repodelete"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel, cfg.Environment)

	sessionRepo, cleanup, err := buildSessionRepository(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize session store", "error", err)
		os.Exit(1)
	}
	if cleanup != nil {
		defer cleanup()
	}

	sessions := auth.NewService(sessionRepo, cfg.SessionTTL, auth.WithSessionSecret(cfg.SessionSecret))
	if removed, err := sessions.CleanupExpiredSessions(ctx); err != nil {
		logger.Warn("expired session cleanup failed", "error", err)
	} else if removed > 0 {
		logger.Info("removed expired sessions", "count", removed)
	}

	clients, err := githubapi.NewFactory(cfg.GitHubAPIURL, githubapi.WithUserAgent(userAgent))
	if err != nil {
		logger.Error("invalid GitHub API URL", "error", err)
		os.Exit(1)
	}

	tokenMap := tokens.NewMap()
	deps := transporthttp.Dependencies{
		Sessions: sessions,
		Tokens:   tokenMap,
		Repos:    repos.NewService(tokenMap, clients),
	}
	if cfg.OAuthEnabled() {
		endpoint := oauth2.Endpoint{AuthURL: cfg.GitHubAuthURL, TokenURL: cfg.GitHubTokenURL}
		exchangeClient := &http.Client{Timeout: 12 * time.Second}
		deps.GitHub = auth.NewGitHubAuthenticator(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.OAuthCallbackURL(), endpoint, clients, exchangeClient)
	}

	router := transporthttp.NewRouter(cfg, deps, logger)

	srv := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    http.DefaultMaxHeaderBytes,
	}

	go func() {
		logger.Info("repodelete API listening", "addr", srv.Addr, "store", cfg.DataStore, "frontend", cfg.FrontendURL)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}

func buildSessionRepository(ctx context.Context, cfg config.Config, logger *slog.Logger) (auth.Repository, func(), error) {
	if cfg.UseInMemoryStore() {
		logger.Info("using in-memory session store")
		return auth.NewInMemoryRepository(), nil, nil
	}

	db, err := database.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		_ = db.Close()
	}

	if err := migrate.Apply(ctx, db, logger); err != nil {
		cleanup()
		return nil, nil, err
	}

	logger.Info("connected to postgres")
	return auth.NewPostgresRepository(db), cleanup, nil
}
