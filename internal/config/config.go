package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config aggregates runtime configuration for the repository cleanup service.
type Config struct {
	Environment        string
	HTTPPort           int
	LogLevel           string
	FrontendURL        string
	CallbackBaseURL    string
	GitHubClientID     string
	GitHubClientSecret string
	GitHubAPIURL       string
	GitHubAuthURL      string
	GitHubTokenURL     string
	SessionSecret      string
	SessionTTL         time.Duration
	DataStore          string
	DatabaseURL        string
	RateLimitRequests  int
	RateLimitWindow    time.Duration
}

// rawEnv holds the values read directly from the process environment.
type rawEnv struct {
	Environment       string        `env:"APP_ENV"             envDefault:"development"`
	Port              int           `env:"PORT"`
	HTTPPort          int           `env:"HTTP_PORT"           envDefault:"4500"`
	LogLevel          string        `env:"LOG_LEVEL"           envDefault:"info"`
	FrontendURL       string        `env:"FRONTEND_URL"        envDefault:"http://localhost:5173"`
	CallbackBaseURL   string        `env:"CALLBACK_BASE_URL"   envDefault:"http://localhost:4500"`
	GitHubAPIURL      string        `env:"GITHUB_API_URL"      envDefault:"https://api.github.com/"`
	GitHubAuthURL     string        `env:"GITHUB_AUTH_URL"     envDefault:"https://github.com/login/oauth/authorize"`
	GitHubTokenURL    string        `env:"GITHUB_TOKEN_URL"    envDefault:"https://github.com/login/oauth/access_token"`
	SessionTTL        time.Duration `env:"SESSION_TTL"         envDefault:"24h"`
	DataStore         string        `env:"DATA_STORE"          envDefault:"memory"`
	RateLimitRequests int           `env:"RATE_LIMIT_REQUESTS" envDefault:"100"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW"   envDefault:"15m"`
}

// Load reads configuration from environment variables with sensible defaults for local development.
func Load() (Config, error) {
	var raw rawEnv
	if err := env.Parse(&raw); err != nil {
		return Config{}, fmt.Errorf("config: parse env: %w", err)
	}

	clientID, err := getEnvOrFile("GITHUB_CLIENT_ID", "/run/secrets/repodelete_github_client_id")
	if err != nil {
		return Config{}, err
	}
	clientSecret, err := getEnvOrFile("GITHUB_CLIENT_SECRET", "/run/secrets/repodelete_github_client_secret")
	if err != nil {
		return Config{}, err
	}
	sessionSecret, err := getEnvOrFile("SESSION_SECRET", "/run/secrets/repodelete_session_secret")
	if err != nil {
		return Config{}, err
	}
	databaseURL, err := getEnvOrFile("DATABASE_URL", "/run/secrets/repodelete_database_url")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Environment:        strings.ToLower(strings.TrimSpace(raw.Environment)),
		HTTPPort:           raw.HTTPPort,
		LogLevel:           strings.ToLower(raw.LogLevel),
		FrontendURL:        strings.TrimSuffix(strings.TrimSpace(raw.FrontendURL), "/"),
		CallbackBaseURL:    strings.TrimSuffix(strings.TrimSpace(raw.CallbackBaseURL), "/"),
		GitHubClientID:     strings.TrimSpace(clientID),
		GitHubClientSecret: strings.TrimSpace(clientSecret),
		GitHubAPIURL:       ensureTrailingSlash(strings.TrimSpace(raw.GitHubAPIURL)),
		GitHubAuthURL:      strings.TrimSpace(raw.GitHubAuthURL),
		GitHubTokenURL:     strings.TrimSpace(raw.GitHubTokenURL),
		SessionSecret:      strings.TrimSpace(sessionSecret),
		SessionTTL:         raw.SessionTTL,
		DataStore:          strings.ToLower(strings.TrimSpace(raw.DataStore)),
		DatabaseURL:        strings.TrimSpace(databaseURL),
		RateLimitRequests:  raw.RateLimitRequests,
		RateLimitWindow:    raw.RateLimitWindow,
	}
	if raw.Port != 0 {
		cfg.HTTPPort = raw.Port
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid port %d", c.HTTPPort)
	}
	if c.DataStore != "memory" && c.DataStore != "postgres" {
		return fmt.Errorf("DATA_STORE must be memory or postgres, got %q", c.DataStore)
	}
	if c.DataStore == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("DATA_STORE is postgres but DATABASE_URL is not set")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}
	for name, raw := range map[string]string{
		"FRONTEND_URL":      c.FrontendURL,
		"CALLBACK_BASE_URL": c.CallbackBaseURL,
		"GITHUB_API_URL":    c.GitHubAPIURL,
	} {
		if _, err := url.ParseRequestURI(raw); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, raw, err)
		}
	}

	if c.IsDevelopment() {
		return nil
	}
	if c.GitHubClientID == "" {
		return errors.New("GITHUB_CLIENT_ID is required outside development")
	}
	if c.GitHubClientSecret == "" {
		return errors.New("GITHUB_CLIENT_SECRET is required outside development")
	}
	if c.SessionSecret == "" {
		return errors.New("SESSION_SECRET is required outside development")
	}
	return nil
}

// HTTPAddress returns the address the HTTP server should bind to.
func (c Config) HTTPAddress() string {
	return fmt.Sprintf(":%d", c.HTTPPort)
}

// UseInMemoryStore returns true if sessions should live in process memory.
func (c Config) UseInMemoryStore() bool {
	return c.DataStore == "memory"
}

// IsDevelopment reports whether the service runs with local-development relaxations.
func (c Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// OAuthCallbackURL is the redirect URL registered with the GitHub OAuth app.
func (c Config) OAuthCallbackURL() string {
	return c.CallbackBaseURL + "/auth/github/callback"
}

// OAuthEnabled reports whether GitHub credentials are configured.
func (c Config) OAuthEnabled() bool {
	return c.GitHubClientID != "" && c.GitHubClientSecret != ""
}

func ensureTrailingSlash(value string) string {
	if strings.HasSuffix(value, "/") {
		return value
	}
	return value + "/"
}

func getEnvOrFile(key, defaultPath string) (string, error) {
	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	fileKey := key + "_FILE"
	if path := os.Getenv(fileKey); path != "" {
		return readSecret(path, fileKey)
	}

	if defaultPath != "" {
		return readSecret(defaultPath, key)
	}

	return "", nil
}

func readSecret(path, name string) (string, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("config: reading %s (%s): %w", name, path, err)
	}

	value := strings.TrimSpace(string(contents))
	if value == "" {
		return "", fmt.Errorf("config: %s (%s) is empty", name, path)
	}
	return value, nil
}
