// Package githubapi builds go-github clients that act on behalf of one user.
package githubapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
)

// DefaultBaseURL is the public GitHub REST endpoint.
const DefaultBaseURL = "https://api.github.com/"

const defaultTimeout = 15 * time.Second

// Factory creates per-token GitHub clients sharing one transport.
type Factory struct {
	baseURL   *url.URL
	transport http.RoundTripper
	timeout   time.Duration
	userAgent string
}

// Option configures the Factory during construction.
type Option func(*Factory)

// WithTransport overrides the base transport used beneath the token transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(f *Factory) {
		if rt != nil {
			f.transport = rt
		}
	}
}

// WithTimeout sets the per-request timeout for provider calls.
func WithTimeout(timeout time.Duration) Option {
	return func(f *Factory) {
		if timeout > 0 {
			f.timeout = timeout
		}
	}
}

// WithUserAgent overrides the User-Agent sent to GitHub.
func WithUserAgent(userAgent string) Option {
	return func(f *Factory) {
		if userAgent = strings.TrimSpace(userAgent); userAgent != "" {
			f.userAgent = userAgent
		}
	}
}

// NewFactory parses baseURL and returns a Factory. An empty baseURL selects api.github.com.
func NewFactory(baseURL string, opts ...Option) (*Factory, error) {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse github api url: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("github api url %q must be absolute", baseURL)
	}

	f := &Factory{
		baseURL:   parsed,
		transport: http.DefaultTransport,
		timeout:   defaultTimeout,
		userAgent: "repodelete",
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// ForToken returns a client that authenticates every call with token.
func (f *Factory) ForToken(token string) *github.Client {
	httpClient := &http.Client{
		Timeout: f.timeout,
		Transport: &oauth2.Transport{
			Base:   f.transport,
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}),
		},
	}

	client := github.NewClient(httpClient)
	base := *f.baseURL
	client.BaseURL = &base
	client.UserAgent = f.userAgent
	return client
}
