package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

// Scopes requested from GitHub: profile read plus enough repository access to list and delete.
var Scopes = []string{"read:user", "repo", "delete_repo"}

// ErrNoAccessToken is returned when the token endpoint answers without an access token.
var ErrNoAccessToken = errors.New("no access token in response")

type githubClientFactory interface {
	ForToken(token string) *github.Client
}

// GitHubAuthenticator drives the GitHub OAuth authorization-code flow.
type GitHubAuthenticator struct {
	config     *oauth2.Config
	clients    githubClientFactory
	httpClient *http.Client
}

// NewGitHubAuthenticator creates a GitHubAuthenticator. A zero endpoint selects github.com.
// httpClient is used for the token exchange; nil falls back to http.DefaultClient.
func NewGitHubAuthenticator(clientID, clientSecret, redirectURL string, endpoint oauth2.Endpoint, clients githubClientFactory, httpClient *http.Client) *GitHubAuthenticator {
	if endpoint.AuthURL == "" || endpoint.TokenURL == "" {
		endpoint = githuboauth.Endpoint
	}
	return &GitHubAuthenticator{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     endpoint,
			Scopes:       append([]string(nil), Scopes...),
		},
		clients:    clients,
		httpClient: httpClient,
	}
}

// AuthURL generates the GitHub consent URL with the given state.
func (g *GitHubAuthenticator) AuthURL(state string) string {
	return g.config.AuthCodeURL(state)
}

// Exchange trades the authorization code for an access token and fetches the
// authenticated user's profile with it.
func (g *GitHubAuthenticator) Exchange(ctx context.Context, code string) (*Grant, error) {
	if g.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.httpClient)
	}

	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}
	if token.AccessToken == "" {
		return nil, ErrNoAccessToken
	}

	user, _, err := g.clients.ForToken(token.AccessToken).Users.Get(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	if user.GetID() == 0 {
		return nil, fmt.Errorf("fetch profile: missing user id")
	}

	return &Grant{
		AccessToken: token.AccessToken,
		Identity:    IdentityFromGitHub(user),
	}, nil
}

// IdentityFromGitHub converts a GitHub user into the session identity snapshot.
func IdentityFromGitHub(user *github.User) Identity {
	identity := Identity{
		ID:       strconv.FormatInt(user.GetID(), 10),
		Username: user.GetLogin(),
		Photos:   []Photo{},
	}
	if avatar := user.GetAvatarURL(); avatar != "" {
		identity.Photos = append(identity.Photos, Photo{Value: avatar})
	}
	return identity
}

// GenerateState generates a cryptographically secure random state string.
func GenerateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
