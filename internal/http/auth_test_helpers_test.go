package http

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"repodelete/internal/auth"
	"repodelete/internal/repos"
)

type authRepoStub struct {
	createSession         func(ctx context.Context, session auth.Session, tokenHash string) error
	findSessionByHash     func(ctx context.Context, tokenHash string) (*auth.Session, error)
	deleteSession         func(ctx context.Context, id uuid.UUID) error
	deleteSessionsForUser func(ctx context.Context, providerUserID string) (int64, error)
}

func (r *authRepoStub) CreateSession(ctx context.Context, session auth.Session, tokenHash string) error {
	if r.createSession != nil {
		return r.createSession(ctx, session, tokenHash)
	}
	return nil
}

func (r *authRepoStub) FindSessionByTokenHash(ctx context.Context, tokenHash string) (*auth.Session, error) {
	if r.findSessionByHash != nil {
		return r.findSessionByHash(ctx, tokenHash)
	}
	return nil, nil
}

func (r *authRepoStub) DeleteSession(ctx context.Context, id uuid.UUID) error {
	if r.deleteSession != nil {
		return r.deleteSession(ctx, id)
	}
	return nil
}

func (r *authRepoStub) DeleteSessionsForUser(ctx context.Context, providerUserID string) (int64, error) {
	if r.deleteSessionsForUser != nil {
		return r.deleteSessionsForUser(ctx, providerUserID)
	}
	return 0, nil
}

func (r *authRepoStub) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	return 0, nil
}

type fakeGitHubAuthenticator struct {
	authURLBase string
	lastState   string
	lastCode    string
	grant       *auth.Grant
	exchangeErr error
}

func (f *fakeGitHubAuthenticator) AuthURL(state string) string {
	f.lastState = state
	if f.authURLBase == "" {
		f.authURLBase = "https://github.com/login/oauth/authorize?state="
	}
	return f.authURLBase + state
}

func (f *fakeGitHubAuthenticator) Exchange(ctx context.Context, code string) (*auth.Grant, error) {
	f.lastCode = code
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.grant, nil
}

type fakeRepoService struct {
	list    func(ctx context.Context, userID string) (repos.Listing, error)
	del     func(ctx context.Context, userID, owner, name string) error
	calls   int
	lastArg []string
}

func (f *fakeRepoService) List(ctx context.Context, userID string) (repos.Listing, error) {
	f.calls++
	f.lastArg = []string{userID}
	if f.list != nil {
		return f.list(ctx, userID)
	}
	return repos.Listing{}, nil
}

func (f *fakeRepoService) Delete(ctx context.Context, userID, owner, name string) error {
	f.calls++
	f.lastArg = []string{userID, owner, name}
	if f.del != nil {
		return f.del(ctx, userID, owner, name)
	}
	return nil
}

var octocat = auth.Identity{
	ID:       "583231",
	Username: "octocat",
	Photos:   []auth.Photo{{Value: "https://avatars.githubusercontent.com/u/583231?v=4"}},
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newSignedInSession stores a session for identity and returns its cookie value.
func newSignedInSession(t *testing.T, sessions *auth.Service, identity auth.Identity) string {
	t.Helper()
	token, err := sessions.CreateSession(context.Background(), identity, "test", "127.0.0.1")
	if err != nil {
		t.Fatalf("CreateSession returned error: %v", err)
	}
	return token
}

func findCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
