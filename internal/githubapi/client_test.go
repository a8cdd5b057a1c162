package githubapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFactoryDefaultsToPublicAPI(t *testing.T) {
	f, err := NewFactory("")
	require.NoError(t, err)

	client := f.ForToken("tok")
	assert.Equal(t, DefaultBaseURL, client.BaseURL.String())
}

func TestNewFactoryAddsTrailingSlash(t *testing.T) {
	f, err := NewFactory("https://ghe.example/api/v3")
	require.NoError(t, err)

	assert.Equal(t, "https://ghe.example/api/v3/", f.ForToken("tok").BaseURL.String())
}

func TestNewFactoryRejectsRelativeURL(t *testing.T) {
	_, err := NewFactory("api/v3")
	require.Error(t, err)
}

func TestForTokenSendsBearerToken(t *testing.T) {
	var gotAuth, gotAgent, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotAgent = r.Header.Get("User-Agent")
		gotPath = r.URL.Path
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":1,"login":"octocat"}`))
	}))
	defer srv.Close()

	f, err := NewFactory(srv.URL, WithUserAgent("repodelete-test"))
	require.NoError(t, err)

	user, _, err := f.ForToken("secret-token").Users.Get(context.Background(), "")
	require.NoError(t, err)

	assert.Equal(t, "octocat", user.GetLogin())
	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "repodelete-test", gotAgent)
	assert.Equal(t, "/user", gotPath)
}

func TestForTokenClientsAreIsolated(t *testing.T) {
	f, err := NewFactory("https://api.github.com/")
	require.NoError(t, err)

	a := f.ForToken("a")
	b := f.ForToken("b")
	a.BaseURL.Path = "/mutated/"

	assert.Equal(t, "/", b.BaseURL.Path)
}
