package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"autoblog/config"
)

func newGithubTestClient(t *testing.T, handler http.HandlerFunc) *GithubOAuthClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewGithubOAuthClient(config.AuthConfig{
		GithubClientID:     "client",
		GithubClientSecret: "secret",
		GithubRedirectURL:  "http://localhost:3000/auth/github/callback",
	})
	require.NoError(t, err)
	c.apiBase = srv.URL
	return c
}

func TestNewGithubOAuthClientRequiresConfig(t *testing.T) {
	_, err := NewGithubOAuthClient(config.AuthConfig{GithubClientID: "client"})
	assert.Error(t, err)
}

func TestGithubAuthCodeURLCarriesState(t *testing.T) {
	c, err := NewGithubOAuthClient(config.AuthConfig{
		GithubClientID:     "client",
		GithubClientSecret: "secret",
		GithubRedirectURL:  "http://localhost:3000/auth/github/callback",
	})
	require.NoError(t, err)

	u := c.AuthCodeURL("state-123")
	assert.True(t, strings.HasPrefix(u, "https://github.com/login/oauth/authorize"))
	assert.Contains(t, u, "state=state-123")
	assert.Contains(t, u, "client_id=client")
}

func TestFetchProfileUsesPublicEmail(t *testing.T) {
	c := newGithubTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer gh-token", r.Header.Get("Authorization"))
		switch r.URL.Path {
		case "/user":
			_ = json.NewEncoder(w).Encode(map[string]any{
				"id": 42, "login": "alice", "name": "Alice", "email": "alice@example.com", "avatar_url": "https://avatars/a.png",
			})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	})

	p, err := c.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "gh-token", TokenType: "Bearer"})
	require.NoError(t, err)
	assert.Equal(t, "42", p.ID)
	assert.Equal(t, "alice", p.Login)
	assert.Equal(t, "Alice", p.Name)
	assert.Equal(t, "alice@example.com", p.Email)
	assert.Equal(t, "https://avatars/a.png", p.AvatarURL)
}

func TestFetchProfileFallsBackToVerifiedPrimaryEmail(t *testing.T) {
	c := newGithubTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 7, "login": "bob"})
		case "/user/emails":
			_ = json.NewEncoder(w).Encode([]map[string]any{
				{"email": "old@example.com", "primary": false, "verified": true},
				{"email": "bob@example.com", "primary": true, "verified": true},
			})
		}
	})

	p, err := c.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "t"})
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", p.Email)
}

func TestFetchProfileIgnoresEmailScopeFailure(t *testing.T) {
	c := newGithubTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/user" {
			_ = json.NewEncoder(w).Encode(map[string]any{"id": 7, "login": "bob"})
			return
		}
		w.WriteHeader(http.StatusForbidden)
	})

	p, err := c.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "t"})
	require.NoError(t, err)
	assert.Equal(t, "7", p.ID)
	assert.Empty(t, p.Email)
}

func TestFetchProfileFailsOnUserEndpointError(t *testing.T) {
	c := newGithubTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "t"})
	assert.Error(t, err)
}

func TestPickEmail(t *testing.T) {
	assert.Equal(t, "", pickEmail(nil))
	assert.Equal(t, "v@x.io", pickEmail([]githubEmail{{Email: "u@x.io"}, {Email: "v@x.io", Verified: true}}))
}
