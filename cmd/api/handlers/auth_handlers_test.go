package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/oauth2"

	"autoblog/cmd/api/auth"
	"autoblog/models"
	"autoblog/services"
)

type stubOAuth struct {
	exchangeErr error
	profile     services.GithubProfile
}

func (s *stubOAuth) AuthCodeURL(state string) string {
	return "https://github.com/login/oauth/authorize?state=" + state
}

func (s *stubOAuth) Exchange(context.Context, string) (*oauth2.Token, error) {
	if s.exchangeErr != nil {
		return nil, s.exchangeErr
	}
	return &oauth2.Token{AccessToken: "gh-token"}, nil
}

func (s *stubOAuth) FetchProfile(context.Context, *oauth2.Token) (services.GithubProfile, error) {
	return s.profile, nil
}

type stubSigner struct{}

func (stubSigner) Sign(userID, role string) (string, error) { return "jwt-" + userID + "-" + role, nil }
func (stubSigner) TTL() time.Duration                       { return time.Hour }

type stubGithubLogin struct {
	user *models.User
	err  error
}

func (s stubGithubLogin) LoginWithGithub(context.Context, services.GithubProfile) (*models.User, error) {
	return s.user, s.err
}

func authRouter(f *AuthFlow) *gin.Engine {
	r := gin.New()
	r.GET("/auth/github/login", GithubLoginHandler(f))
	r.GET("/auth/github/callback", GithubCallbackHandler(f))
	r.POST("/auth/logout", LogoutHandler(false))
	return r
}

func newFlow(login stubGithubLogin, oauth *stubOAuth) *AuthFlow {
	return &AuthFlow{
		OAuth:      oauth,
		Tokens:     stubSigner{},
		Users:      login,
		SuccessURL: "http://localhost:3000/login/success",
	}
}

func callback(r http.Handler, query string, cookieState string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/auth/github/callback?"+query, nil)
	if cookieState != "" {
		req.AddCookie(&http.Cookie{Name: oauthStateCookieName, Value: cookieState})
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func redirectQuery(t *testing.T, w *httptest.ResponseRecorder) url.Values {
	t.Helper()
	require.Equal(t, http.StatusFound, w.Code)
	loc, err := url.Parse(w.Header().Get("Location"))
	require.NoError(t, err)
	return loc.Query()
}

func findCookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func TestGithubLoginSetsStateCookie(t *testing.T) {
	r := authRouter(newFlow(stubGithubLogin{}, &stubOAuth{}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/github/login", nil))

	require.Equal(t, http.StatusFound, w.Code)
	state := findCookie(w, oauthStateCookieName)
	require.NotNil(t, state)
	assert.NotEmpty(t, state.Value)
	assert.True(t, state.HttpOnly)
	assert.Contains(t, w.Header().Get("Location"), "state="+state.Value)
}

func TestGithubCallbackIssuesToken(t *testing.T) {
	u := &models.User{ID: primitive.NewObjectID(), Role: models.RoleAdmin, IsActive: true}
	r := authRouter(newFlow(stubGithubLogin{user: u}, &stubOAuth{profile: services.GithubProfile{ID: "7", Login: "octo"}}))

	w := callback(r, "state=abc&code=xyz", "abc")

	q := redirectQuery(t, w)
	want := "jwt-" + u.ID.Hex() + "-admin"
	assert.Equal(t, want, q.Get("token"))
	c := findCookie(w, auth.CookieName)
	require.NotNil(t, c)
	assert.Equal(t, want, c.Value)
	assert.Equal(t, 3600, c.MaxAge)
}

func TestGithubCallbackFailures(t *testing.T) {
	active := &models.User{ID: primitive.NewObjectID(), Role: models.RoleUser, IsActive: true}
	tests := []struct {
		name   string
		login  stubGithubLogin
		oauth  *stubOAuth
		query  string
		cookie string
		reason string
	}{
		{"missing code", stubGithubLogin{user: active}, &stubOAuth{}, "state=abc", "abc", "missing_code"},
		{"no state cookie", stubGithubLogin{user: active}, &stubOAuth{}, "state=abc&code=1", "", "invalid_state"},
		{"state mismatch", stubGithubLogin{user: active}, &stubOAuth{}, "state=abc&code=1", "other", "invalid_state"},
		{"exchange", stubGithubLogin{user: active}, &stubOAuth{exchangeErr: errors.New("bad code")}, "state=abc&code=1", "abc", "exchange_failed"},
		{"inactive", stubGithubLogin{err: services.ErrUserInactive}, &stubOAuth{}, "state=abc&code=1", "abc", "user_inactive"},
		{"store", stubGithubLogin{err: errors.New("mongo")}, &stubOAuth{}, "state=abc&code=1", "abc", "login_failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := callback(authRouter(newFlow(tt.login, tt.oauth)), tt.query, tt.cookie)
			q := redirectQuery(t, w)
			assert.Equal(t, tt.reason, q.Get("error"))
			assert.Empty(t, q.Get("token"))
		})
	}
}

func TestLogoutClearsCookie(t *testing.T) {
	r := authRouter(newFlow(stubGithubLogin{}, &stubOAuth{}))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/auth/logout", nil))

	require.Equal(t, http.StatusOK, w.Code)
	c := findCookie(w, auth.CookieName)
	require.NotNil(t, c)
	assert.Empty(t, c.Value)
	assert.Less(t, c.MaxAge, 0)
}
