package handlers

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"autoblog/cmd/api/auth"
	"autoblog/cmd/api/dto"
	"autoblog/cmd/api/trace"
	"autoblog/logger"
	"autoblog/models"
	"autoblog/services"
)

const oauthStateCookieName = "oauth_state"

// OAuthProvider 는 auth.GithubOAuthClient 가 구현한다.
type OAuthProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (services.GithubProfile, error)
}

// TokenSigner 는 auth.JWTManager 가 구현한다.
type TokenSigner interface {
	Sign(userID, role string) (string, error)
	TTL() time.Duration
}

type GithubLogin interface {
	LoginWithGithub(ctx context.Context, p services.GithubProfile) (*models.User, error)
}

// AuthFlow 는 GitHub 로그인 콜백에 필요한 의존성을 묶는다.
type AuthFlow struct {
	OAuth        OAuthProvider
	Tokens       TokenSigner
	Users        GithubLogin
	SuccessURL   string
	CookieSecure bool
}

func generateState() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return uuid.NewString()
	}
	return base64.RawURLEncoding.EncodeToString(buf)
}

// redirectURL 은 로그인 완료 페이지에 쿼리 하나를 붙인다.
func (f *AuthFlow) redirectURL(key, value string) string {
	u, err := url.Parse(f.SuccessURL)
	if err != nil {
		return f.SuccessURL
	}
	q := u.Query()
	q.Set(key, value)
	u.RawQuery = q.Encode()
	return u.String()
}

func (f *AuthFlow) fail(c *gin.Context, reason string, fields logger.Fields) {
	fields["reason"] = reason
	logger.ErrorWithFields("github login failed", trace.Fields(c.Request.Context(), fields))
	c.Redirect(http.StatusFound, f.redirectURL("error", reason))
}

// GithubLoginHandler godoc
// @Summary      GitHub 로그인 시작
// @Description  state 값을 생성해 쿠키에 저장한 뒤, GitHub OAuth 인증 페이지로 리다이렉트합니다.
// @Tags         auth
// @Produce      json
// @Success      302  {string}  string  "GitHub OAuth 로그인 페이지로 리다이렉트"
// @Router       /auth/github/login [get]
func GithubLoginHandler(f *AuthFlow) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := generateState()
		// state 를 쿠키에 저장해 CSRF 를 방지한다.
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(oauthStateCookieName, state, 300, "/", "", f.CookieSecure, true)

		loginURL := f.OAuth.AuthCodeURL(state)
		logger.InfoWithFields("redirect to github oauth", trace.Fields(c.Request.Context(), logger.Fields{
			"redirect_to": loginURL,
		}))
		c.Redirect(http.StatusFound, loginURL)
	}
}

// GithubCallbackHandler godoc
// @Summary      GitHub OAuth 콜백 처리
// @Description  state 값을 검증하고, code로 액세스 토큰을 교환한 뒤 사용자를 조회/생성하고 JWT를 발급합니다. 토큰은 access_token 쿠키와 리다이렉트 쿼리로 전달됩니다.
// @Tags         auth
// @Produce      json
// @Success      302  {string}  string  "로그인 완료 페이지로 리다이렉트 (성공 시 토큰 포함)"
// @Router       /auth/github/callback [get]
func GithubCallbackHandler(f *AuthFlow) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := c.Query("state")
		code := c.Query("code")
		if state == "" || code == "" {
			f.fail(c, "missing_code", logger.Fields{"state": state})
			return
		}

		cookieState, err := c.Cookie(oauthStateCookieName)
		if err != nil {
			f.fail(c, "invalid_state", logger.Fields{"error": err.Error()})
			return
		}
		// 재사용 방지를 위해 콜백 시점에 state 쿠키를 즉시 만료시킨다.
		c.SetCookie(oauthStateCookieName, "", -1, "/", "", f.CookieSecure, true)
		if cookieState != state {
			f.fail(c, "invalid_state", logger.Fields{"cookie_state": cookieState, "state": state})
			return
		}

		ctx := c.Request.Context()
		token, err := f.OAuth.Exchange(ctx, code)
		if err != nil {
			f.fail(c, "exchange_failed", logger.Fields{"error": err.Error()})
			return
		}
		profile, err := f.OAuth.FetchProfile(ctx, token)
		if err != nil {
			f.fail(c, "profile_failed", logger.Fields{"error": err.Error()})
			return
		}
		u, err := f.Users.LoginWithGithub(ctx, profile)
		if err != nil {
			reason := "login_failed"
			if errors.Is(err, services.ErrUserInactive) {
				reason = "user_inactive"
			}
			f.fail(c, reason, logger.Fields{"github_id": profile.ID, "error": err.Error()})
			return
		}

		accessToken, err := f.Tokens.Sign(u.ID.Hex(), u.Role)
		if err != nil {
			f.fail(c, "token_failed", logger.Fields{"user_id": u.ID.Hex(), "error": err.Error()})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(auth.CookieName, accessToken, int(f.Tokens.TTL().Seconds()), "/", "", f.CookieSecure, true)

		logger.InfoWithFields("github login succeeded", trace.Fields(ctx, logger.Fields{
			"user_id": u.ID.Hex(),
			"role":    u.Role,
		}))
		c.Redirect(http.StatusFound, f.redirectURL("token", accessToken))
	}
}

// LogoutHandler godoc
// @Summary      Logout
// @Description  access_token 쿠키를 지웁니다. JWT 자체는 만료 시까지 유효합니다.
// @Tags         auth
// @Produce      json
// @Success      200  {object}  dto.MessageResponseDTO
// @Router       /auth/logout [post]
func LogoutHandler(cookieSecure bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.SetCookie(auth.CookieName, "", -1, "/", "", cookieSecure, true)
		c.JSON(http.StatusOK, dto.MessageResponseDTO{Message: "logged out"})
	}
}
