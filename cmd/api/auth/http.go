package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// CookieName 은 OAuth 콜백에서 내려주는 액세스 토큰 쿠키 이름이다.
const CookieName = "access_token"

var (
	ErrMissingHeader = errors.New("missing_authorization_header")
	ErrInvalidFormat = errors.New("invalid_authorization_header")
	ErrEmptyToken    = errors.New("empty_token")
	ErrInvalidToken  = errors.New("invalid_token")
)

// ExtractBearerToken extracts the Bearer token from the Authorization header.
func ExtractBearerToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return "", ErrMissingHeader
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", ErrInvalidFormat
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

// TokenFromRequest 는 Authorization 헤더를 우선하고, 헤더가 없으면 access_token 쿠키를 쓴다.
func TokenFromRequest(c *gin.Context) (string, error) {
	token, err := ExtractBearerToken(c)
	if !errors.Is(err, ErrMissingHeader) {
		return token, err
	}
	cookie, cerr := c.Cookie(CookieName)
	if cerr != nil || strings.TrimSpace(cookie) == "" {
		return "", ErrMissingHeader
	}
	return strings.TrimSpace(cookie), nil
}

// AbortWithUnauthorized aborts the request with 401 status and error JSON.
func AbortWithUnauthorized(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
}
