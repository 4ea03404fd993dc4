package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/cmd/api/auth"
	"autoblog/cmd/api/trace"
	"autoblog/logger"
	"autoblog/models"
	"autoblog/services"
)

const ctxKeyUser = "current_user"

// TokenParser 는 auth.JWTManager 가 구현한다.
type TokenParser interface {
	Parse(token string) (sub string, role string, err error)
}

// UserLookup 은 services.UserService 가 구현한다.
type UserLookup interface {
	Get(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// RequireUser 는 Bearer 헤더 또는 access_token 쿠키의 JWT 를 검증하고,
// 토큰의 사용자를 다시 조회해 컨텍스트에 저장한다. 비활성 사용자는 403 이다.
func RequireUser(tokens TokenParser, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		u, err := authenticate(c, tokens, users)
		if err != nil {
			switch {
			case errors.Is(err, services.ErrUserInactive):
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "user_inactive"})
			case errors.Is(err, auth.ErrMissingHeader), errors.Is(err, auth.ErrInvalidFormat),
				errors.Is(err, auth.ErrEmptyToken), errors.Is(err, auth.ErrInvalidToken):
				auth.AbortWithUnauthorized(c, err)
			default:
				logger.ErrorWithFields("authenticate request failed", trace.Fields(c.Request.Context(), logger.Fields{"error": err.Error()}))
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed_to_load_user"})
			}
			return
		}
		c.Set(ctxKeyUser, u)
		c.Next()
	}
}

// OptionalUser 는 토큰이 유효할 때만 사용자를 저장하고, 그 외에는 익명으로 통과시킨다.
func OptionalUser(tokens TokenParser, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		if u, err := authenticate(c, tokens, users); err == nil {
			c.Set(ctxKeyUser, u)
		}
		c.Next()
	}
}

// RequireAdmin 은 RequireUser 뒤에서 role 이 admin 인지 확인한다.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			auth.AbortWithUnauthorized(c, auth.ErrMissingHeader)
			return
		}
		if !u.IsAdmin() {
			logger.WarnWithFields("admin access denied", trace.Fields(c.Request.Context(), logger.Fields{
				"user_id": u.ID.Hex(),
				"role":    u.Role,
			}))
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden_insufficient_permissions"})
			return
		}
		c.Next()
	}
}

// CurrentUser 는 인증 미들웨어가 저장한 사용자다. 없으면 nil.
func CurrentUser(c *gin.Context) *models.User {
	v, ok := c.Get(ctxKeyUser)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}

func authenticate(c *gin.Context, tokens TokenParser, users UserLookup) (*models.User, error) {
	token, err := auth.TokenFromRequest(c)
	if err != nil {
		return nil, err
	}
	sub, _, err := tokens.Parse(token)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	id, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	u, err := users.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, services.ErrUserInactive
	}
	return u, nil
}
