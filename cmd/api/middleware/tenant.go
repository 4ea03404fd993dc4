package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"autoblog/cmd/api/trace"
	"autoblog/logger"
	"autoblog/models"
	"autoblog/services"
)

const ctxKeyTenant = "tenant"

// TenantResolver 는 services.DomainService 가 구현한다.
type TenantResolver interface {
	Resolve(ctx context.Context, host string) (*models.User, error)
}

// TenantOptions 는 ResolveTenant 설정이다.
// TrustForwardedHost 는 Host 를 다시 쓰는 신뢰할 수 있는 프록시 뒤에서만 켠다.
type TenantOptions struct {
	TrustForwardedHost bool
	PlatformName       string
	PlatformURL        string
}

// ResolveTenant 는 Host 로 공개 블로그의 테넌트를 찾는다.
// 플랫폼 호스트면 테넌트 없이 통과하고, 일치하는 블로그가 없으면 404 다.
func ResolveTenant(r TenantResolver, opts TenantOptions) gin.HandlerFunc {
	return func(c *gin.Context) {
		host := c.Request.Host
		if opts.TrustForwardedHost {
			if fwd := c.GetHeader("X-Forwarded-Host"); fwd != "" {
				host = fwd
			}
		}
		u, err := r.Resolve(c.Request.Context(), host)
		if err != nil {
			if errors.Is(err, services.ErrBlogNotFound) {
				blogNotFound(c, opts)
				return
			}
			logger.ErrorWithFields("resolve tenant failed", trace.Fields(c.Request.Context(), logger.Fields{
				"host":  host,
				"error": err.Error(),
			}))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed_to_resolve_blog"})
			return
		}
		if u != nil {
			c.Set(ctxKeyTenant, u)
		}
		c.Next()
	}
}

// blogNotFound 는 브라우저에는 HTML 페이지를, API 클라이언트에는 JSON 을 돌려준다.
func blogNotFound(c *gin.Context, opts TenantOptions) {
	if c.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "blog not found"})
		return
	}
	c.HTML(http.StatusNotFound, "blognotfound.html", gin.H{
		"Blog":        gin.H{"Title": opts.PlatformName, "Language": "en", "BaseURL": opts.PlatformURL},
		"PageTitle":   "Blog not found",
		"PlatformURL": opts.PlatformURL,
	})
	c.Abort()
}

// Tenant 는 ResolveTenant 가 저장한 블로그 소유자다. 플랫폼 호스트면 nil.
func Tenant(c *gin.Context) *models.User {
	v, ok := c.Get(ctxKeyTenant)
	if !ok {
		return nil
	}
	u, _ := v.(*models.User)
	return u
}
