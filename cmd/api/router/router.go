package router

import (
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"autoblog/cmd/api/handlers"
	"autoblog/cmd/api/middleware"
	"autoblog/metrics"
	"autoblog/services"
	_ "autoblog/docs"
)

// Deps 는 라우터가 필요로 하는 서비스 묶음이다.
type Deps struct {
	Tokens       middleware.TokenParser
	Auth         *handlers.AuthFlow
	CookieSecure bool
	PlatformName string
	PlatformURL  string

	// TrustForwardedHost 는 블로그 호스트를 X-Forwarded-Host 에서 읽을지 정한다.
	TrustForwardedHost bool

	Users      *services.UserService
	Topics     *services.TopicService
	Posts      *services.PostService
	Generation *services.GenerationService
	Domains    *services.DomainService
	Sitemaps   *services.SitemapService
	Settings   *services.SettingsService
	Admin      *services.AdminService
	Blog       *services.BlogService
	Runner     handlers.TenantRunner

	Metrics  *metrics.Collector
	Registry prometheus.Gatherer
	Health   func(*gin.Context) error
}

func New(d Deps, tpl *template.Template) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestTrace(d.Metrics))
	r.SetHTMLTemplate(tpl)

	// Health check
	r.GET("/health", func(c *gin.Context) {
		if d.Health != nil {
			if err := d.Health(c); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.Handler(d.Registry)))

	// Swagger
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	authGroup := r.Group("/auth")
	{
		authGroup.GET("/github/login", handlers.GithubLoginHandler(d.Auth))
		authGroup.GET("/github/callback", handlers.GithubCallbackHandler(d.Auth))
		authGroup.POST("/logout", handlers.LogoutHandler(d.CookieSecure))
	}

	// v1 routes
	api := r.Group("/api/v1", middleware.RequireUser(d.Tokens, d.Users))
	{
		api.GET("/me", handlers.GetMeHandler())
		api.GET("/me/dashboard", handlers.DashboardHandler(d.Posts, d.Generation))
		api.PUT("/me/settings", handlers.UpdateMySettingsHandler(d.Users))
		api.GET("/me/domain", handlers.GetMyDomainHandler(d.Domains))
		api.PUT("/me/domain", handlers.SetMyDomainHandler(d.Domains))
		api.POST("/me/domain/verify", handlers.VerifyMyDomainHandler(d.Domains))

		api.GET("/topics", handlers.ListTopicsHandler(d.Topics))
		api.POST("/topics", handlers.CreateTopicHandler(d.Topics))
		api.GET("/topics/:id", handlers.GetTopicHandler(d.Topics))
		api.PUT("/topics/:id", handlers.UpdateTopicHandler(d.Topics))
		api.DELETE("/topics/:id", handlers.DeleteTopicHandler(d.Topics))
		api.POST("/topics/:id/generate", handlers.GenerateTopicHandler(d.Generation))

		api.GET("/posts", handlers.ListPostsHandler(d.Posts))
		api.POST("/posts", handlers.CreatePostHandler(d.Posts))
		api.GET("/posts/:id", handlers.GetPostHandler(d.Posts))
		api.PUT("/posts/:id", handlers.UpdatePostHandler(d.Posts))
		api.DELETE("/posts/:id", handlers.DeletePostHandler(d.Posts))
		api.POST("/posts/:id/publish", handlers.PublishPostHandler(d.Posts))
		api.POST("/posts/:id/unpublish", handlers.UnpublishPostHandler(d.Posts))
		api.POST("/posts/:id/archive", handlers.ArchivePostHandler(d.Posts))

		api.POST("/generate", handlers.GenerateBatchHandler(d.Generation))
		api.GET("/generation-history", handlers.ListGenerationHistoryHandler(d.Generation))
		api.GET("/generation-history/:id", handlers.GetGenerationHistoryHandler(d.Generation))

		api.GET("/search", handlers.SearchMyPostsHandler(d.Blog))
		api.POST("/refresh-sitemap", handlers.RefreshSitemapHandler(d.Sitemaps))

		admin := api.Group("", middleware.RequireAdmin())
		admin.GET("/config", handlers.GetSystemConfigHandler(d.Settings))
		admin.PUT("/config", handlers.UpdateSystemConfigHandler(d.Settings))
		admin.GET("/admin/users", handlers.AdminListUsersHandler(d.Admin))
		admin.PUT("/admin/users/:id/role", handlers.AdminChangeRoleHandler(d.Admin))
		admin.PUT("/admin/users/:id/toggle", handlers.AdminToggleUserHandler(d.Admin))
		admin.GET("/admin/stats", handlers.AdminStatsHandler(d.Admin))
		admin.POST("/admin/scheduler/trigger/:userId", handlers.AdminTriggerSchedulerHandler(d.Runner))
	}

	// 공개 블로그. Host 헤더로 테넌트를 고른다.
	blog := r.Group("/", middleware.ResolveTenant(d.Domains, middleware.TenantOptions{
		TrustForwardedHost: d.TrustForwardedHost,
		PlatformName:       d.PlatformName,
		PlatformURL:        d.PlatformURL,
	}), middleware.OptionalUser(d.Tokens, d.Users))
	{
		blog.GET("/", handlers.BlogIndexHandler(d.Blog, d.Sitemaps, d.PlatformName))
		blog.GET("/categories", handlers.BlogCategoriesHandler(d.Blog, d.Sitemaps))
		blog.GET("/category/:name", handlers.BlogCategoryHandler(d.Blog, d.Sitemaps))
		blog.GET("/about", handlers.BlogAboutHandler(d.Sitemaps))
		blog.GET("/search", handlers.BlogSearchHandler(d.Blog, d.Sitemaps))
		blog.GET("/feed.xml", handlers.BlogFeedHandler(d.Blog))
		blog.GET("/sitemap.xml", handlers.BlogSitemapHandler(d.Sitemaps))
		blog.GET("/robots.txt", handlers.BlogRobotsHandler(d.Sitemaps))
		blog.GET("/:slug", handlers.BlogPostHandler(d.Blog, d.Sitemaps))
	}

	return r
}
