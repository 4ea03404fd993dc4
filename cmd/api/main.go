package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"

	"autoblog/cmd/api/auth"
	"autoblog/cmd/api/handlers"
	"autoblog/cmd/api/router"
	"autoblog/cmd/api/searchsync"
	"autoblog/cmd/api/views"
	"autoblog/cmd/internal/app"
	"autoblog/config"
	"autoblog/logger"
	"autoblog/search"
)

const source = "api"

// @title                       AutoBlog API
// @version                     1.0
// @description                 Multi-tenant auto-blogging API: topics, generated posts, domains and public blogs
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	config.InitApp()
	cfg := config.GetConfig()
	logger.Init(cfg.Logging.Level)
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	index, err := search.Open(cfg.Search.IndexPath)
	if err != nil {
		logger.Log.Errorf("failed to open search index: %v", err)
		os.Exit(1)
	}
	defer index.Close()

	a, err := app.New(ctx, cfg, app.Options{Source: source, Index: index, Generator: true})
	if err != nil {
		logger.Log.Errorf("failed to initialize app: %v", err)
		os.Exit(1)
	}
	defer a.Close(context.Background())

	jwtManager, err := auth.NewJWTManager(cfg.Auth)
	if err != nil {
		logger.Log.Errorf("failed to initialize jwt: %v", err)
		os.Exit(1)
	}
	github, err := auth.NewGithubOAuthClient(cfg.Auth)
	if err != nil {
		logger.Log.Errorf("failed to initialize github oauth: %v", err)
		os.Exit(1)
	}
	tpl, err := views.Load()
	if err != nil {
		logger.Log.Errorf("failed to parse templates: %v", err)
		os.Exit(1)
	}

	r := router.New(router.Deps{
		Tokens: jwtManager,
		Auth: &handlers.AuthFlow{
			OAuth:        github,
			Tokens:       jwtManager,
			Users:        a.Users,
			SuccessURL:   cfg.Auth.LoginSuccessURL,
			CookieSecure: cfg.Auth.CookieSecure,
		},
		CookieSecure: cfg.Auth.CookieSecure,
		PlatformName: "AutoBlog",
		PlatformURL:  cfg.Server.SiteURL,

		TrustForwardedHost: cfg.Server.TrustForwardedHost,

		Users:        a.Users,
		Topics:       a.Topics,
		Posts:        a.Posts,
		Generation:   a.Generation,
		Domains:      a.Domains,
		Sitemaps:     a.Sitemaps,
		Settings:     a.Settings,
		Admin:        a.Admin,
		Blog:         a.Blog,
		Runner:       a.Runner,
		Metrics:      a.Metrics,
		Registry:     a.Registry,
		Health: func(c *gin.Context) error {
			hctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
			defer cancel()
			return a.DB.Client().Ping(hctx, nil)
		},
	}, tpl)

	// 다른 프로세스(scheduler)가 만든 글을 검색 색인에 반영한다.
	syncer := searchsync.New(index, a.Repos.Posts, source)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		n, err := syncer.Backfill(ctx, a.Repos.Users)
		if err != nil {
			logger.Log.Errorf("search backfill failed: %v", err)
		} else if n > 0 {
			logger.Log.Infof("search index backfilled with %d posts", n)
		}
		if err := syncer.Run(ctx, a.Bus, cfg.Kafka.GroupID+"-api-search"); err != nil && !errors.Is(err, context.Canceled) {
			logger.Log.Errorf("search sync subscriber stopped: %v", err)
		}
	}()

	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
	})
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           c.Handler(r),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Infof("api server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Errorf("http server error: %v", err)
			cancel()
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigChan:
		logger.Log.Info("received shutdown signal, shutting down api server...")
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Errorf("http server shutdown: %v", err)
	}
	cancel()
	wg.Wait()

	logger.Log.Info("api server stopped")
}
