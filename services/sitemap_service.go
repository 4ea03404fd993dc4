package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/logger"
	"autoblog/models"
	"autoblog/repositories"
	"autoblog/sitemap"
)

// 사이트맵 하나에 들어가는 글 수 상한
const sitemapPostLimit = 45000

// SitemapService 는 테넌트별 sitemap.xml 을 만들어 저장한다.
type SitemapService struct {
	sitemaps SitemapStore
	posts    PostStore
	users    UserStore
	settings *SettingsService
	domains  *DomainService
	now      func() time.Time
}

func NewSitemapService(sitemaps SitemapStore, posts PostStore, users UserStore, settings *SettingsService, domains *DomainService) *SitemapService {
	return &SitemapService{sitemaps: sitemaps, posts: posts, users: users, settings: settings, domains: domains, now: time.Now}
}

// BaseURL 은 테넌트 블로그의 절대 주소다.
func (s *SitemapService) BaseURL(u *models.User) string {
	host := s.domains.PrimaryHost(u)
	scheme := "https"
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		scheme = "http"
	}
	return scheme + "://" + host
}

func (s *SitemapService) Rebuild(ctx context.Context, u *models.User) (*models.Sitemap, error) {
	if !s.settings.SitemapEnabled(ctx, u) {
		return nil, ErrSitemapDisabled
	}
	posts, err := s.posts.ListPublished(ctx, u.ID, sitemapPostLimit)
	if err != nil {
		return nil, fmt.Errorf("list published posts: %w", err)
	}
	base := s.BaseURL(u)
	body, n, err := sitemap.Build(base, posts)
	if err != nil {
		return nil, err
	}
	sm := &models.Sitemap{
		OwnerID:   u.ID,
		Hostname:  base,
		XML:       string(body),
		URLCount:  n,
		UpdatedAt: s.now(),
	}
	if err := s.sitemaps.Upsert(ctx, sm); err != nil {
		return nil, fmt.Errorf("save sitemap: %w", err)
	}
	logger.InfoWithFields("sitemap rebuilt", logger.Fields{"owner_id": u.ID.Hex(), "urls": n})
	return sm, nil
}

// RebuildFor 는 이벤트 처리처럼 테넌트 ID 만 아는 곳에서 사용한다.
func (s *SitemapService) RebuildFor(ctx context.Context, ownerID primitive.ObjectID) (*models.Sitemap, error) {
	u, err := s.users.FindByID(ctx, ownerID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.Rebuild(ctx, u)
}

// Get 은 저장된 sitemap 을 반환하고, 아직 없으면 만든다.
func (s *SitemapService) Get(ctx context.Context, u *models.User) (*models.Sitemap, error) {
	if !s.settings.SitemapEnabled(ctx, u) {
		return nil, ErrSitemapDisabled
	}
	sm, err := s.sitemaps.FindByOwner(ctx, u.ID)
	if err == nil {
		return sm, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, err
	}
	return s.Rebuild(ctx, u)
}

// RebuildAll 은 모든 활성 테넌트의 sitemap 을 다시 만든다. 개별 실패는 건너뛴다.
func (s *SitemapService) RebuildAll(ctx context.Context) (rebuilt, failed int, err error) {
	users, err := s.users.ListActive(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list active users: %w", err)
	}
	for i := range users {
		if ctx.Err() != nil {
			return rebuilt, failed, ctx.Err()
		}
		if _, err := s.Rebuild(ctx, &users[i]); err != nil {
			if errors.Is(err, ErrSitemapDisabled) {
				continue
			}
			failed++
			logger.ErrorWithFields("sitemap rebuild failed", logger.Fields{"owner_id": users[i].ID.Hex(), "error": err.Error()})
			continue
		}
		rebuilt++
	}
	return rebuilt, failed, nil
}

func (s *SitemapService) Robots(ctx context.Context, u *models.User) string {
	return sitemap.Robots(s.BaseURL(u), s.settings.SitemapEnabled(ctx, u))
}
