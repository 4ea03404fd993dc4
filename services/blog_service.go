package services

import (
	"context"
	"fmt"
	"html/template"
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/feeder"
	"autoblog/markdown"
	"autoblog/models"
	"autoblog/repositories"
	"autoblog/search"
)

const feedItemLimit = 20

// Searcher 는 search.Index 가 구현한다.
type Searcher interface {
	Search(ownerID primitive.ObjectID, q string, limit, offset int) ([]search.Result, uint64, error)
}

// BlogService 는 테넌트 공개 블로그 화면에 필요한 데이터를 모은다.
type BlogService struct {
	posts    *PostService
	sitemaps *SitemapService
	searcher Searcher
}

func NewBlogService(posts *PostService, sitemaps *SitemapService, searcher Searcher) *BlogService {
	return &BlogService{posts: posts, sitemaps: sitemaps, searcher: searcher}
}

type PostPage struct {
	Post    *models.Post
	HTML    template.HTML
	Related []models.Post
}

func (s *BlogService) pageSize(u *models.User) int {
	if n := u.Settings.Blog.PostsPerPage; n > 0 {
		return n
	}
	return 10
}

// Index 는 발행 글을 최신순으로 반환한다. category 가 비어 있지 않으면 해당 카테고리만.
func (s *BlogService) Index(ctx context.Context, u *models.User, category string, page int) ([]models.Post, repositories.Pagination, int64, error) {
	pg := repositories.Pagination{Page: page, PageSize: s.pageSize(u)}.Normalize()
	posts, total, err := s.posts.List(ctx, repositories.PostQuery{
		Pagination: pg,
		OwnerID:    u.ID,
		Status:     models.PostPublished,
		Category:   category,
	})
	return posts, pg, total, err
}

func (s *BlogService) Categories(ctx context.Context, u *models.User) ([]repositories.CategoryCount, error) {
	return s.posts.Categories(ctx, u.ID)
}

// Post 는 글 페이지를 만든다. preview 는 소유자가 초안을 볼 때만 true 이며 조회수를 올리지 않는다.
func (s *BlogService) Post(ctx context.Context, u *models.User, slug string, preview bool) (*PostPage, error) {
	p, err := s.posts.GetBySlug(ctx, u.ID, slug, preview)
	if err != nil {
		return nil, err
	}
	html, err := markdown.ToHTML(markdown.StripTitle(p.Content))
	if err != nil {
		return nil, fmt.Errorf("render post %s: %w", p.Slug, err)
	}
	related, err := s.posts.Related(ctx, p, 3)
	if err != nil {
		related = nil
	}
	if !preview {
		s.posts.RecordView(ctx, p.ID)
	}
	return &PostPage{Post: p, HTML: html, Related: related}, nil
}

// Feed 는 최근 발행 글 20개로 RSS 를 만든다.
func (s *BlogService) Feed(ctx context.Context, u *models.User) ([]byte, error) {
	posts, err := s.posts.Published(ctx, u.ID, feedItemLimit)
	if err != nil {
		return nil, err
	}
	base := s.sitemaps.BaseURL(u)
	ch := feeder.Channel{
		Title:       u.Settings.Blog.Title,
		Link:        base + "/",
		Description: firstString(u.Settings.Blog.Description, u.Settings.SEO.MetaDescription, u.Settings.Blog.Title),
		Language:    u.Settings.Blog.Language,
	}
	for _, p := range posts {
		item := feeder.RssFeedItem{
			Title:       p.Title,
			Link:        base + "/" + p.Slug,
			Description: firstString(p.Excerpt, p.MetaDescription),
		}
		if p.PublishedAt != nil {
			item.PublishedAt = *p.PublishedAt
		}
		ch.Items = append(ch.Items, item)
	}
	return feeder.WriteRSS(ch)
}

// Search 는 테넌트의 발행 글만 검색한다.
func (s *BlogService) Search(ctx context.Context, ownerID primitive.ObjectID, q string, page int) ([]search.Result, repositories.Pagination, uint64, error) {
	pg := repositories.Pagination{Page: page, PageSize: 10}.Normalize()
	q = strings.TrimSpace(q)
	if q == "" || s.searcher == nil {
		return []search.Result{}, pg, 0, nil
	}
	res, total, err := s.searcher.Search(ownerID, q, pg.PageSize, (pg.Page-1)*pg.PageSize)
	if err != nil {
		return nil, pg, 0, fmt.Errorf("search: %w", err)
	}
	return res, pg, total, nil
}
