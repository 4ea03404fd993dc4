package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"autoblog/cmd/api/middleware"
	"autoblog/markdown"
	"autoblog/models"
	"autoblog/repositories"
	"autoblog/services"
)

// blogMeta 는 모든 공개 페이지 템플릿의 .Blog 값이다.
type blogMeta struct {
	Title          string
	Description    string
	Language       string
	BaseURL        string
	Author         string
	ShowAuthor     bool
	ShowCategories bool
}

type pager struct {
	Page       int
	TotalPages int
	PrevPage   int
	NextPage   int
	HasPrev    bool
	HasNext    bool
	Q          string
}

func newPager(pg repositories.Pagination, total int64, q string) pager {
	totalPages := 0
	if pg.PageSize > 0 {
		totalPages = int((total + int64(pg.PageSize) - 1) / int64(pg.PageSize))
	}
	return pager{
		Page:       pg.Page,
		TotalPages: totalPages,
		PrevPage:   pg.Page - 1,
		NextPage:   pg.Page + 1,
		HasPrev:    pg.Page > 1,
		HasNext:    pg.Page < totalPages,
		Q:          q,
	}
}

func newBlogMeta(u *models.User, baseURL string) blogMeta {
	b := u.Settings.Blog
	m := blogMeta{
		Title:          b.Title,
		Description:    b.Description,
		Language:       b.Language,
		BaseURL:        baseURL,
		Author:         u.Name,
		ShowAuthor:     b.ShowAuthor,
		ShowCategories: b.ShowCategories,
	}
	if m.Title == "" {
		m.Title = "Blog"
	}
	if m.Language == "" {
		m.Language = "en"
	}
	return m
}

// pageData 는 head 템플릿이 쓰는 공통 값을 채운다.
func pageData(u *models.User, sitemaps *services.SitemapService, title, canonicalPath string) gin.H {
	base := sitemaps.BaseURL(u)
	seo := u.Settings.SEO
	meta := newBlogMeta(u, base)
	if title == "" {
		title = meta.Title
		if seo.MetaTitle != "" {
			title = seo.MetaTitle
		}
	} else {
		title = title + " | " + meta.Title
	}
	desc := seo.MetaDescription
	if desc == "" {
		desc = meta.Description
	}
	return gin.H{
		"Blog":            meta,
		"PageTitle":       title,
		"MetaDescription": desc,
		"Keywords":        seo.DefaultKeywords,
		"Canonical":       base + canonicalPath,
	}
}

// tenantOr404 는 플랫폼 호스트로 들어온 블로그 요청을 404 로 끝낸다.
func tenantOr404(c *gin.Context) *models.User {
	u := middleware.Tenant(c)
	if u == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": services.ErrBlogNotFound.Error()})
	}
	return u
}

func pageNumber(c *gin.Context) int {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	return page
}

// BlogIndexHandler 는 테넌트 블로그의 첫 화면이다. 플랫폼 호스트면 서비스 소개 페이지를 보여준다.
func BlogIndexHandler(blog *services.BlogService, sitemaps *services.SitemapService, platformName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := middleware.Tenant(c)
		if u == nil {
			c.HTML(http.StatusOK, "landing.html", gin.H{"Name": platformName})
			return
		}
		renderPostList(c, blog, sitemaps, u, "")
	}
}

func BlogCategoryHandler(blog *services.BlogService, sitemaps *services.SitemapService) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := tenantOr404(c)
		if u == nil {
			return
		}
		renderPostList(c, blog, sitemaps, u, c.Param("name"))
	}
}

func renderPostList(c *gin.Context, blog *services.BlogService, sitemaps *services.SitemapService, u *models.User, category string) {
	posts, pg, total, err := blog.Index(c.Request.Context(), u, category, pageNumber(c))
	if err != nil {
		respondError(c, err)
		return
	}
	title, path := "", "/"
	if category != "" {
		title, path = category, "/category/"+category
	}
	data := pageData(u, sitemaps, title, path)
	data["Posts"] = posts
	data["Pager"] = newPager(pg, total, "")
	data["Category"] = category
	c.HTML(http.StatusOK, "index.html", data)
}

func BlogCategoriesHandler(blog *services.BlogService, sitemaps *services.SitemapService) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := tenantOr404(c)
		if u == nil {
			return
		}
		cats, err := blog.Categories(c.Request.Context(), u)
		if err != nil {
			respondError(c, err)
			return
		}
		data := pageData(u, sitemaps, "Categories", "/categories")
		data["Categories"] = cats
		c.HTML(http.StatusOK, "categories.html", data)
	}
}

func BlogAboutHandler(sitemaps *services.SitemapService) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := tenantOr404(c)
		if u == nil {
			return
		}
		data := pageData(u, sitemaps, "About", "/about")
		if about := u.Settings.Blog.About; about != "" {
			html, err := markdown.ToHTML(about)
			if err != nil {
				respondError(c, err)
				return
			}
			data["About"] = html
		}
		c.HTML(http.StatusOK, "about.html", data)
	}
}

// BlogPostHandler 는 글 페이지다. 소유자가 로그인한 상태에서 ?preview=1 이면 초안도 보여준다.
func BlogPostHandler(blog *services.BlogService, sitemaps *services.SitemapService) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := tenantOr404(c)
		if u == nil {
			return
		}
		viewer := middleware.CurrentUser(c)
		preview := c.Query("preview") != "" && viewer != nil && viewer.ID == u.ID

		page, err := blog.Post(c.Request.Context(), u, c.Param("slug"), preview)
		if err != nil {
			if errors.Is(err, services.ErrPostNotFound) {
				c.HTML(http.StatusNotFound, "notfound.html", pageData(u, sitemaps, "Not found", c.Request.URL.Path))
				return
			}
			respondError(c, err)
			return
		}
		p := page.Post
		data := pageData(u, sitemaps, p.Title, "/"+p.Slug)
		if p.MetaTitle != "" {
			data["PageTitle"] = p.MetaTitle
		}
		if p.MetaDescription != "" {
			data["MetaDescription"] = p.MetaDescription
		}
		if len(p.Keywords) > 0 {
			data["Keywords"] = p.Keywords
		}
		data["Post"] = p
		data["HTML"] = page.HTML
		data["Related"] = page.Related
		data["Preview"] = preview
		c.HTML(http.StatusOK, "post.html", data)
	}
}

func BlogSearchHandler(blog *services.BlogService, sitemaps *services.SitemapService) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := tenantOr404(c)
		if u == nil {
			return
		}
		q := c.Query("q")
		results, pg, total, err := blog.Search(c.Request.Context(), u.ID, q, pageNumber(c))
		if err != nil {
			respondError(c, err)
			return
		}
		data := pageData(u, sitemaps, "Search", "/search")
		data["Query"] = q
		data["Results"] = results
		data["Total"] = total
		data["Pager"] = newPager(pg, int64(total), q)
		c.HTML(http.StatusOK, "search.html", data)
	}
}

func BlogFeedHandler(blog *services.BlogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := tenantOr404(c)
		if u == nil {
			return
		}
		body, err := blog.Feed(c.Request.Context(), u)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/rss+xml; charset=utf-8", body)
	}
}

func BlogSitemapHandler(sitemaps *services.SitemapService) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := tenantOr404(c)
		if u == nil {
			return
		}
		sm, err := sitemaps.Get(c.Request.Context(), u)
		if err != nil {
			if errors.Is(err, services.ErrSitemapDisabled) {
				c.String(http.StatusNotFound, "sitemap disabled")
				return
			}
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/xml; charset=utf-8", []byte(sm.XML))
	}
}

func BlogRobotsHandler(sitemaps *services.SitemapService) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := tenantOr404(c)
		if u == nil {
			return
		}
		c.String(http.StatusOK, sitemaps.Robots(c.Request.Context(), u))
	}
}
