package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"autoblog/cmd/api/dto"
	"autoblog/search"
	"autoblog/services"
)

// RefreshSitemapHandler godoc
// @Summary      Rebuild my sitemap
// @Description  게시된 글로 sitemap.xml 을 다시 만듭니다. SEO 설정에서 사이트맵을 끈 경우 422 입니다.
// @Tags         sitemap
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  dto.SitemapResponseDTO
// @Failure      422  {object}  dto.ErrorResponseDTO
// @Router       /api/v1/refresh-sitemap [post]
func RefreshSitemapHandler(svc *services.SitemapService) gin.HandlerFunc {
	return func(c *gin.Context) {
		sm, err := svc.Rebuild(c.Request.Context(), currentUser(c))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.SitemapResponseDTO{
			Message:  "sitemap rebuilt",
			URLCount: sm.URLCount,
			Hostname: sm.Hostname,
		})
	}
}

// SearchMyPostsHandler godoc
// @Summary      Full-text search
// @Description  내 게시글을 제목/본문/키워드로 검색합니다.
// @Tags         posts
// @Security     BearerAuth
// @Param        q     query  string  true   "Query"
// @Param        page  query  int     false  "Page number" default(1)
// @Produce      json
// @Success      200  {object}  object{data=[]search.Result,page=int,page_size=int,total=int}
// @Failure      400  {object}  dto.ErrorResponseDTO
// @Router       /api/v1/search [get]
func SearchMyPostsHandler(svc *services.BlogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Query("q")
		if q == "" {
			badRequest(c, "q is required")
			return
		}
		page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
		results, pg, total, err := svc.Search(c.Request.Context(), currentUser(c).ID, q, page)
		if err != nil {
			respondError(c, err)
			return
		}
		if results == nil {
			results = []search.Result{}
		}
		c.JSON(http.StatusOK, dto.NewPagination(results, pg.Page, pg.PageSize, int64(total)))
	}
}
