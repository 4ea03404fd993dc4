package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/cmd/api/dto"
	"autoblog/models"
	"autoblog/repositories"
	"autoblog/services"
)

var postSorts = map[string]bool{"": true, "published_at": true, "created_at": true, "view_count": true}

// ListPostsHandler godoc
// @Summary      List posts
// @Description  현재 사용자의 글 목록. status 가 없으면 deleted 를 제외한 모든 글입니다.
// @Tags         posts
// @Security     BearerAuth
// @Param        page       query  int     false  "Page number (1-based)"
// @Param        page_size  query  int     false  "Page size (<=100)"
// @Param        status     query  string  false  "draft | published | archived"
// @Param        topic_id   query  string  false  "Topic ObjectID"
// @Param        category   query  string  false  "Category"
// @Param        q          query  string  false  "Keyword in title"
// @Param        sort       query  string  false  "published_at | created_at | view_count"
// @Produce      json
// @Success      200  {object}  dto.PaginationPostDTO
// @Failure      400  {object}  dto.ErrorResponseDTO
// @Router       /api/v1/posts [get]
func ListPostsHandler(svc PostAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		pg := pageParams(c)
		q := repositories.PostQuery{
			Pagination: pg,
			OwnerID:    currentUser(c).ID,
			Category:   c.Query("category"),
			Keyword:    c.Query("q"),
			Sort:       c.Query("sort"),
		}
		switch status := models.PostStatus(c.Query("status")); status {
		case "", models.PostDraft, models.PostPublished, models.PostArchived:
			q.Status = status
		default:
			badRequest(c, "invalid status")
			return
		}
		if !postSorts[q.Sort] {
			badRequest(c, "invalid sort")
			return
		}
		if v := c.Query("topic_id"); v != "" {
			id, err := primitive.ObjectIDFromHex(v)
			if err != nil {
				badRequest(c, "invalid topic_id")
				return
			}
			q.TopicID = &id
		}

		posts, total, err := svc.List(c.Request.Context(), q)
		if err != nil {
			respondError(c, err)
			return
		}
		paginate(c, posts, pg, total)
	}
}

// CreatePostHandler godoc
// @Summary      Create post
// @Description  직접 작성한 글을 저장합니다. slug, 단어 수, 읽기 시간은 서버가 계산합니다.
// @Tags         posts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      services.CreatePostInput  true  "Post"
// @Success      201   {object}  models.Post
// @Failure      400   {object}  dto.ErrorResponseDTO
// @Router       /api/v1/posts [post]
func CreatePostHandler(svc PostAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.CreatePostInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		p, err := svc.Create(c.Request.Context(), currentUser(c).ID, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

// GetPostHandler godoc
// @Summary      Get post by id
// @Tags         posts
// @Security     BearerAuth
// @Param        id  path  string  true  "Post ObjectID"
// @Produce      json
// @Success      200  {object}  models.Post
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /api/v1/posts/{id} [get]
func GetPostHandler(svc PostAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		p, err := svc.Get(c.Request.Context(), currentUser(c).ID, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// UpdatePostHandler godoc
// @Summary      Update post
// @Description  전달된 필드만 바꿉니다. 본문이 바뀌면 단어 수와 읽기 시간을 다시 계산합니다.
// @Tags         posts
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string                    true  "Post ObjectID"
// @Param        body  body      services.UpdatePostInput  true  "Fields to change"
// @Success      200   {object}  models.Post
// @Failure      400   {object}  dto.ErrorResponseDTO
// @Failure      404   {object}  dto.ErrorResponseDTO
// @Router       /api/v1/posts/{id} [put]
func UpdatePostHandler(svc PostAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		var in services.UpdatePostInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		p, err := svc.Update(c.Request.Context(), currentUser(c).ID, id, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}

// DeletePostHandler godoc
// @Summary      Delete post
// @Description  글을 deleted 상태로 바꿉니다. 공개 블로그와 sitemap 에서 사라집니다.
// @Tags         posts
// @Security     BearerAuth
// @Param        id  path  string  true  "Post ObjectID"
// @Produce      json
// @Success      200  {object}  dto.MessageResponseDTO
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /api/v1/posts/{id} [delete]
func DeletePostHandler(svc PostAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		if err := svc.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.MessageResponseDTO{Message: "post deleted"})
	}
}

// PublishPostHandler godoc
// @Summary      Publish post
// @Description  처음 발행할 때만 published_at 을 기록합니다.
// @Tags         posts
// @Security     BearerAuth
// @Param        id  path  string  true  "Post ObjectID"
// @Produce      json
// @Success      200  {object}  models.Post
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /api/v1/posts/{id}/publish [post]
func PublishPostHandler(svc PostAPI) gin.HandlerFunc {
	return transitionHandler(svc.Publish)
}

// UnpublishPostHandler godoc
// @Summary      Unpublish post
// @Description  글을 draft 로 되돌립니다.
// @Tags         posts
// @Security     BearerAuth
// @Param        id  path  string  true  "Post ObjectID"
// @Produce      json
// @Success      200  {object}  models.Post
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /api/v1/posts/{id}/unpublish [post]
func UnpublishPostHandler(svc PostAPI) gin.HandlerFunc {
	return transitionHandler(svc.Unpublish)
}

// ArchivePostHandler godoc
// @Summary      Archive post
// @Tags         posts
// @Security     BearerAuth
// @Param        id  path  string  true  "Post ObjectID"
// @Produce      json
// @Success      200  {object}  models.Post
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /api/v1/posts/{id}/archive [post]
func ArchivePostHandler(svc PostAPI) gin.HandlerFunc {
	return transitionHandler(svc.Archive)
}

func transitionHandler(fn func(ctx context.Context, ownerID, id primitive.ObjectID) (*models.Post, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		p, err := fn(c.Request.Context(), currentUser(c).ID, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	}
}
