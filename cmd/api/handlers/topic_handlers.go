package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"autoblog/cmd/api/dto"
	"autoblog/models"
	"autoblog/repositories"
	"autoblog/services"
)

// ListTopicsHandler godoc
// @Summary      List topics
// @Description  현재 사용자의 주제 목록을 우선순위 내림차순으로 조회합니다.
// @Tags         topics
// @Security     BearerAuth
// @Param        page       query  int     false  "Page number (1-based)"
// @Param        page_size  query  int     false  "Page size (<=100)"
// @Param        status     query  string  false  "active | inactive"
// @Produce      json
// @Success      200  {object}  dto.PaginationTopicDTO
// @Failure      400  {object}  dto.ErrorResponseDTO
// @Router       /api/v1/topics [get]
func ListTopicsHandler(svc TopicAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		pg := pageParams(c)
		topics, total, err := svc.List(c.Request.Context(), repositories.TopicQuery{
			Pagination: pg,
			OwnerID:    currentUser(c).ID,
			Status:     models.TopicStatus(c.Query("status")),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		paginate(c, topics, pg, total)
	}
}

// CreateTopicHandler godoc
// @Summary      Create topic
// @Description  주제를 만듭니다. 이름은 사용자 안에서 유일해야 합니다.
// @Tags         topics
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      services.CreateTopicInput  true  "Topic"
// @Success      201   {object}  models.Topic
// @Failure      400   {object}  dto.ErrorResponseDTO
// @Failure      409   {object}  dto.ErrorResponseDTO
// @Router       /api/v1/topics [post]
func CreateTopicHandler(svc TopicAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.CreateTopicInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		t, err := svc.Create(c.Request.Context(), currentUser(c).ID, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, t)
	}
}

// GetTopicHandler godoc
// @Summary      Get topic
// @Tags         topics
// @Security     BearerAuth
// @Param        id  path  string  true  "Topic ObjectID"
// @Produce      json
// @Success      200  {object}  models.Topic
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /api/v1/topics/{id} [get]
func GetTopicHandler(svc TopicAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		t, err := svc.Get(c.Request.Context(), currentUser(c).ID, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// UpdateTopicHandler godoc
// @Summary      Update topic
// @Description  전달된 필드만 바꿉니다.
// @Tags         topics
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string                     true  "Topic ObjectID"
// @Param        body  body      services.UpdateTopicInput  true  "Fields to change"
// @Success      200   {object}  models.Topic
// @Failure      400   {object}  dto.ErrorResponseDTO
// @Failure      404   {object}  dto.ErrorResponseDTO
// @Failure      409   {object}  dto.ErrorResponseDTO
// @Router       /api/v1/topics/{id} [put]
func UpdateTopicHandler(svc TopicAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		var in services.UpdateTopicInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		t, err := svc.Update(c.Request.Context(), currentUser(c).ID, id, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, t)
	}
}

// DeleteTopicHandler godoc
// @Summary      Delete topic
// @Description  주제를 지우고 이 주제로 생성된 글의 topic_id 를 비웁니다.
// @Tags         topics
// @Security     BearerAuth
// @Param        id  path  string  true  "Topic ObjectID"
// @Produce      json
// @Success      200  {object}  dto.MessageResponseDTO
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /api/v1/topics/{id} [delete]
func DeleteTopicHandler(svc TopicAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		if err := svc.Delete(c.Request.Context(), currentUser(c).ID, id); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.MessageResponseDTO{Message: "topic deleted"})
	}
}
