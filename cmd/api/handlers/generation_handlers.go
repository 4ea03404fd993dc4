package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"autoblog/cmd/api/dto"
	"autoblog/generator"
	"autoblog/models"
	"autoblog/repositories"
	"autoblog/services"
)

// GenerateBatchHandler godoc
// @Summary      Generate a batch of posts
// @Description  가장 적게 생성된 활성 주제부터 count 개를 골라 글을 만듭니다. 주제별 실패는 failures 에 담기고 배치는 계속됩니다.
// @Tags         generation
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.GenerateRequestDTO  false  "count / publish_immediately"
// @Success      200   {object}  services.BatchResult
// @Failure      400   {object}  dto.ErrorResponseDTO
// @Failure      409   {object}  dto.ErrorResponseDTO
// @Failure      422   {object}  dto.ErrorResponseDTO
// @Router       /api/v1/generate [post]
func GenerateBatchHandler(svc GenerationAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.GenerateRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, err.Error())
			return
		}
		res, err := svc.GenerateBatch(c.Request.Context(), currentUser(c), services.BatchRequest{
			Count:              req.Count,
			PublishImmediately: req.PublishImmediately,
			Trigger:            services.TriggerManual,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		if h := res.History; h != nil && h.Status == models.GenerationFailed && h.Error == services.ErrNoActiveTopics.Error() {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": h.Error, "history": h})
			return
		}
		c.JSON(http.StatusOK, res)
	}
}

// GenerateTopicHandler godoc
// @Summary      Generate one post for a topic
// @Description  주제 하나로 글 한 편을 만듭니다. 배치와 달리 생성 실패는 502 로 돌려줍니다.
// @Tags         generation
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string                       true   "Topic ObjectID"
// @Param        body  body      dto.GenerateTopicRequestDTO  false  "publish_immediately"
// @Success      200   {object}  dto.TopicGenerationResponseDTO
// @Failure      404   {object}  dto.ErrorResponseDTO
// @Failure      502   {object}  dto.ErrorResponseDTO
// @Router       /api/v1/topics/{id}/generate [post]
func GenerateTopicHandler(svc GenerationAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		var req dto.GenerateTopicRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, err.Error())
			return
		}
		p, h, err := svc.GenerateForTopic(c.Request.Context(), currentUser(c), id, req.PublishImmediately)
		if err != nil {
			if errors.Is(err, generator.ErrGenerationFailed) && h != nil {
				c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "history": h})
				return
			}
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.TopicGenerationResponseDTO{Post: p, History: h})
	}
}

// ListGenerationHistoryHandler godoc
// @Summary      List generation history
// @Description  배치 기록을 최신순으로 조회합니다.
// @Tags         generation
// @Security     BearerAuth
// @Param        page       query  int     false  "Page number (1-based)"
// @Param        page_size  query  int     false  "Page size (<=100)"
// @Param        status     query  string  false  "processing | completed | failed"
// @Produce      json
// @Success      200  {object}  dto.PaginationHistoryDTO
// @Failure      400  {object}  dto.ErrorResponseDTO
// @Router       /api/v1/generation-history [get]
func ListGenerationHistoryHandler(svc GenerationAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		pg := pageParams(c)
		status := models.GenerationStatus(c.Query("status"))
		switch status {
		case "", models.GenerationProcessing, models.GenerationCompleted, models.GenerationFailed:
		default:
			badRequest(c, "invalid status")
			return
		}
		items, total, err := svc.History(c.Request.Context(), repositories.HistoryQuery{
			Pagination: pg,
			OwnerID:    currentUser(c).ID,
			Status:     status,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		paginate(c, items, pg, total)
	}
}

// GetGenerationHistoryHandler godoc
// @Summary      Get generation history record
// @Tags         generation
// @Security     BearerAuth
// @Param        id  path  string  true  "History ObjectID"
// @Produce      json
// @Success      200  {object}  models.GenerationHistory
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /api/v1/generation-history/{id} [get]
func GetGenerationHistoryHandler(svc GenerationAPI) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		h, err := svc.GetHistory(c.Request.Context(), currentUser(c).ID, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, h)
	}
}
