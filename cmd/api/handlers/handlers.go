package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/cmd/api/dto"
	"autoblog/cmd/api/middleware"
	"autoblog/cmd/api/trace"
	"autoblog/generator"
	"autoblog/logger"
	"autoblog/models"
	"autoblog/repositories"
	"autoblog/services"
)

// statusFor 는 서비스 에러를 HTTP 상태 코드로 옮긴다. 모르는 에러는 500 이다.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrTopicNotFound),
		errors.Is(err, services.ErrPostNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrHistoryNotFound),
		errors.Is(err, services.ErrBlogNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrTopicExists),
		errors.Is(err, services.ErrDomainTaken),
		errors.Is(err, services.ErrBatchRunning):
		return http.StatusConflict
	case errors.Is(err, services.ErrNoActiveTopics),
		errors.Is(err, services.ErrSitemapDisabled):
		return http.StatusUnprocessableEntity
	case errors.Is(err, services.ErrUserInactive):
		return http.StatusForbidden
	case errors.Is(err, services.ErrSlugExhausted):
		return http.StatusServiceUnavailable
	case errors.Is(err, generator.ErrGenerationFailed),
		errors.Is(err, services.ErrDNSLookup):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError 는 4xx 와 외부 호출 실패(502)는 에러 문구를 그대로, 나머지 5xx 는 로그만 남기고 일반 문구를 내려준다.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		logger.ErrorWithFields("request failed", trace.Fields(c.Request.Context(), logger.Fields{
			"path":  c.FullPath(),
			"error": err.Error(),
		}))
		if status != http.StatusBadGateway {
			c.JSON(status, dto.ErrorResponseDTO{Error: http.StatusText(status)})
			return
		}
	}
	c.JSON(status, dto.ErrorResponseDTO{Error: err.Error()})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponseDTO{Error: msg})
}

// objectIDParam 은 경로 파라미터를 ObjectID 로 읽는다. 실패하면 400 을 쓰고 false 를 반환한다.
func objectIDParam(c *gin.Context, name string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		badRequest(c, "invalid "+name)
		return primitive.NilObjectID, false
	}
	return id, true
}

func pageParams(c *gin.Context) repositories.Pagination {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return repositories.Pagination{Page: page, PageSize: pageSize}.Normalize()
}

// currentUser 는 RequireUser 뒤에서만 호출한다.
func currentUser(c *gin.Context) *models.User {
	return middleware.CurrentUser(c)
}

func paginate[T any](c *gin.Context, items []T, pg repositories.Pagination, total int64) {
	c.JSON(http.StatusOK, dto.NewPagination(items, pg.Page, pg.PageSize, total))
}
