package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"autoblog/cmd/api/dto"
	"autoblog/repositories"
	"autoblog/services"
)

// TenantRunner 는 scheduler.Runner 가 구현한다.
type TenantRunner interface {
	RunTenant(ctx context.Context, tenantID primitive.ObjectID, force bool) (*services.BatchResult, error)
}

// AdminListUsersHandler godoc
// @Summary      List users
// @Tags         admin
// @Security     BearerAuth
// @Param        page       query  int     false  "Page number" default(1)
// @Param        page_size  query  int     false  "Page size" default(20)
// @Param        search     query  string  false  "Name or email"
// @Param        role       query  string  false  "user | admin"
// @Produce      json
// @Success      200  {object}  dto.PaginationUserDTO
// @Failure      403  {object}  dto.ErrorResponseDTO
// @Router       /api/v1/admin/users [get]
func AdminListUsersHandler(svc *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		pg := pageParams(c)
		users, total, err := svc.ListUsers(c.Request.Context(), repositories.UserQuery{
			Pagination: pg,
			Search:     c.Query("search"),
			Role:       c.Query("role"),
		})
		if err != nil {
			respondError(c, err)
			return
		}
		paginate(c, users, pg, total)
	}
}

// AdminChangeRoleHandler godoc
// @Summary      Change user role
// @Description  관리자는 자기 자신을 강등할 수 없습니다.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id    path      string                    true  "User ObjectID"
// @Param        body  body      dto.ChangeRoleRequestDTO  true  "Role"
// @Success      200   {object}  models.User
// @Failure      400   {object}  dto.ErrorResponseDTO
// @Failure      404   {object}  dto.ErrorResponseDTO
// @Router       /api/v1/admin/users/{id}/role [put]
func AdminChangeRoleHandler(svc *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		var req dto.ChangeRoleRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err.Error())
			return
		}
		u, err := svc.ChangeRole(c.Request.Context(), currentUser(c).ID, id, req.Role)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// AdminToggleUserHandler godoc
// @Summary      Toggle user active flag
// @Description  비활성 사용자는 로그인할 수 없고 블로그도 노출되지 않습니다.
// @Tags         admin
// @Security     BearerAuth
// @Param        id  path  string  true  "User ObjectID"
// @Produce      json
// @Success      200  {object}  models.User
// @Failure      400  {object}  dto.ErrorResponseDTO
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Router       /api/v1/admin/users/{id}/toggle [put]
func AdminToggleUserHandler(svc *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "id")
		if !ok {
			return
		}
		u, err := svc.ToggleActive(c.Request.Context(), currentUser(c).ID, id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// AdminStatsHandler godoc
// @Summary      Platform statistics
// @Description  사용자/주제/글 수와 최근 24시간 배치, 토큰 사용량입니다.
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  services.Stats
// @Router       /api/v1/admin/stats [get]
func AdminStatsHandler(svc *services.AdminService) gin.HandlerFunc {
	return func(c *gin.Context) {
		stats, err := svc.Stats(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, stats)
	}
}

// GetSystemConfigHandler godoc
// @Summary      Get system generation settings
// @Tags         admin
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  services.EffectiveSettings
// @Router       /api/v1/config [get]
func GetSystemConfigHandler(svc *services.SettingsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := svc.System(c.Request.Context())
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

// UpdateSystemConfigHandler godoc
// @Summary      Update system generation settings
// @Description  전달된 필드만 바꿉니다. 값은 settings 컬렉션에 저장되고 config.yaml 의 기본값보다 우선합니다.
// @Tags         admin
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      services.UpdateSystemSettingsInput  true  "Settings"
// @Success      200   {object}  services.EffectiveSettings
// @Failure      400   {object}  dto.ErrorResponseDTO
// @Router       /api/v1/config [put]
func UpdateSystemConfigHandler(svc *services.SettingsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.UpdateSystemSettingsInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		s, err := svc.Update(c.Request.Context(), in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, s)
	}
}

// AdminTriggerSchedulerHandler godoc
// @Summary      Run a scheduled batch now
// @Description  사용자의 자동 생성 설정과 무관하게 예약 배치를 한 번 실행합니다.
// @Tags         admin
// @Security     BearerAuth
// @Param        userId  path  string  true  "User ObjectID"
// @Produce      json
// @Success      200  {object}  services.BatchResult
// @Failure      404  {object}  dto.ErrorResponseDTO
// @Failure      409  {object}  dto.ErrorResponseDTO
// @Router       /api/v1/admin/scheduler/trigger/{userId} [post]
func AdminTriggerSchedulerHandler(runner TenantRunner) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectIDParam(c, "userId")
		if !ok {
			return
		}
		res, err := runner.RunTenant(c.Request.Context(), id, true)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				respondError(c, services.ErrUserNotFound)
				return
			}
			respondError(c, err)
			return
		}
		if res == nil {
			// 같은 사용자의 배치가 이미 실행 중이다.
			respondError(c, services.ErrBatchRunning)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
