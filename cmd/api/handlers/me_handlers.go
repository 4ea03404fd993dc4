package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"autoblog/cmd/api/dto"
	"autoblog/services"
)

// GetMeHandler godoc
// @Summary      현재 로그인한 사용자 조회
// @Tags         me
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  models.User
// @Failure      401  {object}  dto.ErrorResponseDTO
// @Router       /api/v1/me [get]
func GetMeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, currentUser(c))
	}
}

// DashboardHandler godoc
// @Summary      Dashboard summary
// @Description  상태별 글 수와 최근 배치 기록 5건을 돌려줍니다.
// @Tags         me
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  object{posts=object,recent_history=[]models.GenerationHistory}
// @Router       /api/v1/me/dashboard [get]
func DashboardHandler(posts *services.PostService, gen *services.GenerationService) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		counts, err := posts.CountByStatus(c.Request.Context(), &u.ID)
		if err != nil {
			respondError(c, err)
			return
		}
		recent, err := gen.RecentHistory(c.Request.Context(), u.ID, 5)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"posts": counts, "recent_history": recent})
	}
}

// UpdateMySettingsHandler godoc
// @Summary      Update my settings
// @Description  블로그/SEO/생성 설정 중 전달된 필드만 바꿉니다. 역할이나 도메인은 바꿀 수 없습니다.
// @Tags         me
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      services.UpdateSettingsInput  true  "Settings"
// @Success      200   {object}  models.User
// @Failure      400   {object}  dto.ErrorResponseDTO
// @Router       /api/v1/me/settings [put]
func UpdateMySettingsHandler(svc *services.UserService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.UpdateSettingsInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		u, err := svc.UpdateSettings(c.Request.Context(), currentUser(c).ID, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, u)
	}
}

// GetMyDomainHandler godoc
// @Summary      Domain status
// @Description  서브도메인/커스텀 도메인 상태와 DNS 설정 안내를 돌려줍니다.
// @Tags         me
// @Security     BearerAuth
// @Produce      json
// @Success      200  {object}  services.DomainStatusView
// @Router       /api/v1/me/domain [get]
func GetMyDomainHandler(svc *services.DomainService) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := svc.Status(c.Request.Context(), currentUser(c).ID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

// SetMyDomainHandler godoc
// @Summary      Set domain
// @Description  서브도메인 또는 커스텀 도메인을 설정하고 바로 한 번 검증합니다. custom_domain 을 빈 문자열로 보내면 해제합니다.
// @Tags         me
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      services.SetDomainInput  true  "Domain"
// @Success      200   {object}  object{user=models.User,verification=services.VerifyResult}
// @Failure      400   {object}  dto.ErrorResponseDTO
// @Failure      409   {object}  dto.ErrorResponseDTO
// @Router       /api/v1/me/domain [put]
func SetMyDomainHandler(svc *services.DomainService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var in services.SetDomainInput
		if err := c.ShouldBindJSON(&in); err != nil {
			badRequest(c, err.Error())
			return
		}
		u, res, err := svc.SetDomain(c.Request.Context(), currentUser(c).ID, in)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"user": u, "verification": res})
	}
}

// VerifyMyDomainHandler godoc
// @Summary      Verify domain
// @Description  CNAME 이 플랫폼 대상 호스트를 가리키는지 확인합니다. 불일치는 verified=false 와 사유로 돌려줍니다.
// @Tags         me
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        body  body      dto.VerifyDomainRequestDTO  false  "custom: 커스텀 도메인 검증 여부"
// @Success      200   {object}  services.VerifyResult
// @Failure      502   {object}  dto.ErrorResponseDTO
// @Router       /api/v1/me/domain/verify [post]
func VerifyMyDomainHandler(svc *services.DomainService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req dto.VerifyDomainRequestDTO
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			badRequest(c, err.Error())
			return
		}
		u := currentUser(c)
		if c.Request.ContentLength == 0 && u.CustomDomain != "" {
			req.Custom = true
		}
		res, err := svc.Verify(c.Request.Context(), u.ID, req.Custom)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, res)
	}
}
