package controller

import (
	"exam_platform_backend/internal/service"
	"exam_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AnalyticsController struct {
	LeaderboardService *service.LeaderboardService
	ProgressService    *service.ProgressService
	SubjectService     *service.SubjectService
}

func NewAnalyticsController(
	leaderboardService *service.LeaderboardService,
	progressService *service.ProgressService,
	subjectService *service.SubjectService,
) *AnalyticsController {
	return &AnalyticsController{
		LeaderboardService: leaderboardService,
		ProgressService:    progressService,
		SubjectService:     subjectService,
	}
}

// @Summary 试卷排行榜
// @Tags 分析
// @Produce json
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Param limit query int false "窗口大小"
// @Success 200 {object} util.Response
// @Router /api/tests/{id}/leaderboard [get]
func (c *AnalyticsController) Leaderboard(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	testID := util.ParseUint(ctx.Param("id"))
	if testID == 0 {
		util.BadRequest(ctx, "invalid test id")
		return
	}
	limit := util.ParseIntDefault(ctx.Query("limit"), 0)

	result, err := c.LeaderboardService.GetLeaderboard(ctx.Request.Context(), testID, limit, user.StudentID)
	if err != nil {
		if err == util.ErrTestNotFound {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 单卷进步序列
// @Tags 分析
// @Produce json
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/tests/{id}/progress [get]
func (c *AnalyticsController) TestProgress(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	testID := util.ParseUint(ctx.Param("id"))
	if testID == 0 {
		util.BadRequest(ctx, "invalid test id")
		return
	}

	result, err := c.ProgressService.GetTestProgress(user.StudentID, testID)
	if err != nil {
		if err == util.ErrTestNotFound {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 跨试卷成绩走势
// @Tags 分析
// @Produce json
// @Security BearerAuth
// @Success 200 {object} util.Response
// @Router /api/progress/overview [get]
func (c *AnalyticsController) Overview(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	points, err := c.ProgressService.GetOverview(user.StudentID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, points)
}

// @Summary 试卷科目报表（学习差距）
// @Tags 分析
// @Produce json
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/admin/tests/{id}/report [get]
func (c *AnalyticsController) SubjectReport(ctx *gin.Context) {
	testID := util.ParseUint(ctx.Param("id"))
	if testID == 0 {
		util.BadRequest(ctx, "invalid test id")
		return
	}

	report, err := c.SubjectService.GetTestReport(testID)
	if err != nil {
		if err == util.ErrTestNotFound {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, report)
}
