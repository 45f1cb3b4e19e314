package controller

import (
	"net/http"

	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/service"
	"exam_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AttemptController struct {
	ScoringService *service.ScoringService
}

func NewAttemptController(scoringService *service.ScoringService) *AttemptController {
	return &AttemptController{ScoringService: scoringService}
}

// @Summary 开始作答
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Success 201 {object} util.Response
// @Router /api/tests/{id}/attempts [post]
func (c *AttemptController) Start(ctx *gin.Context) {
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

	attempt, err := c.ScoringService.StartAttempt(user.StudentID, testID)
	if err != nil {
		switch err {
		case util.ErrTestNotFound:
			util.NotFound(ctx)
		case util.ErrTestNotPublished:
			util.Forbidden(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Created(ctx, attempt)
}

// @Summary 提交作答并评分
// @Tags 作答
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "作答ID"
// @Param body body service.SubmitAttemptReq true "答卷"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id}/submit [post]
func (c *AttemptController) Submit(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	attemptID := util.ParseUint(ctx.Param("id"))
	if attemptID == 0 {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}

	var req service.SubmitAttemptReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	// 管理员可代提交任意作答
	studentID := user.StudentID
	if user.Role == model.RoleAdmin {
		studentID = 0
	}

	resp, err := c.ScoringService.SubmitAttempt(attemptID, studentID, req)
	if err != nil {
		switch err {
		case util.ErrAttemptNotFound, util.ErrTestNotFound:
			util.NotFound(ctx)
		case util.ErrAttemptAccessDenied:
			util.Forbidden(ctx)
		case util.ErrAttemptAlreadyGraded:
			util.Conflict(ctx, err.Error())
		case util.ErrAttemptNotGradable:
			util.Error(ctx, http.StatusUnprocessableEntity, err.Error())
		case util.ErrInvalidSubmission, util.ErrTestHasNoQuestions:
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, resp)
}

// @Summary 作答详情（含逐题判定）
// @Tags 作答
// @Produce json
// @Security BearerAuth
// @Param id path int true "作答ID"
// @Success 200 {object} util.Response
// @Router /api/attempts/{id} [get]
func (c *AttemptController) Detail(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	attemptID := util.ParseUint(ctx.Param("id"))
	if attemptID == 0 {
		util.BadRequest(ctx, "invalid attempt id")
		return
	}

	attempt, err := c.ScoringService.GetAttemptDetail(attemptID, user.StudentID, user.Role == model.RoleAdmin)
	if err != nil {
		switch err {
		case util.ErrAttemptNotFound:
			util.NotFound(ctx)
		case util.ErrAttemptAccessDenied:
			util.Forbidden(ctx)
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, attempt)
}
