package controller

import (
	"exam_platform_backend/internal/model"
	"exam_platform_backend/internal/service"
	"exam_platform_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type TestController struct {
	TestService *service.TestService
}

func NewTestController(testService *service.TestService) *TestController {
	return &TestController{TestService: testService}
}

// @Summary 创建试卷
// @Tags 试卷管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body service.TestReq true "试卷与题目"
// @Success 201 {object} util.Response
// @Router /api/admin/tests [post]
func (c *TestController) Create(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	var req service.TestReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.TestService.CreateTest(user.StudentID, req)
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Created(ctx, test)
}

// @Summary 更新试卷（题目按ID对账）
// @Tags 试卷管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Param body body service.TestReq true "试卷与题目"
// @Success 200 {object} util.Response
// @Router /api/admin/tests/{id} [put]
func (c *TestController) Update(ctx *gin.Context) {
	testID := util.ParseUint(ctx.Param("id"))
	if testID == 0 {
		util.BadRequest(ctx, "invalid test id")
		return
	}

	var req service.TestReq
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.TestService.UpdateTest(testID, req)
	if err != nil {
		if err == util.ErrTestNotFound {
			util.NotFound(ctx)
			return
		}
		util.BadRequest(ctx, err.Error())
		return
	}
	util.Success(ctx, test)
}

// @Summary 发布/下架试卷
// @Tags 试卷管理
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/admin/tests/{id}/publish [post]
func (c *TestController) Publish(ctx *gin.Context) {
	testID := util.ParseUint(ctx.Param("id"))
	if testID == 0 {
		util.BadRequest(ctx, "invalid test id")
		return
	}

	var body struct {
		Publish *bool `json:"publish" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&body); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	test, err := c.TestService.PublishTest(testID, *body.Publish)
	if err != nil {
		switch err {
		case util.ErrTestNotFound:
			util.NotFound(ctx)
		case util.ErrTestHasNoQuestions:
			util.BadRequest(ctx, err.Error())
		default:
			util.LogInternalError(ctx, err)
		}
		return
	}
	util.Success(ctx, test)
}

// @Summary 删除试卷（级联删除题目与作答）
// @Tags 试卷管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/admin/tests/{id} [delete]
func (c *TestController) Delete(ctx *gin.Context) {
	testID := util.ParseUint(ctx.Param("id"))
	if testID == 0 {
		util.BadRequest(ctx, "invalid test id")
		return
	}

	if err := c.TestService.DeleteTest(testID); err != nil {
		if err == util.ErrTestNotFound {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"deleted": true})
}

// @Summary 试卷详情
// @Tags 试卷
// @Produce json
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Success 200 {object} util.Response
// @Router /api/tests/{id} [get]
func (c *TestController) Get(ctx *gin.Context) {
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

	test, err := c.TestService.GetTest(testID, user.Role == model.RoleAdmin)
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
	util.Success(ctx, test)
}

// @Summary 试卷列表
// @Tags 试卷
// @Produce json
// @Security BearerAuth
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Success 200 {object} util.Response
// @Router /api/tests [get]
func (c *TestController) List(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	page := util.ParseIntDefault(ctx.Query("page"), 1)
	limit := util.ParseIntDefault(ctx.Query("limit"), 20)
	publishedOnly := user.Role != model.RoleAdmin

	tests, total, err := c.TestService.ListTests(page, limit, publishedOnly)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{
		List:  tests,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// @Summary 试卷作答列表（管理端）
// @Tags 试卷管理
// @Produce json
// @Security BearerAuth
// @Param id path int true "试卷ID"
// @Param page query int false "页码"
// @Param limit query int false "每页条数"
// @Param studentName query string false "学生姓名模糊匹配"
// @Success 200 {object} util.Response
// @Router /api/admin/tests/{id}/attempts [get]
func (c *TestController) ListAttempts(ctx *gin.Context) {
	testID := util.ParseUint(ctx.Param("id"))
	if testID == 0 {
		util.BadRequest(ctx, "invalid test id")
		return
	}

	page := util.ParseIntDefault(ctx.Query("page"), 1)
	limit := util.ParseIntDefault(ctx.Query("limit"), 20)

	attempts, total, err := c.TestService.ListAttempts(testID, page, limit, ctx.Query("studentName"))
	if err != nil {
		if err == util.ErrTestNotFound {
			util.NotFound(ctx)
			return
		}
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, util.PageResponse{
		List:  attempts,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}
