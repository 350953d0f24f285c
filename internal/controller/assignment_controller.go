package controller

import (
	"coursehub_backend/internal/service"
	"coursehub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AssignmentController struct {
	AssignmentService *service.AssignmentService
}

func NewAssignmentController(assignmentService *service.AssignmentService) *AssignmentController {
	return &AssignmentController{AssignmentService: assignmentService}
}

// Submit godoc
// @Summary 提交作业
// @Description 首次按时提交奖励积分；逾期或重新提交需要积分
// @Tags 作业
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作业ID"
// @Param body body service.SubmitAssignmentRequest true "提交内容"
// @Success 200 {object} util.Response{data=service.AssignmentSubmitResult}
// @Failure 402 {object} util.Response "积分不足"
// @Router /api/assignments/{id}/submit [post]
func (c *AssignmentController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	assignmentID, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx)
		return
	}

	var req service.SubmitAssignmentRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	result, err := c.AssignmentService.Submit(ctx.Request.Context(), assignmentID, claims.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Upload godoc
// @Summary 上传作业附件
// @Tags 作业
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "作业ID"
// @Param file formData file true "附件"
// @Success 200 {object} util.Response{data=object}
// @Router /api/assignments/{id}/upload [post]
func (c *AssignmentController) Upload(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	assignmentID, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx)
		return
	}

	file, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "file is required")
		return
	}

	url, err := c.AssignmentService.UploadAttachment(ctx.Request.Context(), assignmentID, claims.UserID, file)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"url": url})
}

// Grade godoc
// @Summary 批改作业
// @Description 教师批改或退回待批改的提交
// @Tags 作业
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "提交ID"
// @Param body body service.GradeSubmissionRequest true "批改结果"
// @Success 200 {object} util.Response{data=model.AssignmentSubmission}
// @Failure 409 {object} util.Response "状态不允许"
// @Router /api/instructor/submissions/{id}/grade [post]
func (c *AssignmentController) Grade(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	submissionID, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx)
		return
	}

	var req service.GradeSubmissionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	sub, err := c.AssignmentService.Grade(ctx.Request.Context(), submissionID, claims.UserID, claims.Role, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}
