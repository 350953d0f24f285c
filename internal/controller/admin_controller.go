package controller

import (
	"coursehub_backend/internal/service"
	"coursehub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// AdminController 课程发布状态、选课状态与提前解锁管理
type AdminController struct {
	Release     *service.ReleaseService
	Enrollments *service.EnrollmentService
	Access      *service.LessonAccessService
}

func NewAdminController(release *service.ReleaseService, enrollments *service.EnrollmentService, access *service.LessonAccessService) *AdminController {
	return &AdminController{Release: release, Enrollments: enrollments, Access: access}
}

// SetLessonStatus godoc
// @Summary 修改课时发布状态
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课时ID"
// @Param body body service.SetPublishStatusRequest true "状态"
// @Success 200 {object} util.Response{data=model.Lesson}
// @Failure 409 {object} util.Response "状态流转不合法"
// @Router /api/admin/lessons/{id}/status [put]
func (c *AdminController) SetLessonStatus(ctx *gin.Context) {
	lessonID, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx)
		return
	}

	var req service.SetPublishStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	lesson, err := c.Release.SetLessonStatus(ctx.Request.Context(), lessonID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, lesson)
}

// SetChapterStatus godoc
// @Summary 修改章节发布状态
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "章节ID"
// @Param body body service.SetPublishStatusRequest true "状态"
// @Success 200 {object} util.Response{data=model.Chapter}
// @Router /api/admin/chapters/{id}/status [put]
func (c *AdminController) SetChapterStatus(ctx *gin.Context) {
	chapterID, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx)
		return
	}

	var req service.SetPublishStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	chapter, err := c.Release.SetChapterStatus(ctx.Request.Context(), chapterID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, chapter)
}

// SetEnrollmentStatus godoc
// @Summary 修改选课状态
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "选课ID"
// @Param body body service.SetEnrollmentStatusRequest true "状态"
// @Success 200 {object} util.Response{data=model.Enrollment}
// @Router /api/admin/enrollments/{id}/status [put]
func (c *AdminController) SetEnrollmentStatus(ctx *gin.Context) {
	enrollmentID, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx)
		return
	}

	var req service.SetEnrollmentStatusRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	enrollment, err := c.Enrollments.SetStatus(ctx.Request.Context(), enrollmentID, req.Status)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, enrollment)
}

// GrantEarlyUnlock godoc
// @Summary 提前解锁课时或章节
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.EarlyUnlockRequest true "解锁对象"
// @Success 201 {object} util.Response{data=model.EarlyUnlock}
// @Router /api/admin/early-unlocks [post]
func (c *AdminController) GrantEarlyUnlock(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	var req service.EarlyUnlockRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	unlock, err := c.Access.GrantEarlyUnlock(ctx.Request.Context(), claims.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, unlock)
}
