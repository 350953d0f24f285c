package controller

import (
	"coursehub_backend/internal/service"
	"coursehub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// LearningController 选课、课程大纲与课时访问
type LearningController struct {
	Access      *service.LessonAccessService
	Enrollments *service.EnrollmentService
}

func NewLearningController(access *service.LessonAccessService, enrollments *service.EnrollmentService) *LearningController {
	return &LearningController{Access: access, Enrollments: enrollments}
}

// Enroll godoc
// @Summary 选课
// @Tags 学习
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 201 {object} util.Response{data=model.Enrollment}
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response "已选课"
// @Router /api/courses/{id}/enroll [post]
func (c *LearningController) Enroll(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx)
		return
	}

	enrollment, err := c.Enrollments.Enroll(ctx.Request.Context(), courseID, claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, enrollment)
}

// Outline godoc
// @Summary 获取课程大纲
// @Description 按课程顺序返回可见课时及完成、锁定状态
// @Tags 学习
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课程ID"
// @Success 200 {object} util.Response{data=service.CourseOutline}
// @Failure 404 {object} util.Response
// @Router /api/courses/{id}/outline [get]
func (c *LearningController) Outline(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	courseID, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx)
		return
	}

	outline, err := c.Access.CourseOutline(ctx.Request.Context(), courseID, claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, outline)
}

// GetLesson godoc
// @Summary 获取课时
// @Description 锁定或未到发布时间的课时不返回正文
// @Tags 学习
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课时ID"
// @Success 200 {object} util.Response{data=service.LessonAccess}
// @Failure 404 {object} util.Response
// @Router /api/lessons/{id} [get]
func (c *LearningController) GetLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	lessonID, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx)
		return
	}

	access, err := c.Access.Resolve(ctx.Request.Context(), lessonID, claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, access)
}

// CompleteLesson godoc
// @Summary 完成课时
// @Description 首次完成奖励积分，重复标记不再奖励
// @Tags 学习
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "课时ID"
// @Success 200 {object} util.Response{data=service.LessonCompletion}
// @Failure 404 {object} util.Response
// @Failure 409 {object} util.Response "课时未解锁"
// @Router /api/lessons/{id}/complete [post]
func (c *LearningController) CompleteLesson(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	lessonID, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx)
		return
	}

	result, err := c.Access.CompleteLesson(ctx.Request.Context(), lessonID, claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
