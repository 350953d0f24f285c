package controller

import (
	"coursehub_backend/internal/service"
	"coursehub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	QuizService *service.QuizService
}

func NewQuizController(quizService *service.QuizService) *QuizController {
	return &QuizController{QuizService: quizService}
}

// GetQuiz godoc
// @Summary 获取测验
// @Description 返回题目（不含答案）及本人提交记录
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response{data=service.QuizView}
// @Failure 404 {object} util.Response
// @Router /api/quizzes/{id} [get]
func (c *QuizController) GetQuiz(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	quizID, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx)
		return
	}

	view, err := c.QuizService.GetForLearner(ctx.Request.Context(), quizID, claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, view)
}

// Submit godoc
// @Summary 提交测验
// @Description 所有题目必须作答；必修且未通过的测验可重考，积分按差值调整
// @Tags 测验
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Param body body service.SubmitQuizRequest true "答案"
// @Success 200 {object} util.Response{data=service.QuizResult}
// @Failure 400 {object} util.Response "答案不完整"
// @Failure 409 {object} util.Response "已提交"
// @Router /api/quizzes/{id}/submit [post]
func (c *QuizController) Submit(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	quizID, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx)
		return
	}

	var req service.SubmitQuizRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	result, err := c.QuizService.Submit(ctx.Request.Context(), quizID, claims.UserID, req.Answers)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// GetSubmission godoc
// @Summary 获取测验提交记录
// @Tags 测验
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "测验ID"
// @Success 200 {object} util.Response{data=model.QuizSubmission}
// @Failure 404 {object} util.Response "尚未提交"
// @Router /api/quizzes/{id}/submission [get]
func (c *QuizController) GetSubmission(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	quizID, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx)
		return
	}

	sub, err := c.QuizService.GetSubmission(ctx.Request.Context(), quizID, claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, sub)
}
