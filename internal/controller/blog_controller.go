package controller

import (
	"coursehub_backend/internal/service"
	"coursehub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type BlogController struct {
	BlogService *service.BlogService
}

func NewBlogController(blogService *service.BlogService) *BlogController {
	return &BlogController{BlogService: blogService}
}

// Create godoc
// @Summary 创建博客
// @Description 草稿免费；提交审核时优先使用免费额度，额度用完需消耗积分
// @Tags 博客
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param body body service.SaveBlogRequest true "博客内容"
// @Success 201 {object} util.Response{data=service.BlogSaveResult}
// @Failure 402 {object} util.Response "积分不足"
// @Router /api/blogs [post]
func (c *BlogController) Create(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	var req service.SaveBlogRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	result, err := c.BlogService.Save(ctx.Request.Context(), claims.UserID, 0, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

// Update godoc
// @Summary 编辑博客
// @Description 已审核通过的博客不可编辑
// @Tags 博客
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "博客ID"
// @Param body body service.SaveBlogRequest true "博客内容"
// @Success 200 {object} util.Response{data=service.BlogSaveResult}
// @Failure 409 {object} util.Response "已审核"
// @Router /api/blogs/{id} [put]
func (c *BlogController) Update(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	blogID, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx)
		return
	}

	var req service.SaveBlogRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	result, err := c.BlogService.Save(ctx.Request.Context(), claims.UserID, blogID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// Allowance godoc
// @Summary 查询免费发布额度
// @Tags 博客
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.BlogAllowance}
// @Router /api/blogs/allowance [get]
func (c *BlogController) Allowance(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	allowance, err := c.BlogService.Allowance(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, allowance)
}

// Review godoc
// @Summary 审核博客
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "博客ID"
// @Param body body service.ReviewBlogRequest true "审核结果"
// @Success 200 {object} util.Response{data=model.Blog}
// @Failure 409 {object} util.Response "已审核"
// @Router /api/admin/blogs/{id}/review [post]
func (c *BlogController) Review(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	blogID, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx)
		return
	}

	var req service.ReviewBlogRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	blog, err := c.BlogService.Review(ctx.Request.Context(), blogID, claims.UserID, req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, blog)
}

// Publish godoc
// @Summary 发布已通过审核的博客
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "博客ID"
// @Success 200 {object} util.Response{data=model.Blog}
// @Router /api/admin/blogs/{id}/publish [post]
func (c *BlogController) Publish(ctx *gin.Context) {
	blogID, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx)
		return
	}

	blog, err := c.BlogService.Publish(ctx.Request.Context(), blogID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, blog)
}
