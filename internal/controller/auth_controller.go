package controller

import (
	"coursehub_backend/internal/service"
	"coursehub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

// Register godoc
// @Summary 注册新用户
// @Description 使用提供的信息注册普通用户
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.RegisterRequest true "用户注册信息"
// @Success 201 {object} util.Response{data=model.User} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "邮箱已被注册"
// @Router /api/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req service.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	user, err := c.AuthService.Register(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Created(ctx, user)
}

// Login godoc
// @Summary 用户登录
// @Description 校验邮箱密码并签发 JWT
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.LoginRequest true "登录信息"
// @Success 200 {object} util.Response{data=service.LoginResponse}
// @Failure 401 {object} util.Response "邮箱或密码错误"
// @Router /api/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req service.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	resp, err := c.AuthService.Login(ctx.Request.Context(), req)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, resp)
}
