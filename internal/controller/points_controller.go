package controller

import (
	"coursehub_backend/internal/service"
	"coursehub_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type PointsController struct {
	Ledger *service.LedgerService
}

func NewPointsController(ledger *service.LedgerService) *PointsController {
	return &PointsController{Ledger: ledger}
}

type AdjustPointsRequest struct {
	Delta int    `json:"delta" binding:"required"`
	Note  string `json:"note" binding:"required,max=255"`
}

// Balance godoc
// @Summary 查询积分余额
// @Tags 积分
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=object}
// @Router /api/points [get]
func (c *PointsController) Balance(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)

	balance, err := c.Ledger.Balance(ctx.Request.Context(), claims.UserID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{"balance": balance})
}

// History godoc
// @Summary 积分流水
// @Tags 积分
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "页码"
// @Param limit query int false "每页数量"
// @Success 200 {object} util.Response{data=service.PointsHistory}
// @Router /api/points/history [get]
func (c *PointsController) History(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	page, limit := util.Pagination(ctx)

	history, err := c.Ledger.History(ctx.Request.Context(), claims.UserID, page, limit)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, history)
}

// Adjust godoc
// @Summary 管理员调整积分
// @Tags 管理
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Param body body AdjustPointsRequest true "调整量"
// @Success 200 {object} util.Response{data=model.PointEvent}
// @Failure 402 {object} util.Response "余额不足"
// @Router /api/admin/users/{id}/points [post]
func (c *PointsController) Adjust(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	userID, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx)
		return
	}

	var req AdjustPointsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, util.BindingMessage(err))
		return
	}

	event, err := c.Ledger.Adjust(ctx.Request.Context(), claims.UserID, userID, req.Delta, req.Note)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, event)
}

// Reconcile godoc
// @Summary 积分对账
// @Description 比较用户余额与流水合计
// @Tags 管理
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "用户ID"
// @Success 200 {object} util.Response{data=service.ReconcileReport}
// @Router /api/admin/users/{id}/points/reconcile [get]
func (c *PointsController) Reconcile(ctx *gin.Context) {
	userID, ok := util.ParamID(ctx, "id")
	if !ok {
		util.NotFound(ctx)
		return
	}

	report, err := c.Ledger.Reconcile(ctx.Request.Context(), userID)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, report)
}
