package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jalh2/businesschat-backend/internal/notifier"
	"github.com/jalh2/businesschat-backend/internal/response"
	"github.com/jalh2/businesschat-backend/internal/service"
)

type BalanceController struct {
	balanceService *service.BalanceService
}

// NewBalanceController 创建余额控制器
func NewBalanceController(n notifier.Notifier) *BalanceController {
	return &BalanceController{
		balanceService: service.NewBalanceService(n),
	}
}

// Adjust 手动调整群聊结算余额（仅群主）
func (ctl *BalanceController) Adjust(c *gin.Context) {
	chatID, err := idParam(c, "chatId")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	var req service.ManualAdjustmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	result, serr := ctl.balanceService.CreateManualAdjustment(c.Request.Context(), chatID, currentUserID(c), &req)
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Created(c, result)
}

// Transactions 列出群聊账本流水
func (ctl *BalanceController) Transactions(c *gin.Context) {
	chatID, err := idParam(c, "chatId")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	txs, serr := ctl.balanceService.ListTransactions(c.Request.Context(), chatID, currentUserID(c))
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Success(c, txs)
}
