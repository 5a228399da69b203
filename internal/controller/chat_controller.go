package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jalh2/businesschat-backend/internal/response"
	"github.com/jalh2/businesschat-backend/internal/service"
)

type ChatController struct {
	chatService *service.ChatService
}

// NewChatController 创建群聊控制器
func NewChatController() *ChatController {
	return &ChatController{
		chatService: service.NewChatService(),
	}
}

// Create 创建群聊
func (ctl *ChatController) Create(c *gin.Context) {
	var req service.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	snap, serr := ctl.chatService.CreateChat(c.Request.Context(), currentUserID(c), &req)
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Created(c, snap)
}

// List 列出当前用户参与的群聊
func (ctl *ChatController) List(c *gin.Context) {
	snaps, serr := ctl.chatService.ListMyChats(c.Request.Context(), currentUserID(c))
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Success(c, snaps)
}

// Discover 列出全部可发现的群聊
func (ctl *ChatController) Discover(c *gin.Context) {
	snaps, serr := ctl.chatService.DiscoverChats(c.Request.Context())
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Success(c, snaps)
}

// Get 获取单个群聊
func (ctl *ChatController) Get(c *gin.Context) {
	chatID, err := idParam(c, "chatId")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	snap, serr := ctl.chatService.GetChat(c.Request.Context(), chatID, currentUserID(c))
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Success(c, snap)
}

// Join 加入群聊
func (ctl *ChatController) Join(c *gin.Context) {
	chatID, err := idParam(c, "chatId")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	snap, serr := ctl.chatService.JoinChat(c.Request.Context(), chatID, currentUserID(c))
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Success(c, snap)
}

// Delete 删除群聊
func (ctl *ChatController) Delete(c *gin.Context) {
	chatID, err := idParam(c, "chatId")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	if serr := ctl.chatService.DeleteChat(c.Request.Context(), chatID, currentUserID(c)); serr != nil {
		failService(c, serr)
		return
	}
	response.Success(c, nil)
}
