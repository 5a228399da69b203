package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/jalh2/businesschat-backend/internal/logger"
	"go.uber.org/zap"
)

const (
	readLimit    = 1024
	readDeadline = 60 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// clientCommand 客户端上行指令
// 订阅协议沿用前端既有约定：joinChat / leaveChat + 群聊 ID
type clientCommand struct {
	Action string `json:"action"`
	ChatID int64  `json:"chatId"`
}

// Handler WebSocket 升级处理器
type Handler struct {
	hub *Hub
}

// NewHandler 创建 WebSocket 处理器
func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// Serve 将 HTTP 请求升级为 WebSocket 并进入指令循环
func (h *Handler) Serve(c *gin.Context) {
	userID := c.GetInt64("user_id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Logger.Warn("WebSocket 升级失败", zap.Error(err))
		return
	}

	client := h.hub.Add(userID, conn)
	defer h.hub.Remove(client)

	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		client.touch()
		conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		var cmd clientCommand
		if err := conn.ReadJSON(&cmd); err != nil {
			return
		}
		client.touch()
		conn.SetReadDeadline(time.Now().Add(readDeadline))

		switch cmd.Action {
		case "joinChat":
			if cmd.ChatID > 0 {
				h.hub.Subscribe(client, cmd.ChatID)
				logger.Logger.Debug("订阅群聊频道",
					zap.Int64("user_id", userID),
					zap.Int64("chat_id", cmd.ChatID))
			}
		case "leaveChat":
			if cmd.ChatID > 0 {
				h.hub.Unsubscribe(client, cmd.ChatID)
				logger.Logger.Debug("退订群聊频道",
					zap.Int64("user_id", userID),
					zap.Int64("chat_id", cmd.ChatID))
			}
		default:
			// 未知指令直接忽略
		}
	}
}
