package ws

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jalh2/businesschat-backend/internal/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

var (
	// 当前在线的 WebSocket 连接数
	wsConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "当前在线的 WebSocket 连接数",
		},
	)
)

// Envelope 下发给客户端的事件信封
type Envelope struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Client 单个 WebSocket 连接
// gorilla 的连接不支持并发写，所有写操作都经过 writeMu。
// lastSeen 由连接的读协程更新、心跳协程读取，同样由 writeMu 保护
type Client struct {
	conn     *websocket.Conn
	userID   int64
	writeMu  sync.Mutex
	lastSeen time.Time
}

// Hub 按群聊 ID 组织的连接集合
// 订阅关系由客户端 joinChat/leaveChat 指令显式维护，与群聊成员资格无关；
// 成员资格校验发生在 API 层，不在传输层
type Hub struct {
	mu      sync.RWMutex
	chats   map[int64]map[*Client]struct{} // chatID -> 订阅的连接集合
	clients map[*Client][]int64            // 连接 -> 已订阅的群聊（用于断开时清理）
}

// NewHub 创建连接集合
func NewHub() *Hub {
	return &Hub{
		chats:   make(map[int64]map[*Client]struct{}),
		clients: make(map[*Client][]int64),
	}
}

// Add 注册一个新连接
func (h *Hub) Add(userID int64, conn *websocket.Conn) *Client {
	c := &Client{conn: conn, userID: userID, lastSeen: time.Now()}

	h.mu.Lock()
	h.clients[c] = nil
	h.mu.Unlock()

	wsConnectionsActive.Inc()
	logger.Logger.Debug("WebSocket 连接建立", zap.Int64("user_id", userID))
	return c
}

// Remove 移除连接并清理其全部订阅
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; !ok {
		h.mu.Unlock()
		return
	}
	for _, chatID := range h.clients[c] {
		if conns, ok := h.chats[chatID]; ok {
			delete(conns, c)
			if len(conns) == 0 {
				delete(h.chats, chatID)
			}
		}
	}
	delete(h.clients, c)
	h.mu.Unlock()

	_ = c.conn.Close()
	wsConnectionsActive.Dec()
	logger.Logger.Debug("WebSocket 连接断开", zap.Int64("user_id", c.userID))
}

// Subscribe 订阅一个群聊频道
func (h *Hub) Subscribe(c *Client, chatID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return
	}
	if _, ok := h.chats[chatID]; !ok {
		h.chats[chatID] = make(map[*Client]struct{})
	}
	if _, ok := h.chats[chatID][c]; ok {
		return
	}
	h.chats[chatID][c] = struct{}{}
	h.clients[c] = append(h.clients[c], chatID)
}

// Unsubscribe 退订一个群聊频道
func (h *Hub) Unsubscribe(c *Client, chatID int64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conns, ok := h.chats[chatID]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(h.chats, chatID)
		}
	}
	subs := h.clients[c]
	for i, id := range subs {
		if id == chatID {
			h.clients[c] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
}

// Broadcast 向某个群聊频道的全部订阅连接广播事件
// 尽力而为：写失败的连接直接移除，不重试，也没有离线补发
func (h *Hub) Broadcast(chatID int64, event string, payload interface{}) {
	data, err := json.Marshal(Envelope{Event: event, Data: payload})
	if err != nil {
		logger.Logger.Error("序列化事件失败",
			zap.String("event", event),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		return
	}

	h.mu.RLock()
	conns := make([]*Client, 0, len(h.chats[chatID]))
	for c := range h.chats[chatID] {
		conns = append(conns, c)
	}
	h.mu.RUnlock()

	for _, c := range conns {
		if err := c.write(websocket.TextMessage, data); err != nil {
			logger.Logger.Warn("WebSocket 写入失败，移除连接",
				zap.Int64("user_id", c.userID),
				zap.Int64("chat_id", chatID),
				zap.Error(err))
			go h.Remove(c)
		}
	}
}

// Heartbeat 周期性 ping 所有连接，清理失联的连接
func (h *Hub) Heartbeat(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		h.mu.RLock()
		conns := make([]*Client, 0, len(h.clients))
		for c := range h.clients {
			conns = append(conns, c)
		}
		h.mu.RUnlock()

		for _, c := range conns {
			if c.idle() > 2*interval {
				go h.Remove(c)
				continue
			}
			_ = c.control(websocket.PingMessage, time.Now().Add(time.Second))
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

func (c *Client) control(messageType int, deadline time.Time) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteControl(messageType, []byte{}, deadline)
}

// touch 标记连接活跃（收到消息或 pong 时调用）
func (c *Client) touch() {
	c.writeMu.Lock()
	c.lastSeen = time.Now()
	c.writeMu.Unlock()
}

// idle 返回距离上次活跃的时长
func (c *Client) idle() time.Duration {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return time.Since(c.lastSeen)
}
