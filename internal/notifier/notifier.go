package notifier

import (
	"github.com/jalh2/businesschat-backend/internal/ws"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// 事件名常量（对外契约，前端依赖这些名字）
const (
	EventBalanceUpdated   = "chat:balanceUpdated"
	EventPaymentPending   = "payment:pending"
	EventPaymentConfirmed = "payment:confirmed"
	EventMessageNew       = "message:new"
)

var (
	// 按事件类型统计的广播次数
	chatEventsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_events_emitted_total",
			Help: "按事件类型统计的群聊事件广播次数",
		},
		[]string{"event"},
	)
)

// Notifier 状态变更事件的广播接口
// 发送方视角是 fire-and-forget：广播失败不影响业务操作的结果
type Notifier interface {
	Emit(chatID int64, event string, payload interface{})
}

// HubNotifier 直接写本机 WebSocket 连接的通知器（单实例部署）
type HubNotifier struct {
	hub *ws.Hub
}

// NewHubNotifier 创建本机通知器
func NewHubNotifier(hub *ws.Hub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// Emit 向订阅该群聊的本机连接广播
func (n *HubNotifier) Emit(chatID int64, event string, payload interface{}) {
	chatEventsEmitted.WithLabelValues(event).Inc()
	n.hub.Broadcast(chatID, event, payload)
}

// NopNotifier 空实现，用于测试
type NopNotifier struct{}

// Emit 空操作
func (NopNotifier) Emit(chatID int64, event string, payload interface{}) {}
