package notifier

import (
	"context"
	"encoding/json"

	"github.com/go-redis/redis/v8"
	"github.com/jalh2/businesschat-backend/internal/logger"
	"github.com/jalh2/businesschat-backend/internal/ws"
	"go.uber.org/zap"
)

// ChatEventsChannel 跨实例事件广播使用的 Redis 频道
const ChatEventsChannel = "chat_events"

// wireEvent Redis 频道上的事件格式
type wireEvent struct {
	ChatID  int64           `json:"chat_id"`
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

// RedisNotifier 经 Redis Pub/Sub 广播事件的通知器（多实例部署）
// 事件发布到共享频道，每个实例的订阅端再投递到本机的 WebSocket 连接，
// 因此本实例自身的连接也走订阅端，不做本地直发，避免重复投递
type RedisNotifier struct {
	rdb *redis.Client
}

// NewRedisNotifier 创建 Redis 通知器
func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

// Emit 将事件发布到共享频道
func (n *RedisNotifier) Emit(chatID int64, event string, payload interface{}) {
	chatEventsEmitted.WithLabelValues(event).Inc()

	data, err := json.Marshal(payload)
	if err != nil {
		logger.Logger.Error("序列化事件载荷失败",
			zap.String("event", event),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
		return
	}
	msg, err := json.Marshal(wireEvent{ChatID: chatID, Event: event, Payload: data})
	if err != nil {
		logger.Logger.Error("序列化事件失败", zap.String("event", event), zap.Error(err))
		return
	}

	if err := n.rdb.Publish(context.Background(), ChatEventsChannel, msg).Err(); err != nil {
		logger.Logger.Warn("发布事件到 Redis 失败",
			zap.String("event", event),
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}

// Bridge Redis 频道到本机 Hub 的桥接订阅端
type Bridge struct {
	rdb    *redis.Client
	hub    *ws.Hub
	pubsub *redis.PubSub
}

// NewBridge 创建桥接订阅端
func NewBridge(rdb *redis.Client, hub *ws.Hub) *Bridge {
	return &Bridge{rdb: rdb, hub: hub}
}

// Start 订阅共享频道并开始转发
func (b *Bridge) Start(ctx context.Context) error {
	b.pubsub = b.rdb.Subscribe(ctx, ChatEventsChannel)

	// 等待订阅建立
	if _, err := b.pubsub.Receive(ctx); err != nil {
		return err
	}

	logger.Logger.Info("已订阅群聊事件频道", zap.String("channel", ChatEventsChannel))
	go b.listen(ctx)
	return nil
}

// listen 消费频道消息并投递到本机连接
func (b *Bridge) listen(ctx context.Context) {
	ch := b.pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			_ = b.pubsub.Close()
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var ev wireEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
				logger.Logger.Warn("解析群聊事件失败", zap.Error(err))
				continue
			}
			b.hub.Broadcast(ev.ChatID, ev.Event, ev.Payload)
		}
	}
}

// Close 关闭订阅
func (b *Bridge) Close() error {
	if b.pubsub != nil {
		return b.pubsub.Close()
	}
	return nil
}
