package mq

// 账本事件类型常量（消息 Tag）
const (
	LedgerEventManualAdjustment = "manual_adjustment"
	LedgerEventPaymentConfirmed = "payment_confirmed"
)

// LedgerEventMessage 账本事件消息
// 发布给下游对账/统计系统消费，本服务不消费自己的消息
type LedgerEventMessage struct {
	EventType     string `json:"event_type"`
	ChatID        int64  `json:"chat_id"`
	TransactionID int64  `json:"transaction_id"`
	MessageID     *int64 `json:"message_id,omitempty"`
	DeltaUsd      int64  `json:"delta_usd"`
	DeltaCny      int64  `json:"delta_cny"`
	BalanceUsd    int64  `json:"balance_usd"`
	BalanceCny    int64  `json:"balance_cny"`
	PendingUsd    int64  `json:"pending_usd"`
	PendingCny    int64  `json:"pending_cny"`
	CreatedBy     int64  `json:"created_by"`
	Timestamp     int64  `json:"timestamp"`
}
