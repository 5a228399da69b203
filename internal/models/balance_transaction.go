package models

import (
	"time"
)

// 账本流水类型常量
const (
	TransactionTypeManual  = "manual"  // 群主手动调整
	TransactionTypePayment = "payment" // 确认参与者付款
)

// BalanceTransaction 账本流水模型（只追加，创建后永不修改或删除）
// 对账不变量：群聊初始余额 + 该群聊所有流水增量之和 = 当前结算余额
type BalanceTransaction struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID         int64      `gorm:"index;not null;comment:关联群聊" json:"chat_id"`
	Type           string     `gorm:"type:varchar(16);index;not null;comment:流水类型" json:"type"`
	DeltaUsd       int64      `gorm:"not null;default:0;comment:变更金额(美分)" json:"delta_usd"`
	DeltaCny       int64      `gorm:"not null;default:0;comment:变更金额(分)" json:"delta_cny"`
	Note           string     `gorm:"type:varchar(255);comment:备注" json:"note,omitempty"`
	CreatedBy      int64      `gorm:"index;not null;comment:创建人" json:"created_by"`
	MessageID      *int64     `gorm:"index;comment:关联付款消息" json:"message_id,omitempty"`
	CreateDatetime *time.Time `gorm:"index;comment:创建时间" json:"create_datetime,omitempty"`
}

// TableName 指定表名
func (BalanceTransaction) TableName() string {
	return "chat_balance_transaction"
}
