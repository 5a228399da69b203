package models

import (
	"time"
)

// Chat 群聊模型，附带共享账本
// 结算余额（balance_*）为有符号金额，可为负数，表示任一方向的欠款；
// 待确认余额（pending_*）为非负金额，是所有未确认参与者付款的合计
type Chat struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Name           string     `gorm:"type:varchar(100);comment:群聊名称" json:"name"`
	CreatorID      int64      `gorm:"index;not null;comment:群主" json:"creator_id"`
	BalanceUsd     int64      `gorm:"not null;default:0;comment:结算余额(美分)" json:"balance_usd"`
	BalanceCny     int64      `gorm:"not null;default:0;comment:结算余额(分)" json:"balance_cny"`
	PendingUsd     int64      `gorm:"not null;default:0;comment:待确认余额(美分)" json:"pending_usd"`
	PendingCny     int64      `gorm:"not null;default:0;comment:待确认余额(分)" json:"pending_cny"`
	CreateDatetime *time.Time `gorm:"comment:创建时间" json:"create_datetime,omitempty"`
	UpdateDatetime *time.Time `gorm:"index;comment:修改时间" json:"update_datetime,omitempty"`
}

// TableName 指定表名
func (Chat) TableName() string {
	return "chat_chat"
}

// ChatParticipant 群聊成员关系
type ChatParticipant struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID         int64      `gorm:"uniqueIndex:uk_chat_user;not null;comment:关联群聊" json:"chat_id"`
	UserID         int64      `gorm:"uniqueIndex:uk_chat_user;not null;comment:关联用户" json:"user_id"`
	CreateDatetime *time.Time `gorm:"comment:加入时间" json:"create_datetime,omitempty"`
}

// TableName 指定表名
func (ChatParticipant) TableName() string {
	return "chat_participant"
}

// ChatSnapshot 群聊快照，作为 API 响应和 chat:balanceUpdated 事件载荷
type ChatSnapshot struct {
	ID             int64      `json:"id"`
	Name           string     `json:"name"`
	Creator        int64      `json:"creator"`
	Participants   []int64    `json:"participants"`
	BalanceUsd     int64      `json:"balance_usd"`
	BalanceCny     int64      `json:"balance_cny"`
	PendingUsd     int64      `json:"pending_usd"`
	PendingCny     int64      `json:"pending_cny"`
	CreateDatetime *time.Time `json:"create_datetime,omitempty"`
	UpdateDatetime *time.Time `json:"update_datetime,omitempty"`
}

// Snapshot 组装群聊快照
func (c *Chat) Snapshot(participantIDs []int64) *ChatSnapshot {
	if participantIDs == nil {
		participantIDs = []int64{}
	}
	return &ChatSnapshot{
		ID:             c.ID,
		Name:           c.Name,
		Creator:        c.CreatorID,
		Participants:   participantIDs,
		BalanceUsd:     c.BalanceUsd,
		BalanceCny:     c.BalanceCny,
		PendingUsd:     c.PendingUsd,
		PendingCny:     c.PendingCny,
		CreateDatetime: c.CreateDatetime,
		UpdateDatetime: c.UpdateDatetime,
	}
}
