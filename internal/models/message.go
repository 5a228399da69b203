package models

import (
	"time"
)

// 消息类型常量
const (
	MessageTypeText    = "text"    // 文本消息
	MessageTypeImage   = "image"   // 图片消息
	MessageTypeVoice   = "voice"   // 语音消息
	MessageTypePayment = "payment" // 付款消息
)

// 付款消息状态常量
const (
	PaymentStatusPending   = "pending"   // 待确认
	PaymentStatusConfirmed = "confirmed" // 已确认（终态）
)

// Message 消息模型
// 付款消息（type=payment）是账本相关实体：携带金额、状态与群主提醒标记。
// IsCreatorRequest 为 true 表示群主发起的收款提醒，仅作通知，不影响待确认余额，
// 也不可被确认
type Message struct {
	ID               int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	ChatID           int64      `gorm:"index;not null;comment:关联群聊" json:"chat_id"`
	SenderID         int64      `gorm:"index;not null;comment:发送者" json:"sender_id"`
	Type             string     `gorm:"type:varchar(16);not null;comment:消息类型" json:"type"`
	Content          string     `gorm:"type:text;comment:文本内容" json:"content,omitempty"`
	ImageData        []byte     `gorm:"type:longblob;comment:图片数据" json:"-"`
	ImageMimeType    string     `gorm:"type:varchar(64);comment:图片MIME类型" json:"image_mime_type,omitempty"`
	ReceiptData      []byte     `gorm:"type:longblob;comment:付款凭证数据" json:"-"`
	ReceiptMimeType  string     `gorm:"type:varchar(64);comment:凭证MIME类型" json:"receipt_mime_type,omitempty"`
	VoiceFileID      *int64     `gorm:"index;comment:关联语音文件" json:"voice_file_id,omitempty"`
	VoiceMimeType    string     `gorm:"type:varchar(64);comment:语音MIME类型" json:"voice_mime_type,omitempty"`
	VoiceDuration    int        `gorm:"default:0;comment:语音时长(秒)" json:"voice_duration,omitempty"`
	AmountUsd        int64      `gorm:"not null;default:0;comment:金额(美分)" json:"amount_usd"`
	AmountCny        int64      `gorm:"not null;default:0;comment:金额(分)" json:"amount_cny"`
	IsCreatorRequest bool       `gorm:"not null;default:false;comment:群主收款提醒" json:"is_creator_request"`
	Status           string     `gorm:"type:varchar(16);index;comment:付款状态" json:"status,omitempty"`
	ApprovedBy       *int64     `gorm:"comment:确认人" json:"approved_by,omitempty"`
	ApprovedAt       *time.Time `gorm:"comment:确认时间" json:"approved_at,omitempty"`
	CreateDatetime   *time.Time `gorm:"index;comment:创建时间" json:"create_datetime,omitempty"`
	UpdateDatetime   *time.Time `gorm:"comment:修改时间" json:"update_datetime,omitempty"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "chat_message"
}

// PublicMessage 对外暴露的消息视图
// 剥离图片、凭证等二进制数据，只保留 has_* 标记，二进制内容走独立的下载接口
type PublicMessage struct {
	ID               int64      `json:"id"`
	ChatID           int64      `json:"chat_id"`
	SenderID         int64      `json:"sender_id"`
	Type             string     `json:"type"`
	Content          string     `json:"content,omitempty"`
	VoiceDuration    int        `json:"voice_duration,omitempty"`
	AmountUsd        int64      `json:"amount_usd"`
	AmountCny        int64      `json:"amount_cny"`
	IsCreatorRequest bool       `json:"is_creator_request"`
	Status           string     `json:"status,omitempty"`
	ApprovedBy       *int64     `json:"approved_by,omitempty"`
	ApprovedAt       *time.Time `json:"approved_at,omitempty"`
	HasImage         bool       `json:"has_image"`
	HasVoice         bool       `json:"has_voice"`
	HasReceipt       bool       `json:"has_receipt"`
	CreateDatetime   *time.Time `json:"create_datetime,omitempty"`
}

// Public 返回消息的公开视图
func (m *Message) Public() *PublicMessage {
	return &PublicMessage{
		ID:               m.ID,
		ChatID:           m.ChatID,
		SenderID:         m.SenderID,
		Type:             m.Type,
		Content:          m.Content,
		VoiceDuration:    m.VoiceDuration,
		AmountUsd:        m.AmountUsd,
		AmountCny:        m.AmountCny,
		IsCreatorRequest: m.IsCreatorRequest,
		Status:           m.Status,
		ApprovedBy:       m.ApprovedBy,
		ApprovedAt:       m.ApprovedAt,
		HasImage:         m.ImageMimeType != "",
		HasVoice:         m.VoiceFileID != nil,
		HasReceipt:       m.ReceiptMimeType != "",
		CreateDatetime:   m.CreateDatetime,
	}
}
