package models

import (
	"time"
)

// VoiceFile 语音文件模型
// 语音二进制与消息记录分离存放，消息只保留引用和元数据
type VoiceFile struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Data           []byte     `gorm:"type:longblob;not null;comment:音频数据" json:"-"`
	MimeType       string     `gorm:"type:varchar(64);not null;comment:MIME类型" json:"mime_type"`
	Size           int64      `gorm:"not null;default:0;comment:字节数" json:"size"`
	CreateDatetime *time.Time `gorm:"comment:创建时间" json:"create_datetime,omitempty"`
}

// TableName 指定表名
func (VoiceFile) TableName() string {
	return "chat_voice_file"
}
