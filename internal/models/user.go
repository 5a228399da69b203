package models

import (
	"time"
)

// User 用户模型
type User struct {
	ID             int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Username       string     `gorm:"uniqueIndex;type:varchar(50);not null;comment:用户名" json:"username"`
	PasswordHash   string     `gorm:"type:varchar(100);not null;comment:密码哈希" json:"-"`
	CreateDatetime *time.Time `gorm:"comment:创建时间" json:"create_datetime,omitempty"`
	UpdateDatetime *time.Time `gorm:"comment:修改时间" json:"update_datetime,omitempty"`
}

// TableName 指定表名
func (User) TableName() string {
	return "chat_user"
}

// PublicUser 对外暴露的用户信息（不含凭证）
type PublicUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// Public 返回脱敏后的用户信息
func (u *User) Public() *PublicUser {
	return &PublicUser{ID: u.ID, Username: u.Username}
}
