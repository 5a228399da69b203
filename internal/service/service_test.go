package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/jalh2/businesschat-backend/config"
	"github.com/jalh2/businesschat-backend/internal/database"
	"github.com/jalh2/businesschat-backend/internal/logger"
	"github.com/jalh2/businesschat-backend/internal/models"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var testDBSeq int64

// setupTestDB 为单个测试准备独立的内存数据库
func setupTestDB(t *testing.T) {
	t.Helper()

	logger.Logger = zap.NewNop()
	config.Cfg = &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", Expire: 1},
	}

	// 每个测试一个独立的共享缓存内存库，避免连接池拿到空库
	dsn := fmt.Sprintf("file:svc_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// sqlite 是单写者，连接池压到 1，并发事务在取连接处排队而不是报 busy
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Chat{},
		&models.ChatParticipant{},
		&models.Message{},
		&models.VoiceFile{},
		&models.BalanceTransaction{},
	))

	database.DB = db
	database.RDB = nil
}

// createTestUser 创建测试用户
func createTestUser(t *testing.T, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, PasswordHash: "x"}
	require.NoError(t, database.DB.Create(user).Error)
	return user
}

// createTestChat 创建测试群聊，creator 为群主，members 为其他成员
func createTestChat(t *testing.T, creatorID int64, memberIDs ...int64) *models.ChatSnapshot {
	t.Helper()
	snap, serr := NewChatService().CreateChat(context.Background(), creatorID, &CreateChatRequest{
		Name:           "测试群聊",
		ParticipantIDs: memberIDs,
	})
	require.Nil(t, serr)
	return snap
}

// loadChat 重新加载群聊行
func loadChat(t *testing.T, chatID int64) *models.Chat {
	t.Helper()
	var chat models.Chat
	require.NoError(t, database.DB.First(&chat, chatID).Error)
	return &chat
}
