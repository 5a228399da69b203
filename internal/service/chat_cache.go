package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jalh2/businesschat-backend/internal/database"
	"github.com/jalh2/businesschat-backend/internal/logger"
	"github.com/jalh2/businesschat-backend/internal/models"
	"go.uber.org/zap"
)

// 群聊快照的 Redis 缓存。余额每次变更都会失效缓存，
// 所以缓存只吸收读流量，不参与任何账本计算
const chatSnapshotTTL = 5 * time.Minute

func chatSnapshotKey(chatID int64) string {
	return fmt.Sprintf("chat:snapshot:%d", chatID)
}

// cachedChatSnapshot 读缓存，未命中或 Redis 不可用时返回 false
func cachedChatSnapshot(ctx context.Context, chatID int64) (*models.ChatSnapshot, bool) {
	if database.RDB == nil {
		return nil, false
	}
	data, err := database.RDB.Get(ctx, chatSnapshotKey(chatID)).Bytes()
	if err != nil {
		return nil, false
	}
	var snap models.ChatSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false
	}
	return &snap, true
}

// storeChatSnapshot 写缓存，失败只记日志
func storeChatSnapshot(ctx context.Context, snap *models.ChatSnapshot) {
	if database.RDB == nil || snap == nil {
		return
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := database.RDB.Set(ctx, chatSnapshotKey(snap.ID), data, chatSnapshotTTL).Err(); err != nil {
		logger.Logger.Debug("写入群聊快照缓存失败",
			zap.Int64("chat_id", snap.ID),
			zap.Error(err))
	}
}

// invalidateChatSnapshot 删除缓存，任何余额或成员变更后调用
func invalidateChatSnapshot(ctx context.Context, chatID int64) {
	if database.RDB == nil {
		return
	}
	if err := database.RDB.Del(ctx, chatSnapshotKey(chatID)).Err(); err != nil {
		logger.Logger.Debug("失效群聊快照缓存失败",
			zap.Int64("chat_id", chatID),
			zap.Error(err))
	}
}
