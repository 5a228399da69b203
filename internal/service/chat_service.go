package service

import (
	"context"
	"errors"
	"time"

	"github.com/jalh2/businesschat-backend/internal/database"
	"github.com/jalh2/businesschat-backend/internal/logger"
	"github.com/jalh2/businesschat-backend/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ChatService 群聊管理服务
type ChatService struct{}

// NewChatService 创建群聊管理服务
func NewChatService() *ChatService {
	return &ChatService{}
}

// CreateChatRequest 创建群聊请求
type CreateChatRequest struct {
	Name              string  `json:"name"`
	ParticipantIDs    []int64 `json:"participant_ids"`
	InitialBalanceUsd int64   `json:"initial_balance_usd"`
	InitialBalanceCny int64   `json:"initial_balance_cny"`
}

// CreateChat 创建群聊
// 创建者自动成为群主和第一个成员；待确认余额始终从 0 开始
func (s *ChatService) CreateChat(ctx context.Context, creatorID int64, req *CreateChatRequest) (*models.ChatSnapshot, *Error) {
	db := database.DB.WithContext(ctx)
	now := time.Now()

	// 成员去重，群主必在其中
	memberSet := map[int64]struct{}{creatorID: {}}
	members := []int64{creatorID}
	for _, id := range req.ParticipantIDs {
		if _, ok := memberSet[id]; ok || id <= 0 {
			continue
		}
		memberSet[id] = struct{}{}
		members = append(members, id)
	}

	chat := &models.Chat{
		Name:           req.Name,
		CreatorID:      creatorID,
		BalanceUsd:     req.InitialBalanceUsd,
		BalanceCny:     req.InitialBalanceCny,
		PendingUsd:     0,
		PendingCny:     0,
		CreateDatetime: &now,
		UpdateDatetime: &now,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(chat).Error; err != nil {
			return err
		}
		for _, userID := range members {
			p := &models.ChatParticipant{ChatID: chat.ID, UserID: userID, CreateDatetime: &now}
			if err := tx.Create(p).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		logger.Logger.Error("创建群聊失败", zap.Int64("creator_id", creatorID), zap.Error(err))
		return nil, ErrStorage
	}

	logger.Logger.Info("群聊创建成功",
		zap.Int64("chat_id", chat.ID),
		zap.Int64("creator_id", creatorID),
		zap.Int("participant_count", len(members)))

	return chat.Snapshot(members), nil
}

// ListMyChats 列出当前用户参与的群聊（按最近活跃排序）
func (s *ChatService) ListMyChats(ctx context.Context, userID int64) ([]*models.ChatSnapshot, *Error) {
	db := database.DB.WithContext(ctx)

	var chats []models.Chat
	err := db.
		Joins("JOIN chat_participant ON chat_participant.chat_id = chat_chat.id").
		Where("chat_participant.user_id = ?", userID).
		Order("chat_chat.update_datetime DESC").
		Find(&chats).Error
	if err != nil {
		logger.Logger.Error("查询用户群聊失败", zap.Int64("user_id", userID), zap.Error(err))
		return nil, ErrStorage
	}

	return s.snapshots(db, chats)
}

// DiscoverChats 列出全部可发现的群聊（包含已加入的）
func (s *ChatService) DiscoverChats(ctx context.Context) ([]*models.ChatSnapshot, *Error) {
	db := database.DB.WithContext(ctx)

	var chats []models.Chat
	if err := db.Order("update_datetime DESC").Find(&chats).Error; err != nil {
		logger.Logger.Error("查询可发现群聊失败", zap.Error(err))
		return nil, ErrStorage
	}

	return s.snapshots(db, chats)
}

// GetChat 获取单个群聊（仅成员可见）
func (s *ChatService) GetChat(ctx context.Context, chatID, userID int64) (*models.ChatSnapshot, *Error) {
	db := database.DB.WithContext(ctx)

	// 成员资格必须每次校验，快照内容可以走缓存
	chat, serr := requireMembership(db, chatID, userID)
	if serr != nil {
		return nil, serr
	}

	if snap, ok := cachedChatSnapshot(ctx, chatID); ok {
		return snap, nil
	}

	ids, err := participantIDs(db, chatID)
	if err != nil {
		return nil, ErrStorage
	}
	snap := chat.Snapshot(ids)
	storeChatSnapshot(ctx, snap)
	return snap, nil
}

// JoinChat 加入群聊（幂等：已是成员时直接返回当前状态）
func (s *ChatService) JoinChat(ctx context.Context, chatID, userID int64) (*models.ChatSnapshot, *Error) {
	db := database.DB.WithContext(ctx)

	var chat models.Chat
	if err := db.First(&chat, chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, ErrStorage
	}

	already, err := isParticipant(db, chatID, userID)
	if err != nil {
		return nil, ErrStorage
	}
	if !already {
		now := time.Now()
		p := &models.ChatParticipant{ChatID: chatID, UserID: userID, CreateDatetime: &now}
		if err := db.Create(p).Error; err != nil {
			logger.Logger.Error("加入群聊失败",
				zap.Int64("chat_id", chatID),
				zap.Int64("user_id", userID),
				zap.Error(err))
			return nil, ErrStorage
		}
		invalidateChatSnapshot(ctx, chatID)
		logger.Logger.Info("用户加入群聊",
			zap.Int64("chat_id", chatID),
			zap.Int64("user_id", userID))
	}

	ids, err := participantIDs(db, chatID)
	if err != nil {
		return nil, ErrStorage
	}
	return chat.Snapshot(ids), nil
}

// DeleteChat 删除群聊（仅群主），级联删除消息、语音文件和账本流水
func (s *ChatService) DeleteChat(ctx context.Context, chatID, userID int64) *Error {
	db := database.DB.WithContext(ctx)

	var chat models.Chat
	if err := db.First(&chat, chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrChatNotFound
		}
		return ErrStorage
	}
	if chat.CreatorID != userID {
		return ErrOnlyCreatorDelete
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		// 语音文件要先按消息引用找出来再删
		var voiceFileIDs []int64
		if err := tx.Model(&models.Message{}).
			Where("chat_id = ? AND voice_file_id IS NOT NULL", chatID).
			Pluck("voice_file_id", &voiceFileIDs).Error; err != nil {
			return err
		}
		if len(voiceFileIDs) > 0 {
			if err := tx.Delete(&models.VoiceFile{}, voiceFileIDs).Error; err != nil {
				return err
			}
		}
		if err := tx.Where("chat_id = ?", chatID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_id = ?", chatID).Delete(&models.BalanceTransaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("chat_id = ?", chatID).Delete(&models.ChatParticipant{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Chat{}, chatID).Error
	})
	if err != nil {
		logger.Logger.Error("删除群聊失败", zap.Int64("chat_id", chatID), zap.Error(err))
		return ErrStorage
	}

	invalidateChatSnapshot(ctx, chatID)
	logger.Logger.Info("群聊已删除",
		zap.Int64("chat_id", chatID),
		zap.Int64("creator_id", userID))
	return nil
}

// snapshots 批量组装快照，成员列表一次查出后按群聊分组
func (s *ChatService) snapshots(db *gorm.DB, chats []models.Chat) ([]*models.ChatSnapshot, *Error) {
	result := make([]*models.ChatSnapshot, 0, len(chats))
	if len(chats) == 0 {
		return result, nil
	}

	ids := make([]int64, 0, len(chats))
	for _, c := range chats {
		ids = append(ids, c.ID)
	}

	var parts []models.ChatParticipant
	if err := db.Where("chat_id IN ?", ids).Order("id ASC").Find(&parts).Error; err != nil {
		return nil, ErrStorage
	}
	byChat := make(map[int64][]int64, len(chats))
	for _, p := range parts {
		byChat[p.ChatID] = append(byChat[p.ChatID], p.UserID)
	}

	for i := range chats {
		c := chats[i]
		result = append(result, c.Snapshot(byChat[c.ID]))
	}
	return result, nil
}
