package service

import (
	"errors"
	"time"

	"github.com/jalh2/businesschat-backend/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// 账本状态的底层原语。所有余额变更都必须走这里：
// 在一个事务里先对群聊行加排他锁，再计算并写回新值，
// 保证并发的确认/调整操作串行化，不会出现丢失更新

// lockChat 在事务内锁定群聊行
// sqlite 不支持 FOR UPDATE，但其单写者模型下事务本身已串行
func lockChat(tx *gorm.DB, chatID int64) (*models.Chat, error) {
	q := tx
	if tx.Dialector.Name() == "mysql" {
		q = tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var chat models.Chat
	if err := q.First(&chat, chatID).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

// adjustBalanceLocked 调整结算余额
// 增量有符号且不限幅度，余额可以为负（表示任一方向的欠款）。
// 调用方必须已经通过 lockChat 持有该群聊的行锁
func adjustBalanceLocked(tx *gorm.DB, chat *models.Chat, deltaUsd, deltaCny int64) error {
	now := time.Now()
	chat.BalanceUsd += deltaUsd
	chat.BalanceCny += deltaCny
	chat.UpdateDatetime = &now
	return tx.Model(&models.Chat{}).Where("id = ?", chat.ID).Updates(map[string]interface{}{
		"balance_usd":     chat.BalanceUsd,
		"balance_cny":     chat.BalanceCny,
		"update_datetime": now,
	}).Error
}

// adjustPendingLocked 调整待确认余额
// 调整后每个币种的待确认余额都钳制到不小于 0：确认金额超过历史累计待确认
// 金额时按 0 处理，不报错。调用方必须已经通过 lockChat 持有该群聊的行锁
func adjustPendingLocked(tx *gorm.DB, chat *models.Chat, deltaUsd, deltaCny int64) error {
	now := time.Now()
	chat.PendingUsd += deltaUsd
	chat.PendingCny += deltaCny
	if chat.PendingUsd < 0 {
		chat.PendingUsd = 0
	}
	if chat.PendingCny < 0 {
		chat.PendingCny = 0
	}
	chat.UpdateDatetime = &now
	return tx.Model(&models.Chat{}).Where("id = ?", chat.ID).Updates(map[string]interface{}{
		"pending_usd":     chat.PendingUsd,
		"pending_cny":     chat.PendingCny,
		"update_datetime": now,
	}).Error
}

// participantIDs 查询群聊全部成员 ID
func participantIDs(db *gorm.DB, chatID int64) ([]int64, error) {
	var ids []int64
	err := db.Model(&models.ChatParticipant{}).
		Where("chat_id = ?", chatID).
		Order("id ASC").
		Pluck("user_id", &ids).Error
	return ids, err
}

// isParticipant 检查用户是否为群聊成员
func isParticipant(db *gorm.DB, chatID, userID int64) (bool, error) {
	var count int64
	err := db.Model(&models.ChatParticipant{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Count(&count).Error
	return count > 0, err
}

// requireMembership 加载群聊并校验成员资格
// 群聊不存在返回 404，非成员返回 403，与校验顺序约定一致
func requireMembership(db *gorm.DB, chatID, userID int64) (*models.Chat, *Error) {
	var chat models.Chat
	if err := db.First(&chat, chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, ErrStorage
	}
	ok, err := isParticipant(db, chatID, userID)
	if err != nil {
		return nil, ErrStorage
	}
	if !ok {
		return nil, ErrNotParticipant
	}
	return &chat, nil
}
