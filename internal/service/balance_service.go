package service

import (
	"context"
	"strings"
	"time"

	"github.com/jalh2/businesschat-backend/internal/database"
	"github.com/jalh2/businesschat-backend/internal/logger"
	"github.com/jalh2/businesschat-backend/internal/models"
	"github.com/jalh2/businesschat-backend/internal/mq"
	"github.com/jalh2/businesschat-backend/internal/notifier"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// 手动调整操作常量
const (
	OperationAdd      = "add"
	OperationSubtract = "subtract"
)

// BalanceService 余额变更服务
type BalanceService struct {
	notifier notifier.Notifier
}

// NewBalanceService 创建余额变更服务
func NewBalanceService(n notifier.Notifier) *BalanceService {
	return &BalanceService{notifier: n}
}

// ManualAdjustmentRequest 手动调整请求
type ManualAdjustmentRequest struct {
	AmountUsd int64  `json:"amount_usd"`
	AmountCny int64  `json:"amount_cny"`
	Operation string `json:"operation"`
	Note      string `json:"note"`
}

// AdjustmentResult 手动调整结果
type AdjustmentResult struct {
	Chat        *models.ChatSnapshot       `json:"chat"`
	Transaction *models.BalanceTransaction `json:"transaction"`
}

// CreateManualAdjustment 群主手动调整结算余额
// 校验顺序：金额合法 → 群聊存在 → 发起人是成员 → 发起人是群主。
// 任何校验失败都不会产生副作用
func (s *BalanceService) CreateManualAdjustment(ctx context.Context, chatID, actorID int64, req *ManualAdjustmentRequest) (*AdjustmentResult, *Error) {
	if req.AmountUsd < 0 || req.AmountCny < 0 {
		return nil, ErrAmountNegative
	}
	if req.AmountUsd <= 0 && req.AmountCny <= 0 {
		return nil, ErrAmountRequired
	}

	db := database.DB.WithContext(ctx)

	chat, serr := requireMembership(db, chatID, actorID)
	if serr != nil {
		return nil, serr
	}
	if chat.CreatorID != actorID {
		return nil, ErrOnlyCreatorAdjust
	}

	// 非 subtract 一律按 add 处理
	op := OperationAdd
	if strings.ToLower(req.Operation) == OperationSubtract {
		op = OperationSubtract
	}
	deltaUsd, deltaCny := req.AmountUsd, req.AmountCny
	if op == OperationSubtract {
		deltaUsd, deltaCny = -deltaUsd, -deltaCny
	}

	now := time.Now()
	transaction := &models.BalanceTransaction{
		ChatID:         chatID,
		Type:           models.TransactionTypeManual,
		DeltaUsd:       deltaUsd,
		DeltaCny:       deltaCny,
		Note:           req.Note,
		CreatedBy:      actorID,
		CreateDatetime: &now,
	}

	var locked *models.Chat
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		locked, txErr = lockChat(tx, chatID)
		if txErr != nil {
			return txErr
		}
		if txErr = adjustBalanceLocked(tx, locked, deltaUsd, deltaCny); txErr != nil {
			return txErr
		}
		return tx.Create(transaction).Error
	})
	if err != nil {
		logger.Logger.Error("手动调整余额失败",
			zap.Int64("chat_id", chatID),
			zap.Int64("actor_id", actorID),
			zap.Error(err))
		return nil, ErrStorage
	}

	invalidateChatSnapshot(ctx, chatID)

	snap := snapshotWithParticipants(db, locked)
	s.notifier.Emit(chatID, notifier.EventBalanceUpdated, snap)

	mq.GetGlobalMQClient().PublishLedgerEvent(ctx, &mq.LedgerEventMessage{
		EventType:     mq.LedgerEventManualAdjustment,
		ChatID:        chatID,
		TransactionID: transaction.ID,
		DeltaUsd:      deltaUsd,
		DeltaCny:      deltaCny,
		BalanceUsd:    locked.BalanceUsd,
		BalanceCny:    locked.BalanceCny,
		PendingUsd:    locked.PendingUsd,
		PendingCny:    locked.PendingCny,
		CreatedBy:     actorID,
		Timestamp:     now.Unix(),
	})

	logger.Logger.Info("手动调整余额成功",
		zap.Int64("chat_id", chatID),
		zap.Int64("actor_id", actorID),
		zap.String("operation", op),
		zap.Int64("delta_usd", deltaUsd),
		zap.Int64("delta_cny", deltaCny))

	return &AdjustmentResult{Chat: snap, Transaction: transaction}, nil
}

// ListTransactions 列出群聊账本流水（时间倒序，仅成员可见）
func (s *BalanceService) ListTransactions(ctx context.Context, chatID, userID int64) ([]models.BalanceTransaction, *Error) {
	db := database.DB.WithContext(ctx)

	if _, serr := requireMembership(db, chatID, userID); serr != nil {
		return nil, serr
	}

	var txs []models.BalanceTransaction
	err := db.
		Where("chat_id = ?", chatID).
		Order("create_datetime DESC, id DESC").
		Find(&txs).Error
	if err != nil {
		logger.Logger.Error("查询账本流水失败", zap.Int64("chat_id", chatID), zap.Error(err))
		return nil, ErrStorage
	}
	return txs, nil
}

// snapshotWithParticipants 组装带成员列表的群聊快照
// 在余额变更提交之后调用：成员查询失败只记日志并返回不含成员的快照，
// 不能让已提交的变更在调用方看起来像是失败了
func snapshotWithParticipants(db *gorm.DB, chat *models.Chat) *models.ChatSnapshot {
	ids, err := participantIDs(db, chat.ID)
	if err != nil {
		logger.Logger.Warn("查询群聊成员失败，快照不含成员列表",
			zap.Int64("chat_id", chat.ID),
			zap.Error(err))
		ids = nil
	}
	return chat.Snapshot(ids)
}
