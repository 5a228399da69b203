package service

import (
	"context"
	"errors"
	"time"

	"github.com/jalh2/businesschat-backend/internal/database"
	"github.com/jalh2/businesschat-backend/internal/logger"
	"github.com/jalh2/businesschat-backend/internal/models"
	"github.com/jalh2/businesschat-backend/internal/mq"
	"github.com/jalh2/businesschat-backend/internal/notifier"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MessageService 消息服务，含付款消息状态机
type MessageService struct {
	notifier notifier.Notifier
}

// NewMessageService 创建消息服务
func NewMessageService(n notifier.Notifier) *MessageService {
	return &MessageService{notifier: n}
}

// PaymentPayload 付款相关事件和响应的载荷
type PaymentPayload struct {
	Message *models.PublicMessage `json:"message"`
	Chat    *models.ChatSnapshot  `json:"chat"`
}

// ListByChat 列出群聊消息（时间升序，公开视图）
func (s *MessageService) ListByChat(ctx context.Context, chatID, userID int64) ([]*models.PublicMessage, *Error) {
	db := database.DB.WithContext(ctx)

	if _, serr := requireMembership(db, chatID, userID); serr != nil {
		return nil, serr
	}

	var messages []models.Message
	err := db.
		Select("id", "chat_id", "sender_id", "type", "content",
			"image_mime_type", "receipt_mime_type",
			"voice_file_id", "voice_mime_type", "voice_duration",
			"amount_usd", "amount_cny", "is_creator_request",
			"status", "approved_by", "approved_at",
			"create_datetime", "update_datetime").
		Where("chat_id = ?", chatID).
		Order("create_datetime ASC, id ASC").
		Find(&messages).Error
	if err != nil {
		logger.Logger.Error("查询消息失败", zap.Int64("chat_id", chatID), zap.Error(err))
		return nil, ErrStorage
	}

	result := make([]*models.PublicMessage, 0, len(messages))
	for i := range messages {
		result = append(result, messages[i].Public())
	}
	return result, nil
}

// CreateText 发送文本消息
func (s *MessageService) CreateText(ctx context.Context, chatID, senderID int64, content string) (*models.PublicMessage, *Error) {
	if content == "" {
		return nil, ErrContentRequired
	}

	db := database.DB.WithContext(ctx)
	if _, serr := requireMembership(db, chatID, senderID); serr != nil {
		return nil, serr
	}

	now := time.Now()
	message := &models.Message{
		ChatID:         chatID,
		SenderID:       senderID,
		Type:           models.MessageTypeText,
		Content:        content,
		CreateDatetime: &now,
		UpdateDatetime: &now,
	}
	if err := db.Create(message).Error; err != nil {
		logger.Logger.Error("创建文本消息失败", zap.Int64("chat_id", chatID), zap.Error(err))
		return nil, ErrStorage
	}

	pub := message.Public()
	s.notifier.Emit(chatID, notifier.EventMessageNew, pub)
	return pub, nil
}

// CreateImage 发送图片消息
func (s *MessageService) CreateImage(ctx context.Context, chatID, senderID int64, data []byte, mimeType string) (*models.PublicMessage, *Error) {
	if len(data) == 0 || mimeType == "" {
		return nil, ErrImageRequired
	}

	db := database.DB.WithContext(ctx)
	if _, serr := requireMembership(db, chatID, senderID); serr != nil {
		return nil, serr
	}

	now := time.Now()
	message := &models.Message{
		ChatID:         chatID,
		SenderID:       senderID,
		Type:           models.MessageTypeImage,
		ImageData:      data,
		ImageMimeType:  mimeType,
		CreateDatetime: &now,
		UpdateDatetime: &now,
	}
	if err := db.Create(message).Error; err != nil {
		logger.Logger.Error("创建图片消息失败", zap.Int64("chat_id", chatID), zap.Error(err))
		return nil, ErrStorage
	}

	pub := message.Public()
	s.notifier.Emit(chatID, notifier.EventMessageNew, pub)
	return pub, nil
}

// CreateVoice 发送语音消息，音频单独落库，消息只存引用
func (s *MessageService) CreateVoice(ctx context.Context, chatID, senderID int64, data []byte, mimeType string, duration int) (*models.PublicMessage, *Error) {
	if len(data) == 0 || mimeType == "" {
		return nil, ErrVoiceRequired
	}

	db := database.DB.WithContext(ctx)
	if _, serr := requireMembership(db, chatID, senderID); serr != nil {
		return nil, serr
	}

	now := time.Now()
	message := &models.Message{
		ChatID:         chatID,
		SenderID:       senderID,
		Type:           models.MessageTypeVoice,
		VoiceMimeType:  mimeType,
		VoiceDuration:  duration,
		CreateDatetime: &now,
		UpdateDatetime: &now,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		voice := &models.VoiceFile{
			Data:           data,
			MimeType:       mimeType,
			Size:           int64(len(data)),
			CreateDatetime: &now,
		}
		if err := tx.Create(voice).Error; err != nil {
			return err
		}
		message.VoiceFileID = &voice.ID
		return tx.Create(message).Error
	})
	if err != nil {
		logger.Logger.Error("创建语音消息失败", zap.Int64("chat_id", chatID), zap.Error(err))
		return nil, ErrStorage
	}

	pub := message.Public()
	s.notifier.Emit(chatID, notifier.EventMessageNew, pub)
	return pub, nil
}

// CreatePaymentRequest 创建付款消息请求
type CreatePaymentRequest struct {
	AmountUsd       int64
	AmountCny       int64
	ReceiptData     []byte
	ReceiptMimeType string
}

// CreatePayment 创建付款消息
// 发送者是群主时标记为收款提醒（is_creator_request），仅作通知；
// 参与者发起且金额为正时计入待确认余额
func (s *MessageService) CreatePayment(ctx context.Context, chatID, senderID int64, req *CreatePaymentRequest) (*PaymentPayload, *Error) {
	if req.AmountUsd < 0 || req.AmountCny < 0 {
		return nil, ErrAmountNegative
	}
	if req.AmountUsd <= 0 && req.AmountCny <= 0 && len(req.ReceiptData) == 0 {
		return nil, ErrAmountOrReceipt
	}

	db := database.DB.WithContext(ctx)
	chat, serr := requireMembership(db, chatID, senderID)
	if serr != nil {
		return nil, serr
	}

	isCreatorRequest := senderID == chat.CreatorID
	movesPending := !isCreatorRequest && (req.AmountUsd > 0 || req.AmountCny > 0)

	now := time.Now()
	message := &models.Message{
		ChatID:           chatID,
		SenderID:         senderID,
		Type:             models.MessageTypePayment,
		AmountUsd:        req.AmountUsd,
		AmountCny:        req.AmountCny,
		ReceiptData:      req.ReceiptData,
		ReceiptMimeType:  req.ReceiptMimeType,
		IsCreatorRequest: isCreatorRequest,
		Status:           models.PaymentStatusPending,
		CreateDatetime:   &now,
		UpdateDatetime:   &now,
	}

	current := chat
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(message).Error; err != nil {
			return err
		}
		if !movesPending {
			return nil
		}
		locked, txErr := lockChat(tx, chatID)
		if txErr != nil {
			return txErr
		}
		if txErr = adjustPendingLocked(tx, locked, req.AmountUsd, req.AmountCny); txErr != nil {
			return txErr
		}
		current = locked
		return nil
	})
	if err != nil {
		logger.Logger.Error("创建付款消息失败",
			zap.Int64("chat_id", chatID),
			zap.Int64("sender_id", senderID),
			zap.Error(err))
		return nil, ErrStorage
	}

	snap := snapshotWithParticipants(db, current)

	if movesPending {
		invalidateChatSnapshot(ctx, chatID)
		s.notifier.Emit(chatID, notifier.EventBalanceUpdated, snap)
	}

	payload := &PaymentPayload{Message: message.Public(), Chat: snap}
	s.notifier.Emit(chatID, notifier.EventPaymentPending, payload)

	logger.Logger.Info("付款消息已创建",
		zap.Int64("chat_id", chatID),
		zap.Int64("message_id", message.ID),
		zap.Int64("amount_usd", req.AmountUsd),
		zap.Int64("amount_cny", req.AmountCny),
		zap.Bool("is_creator_request", isCreatorRequest))

	return payload, nil
}

// ConfirmPayment 群主确认付款（pending → confirmed，唯一合法迁移，且只发生一次）
// 前置校验按约定顺序执行，第一个失败即返回：
// 群聊存在 → 发起人是群主 → 消息存在且属于该群聊 → 是付款消息 →
// 状态为待确认 → 不是群主收款提醒。
// 生效部分在单个数据库事务内完成：锁定群聊行，待确认余额扣减（钳制到 0），
// 结算余额扣减，消息置为已确认，追加账本流水。两处更新要么同时生效要么都不生效
func (s *MessageService) ConfirmPayment(ctx context.Context, chatID, messageID, actorID int64) (*PaymentPayload, *Error) {
	db := database.DB.WithContext(ctx)

	var chat models.Chat
	if err := db.First(&chat, chatID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrChatNotFound
		}
		return nil, ErrStorage
	}
	if chat.CreatorID != actorID {
		return nil, ErrOnlyCreatorConfirm
	}

	var message models.Message
	if err := db.First(&message, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, ErrStorage
	}
	if message.ChatID != chatID {
		return nil, ErrPaymentNotFound
	}
	if message.Type != models.MessageTypePayment {
		return nil, ErrNotPaymentMessage
	}
	if message.Status != models.PaymentStatusPending {
		return nil, ErrPaymentConfirmed
	}
	if message.IsCreatorRequest {
		return nil, ErrCreatorAlertConfirm
	}

	now := time.Now()
	transaction := &models.BalanceTransaction{
		ChatID:         chatID,
		Type:           models.TransactionTypePayment,
		DeltaUsd:       -message.AmountUsd,
		DeltaCny:       -message.AmountCny,
		CreatedBy:      message.SenderID,
		MessageID:      &message.ID,
		CreateDatetime: &now,
	}

	var locked *models.Chat
	var conflict *Error
	err := db.Transaction(func(tx *gorm.DB) error {
		var txErr error
		locked, txErr = lockChat(tx, chatID)
		if txErr != nil {
			return txErr
		}

		// 持有行锁后重读消息状态：并发确认同一笔付款时只有先到的生效
		var fresh models.Message
		if txErr = tx.First(&fresh, messageID).Error; txErr != nil {
			return txErr
		}
		if fresh.Status != models.PaymentStatusPending {
			conflict = ErrPaymentConfirmed
			return gorm.ErrInvalidTransaction
		}

		if txErr = adjustPendingLocked(tx, locked, -message.AmountUsd, -message.AmountCny); txErr != nil {
			return txErr
		}
		if txErr = adjustBalanceLocked(tx, locked, -message.AmountUsd, -message.AmountCny); txErr != nil {
			return txErr
		}

		message.Status = models.PaymentStatusConfirmed
		message.ApprovedBy = &actorID
		message.ApprovedAt = &now
		message.UpdateDatetime = &now
		if txErr = tx.Model(&models.Message{}).Where("id = ?", messageID).Updates(map[string]interface{}{
			"status":          models.PaymentStatusConfirmed,
			"approved_by":     actorID,
			"approved_at":     now,
			"update_datetime": now,
		}).Error; txErr != nil {
			return txErr
		}

		return tx.Create(transaction).Error
	})
	if err != nil {
		if conflict != nil {
			return nil, conflict
		}
		logger.Logger.Error("确认付款失败",
			zap.Int64("chat_id", chatID),
			zap.Int64("message_id", messageID),
			zap.Error(err))
		return nil, ErrStorage
	}

	invalidateChatSnapshot(ctx, chatID)

	snap := snapshotWithParticipants(db, locked)

	payload := &PaymentPayload{Message: message.Public(), Chat: snap}
	s.notifier.Emit(chatID, notifier.EventPaymentConfirmed, payload)
	s.notifier.Emit(chatID, notifier.EventBalanceUpdated, snap)

	mq.GetGlobalMQClient().PublishLedgerEvent(ctx, &mq.LedgerEventMessage{
		EventType:     mq.LedgerEventPaymentConfirmed,
		ChatID:        chatID,
		TransactionID: transaction.ID,
		MessageID:     &message.ID,
		DeltaUsd:      -message.AmountUsd,
		DeltaCny:      -message.AmountCny,
		BalanceUsd:    locked.BalanceUsd,
		BalanceCny:    locked.BalanceCny,
		PendingUsd:    locked.PendingUsd,
		PendingCny:    locked.PendingCny,
		CreatedBy:     message.SenderID,
		Timestamp:     now.Unix(),
	})

	logger.Logger.Info("付款确认成功",
		zap.Int64("chat_id", chatID),
		zap.Int64("message_id", messageID),
		zap.Int64("amount_usd", message.AmountUsd),
		zap.Int64("amount_cny", message.AmountCny))

	return payload, nil
}

// GetImage 下载图片消息的原始数据（懒加载，仅成员可见）
func (s *MessageService) GetImage(ctx context.Context, messageID, userID int64) ([]byte, string, *Error) {
	db := database.DB.WithContext(ctx)

	var message models.Message
	if err := db.First(&message, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrMessageNotFound
		}
		return nil, "", ErrStorage
	}
	if _, serr := requireMembership(db, message.ChatID, userID); serr != nil {
		return nil, "", serr
	}
	if message.Type != models.MessageTypeImage || len(message.ImageData) == 0 {
		return nil, "", ErrImageNotAvailable
	}
	return message.ImageData, message.ImageMimeType, nil
}

// GetReceipt 下载付款凭证的原始数据（懒加载，仅成员可见）
func (s *MessageService) GetReceipt(ctx context.Context, messageID, userID int64) ([]byte, string, *Error) {
	db := database.DB.WithContext(ctx)

	var message models.Message
	if err := db.First(&message, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrMessageNotFound
		}
		return nil, "", ErrStorage
	}
	if _, serr := requireMembership(db, message.ChatID, userID); serr != nil {
		return nil, "", serr
	}
	if message.Type != models.MessageTypePayment || len(message.ReceiptData) == 0 {
		return nil, "", ErrReceiptNotAvailable
	}
	return message.ReceiptData, message.ReceiptMimeType, nil
}

// GetVoice 下载语音消息的音频数据（懒加载，仅成员可见）
func (s *MessageService) GetVoice(ctx context.Context, messageID, userID int64) ([]byte, string, *Error) {
	db := database.DB.WithContext(ctx)

	var message models.Message
	if err := db.First(&message, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrMessageNotFound
		}
		return nil, "", ErrStorage
	}
	if _, serr := requireMembership(db, message.ChatID, userID); serr != nil {
		return nil, "", serr
	}
	if message.Type != models.MessageTypeVoice || message.VoiceFileID == nil {
		return nil, "", ErrVoiceNotAvailable
	}

	var voice models.VoiceFile
	if err := db.First(&voice, *message.VoiceFileID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrVoiceNotAvailable
		}
		return nil, "", ErrStorage
	}
	return voice.Data, voice.MimeType, nil
}
