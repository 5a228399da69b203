package service

import (
	"context"
	"sync"
	"testing"

	"github.com/jalh2/businesschat-backend/internal/database"
	"github.com/jalh2/businesschat-backend/internal/models"
	"github.com/jalh2/businesschat-backend/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaymentLifecycle(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, "creator")
	member := createTestUser(t, "member")
	chat := createTestChat(t, creator.ID, member.ID)

	svc := NewMessageService(notifier.NopNotifier{})

	// 参与者发起付款：计入待确认余额
	payload, serr := svc.CreatePayment(ctx, chat.ID, member.ID, &CreatePaymentRequest{
		AmountUsd: 5000,
		AmountCny: 36000,
	})
	require.Nil(t, serr)
	assert.Equal(t, models.PaymentStatusPending, payload.Message.Status)
	assert.False(t, payload.Message.IsCreatorRequest)
	assert.Equal(t, int64(5000), payload.Chat.PendingUsd)
	assert.Equal(t, int64(36000), payload.Chat.PendingCny)
	assert.Equal(t, int64(0), payload.Chat.BalanceUsd)

	// 群主确认：待确认清零，结算余额扣减
	confirmed, serr := svc.ConfirmPayment(ctx, chat.ID, payload.Message.ID, creator.ID)
	require.Nil(t, serr)
	assert.Equal(t, models.PaymentStatusConfirmed, confirmed.Message.Status)
	require.NotNil(t, confirmed.Message.ApprovedBy)
	assert.Equal(t, creator.ID, *confirmed.Message.ApprovedBy)
	assert.NotNil(t, confirmed.Message.ApprovedAt)
	assert.Equal(t, int64(0), confirmed.Chat.PendingUsd)
	assert.Equal(t, int64(0), confirmed.Chat.PendingCny)
	assert.Equal(t, int64(-5000), confirmed.Chat.BalanceUsd)
	assert.Equal(t, int64(-36000), confirmed.Chat.BalanceCny)

	// 流水归属原始付款人，增量为负，并关联消息
	var txs []models.BalanceTransaction
	require.NoError(t, database.DB.Where("chat_id = ?", chat.ID).Find(&txs).Error)
	require.Len(t, txs, 1)
	assert.Equal(t, models.TransactionTypePayment, txs[0].Type)
	assert.Equal(t, int64(-5000), txs[0].DeltaUsd)
	assert.Equal(t, int64(-36000), txs[0].DeltaCny)
	assert.Equal(t, member.ID, txs[0].CreatedBy)
	require.NotNil(t, txs[0].MessageID)
	assert.Equal(t, payload.Message.ID, *txs[0].MessageID)
}

func TestCreatorAlertDoesNotMovePending(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, "creator")
	member := createTestUser(t, "member")
	chat := createTestChat(t, creator.ID, member.ID)

	svc := NewMessageService(notifier.NopNotifier{})

	// 群主发起的付款消息是收款提醒
	payload, serr := svc.CreatePayment(ctx, chat.ID, creator.ID, &CreatePaymentRequest{AmountUsd: 8000})
	require.Nil(t, serr)
	assert.True(t, payload.Message.IsCreatorRequest)
	assert.Equal(t, int64(0), payload.Chat.PendingUsd)

	// 收款提醒不可确认
	_, serr = svc.ConfirmPayment(ctx, chat.ID, payload.Message.ID, creator.ID)
	assert.Equal(t, ErrCreatorAlertConfirm, serr)

	chatRow := loadChat(t, chat.ID)
	assert.Equal(t, int64(0), chatRow.PendingUsd)
	assert.Equal(t, int64(0), chatRow.BalanceUsd)
}

func TestConfirmPaymentPreconditionOrder(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, "creator")
	member := createTestUser(t, "member")
	chat := createTestChat(t, creator.ID, member.ID)
	other := createTestChat(t, creator.ID, member.ID)

	svc := NewMessageService(notifier.NopNotifier{})

	payment, serr := svc.CreatePayment(ctx, chat.ID, member.ID, &CreatePaymentRequest{AmountUsd: 100})
	require.Nil(t, serr)
	text, serr := svc.CreateText(ctx, chat.ID, member.ID, "你好")
	require.Nil(t, serr)

	// 群聊不存在
	_, err := svc.ConfirmPayment(ctx, 99999, payment.Message.ID, creator.ID)
	assert.Equal(t, ErrChatNotFound, err)

	// 非群主
	_, err = svc.ConfirmPayment(ctx, chat.ID, payment.Message.ID, member.ID)
	assert.Equal(t, ErrOnlyCreatorConfirm, err)

	// 消息不存在
	_, err = svc.ConfirmPayment(ctx, chat.ID, 99999, creator.ID)
	assert.Equal(t, ErrPaymentNotFound, err)

	// 消息属于其他群聊
	_, err = svc.ConfirmPayment(ctx, other.ID, payment.Message.ID, creator.ID)
	assert.Equal(t, ErrPaymentNotFound, err)

	// 不是付款消息
	_, err = svc.ConfirmPayment(ctx, chat.ID, text.ID, creator.ID)
	assert.Equal(t, ErrNotPaymentMessage, err)

	// 重复确认
	_, err = svc.ConfirmPayment(ctx, chat.ID, payment.Message.ID, creator.ID)
	require.Nil(t, err)
	_, err = svc.ConfirmPayment(ctx, chat.ID, payment.Message.ID, creator.ID)
	assert.Equal(t, ErrPaymentConfirmed, err)

	// 失败路径不产生副作用：只有成功的那次留下流水
	var count int64
	require.NoError(t, database.DB.Model(&models.BalanceTransaction{}).Where("chat_id = ?", chat.ID).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

// 两笔 $25 付款并发确认：行锁串行化后待确认余额恰好归零，
// 两笔都成功且各留一条流水，没有丢失更新
func TestConcurrentConfirmationsSerialize(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, "creator")
	member := createTestUser(t, "member")
	chat := createTestChat(t, creator.ID, member.ID)

	svc := NewMessageService(notifier.NopNotifier{})

	first, serr := svc.CreatePayment(ctx, chat.ID, member.ID, &CreatePaymentRequest{AmountUsd: 2500})
	require.Nil(t, serr)
	second, serr := svc.CreatePayment(ctx, chat.ID, member.ID, &CreatePaymentRequest{AmountUsd: 2500})
	require.Nil(t, serr)
	require.Equal(t, int64(5000), loadChat(t, chat.ID).PendingUsd)

	var wg sync.WaitGroup
	errs := make(chan *Error, 2)
	for _, messageID := range []int64{first.Message.ID, second.Message.ID} {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			if _, cerr := svc.ConfirmPayment(ctx, chat.ID, id, creator.ID); cerr != nil {
				errs <- cerr
			}
		}(messageID)
	}
	wg.Wait()
	close(errs)
	for cerr := range errs {
		t.Fatalf("并发确认失败: %v", cerr)
	}

	chatRow := loadChat(t, chat.ID)
	assert.Equal(t, int64(0), chatRow.PendingUsd)
	assert.Equal(t, int64(-5000), chatRow.BalanceUsd)

	var count int64
	require.NoError(t, database.DB.Model(&models.BalanceTransaction{}).Where("chat_id = ?", chat.ID).Count(&count).Error)
	assert.Equal(t, int64(2), count)
}

func TestPendingClampedAtZero(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, "creator")
	member := createTestUser(t, "member")
	chat := createTestChat(t, creator.ID, member.ID)

	svc := NewMessageService(notifier.NopNotifier{})

	payment, serr := svc.CreatePayment(ctx, chat.ID, member.ID, &CreatePaymentRequest{AmountUsd: 3000})
	require.Nil(t, serr)

	// 人为压低待确认余额，模拟历史累计值小于确认金额的情况
	require.NoError(t, database.DB.Model(&models.Chat{}).Where("id = ?", chat.ID).
		Update("pending_usd", 2000).Error)

	confirmed, serr := svc.ConfirmPayment(ctx, chat.ID, payment.Message.ID, creator.ID)
	require.Nil(t, serr)

	// 待确认余额钳制到 0，结算余额按完整金额扣减
	assert.Equal(t, int64(0), confirmed.Chat.PendingUsd)
	assert.Equal(t, int64(-3000), confirmed.Chat.BalanceUsd)
}

// 确认事务提交之后的成员查询失败不能把已生效的确认报告成错误
func TestConfirmPaymentSurvivesParticipantReadFailure(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, "creator")
	member := createTestUser(t, "member")
	chat := createTestChat(t, creator.ID, member.ID)

	svc := NewMessageService(notifier.NopNotifier{})

	payment, serr := svc.CreatePayment(ctx, chat.ID, member.ID, &CreatePaymentRequest{AmountUsd: 1200})
	require.Nil(t, serr)

	// 模拟事务提交后快照组装阶段的读故障
	require.NoError(t, database.DB.Migrator().DropTable(&models.ChatParticipant{}))

	confirmed, serr := svc.ConfirmPayment(ctx, chat.ID, payment.Message.ID, creator.ID)
	require.Nil(t, serr)
	assert.Equal(t, models.PaymentStatusConfirmed, confirmed.Message.Status)
	assert.Empty(t, confirmed.Chat.Participants)
	assert.Equal(t, int64(-1200), confirmed.Chat.BalanceUsd)

	// 落库状态同样已生效
	var fresh models.Message
	require.NoError(t, database.DB.First(&fresh, payment.Message.ID).Error)
	assert.Equal(t, models.PaymentStatusConfirmed, fresh.Status)
}

func TestCreatePaymentValidation(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, "creator")
	member := createTestUser(t, "member")
	chat := createTestChat(t, creator.ID, member.ID)

	svc := NewMessageService(notifier.NopNotifier{})

	_, serr := svc.CreatePayment(ctx, chat.ID, member.ID, &CreatePaymentRequest{AmountUsd: -1})
	assert.Equal(t, ErrAmountNegative, serr)

	_, serr = svc.CreatePayment(ctx, chat.ID, member.ID, &CreatePaymentRequest{})
	assert.Equal(t, ErrAmountOrReceipt, serr)

	// 仅凭证、无金额的付款消息合法，且不影响待确认余额
	payload, serr := svc.CreatePayment(ctx, chat.ID, member.ID, &CreatePaymentRequest{
		ReceiptData:     []byte{0xff, 0xd8, 0xff},
		ReceiptMimeType: "image/jpeg",
	})
	require.Nil(t, serr)
	assert.True(t, payload.Message.HasReceipt)
	assert.Equal(t, int64(0), payload.Chat.PendingUsd)
}

func TestMessagesAndBlobs(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, "creator")
	member := createTestUser(t, "member")
	outsider := createTestUser(t, "outsider")
	chat := createTestChat(t, creator.ID, member.ID)

	svc := NewMessageService(notifier.NopNotifier{})

	_, serr := svc.CreateText(ctx, chat.ID, creator.ID, "")
	assert.Equal(t, ErrContentRequired, serr)

	text, serr := svc.CreateText(ctx, chat.ID, creator.ID, "第一条")
	require.Nil(t, serr)
	assert.Equal(t, models.MessageTypeText, text.Type)

	imageBytes := []byte{0x89, 0x50, 0x4e, 0x47}
	image, serr := svc.CreateImage(ctx, chat.ID, member.ID, imageBytes, "image/png")
	require.Nil(t, serr)
	assert.True(t, image.HasImage)

	voiceBytes := []byte{0x4f, 0x67, 0x67, 0x53}
	voice, serr := svc.CreateVoice(ctx, chat.ID, member.ID, voiceBytes, "audio/ogg", 7)
	require.Nil(t, serr)
	assert.True(t, voice.HasVoice)
	assert.Equal(t, 7, voice.VoiceDuration)

	// 列表按创建时间升序
	messages, serr := svc.ListByChat(ctx, chat.ID, member.ID)
	require.Nil(t, serr)
	require.Len(t, messages, 3)
	assert.Equal(t, text.ID, messages[0].ID)
	assert.Equal(t, image.ID, messages[1].ID)
	assert.Equal(t, voice.ID, messages[2].ID)

	// 非成员不可见
	_, serr = svc.ListByChat(ctx, chat.ID, outsider.ID)
	assert.Equal(t, ErrNotParticipant, serr)

	// 二进制下载
	data, mimeType, serr := svc.GetImage(ctx, image.ID, member.ID)
	require.Nil(t, serr)
	assert.Equal(t, imageBytes, data)
	assert.Equal(t, "image/png", mimeType)

	data, mimeType, serr = svc.GetVoice(ctx, voice.ID, creator.ID)
	require.Nil(t, serr)
	assert.Equal(t, voiceBytes, data)
	assert.Equal(t, "audio/ogg", mimeType)

	_, _, serr = svc.GetImage(ctx, image.ID, outsider.ID)
	assert.Equal(t, ErrNotParticipant, serr)

	_, _, serr = svc.GetImage(ctx, text.ID, member.ID)
	assert.Equal(t, ErrImageNotAvailable, serr)

	_, _, serr = svc.GetReceipt(ctx, 99999, member.ID)
	assert.Equal(t, ErrMessageNotFound, serr)
}
