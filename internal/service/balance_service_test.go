package service

import (
	"context"
	"testing"

	"github.com/jalh2/businesschat-backend/internal/models"
	"github.com/jalh2/businesschat-backend/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManualAdjustmentAddAndSubtract(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, "creator")
	member := createTestUser(t, "member")
	chat := createTestChat(t, creator.ID, member.ID)

	svc := NewBalanceService(notifier.NopNotifier{})

	result, serr := svc.CreateManualAdjustment(ctx, chat.ID, creator.ID, &ManualAdjustmentRequest{
		AmountUsd: 10000,
		AmountCny: 70000,
		Operation: "add",
		Note:      "初始入账",
	})
	require.Nil(t, serr)
	assert.Equal(t, int64(10000), result.Chat.BalanceUsd)
	assert.Equal(t, int64(70000), result.Chat.BalanceCny)
	assert.Equal(t, int64(10000), result.Transaction.DeltaUsd)
	assert.Equal(t, models.TransactionTypeManual, result.Transaction.Type)
	assert.Equal(t, creator.ID, result.Transaction.CreatedBy)

	result, serr = svc.CreateManualAdjustment(ctx, chat.ID, creator.ID, &ManualAdjustmentRequest{
		AmountUsd: 4000,
		Operation: "subtract",
	})
	require.Nil(t, serr)
	assert.Equal(t, int64(6000), result.Chat.BalanceUsd)
	assert.Equal(t, int64(70000), result.Chat.BalanceCny)
	assert.Equal(t, int64(-4000), result.Transaction.DeltaUsd)

	// 待确认余额不受手动调整影响
	assert.Equal(t, int64(0), result.Chat.PendingUsd)
	assert.Equal(t, int64(0), result.Chat.PendingCny)

	txs, serr := svc.ListTransactions(ctx, chat.ID, member.ID)
	require.Nil(t, serr)
	require.Len(t, txs, 2)
}

func TestManualAdjustmentBalanceCanGoNegative(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, "creator")
	chat := createTestChat(t, creator.ID)

	svc := NewBalanceService(notifier.NopNotifier{})

	result, serr := svc.CreateManualAdjustment(ctx, chat.ID, creator.ID, &ManualAdjustmentRequest{
		AmountCny: 500,
		Operation: "subtract",
	})
	require.Nil(t, serr)
	assert.Equal(t, int64(-500), result.Chat.BalanceCny)
}

func TestManualAdjustmentValidation(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, "creator")
	chat := createTestChat(t, creator.ID)

	svc := NewBalanceService(notifier.NopNotifier{})

	_, serr := svc.CreateManualAdjustment(ctx, chat.ID, creator.ID, &ManualAdjustmentRequest{AmountUsd: -1})
	assert.Equal(t, ErrAmountNegative, serr)

	_, serr = svc.CreateManualAdjustment(ctx, chat.ID, creator.ID, &ManualAdjustmentRequest{})
	assert.Equal(t, ErrAmountRequired, serr)

	// 校验失败不产生流水
	txs, lerr := svc.ListTransactions(ctx, chat.ID, creator.ID)
	require.Nil(t, lerr)
	assert.Empty(t, txs)
}

func TestManualAdjustmentPermissions(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, "creator")
	member := createTestUser(t, "member")
	outsider := createTestUser(t, "outsider")
	chat := createTestChat(t, creator.ID, member.ID)

	svc := NewBalanceService(notifier.NopNotifier{})

	_, serr := svc.CreateManualAdjustment(ctx, chat.ID, member.ID, &ManualAdjustmentRequest{AmountUsd: 100})
	assert.Equal(t, ErrOnlyCreatorAdjust, serr)

	_, serr = svc.CreateManualAdjustment(ctx, chat.ID, outsider.ID, &ManualAdjustmentRequest{AmountUsd: 100})
	assert.Equal(t, ErrNotParticipant, serr)

	_, serr = svc.CreateManualAdjustment(ctx, 99999, creator.ID, &ManualAdjustmentRequest{AmountUsd: 100})
	assert.Equal(t, ErrChatNotFound, serr)

	_, serr = svc.ListTransactions(ctx, chat.ID, outsider.ID)
	assert.Equal(t, ErrNotParticipant, serr)
}

// 对账：结算余额 = 初始余额 + 所有流水增量之和
func TestLedgerReconciliation(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, "creator")
	member := createTestUser(t, "member")

	chatSvc := NewChatService()
	snap, serr := chatSvc.CreateChat(ctx, creator.ID, &CreateChatRequest{
		Name:              "对账群",
		ParticipantIDs:    []int64{member.ID},
		InitialBalanceUsd: 20000,
	})
	require.Nil(t, serr)

	balanceSvc := NewBalanceService(notifier.NopNotifier{})
	messageSvc := NewMessageService(notifier.NopNotifier{})

	_, serr = balanceSvc.CreateManualAdjustment(ctx, snap.ID, creator.ID, &ManualAdjustmentRequest{AmountUsd: 5000, Operation: "add"})
	require.Nil(t, serr)
	_, serr = balanceSvc.CreateManualAdjustment(ctx, snap.ID, creator.ID, &ManualAdjustmentRequest{AmountUsd: 1500, Operation: "subtract"})
	require.Nil(t, serr)

	payment, serr := messageSvc.CreatePayment(ctx, snap.ID, member.ID, &CreatePaymentRequest{AmountUsd: 3000})
	require.Nil(t, serr)
	_, serr = messageSvc.ConfirmPayment(ctx, snap.ID, payment.Message.ID, creator.ID)
	require.Nil(t, serr)

	txs, serr := balanceSvc.ListTransactions(ctx, snap.ID, creator.ID)
	require.Nil(t, serr)

	var sum int64
	for _, tx := range txs {
		sum += tx.DeltaUsd
	}
	chat := loadChat(t, snap.ID)
	assert.Equal(t, int64(20000)+sum, chat.BalanceUsd)
	assert.Equal(t, int64(20000+5000-1500-3000), chat.BalanceUsd)
}
