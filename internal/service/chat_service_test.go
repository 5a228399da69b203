package service

import (
	"context"
	"testing"

	"github.com/jalh2/businesschat-backend/internal/database"
	"github.com/jalh2/businesschat-backend/internal/models"
	"github.com/jalh2/businesschat-backend/internal/notifier"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateChat(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, "creator")
	member := createTestUser(t, "member")

	svc := NewChatService()

	// 成员列表含群主和重复 ID 时去重
	snap, serr := svc.CreateChat(ctx, creator.ID, &CreateChatRequest{
		Name:              "新群",
		ParticipantIDs:    []int64{creator.ID, member.ID, member.ID},
		InitialBalanceUsd: 12345,
	})
	require.Nil(t, serr)
	assert.Equal(t, creator.ID, snap.Creator)
	assert.ElementsMatch(t, []int64{creator.ID, member.ID}, snap.Participants)
	assert.Equal(t, int64(12345), snap.BalanceUsd)
	// 待确认余额始终从 0 开始
	assert.Equal(t, int64(0), snap.PendingUsd)
	assert.Equal(t, int64(0), snap.PendingCny)
}

func TestListAndDiscoverChats(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, "creator")
	member := createTestUser(t, "member")
	outsider := createTestUser(t, "outsider")

	svc := NewChatService()

	first := createTestChat(t, creator.ID, member.ID)
	createTestChat(t, creator.ID)

	mine, serr := svc.ListMyChats(ctx, member.ID)
	require.Nil(t, serr)
	require.Len(t, mine, 1)
	assert.Equal(t, first.ID, mine[0].ID)

	none, serr := svc.ListMyChats(ctx, outsider.ID)
	require.Nil(t, serr)
	assert.Empty(t, none)

	all, serr := svc.DiscoverChats(ctx)
	require.Nil(t, serr)
	assert.Len(t, all, 2)
}

func TestGetChatMembership(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, "creator")
	outsider := createTestUser(t, "outsider")
	chat := createTestChat(t, creator.ID)

	svc := NewChatService()

	snap, serr := svc.GetChat(ctx, chat.ID, creator.ID)
	require.Nil(t, serr)
	assert.Equal(t, chat.ID, snap.ID)

	_, serr = svc.GetChat(ctx, chat.ID, outsider.ID)
	assert.Equal(t, ErrNotParticipant, serr)

	_, serr = svc.GetChat(ctx, 99999, creator.ID)
	assert.Equal(t, ErrChatNotFound, serr)
}

func TestJoinChatIdempotent(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, "creator")
	joiner := createTestUser(t, "joiner")
	chat := createTestChat(t, creator.ID)

	svc := NewChatService()

	snap, serr := svc.JoinChat(ctx, chat.ID, joiner.ID)
	require.Nil(t, serr)
	assert.Contains(t, snap.Participants, joiner.ID)

	// 重复加入不报错也不产生重复成员
	snap, serr = svc.JoinChat(ctx, chat.ID, joiner.ID)
	require.Nil(t, serr)
	assert.Len(t, snap.Participants, 2)

	_, serr = svc.JoinChat(ctx, 99999, joiner.ID)
	assert.Equal(t, ErrChatNotFound, serr)
}

func TestDeleteChatCascade(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	creator := createTestUser(t, "creator")
	member := createTestUser(t, "member")
	chat := createTestChat(t, creator.ID, member.ID)

	chatSvc := NewChatService()
	messageSvc := NewMessageService(notifier.NopNotifier{})
	balanceSvc := NewBalanceService(notifier.NopNotifier{})

	_, serr := messageSvc.CreateText(ctx, chat.ID, member.ID, "会被删除")
	require.Nil(t, serr)
	_, serr = messageSvc.CreateVoice(ctx, chat.ID, member.ID, []byte{1, 2, 3}, "audio/webm", 2)
	require.Nil(t, serr)
	_, serr = balanceSvc.CreateManualAdjustment(ctx, chat.ID, creator.ID, &ManualAdjustmentRequest{AmountUsd: 100})
	require.Nil(t, serr)

	// 非群主不可删除
	err := chatSvc.DeleteChat(ctx, chat.ID, member.ID)
	assert.Equal(t, ErrOnlyCreatorDelete, err)

	require.Nil(t, chatSvc.DeleteChat(ctx, chat.ID, creator.ID))

	var count int64
	require.NoError(t, database.DB.Model(&models.Message{}).Where("chat_id = ?", chat.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	require.NoError(t, database.DB.Model(&models.BalanceTransaction{}).Where("chat_id = ?", chat.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	require.NoError(t, database.DB.Model(&models.ChatParticipant{}).Where("chat_id = ?", chat.ID).Count(&count).Error)
	assert.Equal(t, int64(0), count)
	require.NoError(t, database.DB.Model(&models.VoiceFile{}).Count(&count).Error)
	assert.Equal(t, int64(0), count)

	err = chatSvc.DeleteChat(ctx, chat.ID, creator.ID)
	assert.Equal(t, ErrChatNotFound, err)
}
