package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignupAndLogin(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	svc := NewAuthService()

	result, serr := svc.Signup(ctx, "alice", "secret123")
	require.Nil(t, serr)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "alice", result.User.Username)

	// 令牌能解析回本人
	userID, err := ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, result.User.ID, userID)

	// 用户名冲突
	_, serr = svc.Signup(ctx, "alice", "other")
	assert.Equal(t, ErrUsernameTaken, serr)

	// 登录
	login, serr := svc.Login(ctx, "alice", "secret123")
	require.Nil(t, serr)
	assert.Equal(t, result.User.ID, login.User.ID)

	_, serr = svc.Login(ctx, "alice", "wrong")
	assert.Equal(t, ErrInvalidCredentials, serr)

	// 用户不存在和密码错误返回同一个错误
	_, serr = svc.Login(ctx, "nobody", "secret123")
	assert.Equal(t, ErrInvalidCredentials, serr)

	_, serr = svc.Signup(ctx, "", "x")
	assert.Equal(t, ErrCredentialsRequired, serr)

	me, serr := svc.Me(ctx, result.User.ID)
	require.Nil(t, serr)
	assert.Equal(t, "alice", me.Username)
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	setupTestDB(t)

	_, err := ParseToken("not-a-token")
	assert.Error(t, err)
}

func TestUpdateUsername(t *testing.T) {
	setupTestDB(t)
	ctx := context.Background()

	authSvc := NewAuthService()
	userSvc := NewUserService()

	alice, serr := authSvc.Signup(ctx, "alice", "pw")
	require.Nil(t, serr)
	_, serr = authSvc.Signup(ctx, "bob", "pw")
	require.Nil(t, serr)

	updated, serr := userSvc.UpdateUsername(ctx, alice.User.ID, "alice2")
	require.Nil(t, serr)
	assert.Equal(t, "alice2", updated.Username)

	// 改成已占用的名字
	_, serr = userSvc.UpdateUsername(ctx, alice.User.ID, "bob")
	assert.Equal(t, ErrUsernameTaken, serr)

	// 改成自己当前的名字是幂等的
	same, serr := userSvc.UpdateUsername(ctx, alice.User.ID, "alice2")
	require.Nil(t, serr)
	assert.Equal(t, "alice2", same.Username)

	_, serr = userSvc.UpdateUsername(ctx, alice.User.ID, "")
	assert.Equal(t, ErrNothingToUpdate, serr)

	users, serr := userSvc.ListUsers(ctx)
	require.Nil(t, serr)
	assert.Len(t, users, 2)
}
