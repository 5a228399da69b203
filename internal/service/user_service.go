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

// UserService 用户服务
type UserService struct{}

// NewUserService 创建用户服务
func NewUserService() *UserService {
	return &UserService{}
}

// GetUser 按 ID 查询用户
func (s *UserService) GetUser(ctx context.Context, userID int64) (*models.PublicUser, *Error) {
	db := database.DB.WithContext(ctx)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, ErrStorage
	}
	return user.Public(), nil
}

// ListUsers 查询全部用户（用于建群时选择成员）
func (s *UserService) ListUsers(ctx context.Context) ([]*models.PublicUser, *Error) {
	db := database.DB.WithContext(ctx)

	var users []models.User
	if err := db.Order("id ASC").Find(&users).Error; err != nil {
		logger.Logger.Error("查询用户列表失败", zap.Error(err))
		return nil, ErrStorage
	}

	result := make([]*models.PublicUser, 0, len(users))
	for i := range users {
		result = append(result, users[i].Public())
	}
	return result, nil
}

// UpdateUsername 修改用户名
func (s *UserService) UpdateUsername(ctx context.Context, userID int64, username string) (*models.PublicUser, *Error) {
	if username == "" {
		return nil, ErrNothingToUpdate
	}

	db := database.DB.WithContext(ctx)

	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, ErrStorage
	}
	if user.Username == username {
		return user.Public(), nil
	}

	var count int64
	if err := db.Model(&models.User{}).Where("username = ? AND id <> ?", username, userID).Count(&count).Error; err != nil {
		return nil, ErrStorage
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	now := time.Now()
	if err := db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"username":        username,
		"update_datetime": now,
	}).Error; err != nil {
		logger.Logger.Error("修改用户名失败", zap.Int64("user_id", userID), zap.Error(err))
		return nil, ErrUsernameTaken
	}

	user.Username = username
	logger.Logger.Info("用户名已更新", zap.Int64("user_id", userID), zap.String("username", username))
	return user.Public(), nil
}
