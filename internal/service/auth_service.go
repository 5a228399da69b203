package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jalh2/businesschat-backend/config"
	"github.com/jalh2/businesschat-backend/internal/database"
	"github.com/jalh2/businesschat-backend/internal/logger"
	"github.com/jalh2/businesschat-backend/internal/models"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// AuthService 认证服务
type AuthService struct{}

// NewAuthService 创建认证服务
func NewAuthService() *AuthService {
	return &AuthService{}
}

// AuthResult 注册/登录结果
type AuthResult struct {
	Token string             `json:"token"`
	User  *models.PublicUser `json:"user"`
}

// Signup 注册新用户
func (s *AuthService) Signup(ctx context.Context, username, password string) (*AuthResult, *Error) {
	if username == "" || password == "" {
		return nil, ErrCredentialsRequired
	}

	db := database.DB.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("username = ?", username).Count(&count).Error; err != nil {
		return nil, ErrStorage
	}
	if count > 0 {
		return nil, ErrUsernameTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		logger.Logger.Error("密码哈希失败", zap.Error(err))
		return nil, ErrStorage
	}

	now := time.Now()
	user := &models.User{
		Username:       username,
		PasswordHash:   string(hash),
		CreateDatetime: &now,
		UpdateDatetime: &now,
	}
	if err := db.Create(user).Error; err != nil {
		// 唯一索引兜底，并发注册同名用户时靠它保证唯一
		logger.Logger.Warn("创建用户失败", zap.String("username", username), zap.Error(err))
		return nil, ErrUsernameTaken
	}

	token, serr := GenerateToken(user.ID)
	if serr != nil {
		return nil, serr
	}

	logger.Logger.Info("用户注册成功", zap.Int64("user_id", user.ID), zap.String("username", username))
	return &AuthResult{Token: token, User: user.Public()}, nil
}

// Login 用户登录
// 用户不存在和密码错误返回同一个错误，不泄露用户名是否已注册
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, *Error) {
	if username == "" || password == "" {
		return nil, ErrCredentialsRequired
	}

	db := database.DB.WithContext(ctx)

	var user models.User
	if err := db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, ErrStorage
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, serr := GenerateToken(user.ID)
	if serr != nil {
		return nil, serr
	}

	logger.Logger.Info("用户登录成功", zap.Int64("user_id", user.ID))
	return &AuthResult{Token: token, User: user.Public()}, nil
}

// Me 获取当前登录用户
func (s *AuthService) Me(ctx context.Context, userID int64) (*models.PublicUser, *Error) {
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

// tokenClaims JWT 载荷
type tokenClaims struct {
	UserID int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// GenerateToken 签发 JWT
func GenerateToken(userID int64) (string, *Error) {
	cfg := config.GetConfig()
	expire := 168 * time.Hour
	secret := ""
	if cfg != nil {
		if cfg.JWT.Expire > 0 {
			expire = time.Duration(cfg.JWT.Expire) * time.Hour
		}
		secret = cfg.JWT.Secret
	}

	now := time.Now()
	claims := tokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%d", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expire)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		logger.Logger.Error("签发令牌失败", zap.Error(err))
		return "", ErrStorage
	}
	return signed, nil
}

// ParseToken 解析并校验 JWT，返回其中的用户 ID
func ParseToken(tokenString string) (int64, error) {
	cfg := config.GetConfig()
	secret := ""
	if cfg != nil {
		secret = cfg.JWT.Secret
	}

	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("非法的签名算法: %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return 0, err
	}
	if !token.Valid || claims.UserID <= 0 {
		return 0, errors.New("令牌无效")
	}
	return claims.UserID, nil
}
