package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jalh2/businesschat-backend/internal/response"
	"github.com/jalh2/businesschat-backend/internal/service"
)

type AuthController struct {
	authService *service.AuthService
}

// NewAuthController 创建认证控制器
func NewAuthController() *AuthController {
	return &AuthController{
		authService: service.NewAuthService(),
	}
}

// credentialsRequest 注册/登录请求体
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Signup 用户注册
func (ctl *AuthController) Signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	result, serr := ctl.authService.Signup(c.Request.Context(), req.Username, req.Password)
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Created(c, result)
}

// Login 用户登录
func (ctl *AuthController) Login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	result, serr := ctl.authService.Login(c.Request.Context(), req.Username, req.Password)
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Success(c, result)
}

// Me 获取当前登录用户
func (ctl *AuthController) Me(c *gin.Context) {
	user, serr := ctl.authService.Me(c.Request.Context(), currentUserID(c))
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Success(c, user)
}

// Logout 登出（无状态 JWT，服务端不维护会话，由客户端丢弃令牌）
func (ctl *AuthController) Logout(c *gin.Context) {
	response.Success(c, nil)
}
