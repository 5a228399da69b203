package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jalh2/businesschat-backend/internal/response"
	"github.com/jalh2/businesschat-backend/internal/service"
)

type UserController struct {
	userService *service.UserService
}

// NewUserController 创建用户控制器
func NewUserController() *UserController {
	return &UserController{
		userService: service.NewUserService(),
	}
}

// Me 获取当前用户资料
func (ctl *UserController) Me(c *gin.Context) {
	user, serr := ctl.userService.GetUser(c.Request.Context(), currentUserID(c))
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Success(c, user)
}

// updateProfileRequest 更新资料请求体
type updateProfileRequest struct {
	Username string `json:"username"`
}

// UpdateMe 更新当前用户资料
func (ctl *UserController) UpdateMe(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, http.StatusBadRequest, "参数错误: "+err.Error())
		return
	}

	user, serr := ctl.userService.UpdateUsername(c.Request.Context(), currentUserID(c), req.Username)
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Success(c, user)
}

// List 查询全部用户（建群时选择成员用）
func (ctl *UserController) List(c *gin.Context) {
	users, serr := ctl.userService.ListUsers(c.Request.Context())
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Success(c, users)
}

// Get 按 ID 查询用户
func (ctl *UserController) Get(c *gin.Context) {
	userID, err := idParam(c, "userId")
	if err != nil {
		response.Fail(c, http.StatusBadRequest, err.Error())
		return
	}

	user, serr := ctl.userService.GetUser(c.Request.Context(), userID)
	if serr != nil {
		failService(c, serr)
		return
	}
	response.Success(c, user)
}
