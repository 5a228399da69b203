package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jalh2/businesschat-backend/internal/response"
	"github.com/jalh2/businesschat-backend/internal/service"
)

// Auth JWT 认证中间件
// WebSocket 握手无法自定义请求头，额外支持 ?token= 查询参数
func Auth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""

		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			// 检查 Bearer 前缀
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				response.Fail(c, http.StatusUnauthorized, "认证令牌格式错误")
				c.Abort()
				return
			}
			tokenString = parts[1]
		} else {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			response.Fail(c, http.StatusUnauthorized, "未提供认证令牌")
			c.Abort()
			return
		}

		userID, err := service.ParseToken(tokenString)
		if err != nil {
			response.Fail(c, http.StatusUnauthorized, "认证令牌无效")
			c.Abort()
			return
		}

		// 将用户信息存储到上下文
		c.Set("user_id", userID)
		c.Next()
	}
}
