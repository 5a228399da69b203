package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jalh2/businesschat-backend/config"
	"github.com/jalh2/businesschat-backend/internal/response"
)

// MetricsAuth Prometheus 指标端点认证中间件
// Token 可以通过 Authorization 头或查询参数传入
func MetricsAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		metricsToken := config.Cfg.Metrics.Token

		// 如果未配置 Token，允许访问（开发环境）
		if metricsToken == "" {
			c.Next()
			return
		}

		// 方式一：从 Authorization 头获取 Token
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && parts[0] == "Bearer" && parts[1] == metricsToken {
				c.Next()
				return
			}
		}

		// 方式二：从查询参数获取 Token
		if c.Query("token") == metricsToken {
			c.Next()
			return
		}

		response.Fail(c, http.StatusUnauthorized, "未授权访问")
		c.Abort()
	}
}
