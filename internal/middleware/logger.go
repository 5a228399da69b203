package middleware

import (
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jalh2/businesschat-backend/internal/logger"
	"go.uber.org/zap"
)

// Logger 请求日志中间件
func Logger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		}
		if query != "" {
			fields = append(fields, zap.String("query", redactQuery(query)))
		}
		if userID := c.GetInt64("user_id"); userID > 0 {
			fields = append(fields, zap.Int64("user_id", userID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		if c.Writer.Status() >= 500 {
			logger.Logger.Error("HTTP 请求", fields...)
		} else {
			logger.Logger.Info("HTTP 请求", fields...)
		}
	}
}

// redactQuery 抹掉查询参数中的凭证（WebSocket 握手经 ?token= 传令牌）
func redactQuery(raw string) string {
	values, err := url.ParseQuery(raw)
	if err != nil {
		return ""
	}
	if values.Has("token") {
		values.Set("token", "***")
	}
	return values.Encode()
}
