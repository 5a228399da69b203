package router

import (
	"github.com/gin-gonic/gin"
	"github.com/jalh2/businesschat-backend/config"
	"github.com/jalh2/businesschat-backend/internal/controller"
	"github.com/jalh2/businesschat-backend/internal/middleware"
	"github.com/jalh2/businesschat-backend/internal/notifier"
	"github.com/jalh2/businesschat-backend/internal/ws"
)

// SetupRouter 设置路由
func SetupRouter(n notifier.Notifier, hub *ws.Hub) *gin.Engine {
	// 设置运行模式
	gin.SetMode(config.Cfg.App.Mode)

	r := gin.New()

	// 全局中间件
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.Metrics())

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": config.Cfg.App.Name,
			"version": config.Cfg.App.Version,
		})
	})

	// Prometheus 指标端点
	r.GET("/metrics", middleware.MetricsAuth(), middleware.PrometheusHandler())

	// WebSocket 实时通道
	wsHandler := ws.NewHandler(hub)
	r.GET("/ws", middleware.Auth(), wsHandler.Serve)

	// API 路由组
	api := r.Group("/api")
	{
		// 认证相关路由
		authController := controller.NewAuthController()
		auth := api.Group("/auth")
		{
			auth.POST("/signup", authController.Signup)
			auth.POST("/login", authController.Login)
			auth.GET("/me", middleware.Auth(), authController.Me)
			auth.POST("/logout", middleware.Auth(), authController.Logout)
		}

		// 用户相关路由
		userController := controller.NewUserController()
		users := api.Group("/users", middleware.Auth())
		{
			users.GET("", userController.List)
			users.GET("/me", userController.Me)
			users.PUT("/me", userController.UpdateMe)
			users.GET("/:userId", userController.Get)
		}

		// 群聊相关路由
		chatController := controller.NewChatController()
		balanceController := controller.NewBalanceController(n)
		chats := api.Group("/chats", middleware.Auth())
		{
			chats.POST("", chatController.Create)
			chats.GET("", chatController.List)
			chats.GET("/discover", chatController.Discover)
			chats.GET("/:chatId", chatController.Get)
			chats.POST("/:chatId/join", chatController.Join)
			chats.DELETE("/:chatId", chatController.Delete)

			// 账本相关路由
			chats.POST("/:chatId/balance/adjust", balanceController.Adjust)
			chats.GET("/:chatId/balance/transactions", balanceController.Transactions)
		}

		// 消息相关路由
		messageController := controller.NewMessageController(n)
		messages := api.Group("/messages", middleware.Auth())
		{
			messages.GET("/image/:messageId", messageController.GetImage)
			messages.GET("/receipt/:messageId", messageController.GetReceipt)
			messages.GET("/voice/:messageId", messageController.GetVoice)

			messages.GET("/:chatId", messageController.List)
			messages.POST("/:chatId/text", messageController.CreateText)
			messages.POST("/:chatId/image", messageController.CreateImage)
			messages.POST("/:chatId/voice", messageController.CreateVoice)
			messages.POST("/:chatId/payment", messageController.CreatePayment)
			messages.POST("/:chatId/:messageId/confirm", messageController.ConfirmPayment)
		}
	}

	return r
}
