package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jalh2/businesschat-backend/config"
	"github.com/jalh2/businesschat-backend/internal/database"
	"github.com/jalh2/businesschat-backend/internal/logger"
	"github.com/jalh2/businesschat-backend/internal/mq"
	"github.com/jalh2/businesschat-backend/internal/notifier"
	"github.com/jalh2/businesschat-backend/internal/router"
	"github.com/jalh2/businesschat-backend/internal/ws"
	"go.uber.org/zap"
)

func main() {
	// 加载配置
	// 支持通过环境变量 APP_ENV 或命令行参数指定环境
	// 环境变量优先级: 命令行参数 > 环境变量 APP_ENV > 默认 dev
	configPath := ""
	if len(os.Args) > 1 {
		// 支持命令行参数: ./app --config=config/config.prod.yaml
		// 或: ./app prod (自动选择 config.prod.yaml)
		arg := os.Args[1]
		if arg == "prod" || arg == "production" {
			configPath = "config/config.prod.yaml"
		} else if arg == "test" || arg == "testing" {
			configPath = "config/config.test.yaml"
		} else if arg == "dev" || arg == "development" {
			configPath = "config/config.yaml"
		} else if len(arg) > 0 && arg[0] != '-' {
			// 如果参数不是以 - 开头，可能是配置文件路径
			configPath = arg
		}
	}

	if err := config.Load(configPath); err != nil {
		panic(fmt.Sprintf("加载配置失败: %v", err))
	}

	// 初始化日志
	if err := logger.InitLogger(); err != nil {
		panic(fmt.Sprintf("初始化日志失败: %v", err))
	}
	defer logger.Sync()

	// 初始化数据库
	if err := database.InitMySQL(); err != nil {
		logger.Logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer database.CloseMySQL()

	if err := database.AutoMigrate(); err != nil {
		logger.Logger.Fatal("迁移表结构失败", zap.Error(err))
	}

	// 初始化 Redis
	if err := database.InitRedis(); err != nil {
		logger.Logger.Warn("初始化 Redis 失败", zap.Error(err))
		// Redis 不是必须的，可以继续运行
	}
	defer database.CloseRedis()

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// WebSocket 连接枢纽与心跳
	hub := ws.NewHub()
	go hub.Heartbeat(30 * time.Second)

	// 事件通知器：有 Redis 时走 Pub/Sub 跨实例广播，否则仅投递本机连接
	var n notifier.Notifier
	if database.RDB != nil {
		bridge := notifier.NewBridge(database.RDB, hub)
		if err := bridge.Start(rootCtx); err != nil {
			logger.Logger.Warn("订阅群聊事件频道失败，降级为本机广播", zap.Error(err))
			n = notifier.NewHubNotifier(hub)
		} else {
			defer bridge.Close()
			n = notifier.NewRedisNotifier(database.RDB)
		}
	} else {
		n = notifier.NewHubNotifier(hub)
	}

	// 初始化全局 RocketMQ 生产者客户端（单例模式，避免重复创建）
	mqProducer := mq.GetGlobalMQClient()
	if mqProducer.IsEnabled() {
		logger.Logger.Info("RocketMQ 生产者已启动")
		defer func() {
			if err := mqProducer.Close(); err != nil {
				logger.Logger.Error("关闭 RocketMQ 生产者失败", zap.Error(err))
			}
		}()
	}

	// 设置路由
	r := router.SetupRouter(n, hub)

	// 创建 HTTP 服务器
	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", config.Cfg.App.Port),
		Handler:        r,
		ReadTimeout:    config.Cfg.App.ReadTimeout,
		WriteTimeout:   config.Cfg.App.WriteTimeout,
		MaxHeaderBytes: 1 << 20, // 1MB
	}

	// 启动服务器（在 goroutine 中）
	go func() {
		logger.Logger.Info("服务器启动",
			zap.String("address", srv.Addr),
			zap.String("mode", config.Cfg.App.Mode),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Logger.Fatal("服务器启动失败", zap.Error(err))
		}
	}()

	// 等待中断信号以优雅地关闭服务器
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Logger.Info("正在关闭服务器...")

	// 设置 5 秒超时关闭服务器
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Logger.Fatal("服务器强制关闭", zap.Error(err))
	}

	logger.Logger.Info("服务器已关闭")
}
