package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	rocketmq "github.com/apache/rocketmq-clients/golang/v5"
	"github.com/apache/rocketmq-clients/golang/v5/credentials"
	"github.com/jalh2/businesschat-backend/config"
	"github.com/jalh2/businesschat-backend/internal/logger"
	"go.uber.org/zap"
)

func init() {
	// init 阶段配置尚未加载，先压低 SDK 日志，Load 后由 NewRocketMQClient 按配置调整
	os.Setenv("mq.consoleAppender.enabled", "true")
	if os.Getenv("rocketmq.client.logLevel") == "" {
		os.Setenv("rocketmq.client.logLevel", "WARN")
	}
	rocketmq.ResetLogger()
}

var (
	globalMQClient     *RocketMQClient
	globalMQClientInit sync.Once
)

// RocketMQClient RocketMQ 生产者封装
// 未启用时所有发送调用都是空操作，业务路径不感知 MQ 是否存在
type RocketMQClient struct {
	producer rocketmq.Producer
	enabled  bool
}

// GetGlobalMQClient 获取全局 RocketMQ 客户端实例（单例模式）
func GetGlobalMQClient() *RocketMQClient {
	globalMQClientInit.Do(func() {
		client, err := NewRocketMQClient()
		if err != nil {
			if logger.Logger != nil {
				logger.Logger.Warn("初始化全局 RocketMQ 客户端失败", zap.Error(err))
			}
			globalMQClient = &RocketMQClient{enabled: false}
		} else {
			globalMQClient = client
		}
	})
	return globalMQClient
}

// NewRocketMQClient 创建 RocketMQ 生产者
func NewRocketMQClient() (*RocketMQClient, error) {
	cfg := config.GetConfig()
	if cfg == nil || !cfg.RocketMQ.Enabled {
		return &RocketMQClient{enabled: false}, nil
	}

	if cfg.RocketMQ.LogLevel != "" && os.Getenv("rocketmq.client.logLevel") != cfg.RocketMQ.LogLevel {
		os.Setenv("rocketmq.client.logLevel", cfg.RocketMQ.LogLevel)
		rocketmq.ResetLogger()
	}

	endpoint := fmt.Sprintf("%s:%d", cfg.RocketMQ.Endpoint, cfg.RocketMQ.Port)

	// SDK 要求 Credentials 不能为 nil，即使不使用 ACL
	creds := &credentials.SessionCredentials{
		AccessKey:    cfg.RocketMQ.AccessKey,
		AccessSecret: cfg.RocketMQ.AccessSecret,
	}

	producerConfig := &rocketmq.Config{
		Endpoint:    endpoint,
		Credentials: creds,
	}

	var producer rocketmq.Producer
	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("创建 RocketMQ 生产者时发生 panic: %v", r)
			}
		}()
		producer, err = rocketmq.NewProducer(producerConfig,
			rocketmq.WithTopics(cfg.RocketMQ.Topic))
	}()
	if err != nil {
		logger.Logger.Warn("创建 RocketMQ 生产者失败，账本事件将不对外发布",
			zap.String("endpoint", endpoint),
			zap.Error(err))
		return &RocketMQClient{enabled: false}, nil
	}

	// 启动生产者（超时控制，避免长时间阻塞启动流程）
	startErr := func() error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		done := make(chan error, 1)
		go func() {
			done <- producer.Start()
		}()

		select {
		case err := <-done:
			return err
		case <-ctx.Done():
			return fmt.Errorf("启动 RocketMQ 生产者超时: %w", ctx.Err())
		}
	}()
	if startErr != nil {
		logger.Logger.Warn("启动 RocketMQ 生产者失败，账本事件将不对外发布",
			zap.String("endpoint", endpoint),
			zap.String("topic", cfg.RocketMQ.Topic),
			zap.Error(startErr))
		_ = producer.GracefulStop()
		return &RocketMQClient{enabled: false}, nil
	}

	logger.Logger.Info("RocketMQ 生产者启动成功",
		zap.String("endpoint", endpoint),
		zap.String("topic", cfg.RocketMQ.Topic))

	return &RocketMQClient{producer: producer, enabled: true}, nil
}

// PublishLedgerEvent 发布账本事件
// 失败只记日志，不影响调用方的业务结果
func (c *RocketMQClient) PublishLedgerEvent(ctx context.Context, msg *LedgerEventMessage) {
	if !c.enabled {
		return
	}

	body, err := json.Marshal(msg)
	if err != nil {
		logger.Logger.Error("序列化账本事件失败", zap.Error(err))
		return
	}

	message := &rocketmq.Message{
		Topic: config.Cfg.RocketMQ.Topic,
		Body:  body,
	}
	message.SetTag(msg.EventType)
	message.SetKeys(fmt.Sprintf("chat-%d-tx-%d", msg.ChatID, msg.TransactionID))

	if _, err := c.producer.Send(ctx, message); err != nil {
		logger.Logger.Warn("发布账本事件失败",
			zap.String("event_type", msg.EventType),
			zap.Int64("chat_id", msg.ChatID),
			zap.Int64("transaction_id", msg.TransactionID),
			zap.Error(err))
	}
}

// Close 关闭生产者（超时控制）
func (c *RocketMQClient) Close() error {
	if !c.enabled || c.producer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- c.producer.GracefulStop()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("关闭 RocketMQ 生产者失败: %w", err)
		}
	case <-ctx.Done():
		logger.Logger.Warn("关闭 RocketMQ 生产者超时，强制退出")
	}
	return nil
}

// IsEnabled 检查是否启用
func (c *RocketMQClient) IsEnabled() bool {
	return c.enabled
}
