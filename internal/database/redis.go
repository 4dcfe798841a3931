package database

import (
	"context"
	"time"

	"notely/pkg/config"
	"notely/pkg/logger"
	"notely/pkg/queue"
)

// NewPublisher 创建事件发布器。未启用Redis或Redis不可达时退回进程内缓冲
func NewPublisher(cfg *config.Config) queue.Publisher {
	appLogger := logger.GetLogger()
	if !cfg.Redis.Enabled {
		return queue.NewMemoryPublisher(1000)
	}

	redisQueue := queue.NewRedisQueue(&queue.Config{
		Host:     cfg.Redis.Host,
		Port:     cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		Prefix:   cfg.Redis.Prefix,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := redisQueue.Ping(ctx); err != nil {
		appLogger.WithError(err).Warn("Redis unavailable, falling back to in-memory events")
		_ = redisQueue.Close()
		return queue.NewMemoryPublisher(1000)
	}

	appLogger.Infof("Publishing domain events to Redis %s:%d", cfg.Redis.Host, cfg.Redis.Port)
	return redisQueue
}
