package main

import (
	"context"
	"fmt"
	"time"

	"notely/internal/database"
	"notely/internal/store"
	"notely/pkg/config"
	"notely/pkg/logger"
	"notely/pkg/password"
)

// seedData 按配置写入演示数据
func seedData(cfg *config.Config, st store.Store, hasher *password.Hasher) error {
	if !cfg.Server.Seed {
		logger.GetLogger().Info("SEED_DEMO_DATA disabled, skipping seed data")
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := database.SeedDemoData(ctx, st, hasher); err != nil {
		return fmt.Errorf("初始化演示数据失败: %w", err)
	}
	return nil
}
