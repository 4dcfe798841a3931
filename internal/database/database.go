package database

import (
	"context"
	"fmt"
	"time"

	"notely/internal/store"
	"notely/pkg/config"
	"notely/pkg/logger"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

var DB *gorm.DB

// Initialize 连接 PostgreSQL
func Initialize(cfg *config.Config) error {
	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host, cfg.Database.Port, cfg.Database.User,
		cfg.Database.Password, cfg.Database.DBName, cfg.Database.SSLMode)

	logLevel := gormlogger.Warn
	if cfg.Server.Mode == "release" {
		logLevel = gormlogger.Error
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
		// 唯一约束冲突转换为 gorm.ErrDuplicatedKey
		TranslateError: true,
	})
	if err != nil {
		return fmt.Errorf("连接数据库失败: %w", err)
	}

	// 配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取数据库实例失败: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("数据库不可用: %w", err)
	}

	DB = db
	logger.GetLogger().Infof("Connected to database %s@%s:%s", cfg.Database.DBName, cfg.Database.Host, cfg.Database.Port)
	return nil
}

// OpenStore 按配置的驱动返回存储实现；postgres 会同时执行迁移
func OpenStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Database.Driver {
	case DriverMemory:
		logger.GetLogger().Warn("Using in-memory store, data is lost on restart")
		return store.NewMemoryStore(), nil
	case DriverPostgres, "":
		if err := Initialize(cfg); err != nil {
			return nil, err
		}
		if err := Migrate(); err != nil {
			return nil, err
		}
		return store.NewGormStore(DB), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.Database.Driver)
	}
}
