package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"notely/internal/database"
	"notely/internal/router"
	"notely/internal/services"
	"notely/pkg/config"
	"notely/pkg/jwt"
	"notely/pkg/logger"
	"notely/pkg/metrics"
	"notely/pkg/password"

	"github.com/gin-gonic/gin"
)

func main() {
	// 加载配置
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 初始化日志
	if err := logger.Initialize(cfg); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	appLogger := logger.GetLogger()
	appLogger.Info("Starting notes service...")

	// 初始化存储
	st, err := database.OpenStore(cfg)
	if err != nil {
		appLogger.Fatalf("Failed to initialize store: %v", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			appLogger.Error("Failed to close store:", err)
		}
	}()

	hasher := password.NewHasher(cfg.Password.BcryptCost)
	if err := seedData(cfg, st, hasher); err != nil {
		appLogger.Fatalf("Failed to initialize seed data: %v", err)
	}

	// 事件发布
	publisher := database.NewPublisher(cfg)
	defer func() {
		if err := publisher.Close(); err != nil {
			appLogger.Error("Failed to close event publisher:", err)
		}
	}()

	m := metrics.New("notely")

	authService := services.NewAuthService(st, hasher, jwt.NewFromConfig(cfg), m)
	noteService := services.NewNoteService(st, services.QuotaOptions{
		FreeNoteLimit: cfg.Quota.FreeNoteLimit,
		Strict:        cfg.Quota.Strict,
	}, publisher, m)
	tenantService := services.NewTenantService(st, publisher, m)
	userService := services.NewUserService(st, hasher, cfg.Password.InviteDefaultPassword, publisher, m)

	// 租户用量报告，不影响主服务启动
	if cfg.Jobs.UsageReportCron != "" {
		reporter := services.NewUsageReporter(st, publisher, m, cfg.Quota.FreeNoteLimit, cfg.Jobs.UsageReportCron)
		if err := reporter.Start(); err != nil {
			appLogger.Errorf("Failed to start usage reporter: %v", err)
		} else {
			defer reporter.Stop()
		}
	}

	// 设置Gin模式
	gin.SetMode(cfg.Server.Mode)

	r := router.SetupRouter(router.Dependencies{
		Config:        cfg,
		Store:         st,
		Metrics:       m,
		AuthService:   authService,
		NoteService:   noteService,
		TenantService: tenantService,
		UserService:   userService,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatalf("Failed to start server: %v", err)
		}
	}()

	appLogger.Infof("Server started on port %s", cfg.Server.Port)

	// SIGHUP 切换日志文件
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for range hup {
			if err := logger.Rotate(); err != nil {
				appLogger.Errorf("Failed to rotate log file: %v", err)
			}
		}
	}()

	// 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		appLogger.Error("Server forced to shutdown:", err)
	}
	appLogger.Info("Server exited")
}
