package router

import (
	"notely/internal/handlers"
	"notely/internal/middleware"
	"notely/internal/services"
	"notely/internal/store"
	"notely/pkg/config"
	"notely/pkg/metrics"

	"github.com/gin-gonic/gin"
)

// Dependencies 路由所需的服务
type Dependencies struct {
	Config  *config.Config
	Store   store.Store
	Metrics *metrics.Metrics

	AuthService   *services.AuthService
	NoteService   *services.NoteService
	TenantService *services.TenantService
	UserService   *services.UserService
}

// SetupRouter 设置路由
func SetupRouter(deps Dependencies) *gin.Engine {
	router := gin.New()

	// 中间件
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.AccessLog())
	router.Use(middleware.SetupCORS(deps.Config))
	if deps.Metrics != nil {
		router.Use(deps.Metrics.Middleware())
	}

	// 注册路由
	registerRoutes(router, deps)
	return router
}

// 注册所有路由
func registerRoutes(router *gin.Engine, deps Dependencies) {
	auth := middleware.NewAuthMiddleware(deps.AuthService)

	systemHandler := handlers.NewSystemHandler(deps.Store)
	router.GET("/health", systemHandler.Health)
	if deps.Metrics != nil {
		router.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))
	}

	authHandler := handlers.NewAuthHandler(deps.AuthService)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.GET("/me", auth.RequireLogin(), authHandler.Me)
	}

	noteHandler := handlers.NewNoteHandler(deps.NoteService)
	notes := router.Group("/notes", auth.RequireLogin())
	{
		notes.POST("", noteHandler.Create)
		notes.GET("", noteHandler.List)
		notes.GET("/:id", noteHandler.Get)
		notes.PUT("/:id", noteHandler.Update)
		notes.DELETE("/:id", noteHandler.Delete)
	}

	tenantHandler := handlers.NewTenantHandler(deps.TenantService)
	userHandler := handlers.NewUserHandler(deps.UserService)
	tenants := router.Group("/tenants", auth.RequireLogin())
	{
		// 静态路径需在 :slug 之前注册
		tenants.GET("/all-users", tenantHandler.ListAllUsers)

		tenants.GET("/:slug", tenantHandler.Get)
		tenants.POST("/:slug/toggle-plan", tenantHandler.TogglePlan)
		tenants.POST("/:slug/upgrade", tenantHandler.Upgrade)
		tenants.GET("/:slug/audit", tenantHandler.AuditLog)
		tenants.GET("/:slug/events", tenantHandler.RecentEvents)

		tenants.GET("/:slug/users", tenantHandler.ListUsers)
		tenants.POST("/:slug/invite", userHandler.Invite)
		tenants.PUT("/:slug/users/:userId", userHandler.Update)
		tenants.DELETE("/:slug/users/:userId", userHandler.Delete)
	}

	// WebSocket 握手可通过 token 查询参数鉴权
	streamHandler := handlers.NewEventStreamHandler(deps.TenantService, deps.Config)
	router.GET("/tenants/:slug/events/stream", auth.RequireStreamLogin(), streamHandler.Stream)
}
