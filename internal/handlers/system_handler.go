package handlers

import (
	"context"
	"net/http"
	"time"

	"notely/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Pinger 可探活的依赖
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler 系统处理器
type SystemHandler struct {
	store Pinger
}

// NewSystemHandler 创建系统处理器
func NewSystemHandler(store Pinger) *SystemHandler {
	return &SystemHandler{store: store}
}

// Health 健康检查，不走统一返回格式
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		logger.FromContext(ctx).WithError(err).Warn("health check failed")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
