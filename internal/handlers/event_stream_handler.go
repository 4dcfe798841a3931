package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"notely/internal/services"
	"notely/pkg/config"
	"notely/pkg/logger"
	"notely/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	streamWriteTimeout = 10 * time.Second
	streamPongWait     = 120 * time.Second
	streamPingInterval = 50 * time.Second
)

// EventStreamHandler 通过 WebSocket 推送租户实时事件
type EventStreamHandler struct {
	upgrader websocket.Upgrader
	service  *services.TenantService
}

func NewEventStreamHandler(service *services.TenantService, cfg *config.Config) *EventStreamHandler {
	allowedOrigins := cfg.CORS.AllowOrigins
	return &EventStreamHandler{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				// 同源或非浏览器客户端
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || matchOrigin(origin, allowed) {
						return true
					}
				}
				logger.FromContext(r.Context()).Warnf("WebSocket连接被拒绝，非法Origin: %s", origin)
				return false
			},
			ReadBufferSize:  1024 * 4,
			WriteBufferSize: 1024 * 16,
		},
		service: service,
	}
}

// Stream 订阅成功后再升级连接，鉴权失败仍返回普通 JSON 响应
func (h *EventStreamHandler) Stream(c *gin.Context) {
	principal, ok := currentPrincipal(c)
	if !ok {
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events, unsubscribe, err := h.service.SubscribeEvents(ctx, principal, c.Param("slug"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	defer unsubscribe()

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade 已经写回错误响应
		logger.FromContext(ctx).WithError(err).Warn("WebSocket升级失败")
		return
	}
	defer conn.Close()

	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"tenant_slug": principal.TenantSlug,
		"remote_addr": c.ClientIP(),
	})
	log.Info("事件推送连接已建立")

	go readPump(conn, cancel, log)

	pingTicker := time.NewTicker(streamPingInterval)
	defer pingTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("事件推送连接已关闭")
			return

		case <-pingTicker.C:
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case event, ok := <-events:
			if !ok {
				return
			}
			conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
			if err := conn.WriteJSON(event); err != nil {
				log.WithError(err).Warn("推送事件失败")
				return
			}
		}
	}
}

// readPump 只处理 pong 与关闭帧，连接断开时取消订阅
func readPump(conn *websocket.Conn, cancel context.CancelFunc, log *logrus.Entry) {
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(streamPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(streamPongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.WithError(err).Warn("WebSocket异常关闭")
			}
			return
		}
	}
}

// matchOrigin 支持精确匹配和 *.example.com 子域名通配
func matchOrigin(origin, allowed string) bool {
	if origin == allowed {
		return true
	}
	if !strings.HasPrefix(allowed, "*.") {
		return false
	}

	domain := allowed[2:]
	host := origin
	if idx := strings.Index(host, "://"); idx != -1 {
		host = host[idx+3:]
	}
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	return host == domain || strings.HasSuffix(host, "."+domain)
}
