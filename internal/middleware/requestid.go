package middleware

import (
	"notely/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const RequestIDHeader = "X-Request-ID"

// RequestID 为每个请求生成或沿用请求ID，并挂上请求级日志
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Header(RequestIDHeader, requestID)
		c.Set("request_id", requestID)

		entry := logger.GetLogger().WithField("request_id", requestID)
		c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), entry))

		c.Next()
	}
}

// AccessLog 记录请求耗时与状态码
func AccessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		entry := logger.FromContext(c.Request.Context()).WithField("status", c.Writer.Status())
		entry = entry.WithField("method", c.Request.Method).WithField("path", c.Request.URL.Path)
		if c.Writer.Status() >= 500 {
			entry.Warn("request failed")
			return
		}
		entry.Debug("request handled")
	}
}
