package middleware

import (
	"notely/pkg/logger"
	"notely/pkg/response"

	"github.com/gin-gonic/gin"
)

// ErrorHandler 错误处理中间件，主要处理panic
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if err := recover(); err != nil {
				logger.FromContext(c.Request.Context()).
					WithField("path", c.Request.URL.Path).
					Errorf("Panic recovered: %v", err)
				response.ServerError(c, "Server error")
				c.Abort()
			}
		}()

		c.Next()
	}
}
