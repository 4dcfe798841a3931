package middleware

import (
	"strings"

	"notely/internal/policy"
	"notely/internal/services"
	apperrors "notely/pkg/errors"
	"notely/pkg/logger"
	"notely/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const principalKey = "principal"

// AuthMiddleware 登录校验中间件
type AuthMiddleware struct {
	authService *services.AuthService
}

func NewAuthMiddleware(authService *services.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authService: authService}
}

// RequireLogin 校验 Bearer 令牌，把调用者身份保存到上下文
func (m *AuthMiddleware) RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := bearerToken(c.GetHeader("Authorization"))
		if err != nil {
			response.FromError(c, err)
			c.Abort()
			return
		}
		m.authenticate(c, tokenString)
	}
}

// RequireStreamLogin WebSocket 握手无法自定义请求头，允许从 token 查询参数读取令牌
func (m *AuthMiddleware) RequireStreamLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if authHeader := c.GetHeader("Authorization"); authHeader != "" {
			tokenString, err := bearerToken(authHeader)
			if err != nil {
				response.FromError(c, err)
				c.Abort()
				return
			}
			m.authenticate(c, tokenString)
			return
		}

		tokenString := strings.TrimSpace(c.Query("token"))
		if tokenString == "" {
			response.FromError(c, apperrors.ErrUnauthenticated)
			c.Abort()
			return
		}
		m.authenticate(c, tokenString)
	}
}

func bearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", apperrors.ErrUnauthenticated
	}

	// 检查Bearer格式
	const prefix = "Bearer "
	if len(authHeader) < len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return "", apperrors.New(apperrors.KindInvalidToken, "Invalid token")
	}
	tokenString := strings.TrimSpace(authHeader[len(prefix):])
	if tokenString == "" {
		return "", apperrors.ErrUnauthenticated
	}
	return tokenString, nil
}

func (m *AuthMiddleware) authenticate(c *gin.Context, tokenString string) {
	principal, err := m.authService.Authenticate(tokenString)
	if err != nil {
		response.FromError(c, err)
		c.Abort()
		return
	}

	c.Set(principalKey, principal)
	entry := logger.FromContext(c.Request.Context()).WithFields(logrus.Fields{
		"user_id":   principal.ID,
		"tenant_id": principal.TenantID,
	})
	c.Request = c.Request.WithContext(logger.WithContext(c.Request.Context(), entry))

	c.Next()
}

// GetPrincipal 读取 RequireLogin 保存的调用者身份
func GetPrincipal(c *gin.Context) (policy.Principal, bool) {
	value, exists := c.Get(principalKey)
	if !exists {
		return policy.Principal{}, false
	}
	principal, ok := value.(policy.Principal)
	return principal, ok
}
