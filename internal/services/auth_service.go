package services

import (
	"context"
	"errors"
	"strings"

	"notely/internal/models"
	"notely/internal/policy"
	"notely/internal/store"
	apperrors "notely/pkg/errors"
	"notely/pkg/jwt"
	"notely/pkg/logger"
	"notely/pkg/metrics"
	"notely/pkg/password"
)

// PublicUser 登录时回显的用户字段
type PublicUser struct {
	ID         uint        `json:"id"`
	Email      string      `json:"email"`
	Role       models.Role `json:"role"`
	TenantID   uint        `json:"tenantId"`
	TenantSlug string      `json:"tenantSlug"`
}

// LoginResult 登录结果
type LoginResult struct {
	Token     string     `json:"token"`
	ExpiresAt int64      `json:"expiresAt"`
	User      PublicUser `json:"user"`
}

// AuthService 校验凭证、签发与验证会话令牌
type AuthService struct {
	store      store.Store
	hasher     *password.Hasher
	jwtManager *jwt.JWTManager
	metrics    *metrics.Metrics
}

func NewAuthService(st store.Store, hasher *password.Hasher, jwtManager *jwt.JWTManager, m *metrics.Metrics) *AuthService {
	return &AuthService{
		store:      st,
		hasher:     hasher,
		jwtManager: jwtManager,
		metrics:    m,
	}
}

func (s *AuthService) countLogin(result string) {
	if s.metrics != nil {
		s.metrics.LoginAttempts.WithLabelValues(result).Inc()
	}
}

// Login 用户登录。邮箱不存在与密码错误返回同一个错误
func (s *AuthService) Login(ctx context.Context, email, plaintext string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || plaintext == "" {
		s.countLogin("invalid")
		return nil, apperrors.ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			return nil, apperrors.Internal("Server error", err)
		}
		s.hasher.CompareDummy(plaintext)
		s.countLogin("invalid")
		return nil, apperrors.ErrInvalidCredentials
	}

	if !s.hasher.Compare(plaintext, user.PasswordHash) {
		s.countLogin("invalid")
		return nil, apperrors.ErrInvalidCredentials
	}

	public := PublicUser{
		ID:         user.ID,
		Email:      user.Email,
		Role:       user.Role,
		TenantID:   user.TenantID,
		TenantSlug: user.Tenant.Slug,
	}
	token, expiresAt, err := s.jwtManager.GenerateToken(jwt.Identity{
		UserID:     public.ID,
		Email:      public.Email,
		Role:       string(public.Role),
		TenantID:   public.TenantID,
		TenantSlug: public.TenantSlug,
	})
	if err != nil {
		return nil, apperrors.Internal("Server error", err)
	}

	s.countLogin("success")
	logger.FromContext(ctx).WithField("user_id", user.ID).WithField("tenant_id", user.TenantID).Info("user logged in")

	return &LoginResult{
		Token:     token,
		ExpiresAt: expiresAt.Unix(),
		User:      public,
	}, nil
}

// Authenticate 验证令牌并还原调用者身份；空令牌返回 Unauthenticated
func (s *AuthService) Authenticate(token string) (policy.Principal, error) {
	if strings.TrimSpace(token) == "" {
		return policy.Principal{}, apperrors.ErrUnauthenticated
	}

	claims, err := s.jwtManager.VerifyToken(token)
	if err != nil {
		return policy.Principal{}, apperrors.Wrap(apperrors.KindInvalidToken, "Invalid token", err)
	}

	id := claims.Identity()
	return policy.Principal{
		ID:         id.UserID,
		Email:      id.Email,
		Role:       models.Role(id.Role),
		TenantID:   id.TenantID,
		TenantSlug: id.TenantSlug,
	}, nil
}

// Me 返回当前调用者的最新资料；令牌签发后用户被删除时返回 NotFound
func (s *AuthService) Me(ctx context.Context, p policy.Principal) (*models.UserView, error) {
	user, err := s.store.GetUserByID(ctx, p.ID)
	if err != nil {
		return nil, storeError(err, apperrors.NotFound("User not found"))
	}
	view := user.View()
	return &view, nil
}
