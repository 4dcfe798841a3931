package jwt

import (
	"errors"
	"notely/pkg/config"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 角色取值，与 models 中保持一致
const (
	roleAdmin  = "ADMIN"
	roleMember = "MEMBER"
)

var (
	ErrUnexpectedSigningMethod = errors.New("unexpected signing method")
	ErrMissingClaims           = errors.New("token is missing required claims")
	ErrInvalidRole             = errors.New("token carries an unknown role")
)

// Claims JWT声明，字段名与旧版客户端保持一致
type Claims struct {
	UserID     uint   `json:"id"`
	Email      string `json:"email"`
	Role       string `json:"role"`
	TenantID   uint   `json:"tenantId"`
	TenantSlug string `json:"tenantSlug"`
	jwt.RegisteredClaims
}

// Validate 拒绝缺少身份字段的令牌，由解析器在签名校验后调用
func (c Claims) Validate() error {
	if c.UserID == 0 || c.Email == "" || c.Role == "" || c.TenantID == 0 || c.TenantSlug == "" {
		return ErrMissingClaims
	}
	if c.Role != roleAdmin && c.Role != roleMember {
		return ErrInvalidRole
	}
	return nil
}

// Identity 令牌中携带的身份信息
type Identity struct {
	UserID     uint
	Email      string
	Role       string
	TenantID   uint
	TenantSlug string
}

// JWTManager JWT管理器
type JWTManager struct {
	secretKey     string
	tokenDuration time.Duration
	now           func() time.Time
}

// NewJWTManager 创建JWT管理器
func NewJWTManager(secretKey string, tokenDuration time.Duration) *JWTManager {
	return &JWTManager{
		secretKey:     secretKey,
		tokenDuration: tokenDuration,
		now:           time.Now,
	}
}

// GenerateToken 生成JWT令牌，返回令牌与过期时间
func (manager *JWTManager) GenerateToken(id Identity) (string, time.Time, error) {
	issuedAt := manager.now()
	expiresAt := issuedAt.Add(manager.tokenDuration)

	claims := Claims{
		UserID:     id.UserID,
		Email:      id.Email,
		Role:       id.Role,
		TenantID:   id.TenantID,
		TenantSlug: id.TenantSlug,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			NotBefore: jwt.NewNumericDate(issuedAt),
			Issuer:    "notely",
			Subject:   id.Email,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(manager.secretKey))
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

// VerifyToken 验证JWT令牌
func (manager *JWTManager) VerifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// 验证签名方法
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrUnexpectedSigningMethod
			}
			return []byte(manager.secretKey), nil
		},
		// 只接受签发时使用的算法
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(manager.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrMissingClaims
	}

	return claims, nil
}

// Identity 从声明还原身份
func (c Claims) Identity() Identity {
	return Identity{
		UserID:     c.UserID,
		Email:      c.Email,
		Role:       c.Role,
		TenantID:   c.TenantID,
		TenantSlug: c.TenantSlug,
	}
}

// NewFromConfig 按配置构建管理器，时长解析失败时使用1小时
func NewFromConfig(cfg *config.Config) *JWTManager {
	tokenDuration, err := time.ParseDuration(cfg.JWT.TokenDuration)
	if err != nil || tokenDuration <= 0 {
		tokenDuration = time.Hour
	}
	return NewJWTManager(cfg.JWT.SecretKey, tokenDuration)
}
