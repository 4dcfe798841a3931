package policy

import "notely/internal/models"

// Principal 由会话令牌还原的调用者身份，只在单次请求内有效，不落库
type Principal struct {
	ID         uint
	Email      string
	Role       models.Role
	TenantID   uint
	TenantSlug string
}

// IsAdmin 是否为所属租户的管理员
func (p Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}
