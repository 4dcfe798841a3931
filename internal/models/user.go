package models

// Role 租户内角色
type Role string

const (
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
)

// IsValid 检查角色是否有效
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleMember
}

// User 用户模型，email 全局唯一，所属租户创建后不变
type User struct {
	BaseModel
	Email        string `json:"email" gorm:"uniqueIndex;not null;size:200"`
	PasswordHash string `json:"-" gorm:"not null;size:255"`
	Role         Role   `json:"role" gorm:"not null;size:10;default:'MEMBER';index:idx_users_tenant_role,priority:2"`
	TenantID     uint   `json:"tenantId" gorm:"not null;index:idx_users_tenant_role,priority:1"`

	Tenant Tenant `json:"tenant,omitempty" gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE"`
}

// TableName 表名
func (u *User) TableName() string {
	return "users"
}

// IsAdmin 是否为租户管理员
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserView 对外返回的用户信息
type UserView struct {
	ID     uint          `json:"id"`
	Email  string        `json:"email"`
	Role   Role          `json:"role"`
	Tenant TenantSummary `json:"tenant"`
}

// View 生成对外视图，Tenant 需要预先加载
func (u *User) View() UserView {
	return UserView{
		ID:     u.ID,
		Email:  u.Email,
		Role:   u.Role,
		Tenant: u.Tenant.Summary(),
	}
}
