package models

// Plan 订阅套餐
type Plan string

const (
	PlanFree Plan = "FREE"
	PlanPro  Plan = "PRO"
)

// IsValid 检查套餐是否有效
func (p Plan) IsValid() bool {
	return p == PlanFree || p == PlanPro
}

// Toggled 返回切换后的套餐
func (p Plan) Toggled() Plan {
	if p == PlanPro {
		return PlanFree
	}
	return PlanPro
}

// Tenant 租户模型 - 只包含数据结构
type Tenant struct {
	BaseModel
	Name string `json:"name" gorm:"not null;size:100"`
	Slug string `json:"slug" gorm:"uniqueIndex;not null;size:50"`
	Plan Plan   `json:"plan" gorm:"not null;size:10;default:'FREE'"`
}

// TableName 表名
func (t *Tenant) TableName() string {
	return "tenants"
}

// TenantSummary 用户列表中附带的租户信息
type TenantSummary struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
	Plan Plan   `json:"plan"`
}

// Summary 生成租户摘要
func (t *Tenant) Summary() TenantSummary {
	return TenantSummary{Name: t.Name, Slug: t.Slug, Plan: t.Plan}
}
