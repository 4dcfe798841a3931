// Package store 定义持久化接口及其实现。
// 每个方法单独原子执行；跨调用的一致性由调用方负责。
package store

import (
	"context"
	"errors"

	"notely/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

// Page 分页窗口，Limit 为 0 表示不限制
type Page struct {
	Offset int
	Limit  int
}

// NoteFilter 笔记过滤条件，nil 字段不参与过滤
type NoteFilter struct {
	TenantID *uint
	UserID   *uint
}

// UserFilter 用户过滤条件
type UserFilter struct {
	TenantID *uint
}

// QuotaCheck 在事务内根据租户与当前笔记数决定是否允许创建
type QuotaCheck func(tenant *models.Tenant, noteCount int64) error

// Store 持久化接口
type Store interface {
	GetTenantByID(ctx context.Context, id uint) (*models.Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error)
	ListTenants(ctx context.Context) ([]*models.Tenant, error)
	CreateTenant(ctx context.Context, tenant *models.Tenant) error
	UpdateTenantPlan(ctx context.Context, id uint, plan models.Plan) (*models.Tenant, error)

	// 用户查询结果都预加载 Tenant
	GetUserByID(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, filter UserFilter, page Page) ([]*models.User, int64, error)
	CountUsersByRole(ctx context.Context, tenantID uint, role models.Role) (int64, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	// DeleteUser 同时删除该用户的笔记
	DeleteUser(ctx context.Context, id uint) error

	// 笔记查询结果都填充 User 作者信息
	GetNote(ctx context.Context, id uint) (*models.Note, error)
	ListNotes(ctx context.Context, filter NoteFilter, page Page) ([]*models.Note, int64, error)
	CountNotesByTenant(ctx context.Context, tenantID uint) (int64, error)
	CreateNote(ctx context.Context, note *models.Note) error
	// CreateNoteWithinQuota 在同一事务内计数、检查并创建，同租户的并发创建被串行化
	CreateNoteWithinQuota(ctx context.Context, note *models.Note, check QuotaCheck) error
	UpdateNote(ctx context.Context, note *models.Note) error
	DeleteNote(ctx context.Context, id uint) error

	RecordAudit(ctx context.Context, entry *models.AuditLog) error
	ListAudit(ctx context.Context, tenantID uint, page Page) ([]*models.AuditLog, int64, error)

	Ping(ctx context.Context) error
	Close() error
}
