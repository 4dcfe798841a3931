package store

import (
	"context"
	"errors"
	"fmt"

	"notely/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var _ Store = (*GormStore)(nil)

// GormStore 基于 gorm 的实现，需要以 TranslateError: true 打开连接
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建 gorm 存储
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// translate 把 gorm 错误转换为存储层错误
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	// 外键指向的用户或租户已被删除，与内存实现一致按不存在处理
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	default:
		return err
	}
}

func paginate(query *gorm.DB, page Page) *gorm.DB {
	if page.Limit > 0 {
		query = query.Offset(page.Offset).Limit(page.Limit)
	}
	return query
}

// ========== 租户 ==========

func (s *GormStore) GetTenantByID(ctx context.Context, id uint) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		return nil, translate(err)
	}
	return &tenant, nil
}

func (s *GormStore) GetTenantBySlug(ctx context.Context, slug string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.db.WithContext(ctx).Where("slug = ?", slug).First(&tenant).Error; err != nil {
		return nil, translate(err)
	}
	return &tenant, nil
}

func (s *GormStore) ListTenants(ctx context.Context) ([]*models.Tenant, error) {
	var tenants []*models.Tenant
	err := s.db.WithContext(ctx).Order("slug ASC").Find(&tenants).Error
	return tenants, translate(err)
}

func (s *GormStore) CreateTenant(ctx context.Context, tenant *models.Tenant) error {
	return translate(s.db.WithContext(ctx).Create(tenant).Error)
}

func (s *GormStore) UpdateTenantPlan(ctx context.Context, id uint, plan models.Plan) (*models.Tenant, error) {
	result := s.db.WithContext(ctx).Model(&models.Tenant{}).Where("id = ?", id).Update("plan", plan)
	if result.Error != nil {
		return nil, translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return s.GetTenantByID(ctx, id)
}

// ========== 用户 ==========

func (s *GormStore) GetUserByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Tenant").First(&user, id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Preload("Tenant").Where("email = ?", email).First(&user).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) ListUsers(ctx context.Context, filter UserFilter, page Page) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	query := s.db.WithContext(ctx).Model(&models.User{})
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	err := paginate(query.Preload("Tenant").Order("email ASC"), page).Find(&users).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	return users, total, nil
}

func (s *GormStore) CountUsersByRole(ctx context.Context, tenantID uint, role models.Role) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("tenant_id = ? AND role = ?", tenantID, role).
		Count(&count).Error
	return count, translate(err)
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Omit("Tenant").Create(user).Error; err != nil {
		return translate(err)
	}
	return translate(s.db.WithContext(ctx).First(&user.Tenant, user.TenantID).Error)
}

func (s *GormStore) UpdateUser(ctx context.Context, user *models.User) error {
	result := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{"email": user.Email, "role": user.Role})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteUser(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Note{}).Error; err != nil {
			return translate(err)
		}
		result := tx.Delete(&models.User{}, id)
		if result.Error != nil {
			return translate(result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

// ========== 笔记 ==========

func (s *GormStore) GetNote(ctx context.Context, id uint) (*models.Note, error) {
	var note models.Note
	if err := s.db.WithContext(ctx).Preload("Owner").First(&note, id).Error; err != nil {
		return nil, translate(err)
	}
	note.AttachOwner()
	return &note, nil
}

func (s *GormStore) ListNotes(ctx context.Context, filter NoteFilter, page Page) ([]*models.Note, int64, error) {
	var notes []*models.Note
	var total int64

	query := s.db.WithContext(ctx).Model(&models.Note{})
	if filter.TenantID != nil {
		query = query.Where("tenant_id = ?", *filter.TenantID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}

	err := paginate(query.Preload("Owner").Order("created_at DESC, id DESC"), page).Find(&notes).Error
	if err != nil {
		return nil, 0, translate(err)
	}
	for _, n := range notes {
		n.AttachOwner()
	}
	return notes, total, nil
}

func (s *GormStore) CountNotesByTenant(ctx context.Context, tenantID uint) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Note{}).Where("tenant_id = ?", tenantID).Count(&count).Error
	return count, translate(err)
}

func (s *GormStore) CreateNote(ctx context.Context, note *models.Note) error {
	return translate(s.db.WithContext(ctx).Omit("Owner").Create(note).Error)
}

// CreateNoteWithinQuota 锁住租户行后计数，保证同租户的检查与插入串行
func (s *GormStore) CreateNoteWithinQuota(ctx context.Context, note *models.Note, check QuotaCheck) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenant models.Tenant
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&tenant, note.TenantID).Error; err != nil {
			return translate(err)
		}

		var count int64
		if err := tx.Model(&models.Note{}).Where("tenant_id = ?", tenant.ID).Count(&count).Error; err != nil {
			return translate(err)
		}
		if err := check(&tenant, count); err != nil {
			return err
		}

		if err := tx.Omit("Owner").Create(note).Error; err != nil {
			return fmt.Errorf("create note: %w", translate(err))
		}
		return nil
	})
}

func (s *GormStore) UpdateNote(ctx context.Context, note *models.Note) error {
	result := s.db.WithContext(ctx).Model(note).
		Updates(map[string]interface{}{"title": note.Title, "content": note.Content})
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteNote(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&models.Note{}, id)
	if result.Error != nil {
		return translate(result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ========== 审计 ==========

func (s *GormStore) RecordAudit(ctx context.Context, entry *models.AuditLog) error {
	return translate(s.db.WithContext(ctx).Create(entry).Error)
}

func (s *GormStore) ListAudit(ctx context.Context, tenantID uint, page Page) ([]*models.AuditLog, int64, error) {
	var entries []*models.AuditLog
	var total int64

	query := s.db.WithContext(ctx).Model(&models.AuditLog{}).Where("tenant_id = ?", tenantID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, translate(err)
	}
	err := paginate(query.Order("created_at DESC, id DESC"), page).Find(&entries).Error
	return entries, total, translate(err)
}

// ========== 连接 ==========

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
