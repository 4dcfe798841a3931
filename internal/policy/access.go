// Package policy 实现租户范围的访问规则与免费套餐配额。
//
// 检查顺序固定：先比对租户，再比对角色，最后比对资源归属。
// 对跨租户的笔记和用户统一返回 NotFound，调用方无法借此判断资源是否存在。
package policy

import (
	"notely/internal/models"
	apperrors "notely/pkg/errors"
)

var (
	errTenantMismatch = apperrors.Forbidden("Forbidden: tenant mismatch")
	errAdminOnly      = apperrors.Forbidden("Forbidden: admin role required")
	errNoteNotFound   = apperrors.NotFound("Note not found")
	errUserNotFound   = apperrors.NotFound("User not found in this tenant")
	errEmailTaken     = apperrors.Conflict("Email already exists in this tenant")
	errUserExists     = apperrors.Conflict("User already exists")
	errLastAdmin      = apperrors.Invariant("Cannot demote the last admin")
	errDeleteAdmin    = apperrors.Invariant("Cannot delete admin")
)

// RequireSameTenant 路径中的租户必须是调用者所属租户
func RequireSameTenant(p Principal, slug string) error {
	if p.TenantSlug != slug {
		return errTenantMismatch
	}
	return nil
}

// RequireAdmin 调用者必须是管理员
func RequireAdmin(p Principal) error {
	if !p.IsAdmin() {
		return errAdminOnly
	}
	return nil
}

// RequireTenantAdmin 调用者必须是该租户的管理员；租户不一致优先于角色判断
func RequireTenantAdmin(p Principal, slug string) error {
	if err := RequireSameTenant(p, slug); err != nil {
		return err
	}
	return RequireAdmin(p)
}

// NoteScope 列表可见范围：管理员看本租户全部笔记，成员只看自己的
func NoteScope(p Principal) (tenantID uint, userID *uint) {
	if p.IsAdmin() {
		return p.TenantID, nil
	}
	id := p.ID
	return p.TenantID, &id
}

// CanAccessNote 按ID读取、修改、删除笔记
func CanAccessNote(p Principal, note *models.Note) error {
	if note == nil || note.TenantID != p.TenantID {
		return errNoteNotFound
	}
	if !p.IsAdmin() && note.UserID != p.ID {
		return errNoteNotFound
	}
	return nil
}

// CheckUserInTenant 目标用户必须属于该租户
func CheckUserInTenant(tenantID uint, target *models.User) error {
	if target == nil || target.TenantID != tenantID {
		return errUserNotFound
	}
	return nil
}

// CheckInviteEmail 邀请时邮箱在全局范围内不能已存在
func CheckInviteEmail(existing *models.User) error {
	if existing != nil {
		return errUserExists
	}
	return nil
}

// CheckEmailChange 新邮箱不能被同租户的其他用户占用
func CheckEmailChange(tenantID uint, targetID uint, owner *models.User) error {
	if owner != nil && owner.TenantID == tenantID && owner.ID != targetID {
		return errEmailTaken
	}
	return nil
}

// CheckRoleChange 不允许把租户的最后一个管理员降级为成员
func CheckRoleChange(current, next models.Role, tenantAdminCount int64) error {
	if current == models.RoleAdmin && next == models.RoleMember && tenantAdminCount <= 1 {
		return errLastAdmin
	}
	return nil
}

// CheckUserDeletion 管理员不能被删除
func CheckUserDeletion(target *models.User) error {
	if target.Role == models.RoleAdmin {
		return errDeleteAdmin
	}
	return nil
}
