package services

import (
	"context"
	"errors"
	"strings"

	"notely/internal/models"
	"notely/internal/policy"
	"notely/internal/store"
	apperrors "notely/pkg/errors"
	"notely/pkg/metrics"
	"notely/pkg/password"
	"notely/pkg/queue"
)

var errTargetNotFound = apperrors.NotFound("User not found in this tenant")

// InviteInput 邀请用户
type InviteInput struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role"`
}

// UpdateUserInput 修改用户邮箱与角色
type UpdateUserInput struct {
	Email string `json:"email" validate:"required,email"`
	Role  string `json:"role" validate:"required"`
}

// UserService 租户内的用户管理，全部操作仅限本租户管理员
type UserService struct {
	store           store.Store
	hasher          *password.Hasher
	defaultPassword string
	rec             *recorder
}

func NewUserService(st store.Store, hasher *password.Hasher, defaultPassword string, publisher queue.Publisher, m *metrics.Metrics) *UserService {
	return &UserService{
		store:           st,
		hasher:          hasher,
		defaultPassword: defaultPassword,
		rec:             &recorder{store: st, publisher: publisher, metrics: m},
	}
}

func validateEmail(email string) error {
	if email == "" {
		return apperrors.BadRequest("Email is required")
	}
	if err := validate.Var(email, "email"); err != nil {
		return apperrors.BadRequest("Invalid email")
	}
	return nil
}

// lookupEmail 按邮箱查找用户，不存在时返回 nil
func (s *UserService) lookupEmail(ctx context.Context, email string) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(err, nil)
	}
	return user, nil
}

// Invite 以默认密码在本租户创建用户，角色缺省为 MEMBER
func (s *UserService) Invite(ctx context.Context, p policy.Principal, slug string, input InviteInput) (*models.UserView, error) {
	if err := policy.RequireTenantAdmin(p, slug); err != nil {
		return nil, s.rec.denied(ctx, "user.invite", err)
	}

	email := strings.TrimSpace(input.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	role := models.RoleMember
	if strings.TrimSpace(input.Role) != "" {
		parsed, err := ParseRole(input.Role)
		if err != nil {
			return nil, err
		}
		role = parsed
	}

	existing, err := s.lookupEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if err := policy.CheckInviteEmail(existing); err != nil {
		return nil, s.rec.denied(ctx, "user.invite", err)
	}

	digest, err := s.hasher.Hash(s.defaultPassword)
	if err != nil {
		return nil, apperrors.Internal("Server error", err)
	}
	user := &models.User{
		Email:        email,
		PasswordHash: digest,
		Role:         role,
		TenantID:     p.TenantID,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, storeError(err, nil)
	}

	created, err := s.store.GetUserByID(ctx, user.ID)
	if err != nil {
		return nil, storeError(err, nil)
	}
	s.rec.record(ctx, p, queue.EventUserInvited, "user", user.ID, map[string]interface{}{
		"email": email,
		"role":  string(role),
	})
	view := created.View()
	return &view, nil
}

// loadTarget 解析路径中的用户ID并确认该用户属于本租户
func (s *UserService) loadTarget(ctx context.Context, p policy.Principal, operation, slug, rawUserID string) (*models.User, error) {
	userID, err := ParseID(rawUserID, "user")
	if err != nil {
		return nil, err
	}
	if err := policy.RequireTenantAdmin(p, slug); err != nil {
		return nil, s.rec.denied(ctx, operation, err)
	}

	target, err := s.store.GetUserByID(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, storeError(err, nil)
	}
	if err := policy.CheckUserInTenant(p.TenantID, target); err != nil {
		return nil, s.rec.denied(ctx, operation, err)
	}
	return target, nil
}

// Update 修改本租户用户的邮箱和角色
func (s *UserService) Update(ctx context.Context, p policy.Principal, slug, rawUserID string, input UpdateUserInput) (*models.UserView, error) {
	target, err := s.loadTarget(ctx, p, "user.update", slug, rawUserID)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(input.Email)
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	role, err := ParseRole(input.Role)
	if err != nil {
		return nil, err
	}

	if email != target.Email {
		owner, err := s.lookupEmail(ctx, email)
		if err != nil {
			return nil, err
		}
		if err := policy.CheckEmailChange(p.TenantID, target.ID, owner); err != nil {
			return nil, s.rec.denied(ctx, "user.update", err)
		}
	}

	if target.Role == models.RoleAdmin && role == models.RoleMember {
		admins, err := s.store.CountUsersByRole(ctx, p.TenantID, models.RoleAdmin)
		if err != nil {
			return nil, storeError(err, nil)
		}
		if err := policy.CheckRoleChange(target.Role, role, admins); err != nil {
			return nil, s.rec.denied(ctx, "user.update", err)
		}
	}

	previous := map[string]interface{}{"email": target.Email, "role": string(target.Role)}
	target.Email = email
	target.Role = role
	if err := s.store.UpdateUser(ctx, target); err != nil {
		return nil, storeError(err, errTargetNotFound)
	}

	s.rec.record(ctx, p, queue.EventUserUpdated, "user", target.ID, map[string]interface{}{
		"before": previous,
		"email":  email,
		"role":   string(role),
	})
	view := target.View()
	return &view, nil
}

// Delete 删除本租户的成员及其笔记，管理员不可删除
func (s *UserService) Delete(ctx context.Context, p policy.Principal, slug, rawUserID string) error {
	target, err := s.loadTarget(ctx, p, "user.delete", slug, rawUserID)
	if err != nil {
		return err
	}
	if err := policy.CheckUserDeletion(target); err != nil {
		return s.rec.denied(ctx, "user.delete", err)
	}
	if err := s.store.DeleteUser(ctx, target.ID); err != nil {
		return storeError(err, errTargetNotFound)
	}
	s.rec.record(ctx, p, queue.EventUserDeleted, "user", target.ID, map[string]interface{}{
		"email": target.Email,
	})
	return nil
}
