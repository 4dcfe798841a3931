package database

import (
	"context"
	"errors"
	"fmt"

	"notely/internal/models"
	"notely/internal/store"
	"notely/pkg/logger"
	"notely/pkg/password"
)

// DemoPassword 演示账号的密码
const DemoPassword = "password"

type seedUser struct {
	email string
	role  models.Role
}

type seedTenant struct {
	name  string
	slug  string
	users []seedUser
}

var demoTenants = []seedTenant{
	{
		name: "Acme", slug: "acme",
		users: []seedUser{
			{email: "admin@acme.test", role: models.RoleAdmin},
			{email: "user@acme.test", role: models.RoleMember},
		},
	},
	{
		name: "Globex", slug: "globex",
		users: []seedUser{
			{email: "admin@globex.test", role: models.RoleAdmin},
			{email: "user@globex.test", role: models.RoleMember},
		},
	},
}

// SeedDemoData 写入演示租户和用户，已存在的记录跳过
func SeedDemoData(ctx context.Context, st store.Store, hasher *password.Hasher) error {
	appLogger := logger.GetLogger()
	appLogger.Info("Starting seed data initialization...")

	digest, err := hasher.Hash(DemoPassword)
	if err != nil {
		return fmt.Errorf("生成密码摘要失败: %w", err)
	}

	for _, item := range demoTenants {
		tenant, err := st.GetTenantBySlug(ctx, item.slug)
		if errors.Is(err, store.ErrNotFound) {
			tenant = &models.Tenant{Name: item.name, Slug: item.slug, Plan: models.PlanFree}
			if err := st.CreateTenant(ctx, tenant); err != nil {
				return fmt.Errorf("创建租户 %s 失败: %w", item.slug, err)
			}
			appLogger.Infof("租户 %s 已创建", item.slug)
		} else if err != nil {
			return fmt.Errorf("查询租户 %s 失败: %w", item.slug, err)
		}

		for _, u := range item.users {
			_, err := st.GetUserByEmail(ctx, u.email)
			if err == nil {
				continue
			}
			if !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("查询用户 %s 失败: %w", u.email, err)
			}
			user := &models.User{Email: u.email, PasswordHash: digest, Role: u.role, TenantID: tenant.ID}
			if err := st.CreateUser(ctx, user); err != nil {
				return fmt.Errorf("创建用户 %s 失败: %w", u.email, err)
			}
		}
	}

	appLogger.Info("Seed data initialization completed successfully")
	return nil
}
