package services

import (
	"context"
	"errors"

	"notely/internal/models"
	"notely/internal/policy"
	"notely/internal/store"
	apperrors "notely/pkg/errors"
	"notely/pkg/metrics"
	"notely/pkg/queue"
)

var errTenantNotFound = apperrors.NotFound("Tenant not found")

// TenantService 租户信息、套餐与成员列表
type TenantService struct {
	store     store.Store
	publisher queue.Publisher
	rec       *recorder
}

func NewTenantService(st store.Store, publisher queue.Publisher, m *metrics.Metrics) *TenantService {
	return &TenantService{
		store:     st,
		publisher: publisher,
		rec:       &recorder{store: st, publisher: publisher, metrics: m},
	}
}

// loadAdministered 校验调用者是该租户管理员并读取租户
func (s *TenantService) loadAdministered(ctx context.Context, p policy.Principal, operation, slug string) (*models.Tenant, error) {
	if err := policy.RequireTenantAdmin(p, slug); err != nil {
		return nil, s.rec.denied(ctx, operation, err)
	}
	tenant, err := s.store.GetTenantBySlug(ctx, slug)
	if err != nil {
		return nil, storeError(err, errTenantNotFound)
	}
	return tenant, nil
}

// Get 读取租户信息（仅本租户管理员）
func (s *TenantService) Get(ctx context.Context, p policy.Principal, slug string) (*models.Tenant, error) {
	return s.loadAdministered(ctx, p, "tenant.read", slug)
}

// TogglePlan 在 FREE 与 PRO 之间切换；降级不会删除已有笔记
func (s *TenantService) TogglePlan(ctx context.Context, p policy.Principal, slug string) (*models.Tenant, error) {
	tenant, err := s.loadAdministered(ctx, p, "tenant.toggle_plan", slug)
	if err != nil {
		return nil, err
	}
	return s.setPlan(ctx, p, tenant, tenant.Plan.Toggled())
}

// Upgrade 升级到 PRO，已是 PRO 时原样返回
func (s *TenantService) Upgrade(ctx context.Context, p policy.Principal, slug string) (*models.Tenant, error) {
	tenant, err := s.loadAdministered(ctx, p, "tenant.upgrade", slug)
	if err != nil {
		return nil, err
	}
	if tenant.Plan == models.PlanPro {
		return tenant, nil
	}
	return s.setPlan(ctx, p, tenant, models.PlanPro)
}

func (s *TenantService) setPlan(ctx context.Context, p policy.Principal, tenant *models.Tenant, plan models.Plan) (*models.Tenant, error) {
	previous := tenant.Plan
	updated, err := s.store.UpdateTenantPlan(ctx, tenant.ID, plan)
	if err != nil {
		return nil, storeError(err, errTenantNotFound)
	}
	s.rec.record(ctx, p, queue.EventTenantPlan, "tenant", tenant.ID, map[string]interface{}{
		"from": string(previous),
		"to":   string(plan),
	})
	return updated, nil
}

// ListUsers 列出本租户成员，任意角色都可查看，其他租户一律拒绝
func (s *TenantService) ListUsers(ctx context.Context, p policy.Principal, slug string, page store.Page) ([]models.UserView, int64, error) {
	if err := policy.RequireSameTenant(p, slug); err != nil {
		return nil, 0, s.rec.denied(ctx, "tenant.list_users", err)
	}
	tenantID := p.TenantID
	return s.listUsers(ctx, store.UserFilter{TenantID: &tenantID}, page)
}

// ListAllUsers 跨租户的全局用户列表，仅管理员
func (s *TenantService) ListAllUsers(ctx context.Context, p policy.Principal, page store.Page) ([]models.UserView, int64, error) {
	if err := policy.RequireAdmin(p); err != nil {
		return nil, 0, s.rec.denied(ctx, "tenant.list_all_users", err)
	}
	return s.listUsers(ctx, store.UserFilter{}, page)
}

func (s *TenantService) listUsers(ctx context.Context, filter store.UserFilter, page store.Page) ([]models.UserView, int64, error) {
	users, total, err := s.store.ListUsers(ctx, filter, page)
	if err != nil {
		return nil, 0, storeError(err, nil)
	}
	views := make([]models.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, u.View())
	}
	return views, total, nil
}

// AuditLog 本租户的审计记录，仅管理员
func (s *TenantService) AuditLog(ctx context.Context, p policy.Principal, slug string, page store.Page) ([]*models.AuditLog, int64, error) {
	tenant, err := s.loadAdministered(ctx, p, "tenant.audit", slug)
	if err != nil {
		return nil, 0, err
	}
	entries, total, err := s.store.ListAudit(ctx, tenant.ID, page)
	if err != nil {
		return nil, 0, storeError(err, nil)
	}
	return entries, total, nil
}

// RecentEvents 本租户最近发布的领域事件，仅管理员
func (s *TenantService) RecentEvents(ctx context.Context, p policy.Principal, slug string, limit int64) ([]queue.Event, error) {
	tenant, err := s.loadAdministered(ctx, p, "tenant.events", slug)
	if err != nil {
		return nil, err
	}
	if s.publisher == nil {
		return []queue.Event{}, nil
	}
	events, err := s.publisher.Recent(ctx, tenant.ID, limit)
	if err != nil {
		return nil, apperrors.Internal("Server error", err)
	}
	return events, nil
}

// SubscribeEvents 订阅本租户的实时事件，仅管理员
func (s *TenantService) SubscribeEvents(ctx context.Context, p policy.Principal, slug string) (<-chan queue.Event, func(), error) {
	tenant, err := s.loadAdministered(ctx, p, "tenant.events_stream", slug)
	if err != nil {
		return nil, nil, err
	}
	if s.publisher == nil {
		return nil, nil, apperrors.Internal("Server error", errors.New("event publisher not configured"))
	}
	events, cancel, err := s.publisher.Subscribe(ctx, tenant.ID)
	if err != nil {
		return nil, nil, apperrors.Internal("Server error", err)
	}
	return events, cancel, nil
}
