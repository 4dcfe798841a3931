package policy

import (
	"notely/internal/models"
	apperrors "notely/pkg/errors"
)

// DefaultFreeNoteLimit 免费租户的默认笔记上限
const DefaultFreeNoteLimit = 3

// EnforceQuota 免费租户的非管理员在租户笔记数达到上限后不能再创建。
// 计数按租户统计，每次创建都重新计算。
func EnforceQuota(plan models.Plan, role models.Role, tenantNoteCount, limit int64) error {
	if plan == models.PlanFree && role != models.RoleAdmin && tenantNoteCount >= limit {
		return apperrors.ErrQuotaExceeded
	}
	return nil
}
