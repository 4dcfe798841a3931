package services

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"notely/internal/models"
	"notely/internal/policy"
	"notely/internal/store"
	apperrors "notely/pkg/errors"
	"notely/pkg/logger"
	"notely/pkg/metrics"
	"notely/pkg/queue"

	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"
)

var validate = validator.New()

// ParseID 解析路径中的数字ID，必须为正整数
func ParseID(raw string, what string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(raw), 10, 32)
	if err != nil || id == 0 {
		return 0, apperrors.BadRequest("Invalid " + what + " ID")
	}
	return uint(id), nil
}

// ParseRole 解析角色枚举
func ParseRole(raw string) (models.Role, error) {
	role := models.Role(strings.TrimSpace(raw))
	if !role.IsValid() {
		return "", apperrors.BadRequest("Invalid role")
	}
	return role, nil
}

// storeError 将存储层错误转换为业务错误；notFound 为 nil 时视为内部错误
func storeError(err error, notFound *apperrors.AppError) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound) && notFound != nil:
		return notFound
	case errors.Is(err, store.ErrDuplicate):
		return apperrors.Conflict("Email already exists")
	default:
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return err
		}
		return apperrors.Internal("Server error", err)
	}
}

// recorder 写审计记录并发布事件；两者失败都只记录日志，不影响主流程
type recorder struct {
	store     store.Store
	publisher queue.Publisher
	metrics   *metrics.Metrics
}

func (r *recorder) record(ctx context.Context, p policy.Principal, eventType, resource string, resourceID uint, details map[string]interface{}) {
	log := logger.FromContext(ctx).WithFields(logrus.Fields{
		"action":      eventType,
		"tenant_id":   p.TenantID,
		"actor_id":    p.ID,
		"resource_id": resourceID,
	})

	entry := &models.AuditLog{
		TenantID:   p.TenantID,
		ActorID:    p.ID,
		Action:     eventType,
		Resource:   resource,
		ResourceID: resourceID,
		Details:    details,
	}
	if err := r.store.RecordAudit(ctx, entry); err != nil {
		log.WithError(err).Warn("failed to write audit log")
	}

	if r.publisher == nil {
		return
	}
	event := queue.NewEvent(eventType, p.TenantID, p.ID, resourceID, details)
	event.TenantSlug = p.TenantSlug
	if err := r.publisher.Publish(ctx, event); err != nil {
		log.WithError(err).Warn("failed to publish event")
	}
}

// denied 统计被策略拒绝的请求，原样返回错误
func (r *recorder) denied(ctx context.Context, operation string, err error) error {
	kind := apperrors.KindOf(err)
	if kind != apperrors.KindInternal && r.metrics != nil {
		r.metrics.PolicyDenials.WithLabelValues(operation, string(kind)).Inc()
	}
	logger.FromContext(ctx).WithField("operation", operation).WithField("reason", kind).Debug("request denied")
	return err
}
