package models

import (
	"time"

	"gorm.io/datatypes"
)

// AuditLog 租户内写操作的审计记录
type AuditLog struct {
	ID         uint              `json:"id" gorm:"primarykey"`
	TenantID   uint              `json:"tenantId" gorm:"not null;index"`
	ActorID    uint              `json:"actorId" gorm:"not null"`
	Action     string            `json:"action" gorm:"not null;size:50"`
	Resource   string            `json:"resource" gorm:"not null;size:20"`
	ResourceID uint              `json:"resourceId"`
	Details    datatypes.JSONMap `json:"details" gorm:"type:jsonb"`
	CreatedAt  time.Time         `json:"createdAt" gorm:"index"`
}

// TableName 表名
func (a *AuditLog) TableName() string {
	return "audit_logs"
}
