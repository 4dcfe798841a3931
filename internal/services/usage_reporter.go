package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"notely/internal/models"
	"notely/internal/store"
	"notely/pkg/logger"
	"notely/pkg/metrics"
	"notely/pkg/queue"

	"github.com/robfig/cron/v3"
)

// TenantUsage 单个租户的用量快照
type TenantUsage struct {
	TenantID  uint        `json:"tenantId"`
	Slug      string      `json:"slug"`
	Plan      models.Plan `json:"plan"`
	NoteCount int64       `json:"noteCount"`
	Limit     int64       `json:"limit,omitempty"`
}

// UsageReporter 定时统计各租户笔记数，写入指标并发布用量事件
type UsageReporter struct {
	store     store.Store
	publisher queue.Publisher
	metrics   *metrics.Metrics
	limit     int64
	spec      string

	cron    *cron.Cron
	entryID cron.EntryID
	mu      sync.Mutex
	running bool
}

// NewUsageReporter 创建用量报告器，spec 为 cron 表达式（支持 @every 1h）
func NewUsageReporter(st store.Store, publisher queue.Publisher, m *metrics.Metrics, freeNoteLimit int64, spec string) *UsageReporter {
	return &UsageReporter{
		store:     st,
		publisher: publisher,
		metrics:   m,
		limit:     freeNoteLimit,
		spec:      spec,
		cron:      cron.New(),
	}
}

// Start 注册定时任务并启动
func (r *UsageReporter) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return nil
	}

	log := logger.GetLogger()
	entryID, err := r.cron.AddFunc(r.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := r.Report(ctx); err != nil {
			log.WithError(err).Error("租户用量统计失败")
		}
	})
	if err != nil {
		return fmt.Errorf("无效的用量统计周期 %q: %w", r.spec, err)
	}

	r.entryID = entryID
	r.cron.Start()
	r.running = true
	log.Infof("租户用量报告已启动，周期: %s", r.spec)
	return nil
}

// Stop 停止调度并等待正在执行的任务结束
func (r *UsageReporter) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}

	ctx := r.cron.Stop()
	<-ctx.Done()
	r.cron.Remove(r.entryID)
	r.running = false
	logger.GetLogger().Info("租户用量报告已停止")
}

// Report 立即统计一次
func (r *UsageReporter) Report(ctx context.Context) ([]TenantUsage, error) {
	tenants, err := r.store.ListTenants(ctx)
	if err != nil {
		return nil, fmt.Errorf("查询租户失败: %w", err)
	}

	if r.metrics != nil {
		// 套餐是标签的一部分，切换后旧序列需要清掉
		r.metrics.TenantNotesGauge.Reset()
	}

	log := logger.FromContext(ctx)
	usage := make([]TenantUsage, 0, len(tenants))
	for _, tenant := range tenants {
		count, err := r.store.CountNotesByTenant(ctx, tenant.ID)
		if err != nil {
			log.WithError(err).WithField("tenant", tenant.Slug).Warn("统计租户笔记数失败")
			continue
		}

		item := TenantUsage{
			TenantID:  tenant.ID,
			Slug:      tenant.Slug,
			Plan:      tenant.Plan,
			NoteCount: count,
		}
		if tenant.Plan == models.PlanFree {
			item.Limit = r.limit
		}
		usage = append(usage, item)

		if r.metrics != nil {
			r.metrics.TenantNotesGauge.WithLabelValues(tenant.Slug, string(tenant.Plan)).Set(float64(count))
		}
		if r.publisher != nil {
			event := queue.NewEvent(queue.EventTenantUsage, tenant.ID, 0, 0, map[string]interface{}{
				"plan":  string(tenant.Plan),
				"notes": count,
				"limit": item.Limit,
			})
			event.TenantSlug = tenant.Slug
			if err := r.publisher.Publish(ctx, event); err != nil {
				log.WithError(err).Warn("发布用量事件失败")
			}
		}
	}

	log.Debugf("租户用量统计完成，共 %d 个租户", len(usage))
	return usage, nil
}
