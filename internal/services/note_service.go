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
	"notely/pkg/queue"
)

// NoteInput 创建与更新笔记的输入，字段去除首尾空白后不能为空
type NoteInput struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content" validate:"required"`
}

func (in *NoteInput) normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	in.Content = strings.TrimSpace(in.Content)
	if err := validate.Struct(in); err != nil {
		return apperrors.BadRequest("Title and content are required")
	}
	return nil
}

// QuotaOptions 配额参数
type QuotaOptions struct {
	FreeNoteLimit int64
	// Strict 为 true 时计数与插入在同一事务内完成；
	// 为 false 时先计数再插入，并发请求可能使租户笔记数超过上限
	Strict bool
}

// NoteService 笔记业务
type NoteService struct {
	store   store.Store
	quota   QuotaOptions
	metrics *metrics.Metrics
	rec     *recorder
}

func NewNoteService(st store.Store, quota QuotaOptions, publisher queue.Publisher, m *metrics.Metrics) *NoteService {
	if quota.FreeNoteLimit <= 0 {
		quota.FreeNoteLimit = policy.DefaultFreeNoteLimit
	}
	return &NoteService{
		store:   st,
		quota:   quota,
		metrics: m,
		rec:     &recorder{store: st, publisher: publisher, metrics: m},
	}
}

// Create 创建笔记，归调用者及其租户所有
func (s *NoteService) Create(ctx context.Context, p policy.Principal, in NoteInput) (*models.Note, error) {
	if err := in.normalize(); err != nil {
		return nil, err
	}

	note := &models.Note{
		Title:    in.Title,
		Content:  in.Content,
		UserID:   p.ID,
		TenantID: p.TenantID,
	}

	var err error
	if s.quota.Strict {
		err = s.store.CreateNoteWithinQuota(ctx, note, func(tenant *models.Tenant, count int64) error {
			return policy.EnforceQuota(tenant.Plan, p.Role, count, s.quota.FreeNoteLimit)
		})
		err = storeError(err, apperrors.NotFound("User not found"))
	} else {
		err = s.createUnlocked(ctx, p, note)
	}
	if err != nil {
		if apperrors.KindOf(err) == apperrors.KindQuotaExceeded {
			if s.metrics != nil {
				s.metrics.QuotaRejections.WithLabelValues(p.TenantSlug).Inc()
			}
			s.rec.record(ctx, p, queue.EventQuotaRejection, "tenant", p.TenantID, nil)
			return nil, s.rec.denied(ctx, "note.create", err)
		}
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.NotesCreated.WithLabelValues(p.TenantSlug).Inc()
	}
	s.rec.record(ctx, p, queue.EventNoteCreated, "note", note.ID, map[string]interface{}{"title": note.Title})
	return note, nil
}

// createUnlocked 先计数再插入，两步之间没有锁
func (s *NoteService) createUnlocked(ctx context.Context, p policy.Principal, note *models.Note) error {
	tenant, err := s.store.GetTenantByID(ctx, p.TenantID)
	if err != nil {
		return storeError(err, apperrors.NotFound("Tenant not found"))
	}

	if tenant.Plan == models.PlanFree && !p.IsAdmin() {
		count, err := s.store.CountNotesByTenant(ctx, tenant.ID)
		if err != nil {
			return storeError(err, nil)
		}
		if err := policy.EnforceQuota(tenant.Plan, p.Role, count, s.quota.FreeNoteLimit); err != nil {
			return err
		}
	}

	return storeError(s.store.CreateNote(ctx, note), apperrors.NotFound("User not found"))
}

// List 管理员返回本租户全部笔记，成员只返回自己的；按创建时间倒序
func (s *NoteService) List(ctx context.Context, p policy.Principal, page store.Page) ([]*models.Note, int64, error) {
	tenantID, userID := policy.NoteScope(p)
	notes, total, err := s.store.ListNotes(ctx, store.NoteFilter{TenantID: &tenantID, UserID: userID}, page)
	if err != nil {
		return nil, 0, storeError(err, nil)
	}
	return notes, total, nil
}

// load 读取笔记并执行访问检查；不存在与无权访问返回同一个 NotFound
func (s *NoteService) load(ctx context.Context, p policy.Principal, operation, rawID string) (*models.Note, error) {
	id, err := ParseID(rawID, "note")
	if err != nil {
		return nil, err
	}

	note, err := s.store.GetNote(ctx, id)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, storeError(err, nil)
	}
	if err := policy.CanAccessNote(p, note); err != nil {
		return nil, s.rec.denied(ctx, operation, err)
	}
	return note, nil
}

// Get 按ID读取笔记
func (s *NoteService) Get(ctx context.Context, p policy.Principal, rawID string) (*models.Note, error) {
	return s.load(ctx, p, "note.read", rawID)
}

// Update 修改标题和内容
func (s *NoteService) Update(ctx context.Context, p policy.Principal, rawID string, in NoteInput) (*models.Note, error) {
	if _, err := ParseID(rawID, "note"); err != nil {
		return nil, err
	}
	if err := in.normalize(); err != nil {
		return nil, err
	}

	note, err := s.load(ctx, p, "note.update", rawID)
	if err != nil {
		return nil, err
	}

	note.Title = in.Title
	note.Content = in.Content
	if err := s.store.UpdateNote(ctx, note); err != nil {
		return nil, storeError(err, apperrors.NotFound("Note not found"))
	}

	s.rec.record(ctx, p, queue.EventNoteUpdated, "note", note.ID, map[string]interface{}{"title": note.Title})
	return note, nil
}

// Delete 删除笔记
func (s *NoteService) Delete(ctx context.Context, p policy.Principal, rawID string) error {
	note, err := s.load(ctx, p, "note.delete", rawID)
	if err != nil {
		return err
	}

	if err := s.store.DeleteNote(ctx, note.ID); err != nil {
		return storeError(err, apperrors.NotFound("Note not found"))
	}

	s.rec.record(ctx, p, queue.EventNoteDeleted, "note", note.ID, nil)
	return nil
}
