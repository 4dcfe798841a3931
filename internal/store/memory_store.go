package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"notely/internal/models"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore 进程内实现，用于测试和 DB_DRIVER=memory。
// 所有方法在同一把锁下执行，返回值都是副本。
type MemoryStore struct {
	mu      sync.RWMutex
	nextID  uint
	tenants map[uint]models.Tenant
	users   map[uint]models.User
	notes   map[uint]models.Note
	audit   []models.AuditLog
	now     func() time.Time
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants: make(map[uint]models.Tenant),
		users:   make(map[uint]models.User),
		notes:   make(map[uint]models.Note),
		now:     time.Now,
	}
}

func (s *MemoryStore) id() uint {
	s.nextID++
	return s.nextID
}

func applyPage[T any](items []T, page Page) []T {
	if page.Limit <= 0 {
		return items
	}
	if page.Offset >= len(items) {
		return []T{}
	}
	end := page.Offset + page.Limit
	if end > len(items) {
		end = len(items)
	}
	return items[page.Offset:end]
}

// ========== 租户 ==========

func (s *MemoryStore) GetTenantByID(_ context.Context, id uint) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &t, nil
}

func (s *MemoryStore) GetTenantBySlug(_ context.Context, slug string) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.tenants {
		if t.Slug == slug {
			t := t
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListTenants(_ context.Context) ([]*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		t := t
		out = append(out, &t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out, nil
}

func (s *MemoryStore) CreateTenant(_ context.Context, tenant *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tenants {
		if t.Slug == tenant.Slug {
			return ErrDuplicate
		}
	}
	if tenant.Plan == "" {
		tenant.Plan = models.PlanFree
	}
	now := s.now()
	tenant.ID = s.id()
	tenant.CreatedAt, tenant.UpdatedAt = now, now
	s.tenants[tenant.ID] = *tenant
	return nil
}

func (s *MemoryStore) UpdateTenantPlan(_ context.Context, id uint, plan models.Plan) (*models.Tenant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenants[id]
	if !ok {
		return nil, ErrNotFound
	}
	t.Plan = plan
	t.UpdatedAt = s.now()
	s.tenants[id] = t
	return &t, nil
}

// ========== 用户 ==========

// withTenant 复制用户并附上租户，调用方持有锁
func (s *MemoryStore) withTenant(u models.User) *models.User {
	u.Tenant = s.tenants[u.TenantID]
	return &u
}

func (s *MemoryStore) GetUserByID(_ context.Context, id uint) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.withTenant(u), nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return s.withTenant(u), nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) ListUsers(_ context.Context, filter UserFilter, page Page) ([]*models.User, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.User{}
	for _, u := range s.users {
		if filter.TenantID != nil && u.TenantID != *filter.TenantID {
			continue
		}
		out = append(out, s.withTenant(u))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return applyPage(out, page), int64(len(out)), nil
}

func (s *MemoryStore) CountUsersByRole(_ context.Context, tenantID uint, role models.Role) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int64
	for _, u := range s.users {
		if u.TenantID == tenantID && u.Role == role {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) emailTaken(email string, exceptID uint) bool {
	for _, u := range s.users {
		if u.Email == email && u.ID != exceptID {
			return true
		}
	}
	return false
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tenants[user.TenantID]; !ok {
		return ErrNotFound
	}
	if s.emailTaken(user.Email, 0) {
		return ErrDuplicate
	}
	now := s.now()
	user.ID = s.id()
	user.CreatedAt, user.UpdatedAt = now, now
	stored := *user
	stored.Tenant = models.Tenant{}
	s.users[user.ID] = stored
	user.Tenant = s.tenants[user.TenantID]
	return nil
}

func (s *MemoryStore) UpdateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.users[user.ID]
	if !ok {
		return ErrNotFound
	}
	if s.emailTaken(user.Email, user.ID) {
		return ErrDuplicate
	}
	existing.Email = user.Email
	existing.Role = user.Role
	existing.UpdatedAt = s.now()
	s.users[user.ID] = existing
	return nil
}

func (s *MemoryStore) DeleteUser(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	for noteID, n := range s.notes {
		if n.UserID == id {
			delete(s.notes, noteID)
		}
	}
	delete(s.users, id)
	return nil
}

// ========== 笔记 ==========

// withOwner 复制笔记并附上作者，调用方持有锁
func (s *MemoryStore) withOwner(n models.Note) *models.Note {
	if u, ok := s.users[n.UserID]; ok {
		n.User = &models.NoteOwner{ID: u.ID, Email: u.Email}
	}
	n.Owner = nil
	return &n
}

func (s *MemoryStore) GetNote(_ context.Context, id uint) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n, ok := s.notes[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s.withOwner(n), nil
}

func (s *MemoryStore) ListNotes(_ context.Context, filter NoteFilter, page Page) ([]*models.Note, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.Note{}
	for _, n := range s.notes {
		if filter.TenantID != nil && n.TenantID != *filter.TenantID {
			continue
		}
		if filter.UserID != nil && n.UserID != *filter.UserID {
			continue
		}
		out = append(out, s.withOwner(n))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return applyPage(out, page), int64(len(out)), nil
}

func (s *MemoryStore) countNotes(tenantID uint) int64 {
	var count int64
	for _, n := range s.notes {
		if n.TenantID == tenantID {
			count++
		}
	}
	return count
}

func (s *MemoryStore) CountNotesByTenant(_ context.Context, tenantID uint) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.countNotes(tenantID), nil
}

func (s *MemoryStore) insertNote(note *models.Note) {
	now := s.now()
	note.ID = s.id()
	note.CreatedAt, note.UpdatedAt = now, now
	stored := *note
	stored.Owner, stored.User = nil, nil
	s.notes[note.ID] = stored
	if u, ok := s.users[note.UserID]; ok {
		note.User = &models.NoteOwner{ID: u.ID, Email: u.Email}
	}
}

func (s *MemoryStore) CreateNote(_ context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[note.UserID]; !ok {
		return ErrNotFound
	}
	s.insertNote(note)
	return nil
}

func (s *MemoryStore) CreateNoteWithinQuota(_ context.Context, note *models.Note, check QuotaCheck) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenant, ok := s.tenants[note.TenantID]
	if !ok {
		return ErrNotFound
	}
	if _, ok := s.users[note.UserID]; !ok {
		return ErrNotFound
	}
	if err := check(&tenant, s.countNotes(tenant.ID)); err != nil {
		return err
	}
	s.insertNote(note)
	return nil
}

func (s *MemoryStore) UpdateNote(_ context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.notes[note.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Title = note.Title
	existing.Content = note.Content
	existing.UpdatedAt = s.now()
	s.notes[note.ID] = existing
	note.UpdatedAt = existing.UpdatedAt
	return nil
}

func (s *MemoryStore) DeleteNote(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; !ok {
		return ErrNotFound
	}
	delete(s.notes, id)
	return nil
}

// ========== 审计 ==========

func (s *MemoryStore) RecordAudit(_ context.Context, entry *models.AuditLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = s.id()
	entry.CreatedAt = s.now()
	s.audit = append(s.audit, *entry)
	return nil
}

func (s *MemoryStore) ListAudit(_ context.Context, tenantID uint, page Page) ([]*models.AuditLog, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.AuditLog{}
	for i := len(s.audit) - 1; i >= 0; i-- {
		if s.audit[i].TenantID == tenantID {
			entry := s.audit[i]
			out = append(out, &entry)
		}
	}
	return applyPage(out, page), int64(len(out)), nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }
