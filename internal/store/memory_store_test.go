package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"notely/internal/models"
)

func seedTenantAndUser(t *testing.T, s *MemoryStore, slug, email string, role models.Role) (*models.Tenant, *models.User) {
	t.Helper()
	ctx := context.Background()

	tenant, err := s.GetTenantBySlug(ctx, slug)
	if errors.Is(err, ErrNotFound) {
		tenant = &models.Tenant{Name: slug, Slug: slug, Plan: models.PlanFree}
		if err := s.CreateTenant(ctx, tenant); err != nil {
			t.Fatalf("CreateTenant() error: %v", err)
		}
	}
	user := &models.User{Email: email, PasswordHash: "x", Role: role, TenantID: tenant.ID}
	if err := s.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser() error: %v", err)
	}
	return tenant, user
}

func TestMemoryStore_UniqueKeys(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	tenant, _ := seedTenantAndUser(t, s, "acme", "admin@acme.test", models.RoleAdmin)

	if err := s.CreateTenant(ctx, &models.Tenant{Name: "dup", Slug: "acme"}); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for slug, got %v", err)
	}
	dup := &models.User{Email: "admin@acme.test", Role: models.RoleMember, TenantID: tenant.ID}
	if err := s.CreateUser(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("expected ErrDuplicate for email, got %v", err)
	}
}

func TestMemoryStore_UserHasTenantPreloaded(t *testing.T) {
	s := NewMemoryStore()
	_, user := seedTenantAndUser(t, s, "acme", "user@acme.test", models.RoleMember)

	if user.Tenant.Slug != "acme" {
		t.Errorf("expected created user to carry tenant, got %+v", user.Tenant)
	}
	got, err := s.GetUserByEmail(context.Background(), "user@acme.test")
	if err != nil {
		t.Fatalf("GetUserByEmail() error: %v", err)
	}
	if got.Tenant.Slug != "acme" || got.ID != user.ID {
		t.Errorf("unexpected user %+v", got)
	}
}

func TestMemoryStore_ListNotesOrderAndFilter(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time { clock = clock.Add(time.Minute); return clock }

	acme, admin := seedTenantAndUser(t, s, "acme", "admin@acme.test", models.RoleAdmin)
	_, member := seedTenantAndUser(t, s, "acme", "user@acme.test", models.RoleMember)
	_, globex := seedTenantAndUser(t, s, "globex", "admin@globex.test", models.RoleAdmin)

	for _, n := range []*models.Note{
		{Title: "a1", Content: "c", UserID: admin.ID, TenantID: acme.ID},
		{Title: "m1", Content: "c", UserID: member.ID, TenantID: acme.ID},
		{Title: "g1", Content: "c", UserID: globex.ID, TenantID: globex.TenantID},
	} {
		if err := s.CreateNote(ctx, n); err != nil {
			t.Fatalf("CreateNote() error: %v", err)
		}
	}

	notes, total, err := s.ListNotes(ctx, NoteFilter{TenantID: &acme.ID}, Page{})
	if err != nil {
		t.Fatalf("ListNotes() error: %v", err)
	}
	if total != 2 || len(notes) != 2 {
		t.Fatalf("expected 2 acme notes, got %d", total)
	}
	if notes[0].Title != "m1" || notes[1].Title != "a1" {
		t.Errorf("expected newest first, got %q then %q", notes[0].Title, notes[1].Title)
	}
	if notes[0].User == nil || notes[0].User.Email != "user@acme.test" {
		t.Errorf("expected owner on note, got %+v", notes[0].User)
	}

	page, total, _ := s.ListNotes(ctx, NoteFilter{TenantID: &acme.ID}, Page{Offset: 1, Limit: 1})
	if total != 2 || len(page) != 1 || page[0].Title != "a1" {
		t.Errorf("unexpected page %+v (total %d)", page, total)
	}

	empty, _, _ := s.ListNotes(ctx, NoteFilter{UserID: &member.ID}, Page{Offset: 5, Limit: 1})
	if empty == nil || len(empty) != 0 {
		t.Errorf("expected empty non-nil page, got %v", empty)
	}
}

func TestMemoryStore_DeleteUserRemovesNotes(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	acme, member := seedTenantAndUser(t, s, "acme", "user@acme.test", models.RoleMember)

	note := &models.Note{Title: "t", Content: "c", UserID: member.ID, TenantID: acme.ID}
	if err := s.CreateNote(ctx, note); err != nil {
		t.Fatalf("CreateNote() error: %v", err)
	}
	if err := s.DeleteUser(ctx, member.ID); err != nil {
		t.Fatalf("DeleteUser() error: %v", err)
	}
	if _, err := s.GetNote(ctx, note.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected note to be deleted with its owner, got %v", err)
	}
	if err := s.DeleteUser(ctx, member.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestMemoryStore_CreateNoteWithinQuotaSerializes(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	acme, member := seedTenantAndUser(t, s, "acme", "user@acme.test", models.RoleMember)

	errCapped := errors.New("capped")
	check := func(_ *models.Tenant, count int64) error {
		if count >= 3 {
			return errCapped
		}
		return nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.CreateNoteWithinQuota(ctx, &models.Note{Title: "t", Content: "c", UserID: member.ID, TenantID: acme.ID}, check)
		}()
	}
	wg.Wait()

	count, _ := s.CountNotesByTenant(ctx, acme.ID)
	if count != 3 {
		t.Errorf("expected exactly 3 notes under transactional quota, got %d", count)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	acme, _ := seedTenantAndUser(t, s, "acme", "admin@acme.test", models.RoleAdmin)

	got, _ := s.GetTenantByID(ctx, acme.ID)
	got.Plan = models.PlanPro

	again, _ := s.GetTenantByID(ctx, acme.ID)
	if again.Plan != models.PlanFree {
		t.Errorf("mutating a returned tenant must not change the store")
	}
}
