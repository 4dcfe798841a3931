package services

import (
	"context"
	"testing"
	"time"

	"notely/internal/models"
	"notely/internal/policy"
	"notely/internal/store"
	apperrors "notely/pkg/errors"
	"notely/pkg/jwt"
	"notely/pkg/metrics"
	"notely/pkg/password"
	"notely/pkg/queue"

	"golang.org/x/crypto/bcrypt"
)

// fixture 两个免费租户，各有一名管理员和一名成员，密码均为 "password"
type fixture struct {
	store     *store.MemoryStore
	publisher *queue.MemoryPublisher
	metrics   *metrics.Metrics
	hasher    *password.Hasher

	auth    *AuthService
	notes   *NoteService
	tenants *TenantService
	users   *UserService

	acme, globex                     *models.Tenant
	acmeAdmin, acmeUser, globexAdmin *models.User
}

func newFixture(t *testing.T, strict bool) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		store:     store.NewMemoryStore(),
		publisher: queue.NewMemoryPublisher(100),
		metrics:   metrics.New("notely-test"),
		hasher:    password.NewHasher(bcrypt.MinCost),
	}

	digest, err := f.hasher.Hash("password")
	if err != nil {
		t.Fatalf("Hash() error: %v", err)
	}

	createTenant := func(slug, name string) *models.Tenant {
		tenant := &models.Tenant{Name: name, Slug: slug, Plan: models.PlanFree}
		if err := f.store.CreateTenant(ctx, tenant); err != nil {
			t.Fatalf("CreateTenant(%s) error: %v", slug, err)
		}
		return tenant
	}
	createUser := func(email string, role models.Role, tenant *models.Tenant) *models.User {
		user := &models.User{Email: email, PasswordHash: digest, Role: role, TenantID: tenant.ID}
		if err := f.store.CreateUser(ctx, user); err != nil {
			t.Fatalf("CreateUser(%s) error: %v", email, err)
		}
		return user
	}

	f.acme = createTenant("acme", "Acme")
	f.globex = createTenant("globex", "Globex")
	f.acmeAdmin = createUser("admin@acme.test", models.RoleAdmin, f.acme)
	f.acmeUser = createUser("user@acme.test", models.RoleMember, f.acme)
	f.globexAdmin = createUser("admin@globex.test", models.RoleAdmin, f.globex)

	f.auth = NewAuthService(f.store, f.hasher, jwt.NewJWTManager("test-secret", time.Hour), f.metrics)
	f.notes = NewNoteService(f.store, QuotaOptions{FreeNoteLimit: 3, Strict: strict}, f.publisher, f.metrics)
	f.tenants = NewTenantService(f.store, f.publisher, f.metrics)
	f.users = NewUserService(f.store, f.hasher, "password", f.publisher, f.metrics)
	return f
}

func principalOf(u *models.User) policy.Principal {
	return policy.Principal{
		ID:         u.ID,
		Email:      u.Email,
		Role:       u.Role,
		TenantID:   u.TenantID,
		TenantSlug: u.Tenant.Slug,
	}
}

func assertKind(t *testing.T, err error, want apperrors.Kind) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	if got := apperrors.KindOf(err); got != want {
		t.Fatalf("expected %s error, got %s (%v)", want, got, err)
	}
}
