package services

import (
	"context"
	"testing"

	"notely/internal/models"
	apperrors "notely/pkg/errors"
)

func TestAuthService_Login(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	result, err := f.auth.Login(ctx, "admin@acme.test", "password")
	if err != nil {
		t.Fatalf("Login() error: %v", err)
	}
	if result.Token == "" {
		t.Fatal("expected a token")
	}
	want := PublicUser{ID: f.acmeAdmin.ID, Email: "admin@acme.test", Role: models.RoleAdmin, TenantID: f.acme.ID, TenantSlug: "acme"}
	if result.User != want {
		t.Errorf("unexpected user %+v", result.User)
	}

	p, err := f.auth.Authenticate(result.Token)
	if err != nil {
		t.Fatalf("Authenticate() error: %v", err)
	}
	if p != principalOf(f.acmeAdmin) {
		t.Errorf("token principal %+v does not match login", p)
	}
}

func TestAuthService_LoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	_, unknown := f.auth.Login(ctx, "nobody@acme.test", "password")
	_, wrong := f.auth.Login(ctx, "admin@acme.test", "wrong")
	_, empty := f.auth.Login(ctx, "", "")

	for _, err := range []error{unknown, wrong, empty} {
		assertKind(t, err, apperrors.KindInvalidCredentials)
		if err.Error() != "Invalid credentials" {
			t.Errorf("unexpected message %q", err.Error())
		}
	}
	if got := counterValue(t, f, "auth_login_attempts_total", map[string]string{"result": "invalid"}); got != 3 {
		t.Errorf("expected 3 failed logins counted, got %v", got)
	}
}

func TestAuthService_Authenticate(t *testing.T) {
	f := newFixture(t, false)

	_, err := f.auth.Authenticate("")
	assertKind(t, err, apperrors.KindUnauthenticated)

	_, err = f.auth.Authenticate("not-a-token")
	assertKind(t, err, apperrors.KindInvalidToken)
}

func TestAuthService_Me(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	view, err := f.auth.Me(ctx, principalOf(f.acmeUser))
	if err != nil {
		t.Fatalf("Me() error: %v", err)
	}
	if view.Email != "user@acme.test" || view.Tenant.Slug != "acme" {
		t.Errorf("unexpected view %+v", view)
	}

	if err := f.store.DeleteUser(ctx, f.acmeUser.ID); err != nil {
		t.Fatalf("DeleteUser() error: %v", err)
	}
	_, err = f.auth.Me(ctx, principalOf(f.acmeUser))
	assertKind(t, err, apperrors.KindNotFound)
}
