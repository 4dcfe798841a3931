package jwt

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testIdentity() Identity {
	return Identity{UserID: 7, Email: "user@acme.test", Role: "MEMBER", TenantID: 1, TenantSlug: "acme"}
}

func TestGenerateAndVerify_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	token, expiresAt, err := m.GenerateToken(testIdentity())
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}
	if time.Until(expiresAt) > time.Hour || time.Until(expiresAt) < 59*time.Minute {
		t.Errorf("unexpected expiry %v", expiresAt)
	}

	claims, err := m.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken() error: %v", err)
	}
	if got := claims.Identity(); got != testIdentity() {
		t.Errorf("Identity() = %+v, want %+v", got, testIdentity())
	}
}

func TestVerifyToken_Expired(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	issued := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issued }

	token, _, err := m.GenerateToken(testIdentity())
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}

	m.now = time.Now
	if _, err := m.VerifyToken(token); !errors.Is(err, jwt.ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	token, _, err := NewJWTManager("secret", time.Hour).GenerateToken(testIdentity())
	if err != nil {
		t.Fatalf("GenerateToken() error: %v", err)
	}

	if _, err := NewJWTManager("other", time.Hour).VerifyToken(token); !errors.Is(err, jwt.ErrTokenSignatureInvalid) {
		t.Errorf("expected signature error, got %v", err)
	}
}

func TestVerifyToken_RejectsOtherHMACAlgorithms(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	id := testIdentity()
	now := time.Now()
	claims := Claims{
		UserID:     id.UserID,
		Email:      id.Email,
		Role:       id.Role,
		TenantID:   id.TenantID,
		TenantSlug: id.TenantSlug,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	for _, method := range []jwt.SigningMethod{jwt.SigningMethodHS384, jwt.SigningMethodHS512} {
		t.Run(method.Alg(), func(t *testing.T) {
			token, err := jwt.NewWithClaims(method, claims).SignedString([]byte("secret"))
			if err != nil {
				t.Fatalf("SignedString() error: %v", err)
			}
			if _, err := m.VerifyToken(token); err == nil {
				t.Errorf("expected %s token to be rejected", method.Alg())
			}
		})
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("SignedString() error: %v", err)
	}
	if _, err := m.VerifyToken(token); err != nil {
		t.Errorf("expected HS256 token to verify, got %v", err)
	}
}

func TestVerifyToken_MissingClaims(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)

	tests := []struct {
		name   string
		mutate func(*Identity)
		want   error
	}{
		{"no id", func(i *Identity) { i.UserID = 0 }, ErrMissingClaims},
		{"no email", func(i *Identity) { i.Email = "" }, ErrMissingClaims},
		{"no tenant id", func(i *Identity) { i.TenantID = 0 }, ErrMissingClaims},
		{"no tenant slug", func(i *Identity) { i.TenantSlug = "" }, ErrMissingClaims},
		{"no role", func(i *Identity) { i.Role = "" }, ErrMissingClaims},
		{"unknown role", func(i *Identity) { i.Role = "OWNER" }, ErrInvalidRole},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id := testIdentity()
			tt.mutate(&id)
			token, _, err := m.GenerateToken(id)
			if err != nil {
				t.Fatalf("GenerateToken() error: %v", err)
			}
			if _, err := m.VerifyToken(token); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestVerifyToken_Garbage(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	if _, err := m.VerifyToken("not.a.token"); err == nil {
		t.Error("expected error for malformed token")
	}
}
