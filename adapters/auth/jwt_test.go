package auth_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/artpar/adminkit/adapters/auth"
)

func bearer(token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/admin/api/users", nil)
	if token != "" {
		r.Header.Set("Authorization", "Bearer "+token)
	}
	return r
}

func TestNewTokenService_DefaultExpiration(t *testing.T) {
	svc := auth.NewTokenService("secret", "", 0)

	_, expiresAt, err := svc.GenerateToken("ops", "admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	// Default should be 24 hours
	expectedExpiry := time.Now().Add(24 * time.Hour)
	if expiresAt.Before(expectedExpiry.Add(-time.Minute)) || expiresAt.After(expectedExpiry.Add(time.Minute)) {
		t.Errorf("expiration should be ~24h, got %v", expiresAt)
	}
}

func TestTokenService_RoundTrip(t *testing.T) {
	svc := auth.NewTokenService("test-secret", "", time.Hour)

	token, _, err := svc.GenerateToken("ops", "admin")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Fatalf("token should have 3 parts, got %d", len(parts))
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Subject != "ops" || claims.Role != "admin" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestTokenService_WrongSecret(t *testing.T) {
	token, _, _ := auth.NewTokenService("one", "", time.Hour).GenerateToken("ops", "admin")

	if _, err := auth.NewTokenService("two", "", time.Hour).ValidateToken(token); err == nil {
		t.Error("token signed with another secret should not validate")
	}
}

func TestTokenService_Expired(t *testing.T) {
	svc := auth.NewTokenService("secret", "", -time.Minute)
	token, _, _ := svc.GenerateToken("ops", "admin")

	if _, err := svc.ValidateToken(token); err == nil {
		t.Error("expired token should not validate")
	}
}

func TestTokenService_Check(t *testing.T) {
	svc := auth.NewTokenService("secret", "admin", time.Hour)
	adminToken, _, _ := svc.GenerateToken("ops", "admin")
	userToken, _, _ := svc.GenerateToken("bob", "user")

	tests := []struct {
		name  string
		token string
		want  bool
	}{
		{"admin role", adminToken, true},
		{"wrong role", userToken, false},
		{"garbage", "not.a.jwt", false},
		{"missing", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := svc.Check(context.Background(), bearer(tt.token))
			if err != nil {
				t.Fatalf("Check returned error: %v", err)
			}
			if ok != tt.want {
				t.Errorf("Check() = %v, want %v", ok, tt.want)
			}
		})
	}
}

func TestGenerateSecret(t *testing.T) {
	s1 := auth.GenerateSecret()
	s2 := auth.GenerateSecret()

	if len(s1) != 64 {
		t.Errorf("secret length = %d, want 64", len(s1))
	}
	if s1 == s2 {
		t.Error("secrets should be unique")
	}
}
