package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tesseract-hub/docsearch-service/internal/cache"
	"github.com/tesseract-hub/docsearch-service/internal/models"
)

func testTenant(t *testing.T, id, user, pass string) *models.TenantConfig {
	t.Helper()
	hash, err := HashPassword(pass)
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}
	return &models.TenantConfig{
		ID: id,
		Admin: models.AdminCredentials{
			Username:     user,
			PasswordHash: hash,
		},
	}
}

func TestLoginAndAuthorize(t *testing.T) {
	gate := NewGate(cache.NewMemoryCache(), time.Hour, nil)
	ctx := context.Background()
	tc := testTenant(t, "acme", "admin", "s3cret")

	sess, err := gate.Login(ctx, tc, "admin", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if sess.Token == "" {
		t.Fatal("Expected a session token")
	}

	if !gate.Authorize(ctx, sess.Token, "acme") {
		t.Error("Expected token to authorize its own tenant")
	}
}

func TestLogin_WrongPassword(t *testing.T) {
	gate := NewGate(cache.NewMemoryCache(), time.Hour, nil)
	tc := testTenant(t, "acme", "admin", "s3cret")

	_, err := gate.Login(context.Background(), tc, "admin", "wrong")
	if !errors.Is(err, models.ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLogin_WrongUsername(t *testing.T) {
	gate := NewGate(cache.NewMemoryCache(), time.Hour, nil)
	tc := testTenant(t, "acme", "admin", "s3cret")

	_, err := gate.Login(context.Background(), tc, "root", "s3cret")
	if !errors.Is(err, models.ErrInvalidCredentials) {
		t.Errorf("Expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthorize_CrossTenantRejected(t *testing.T) {
	gate := NewGate(cache.NewMemoryCache(), time.Hour, nil)
	ctx := context.Background()
	tc := testTenant(t, "acme", "admin", "s3cret")

	sess, err := gate.Login(ctx, tc, "admin", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	// A valid acme session must never authorize another tenant.
	if gate.Authorize(ctx, sess.Token, "globex") {
		t.Error("Session bound to acme authorized globex")
	}
}

func TestAuthorize_UnknownToken(t *testing.T) {
	gate := NewGate(cache.NewMemoryCache(), time.Hour, nil)
	if gate.Authorize(context.Background(), "not-a-token", "acme") {
		t.Error("Unknown token authorized")
	}
	if gate.Authorize(context.Background(), "", "acme") {
		t.Error("Empty token authorized")
	}
}

func TestLogout(t *testing.T) {
	gate := NewGate(cache.NewMemoryCache(), time.Hour, nil)
	ctx := context.Background()
	tc := testTenant(t, "acme", "admin", "s3cret")

	sess, err := gate.Login(ctx, tc, "admin", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	gate.Logout(ctx, sess.Token)
	if gate.Authorize(ctx, sess.Token, "acme") {
		t.Error("Token still valid after logout")
	}
}

func TestSessionExpiry(t *testing.T) {
	gate := NewGate(cache.NewMemoryCache(), 10*time.Millisecond, nil)
	ctx := context.Background()
	tc := testTenant(t, "acme", "admin", "s3cret")

	sess, err := gate.Login(ctx, tc, "admin", "s3cret")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	time.Sleep(20 * time.Millisecond)
	if gate.Authorize(ctx, sess.Token, "acme") {
		t.Error("Expired session authorized")
	}
}
