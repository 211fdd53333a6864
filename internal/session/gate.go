package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/tesseract-hub/docsearch-service/internal/cache"
	"github.com/tesseract-hub/docsearch-service/internal/models"
)

// PublicActions is the exact allow-list of actions that do not require an
// authenticated session.
var PublicActions = map[string]bool{
	"suggest":        true,
	"search_by_code": true,
	"search":         true,
	"login":          true,
	"highlight_pdf":  true,
}

// Session is an authenticated admin session bound to exactly one tenant.
// A session valid for tenant A never authorizes operations on tenant B.
type Session struct {
	Token    string    `json:"token"`
	TenantID string    `json:"tenantId"`
	Username string    `json:"username"`
	LoggedIn bool      `json:"loggedIn"`
	IssuedAt time.Time `json:"issuedAt"`
}

// Gate authenticates tenant admins and gates mutating operations.
type Gate struct {
	store  cache.Cache
	ttl    time.Duration
	logger *logrus.Logger
}

// NewGate creates a session gate backed by the given store.
func NewGate(store cache.Cache, ttl time.Duration, logger *logrus.Logger) *Gate {
	if logger == nil {
		logger = logrus.New()
	}
	return &Gate{store: store, ttl: ttl, logger: logger}
}

// Login verifies the tenant admin credentials and establishes a session
// bound to the tenant. Username compares exactly; the password is checked
// against the stored bcrypt hash (constant-time comparison inside bcrypt).
func (g *Gate) Login(ctx context.Context, tc *models.TenantConfig, username, password string) (*Session, error) {
	if username != tc.Admin.Username {
		return nil, models.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(tc.Admin.PasswordHash), []byte(password)); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	sess := &Session{
		Token:    uuid.NewString(),
		TenantID: tc.ID,
		Username: username,
		LoggedIn: true,
		IssuedAt: time.Now(),
	}
	if err := g.store.SetJSON(ctx, cache.SessionCacheKey(sess.Token), sess, g.ttl); err != nil {
		return nil, fmt.Errorf("%w: storing session: %v", models.ErrDatabase, err)
	}

	g.logger.WithFields(logrus.Fields{
		"tenant_id": tc.ID,
		"username":  username,
	}).Info("Admin login successful")
	return sess, nil
}

// Get returns the session for a token, or nil when the token is unknown
// or expired.
func (g *Gate) Get(ctx context.Context, token string) *Session {
	if token == "" {
		return nil
	}
	var sess Session
	if err := g.store.GetJSON(ctx, cache.SessionCacheKey(token), &sess); err != nil {
		g.logger.WithError(err).Warn("Failed to read session")
		return nil
	}
	if sess.Token == "" {
		return nil
	}
	return &sess
}

// Authorize reports whether the token identifies a logged-in session whose
// bound tenant equals the requested tenant. Every privileged operation
// re-checks this, even when the same browser cookie is reused across
// tenants.
func (g *Gate) Authorize(ctx context.Context, token, tenantID string) bool {
	sess := g.Get(ctx, token)
	return sess != nil && sess.LoggedIn && sess.TenantID == tenantID
}

// Logout destroys the session unconditionally.
func (g *Gate) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := g.store.Delete(ctx, cache.SessionCacheKey(token)); err != nil {
		g.logger.WithError(err).Warn("Failed to delete session")
	}
}

// HashPassword produces the bcrypt hash stored in tenant configs.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}
