package provisioner

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/tesseract-hub/docsearch-service/internal/events"
	"github.com/tesseract-hub/docsearch-service/internal/models"
	"github.com/tesseract-hub/docsearch-service/internal/session"
	"github.com/tesseract-hub/docsearch-service/internal/tenants"
)

var (
	provisionIDAllowed = regexp.MustCompile(`[^a-z0-9_-]`)
	hexColorPattern    = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)
)

// Request carries everything needed to provision a new tenant.
type Request struct {
	ClientID       string
	ClientName     string
	AdminUser      string
	AdminPass      string
	PrimaryColor   string
	HighlighterURL string
	Database       models.TenantDatabaseConfig
	Logo           io.Reader
	LogoFilename   string
}

// Result describes the provisioned tenant.
type Result struct {
	ClientID   string `json:"clientId"`
	ClientName string `json:"clientName"`
	Database   string `json:"database"`
}

// Provisioner creates a new tenant's isolated config, storage directory
// and schema. On any failure it removes everything it created.
type Provisioner struct {
	directory *tenants.Directory
	publisher *events.Publisher
	logger    *logrus.Logger
}

// New creates a provisioner over the tenant directory.
func New(directory *tenants.Directory, publisher *events.Publisher, logger *logrus.Logger) *Provisioner {
	if logger == nil {
		logger = logrus.New()
	}
	return &Provisioner{directory: directory, publisher: publisher, logger: logger}
}

// Provision validates the request, lays down the tenant's config and
// uploads directories, writes tenant.yaml and migrates the tenant schema.
func (p *Provisioner) Provision(ctx context.Context, req Request) (*Result, error) {
	id, err := p.validate(req)
	if err != nil {
		return nil, err
	}

	if p.directory.Exists(id) {
		return nil, fmt.Errorf("%w: tenant %q already exists", models.ErrValidation, id)
	}

	configDir := filepath.Join(p.directory.ConfigRoot(), id)
	uploadsDir := filepath.Join(p.directory.UploadsRoot(), id)

	cleanup := func() {
		os.RemoveAll(configDir)
		os.RemoveAll(uploadsDir)
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating tenant config dir: %v", models.ErrStorage, err)
	}
	if err := os.MkdirAll(uploadsDir, 0755); err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: creating tenant uploads dir: %v", models.ErrStorage, err)
	}

	logoPath := ""
	if req.Logo != nil {
		if !strings.EqualFold(filepath.Ext(req.LogoFilename), ".png") {
			cleanup()
			return nil, fmt.Errorf("%w: logo must be a PNG file", models.ErrValidation)
		}
		logoPath = filepath.Join(configDir, "logo.png")
		if err := writeFile(logoPath, req.Logo); err != nil {
			cleanup()
			return nil, err
		}
	}

	passHash, err := session.HashPassword(req.AdminPass)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	cfg := &models.TenantConfig{
		ID:       id,
		Database: req.Database,
		Branding: models.Branding{
			ClientName:   req.ClientName,
			LogoPath:     logoPath,
			PrimaryColor: req.PrimaryColor,
			HoverColor:   DarkenColor(req.PrimaryColor, 20),
		},
		Admin: models.AdminCredentials{
			Username:     req.AdminUser,
			PasswordHash: passHash,
		},
		Highlighter: models.HighlighterConfig{URL: req.HighlighterURL},
	}

	if err := writeTenantConfig(filepath.Join(configDir, "tenant.yaml"), cfg); err != nil {
		cleanup()
		return nil, err
	}

	// Resolving the fresh tenant connects to its database and migrates
	// the documents/codes schema; a connection failure rolls everything
	// back so a half-provisioned tenant never lingers.
	p.directory.Forget(id)
	if _, err := p.directory.Resolve(ctx, id); err != nil {
		cleanup()
		p.directory.Forget(id)
		return nil, err
	}

	if p.publisher != nil {
		if err := p.publisher.PublishTenantProvisioned(ctx, id, req.ClientName); err != nil {
			p.logger.WithError(err).Warn("Failed to publish tenant.provisioned event")
		}
	}

	p.logger.WithFields(logrus.Fields{
		"tenant_id": id,
		"name":      req.ClientName,
	}).Info("Tenant provisioned")

	return &Result{
		ClientID:   id,
		ClientName: req.ClientName,
		Database:   req.Database.Name,
	}, nil
}

func (p *Provisioner) validate(req Request) (string, error) {
	id := provisionIDAllowed.ReplaceAllString(strings.ToLower(strings.TrimSpace(req.ClientID)), "")
	if id == "" {
		return "", fmt.Errorf("%w: client id is not valid", models.ErrValidation)
	}
	required := map[string]string{
		"client_name":   req.ClientName,
		"admin_user":    req.AdminUser,
		"admin_pass":    req.AdminPass,
		"color_primary": req.PrimaryColor,
		"db_name":       req.Database.Name,
		"db_user":       req.Database.User,
		"db_host":       req.Database.Host,
	}
	for field, value := range required {
		if strings.TrimSpace(value) == "" {
			return "", fmt.Errorf("%w: field %q is required", models.ErrValidation, field)
		}
	}
	if !hexColorPattern.MatchString(req.PrimaryColor) {
		return "", fmt.Errorf("%w: color must be a hex value like #DC2626", models.ErrValidation)
	}
	return id, nil
}

// DarkenColor darkens a #RRGGBB color by the given percentage, used to
// derive the hover color from the primary.
func DarkenColor(hex string, percent int) string {
	if !hexColorPattern.MatchString(hex) {
		return hex
	}
	var r, g, b int
	fmt.Sscanf(strings.TrimPrefix(hex, "#"), "%02x%02x%02x", &r, &g, &b)

	factor := 1 - float64(percent)/100
	darken := func(v int) int {
		d := int(float64(v) * factor)
		if d < 0 {
			return 0
		}
		if d > 255 {
			return 255
		}
		return d
	}
	return fmt.Sprintf("#%02x%02x%02x", darken(r), darken(g), darken(b))
}

func writeTenantConfig(path string, cfg *models.TenantConfig) error {
	v := viper.New()
	v.Set("id", cfg.ID)
	v.Set("database.host", cfg.Database.Host)
	v.Set("database.port", cfg.Database.Port)
	v.Set("database.name", cfg.Database.Name)
	v.Set("database.user", cfg.Database.User)
	v.Set("database.password", cfg.Database.Password)
	v.Set("database.ssl_mode", cfg.Database.SSLMode)
	v.Set("branding.client_name", cfg.Branding.ClientName)
	v.Set("branding.logo_path", cfg.Branding.LogoPath)
	v.Set("branding.primary_color", cfg.Branding.PrimaryColor)
	v.Set("branding.hover_color", cfg.Branding.HoverColor)
	v.Set("admin.username", cfg.Admin.Username)
	v.Set("admin.password_hash", cfg.Admin.PasswordHash)
	v.Set("highlighter.url", cfg.Highlighter.URL)
	v.Set("highlighter.insecure_skip_verify", cfg.Highlighter.InsecureSkipVerify)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("%w: writing tenant config: %v", models.ErrStorage, err)
	}
	return nil
}

func writeFile(path string, content io.Reader) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: creating %s: %v", models.ErrStorage, path, err)
	}
	defer f.Close()
	if _, err := io.Copy(f, content); err != nil {
		return fmt.Errorf("%w: writing %s: %v", models.ErrStorage, path, err)
	}
	return nil
}
