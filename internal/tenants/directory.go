package tenants

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tesseract-hub/docsearch-service/internal/models"
	"github.com/tesseract-hub/docsearch-service/internal/utils"
)

// Opener turns a tenant's database configuration into a GORM dialector.
// Injectable so tests can run tenants on sqlite.
type Opener func(cfg models.TenantDatabaseConfig) gorm.Dialector

// PostgresOpener is the default production opener.
func PostgresOpener(cfg models.TenantDatabaseConfig) gorm.Dialector {
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	dsn := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, sslMode,
	)
	return postgres.Open(dsn)
}

// Context is one tenant's fully resolved isolated context: its immutable
// configuration, its database handle and its upload directory. Built once
// per request by the tenant middleware and passed explicitly to every
// operation.
type Context struct {
	ID          string
	Config      *models.TenantConfig
	DB          *gorm.DB
	StorageRoot string
}

// Directory resolves tenant identifiers to their isolated contexts. Tenant
// configs and database handles are cached per tenant id.
type Directory struct {
	configRoot  string
	uploadsRoot string
	opener      Opener
	logger      *logrus.Logger

	mu      sync.RWMutex
	configs map[string]*models.TenantConfig
	dbs     map[string]*gorm.DB
}

// NewDirectory creates a tenant directory over the given config and
// uploads roots. A nil opener defaults to Postgres.
func NewDirectory(configRoot, uploadsRoot string, opener Opener, logger *logrus.Logger) *Directory {
	if logger == nil {
		logger = logrus.New()
	}
	if opener == nil {
		opener = PostgresOpener
	}
	return &Directory{
		configRoot:  configRoot,
		uploadsRoot: uploadsRoot,
		opener:      opener,
		logger:      logger,
		configs:     make(map[string]*models.TenantConfig),
		dbs:         make(map[string]*gorm.DB),
	}
}

// ConfigRoot returns the root directory holding per-tenant configuration.
func (d *Directory) ConfigRoot() string {
	return d.configRoot
}

// UploadsRoot returns the root directory holding per-tenant uploads.
func (d *Directory) UploadsRoot() string {
	return d.uploadsRoot
}

// Resolve sanitizes a raw tenant identifier and returns the tenant's
// isolated context, or models.ErrTenantNotFound when no such tenant is
// provisioned. No partial matches, no case folding.
func (d *Directory) Resolve(ctx context.Context, rawID string) (*Context, error) {
	id := utils.SanitizeTenantID(rawID)
	if id == "" {
		return nil, fmt.Errorf("%w: empty tenant id", models.ErrTenantNotFound)
	}

	cfg, err := d.loadConfig(id)
	if err != nil {
		return nil, err
	}

	db, err := d.openDB(ctx, id, cfg)
	if err != nil {
		return nil, err
	}

	return &Context{
		ID:          id,
		Config:      cfg,
		DB:          db.WithContext(ctx),
		StorageRoot: filepath.Join(d.uploadsRoot, id),
	}, nil
}

// Forget drops a tenant's cached config and database handle. Used by the
// provisioner after writing a fresh tenant.yaml.
func (d *Directory) Forget(id string) {
	d.mu.Lock()
	delete(d.configs, id)
	delete(d.dbs, id)
	d.mu.Unlock()
}

// Exists reports whether a tenant with the given (already sanitized) id is
// provisioned.
func (d *Directory) Exists(id string) bool {
	_, err := os.Stat(filepath.Join(d.configRoot, id, "tenant.yaml"))
	return err == nil
}

func (d *Directory) loadConfig(id string) (*models.TenantConfig, error) {
	d.mu.RLock()
	cfg, ok := d.configs[id]
	d.mu.RUnlock()
	if ok {
		return cfg, nil
	}

	path := filepath.Join(d.configRoot, id, "tenant.yaml")
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrTenantNotFound, id)
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: reading tenant config for %s: %v", models.ErrDatabase, id, err)
	}

	cfg = &models.TenantConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing tenant config for %s: %v", models.ErrDatabase, id, err)
	}
	cfg.ID = id

	d.mu.Lock()
	d.configs[id] = cfg
	d.mu.Unlock()

	d.logger.WithField("tenant_id", id).Debug("Tenant config loaded")
	return cfg, nil
}

func (d *Directory) openDB(ctx context.Context, id string, cfg *models.TenantConfig) (*gorm.DB, error) {
	d.mu.RLock()
	db, ok := d.dbs[id]
	d.mu.RUnlock()
	if ok {
		return db, nil
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if db, ok := d.dbs[id]; ok {
		return db, nil
	}

	gormLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Silent,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(d.opener(cfg.Database), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("%w: connecting tenant %s: %v", models.ErrDatabase, id, err)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}

	d.dbs[id] = db
	d.logger.WithField("tenant_id", id).Info("Connected to tenant database")
	return db, nil
}

// Migrate creates the documents/codes schema on a tenant database.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Document{}, &models.Code{}); err != nil {
		return fmt.Errorf("%w: migrating tenant schema: %v", models.ErrDatabase, err)
	}
	return nil
}
