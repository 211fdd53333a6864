package models

// TenantDatabaseConfig holds a tenant's database connection parameters.
type TenantDatabaseConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Name     string `mapstructure:"name" yaml:"name"`
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	SSLMode  string `mapstructure:"ssl_mode" yaml:"ssl_mode"`
}

// Branding holds the tenant's portal customization data.
type Branding struct {
	ClientName   string `mapstructure:"client_name" yaml:"client_name" json:"clientName"`
	LogoPath     string `mapstructure:"logo_path" yaml:"logo_path" json:"logoPath"`
	PrimaryColor string `mapstructure:"primary_color" yaml:"primary_color" json:"primaryColor"`
	HoverColor   string `mapstructure:"hover_color" yaml:"hover_color" json:"hoverColor"`
}

// AdminCredentials holds the tenant admin login. The password is stored
// as a bcrypt hash, never in the clear.
type AdminCredentials struct {
	Username     string `mapstructure:"username" yaml:"username"`
	PasswordHash string `mapstructure:"password_hash" yaml:"password_hash"`
}

// HighlighterConfig points at the tenant's external PDF highlight service.
// InsecureSkipVerify opts into the legacy unverified-TLS mode; it defaults
// to false and must be set explicitly per tenant.
type HighlighterConfig struct {
	URL                string `mapstructure:"url" yaml:"url"`
	InsecureSkipVerify bool   `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
}

// TenantConfig is the full per-tenant configuration record, loaded from
// the tenant's tenant.yaml and immutable for the duration of a request.
type TenantConfig struct {
	ID               string               `mapstructure:"id" yaml:"id"`
	Database         TenantDatabaseConfig `mapstructure:"database" yaml:"database"`
	Branding         Branding             `mapstructure:"branding" yaml:"branding"`
	Admin            AdminCredentials     `mapstructure:"admin" yaml:"admin"`
	Highlighter      HighlighterConfig    `mapstructure:"highlighter" yaml:"highlighter"`
	DeletePassphrase string               `mapstructure:"delete_passphrase" yaml:"delete_passphrase"`
}
