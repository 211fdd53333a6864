package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Tenants   TenantsConfig   `mapstructure:"tenants"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Security  SecurityConfig  `mapstructure:"security"`
	Highlight HighlightConfig `mapstructure:"highlight"`
	Events    EventsConfig    `mapstructure:"events"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port         string `mapstructure:"port"`
	Host         string `mapstructure:"host"`
	ReadTimeout  int    `mapstructure:"read_timeout"`
	WriteTimeout int    `mapstructure:"write_timeout"`
	IdleTimeout  int    `mapstructure:"idle_timeout"`
}

// TenantsConfig locates the per-tenant configuration and upload trees.
// Each tenant owns {config_root}/{id}/tenant.yaml and {uploads_root}/{id}/.
type TenantsConfig struct {
	ConfigRoot  string `mapstructure:"config_root"`
	UploadsRoot string `mapstructure:"uploads_root"`
}

// CacheConfig holds Redis configuration for sessions and suggest caching
type CacheConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	Host       string `mapstructure:"host"`
	Port       string `mapstructure:"port"`
	Password   string `mapstructure:"password"`
	DB         int    `mapstructure:"db"`
	PoolSize   int    `mapstructure:"pool_size"`
	SuggestTTL int    `mapstructure:"suggest_ttl"`
	SessionTTL int    `mapstructure:"session_ttl"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	TimeFormat string `mapstructure:"time_format"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableCORS     bool     `mapstructure:"enable_cors"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	CookieName     string   `mapstructure:"cookie_name"`
	CookieSecure   bool     `mapstructure:"cookie_secure"`
	ProvisionToken string   `mapstructure:"provision_token"`
}

// HighlightConfig bounds the call-out to the external highlight service
type HighlightConfig struct {
	TimeoutSeconds int `mapstructure:"timeout_seconds"`
}

// EventsConfig holds NATS configuration; an empty URL disables publishing
type EventsConfig struct {
	NATSURL string `mapstructure:"nats_url"`
}

// LoadConfig loads configuration from various sources
func LoadConfig() (*Config, error) {
	config := &Config{}

	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/docsearch-service")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.SetEnvPrefix("DOCSEARCH")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine - we'll use defaults and env vars
	}

	bindEnvVars()

	if err := viper.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", 10)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.idle_timeout", 60)

	// Tenant tree defaults
	viper.SetDefault("tenants.config_root", "./clients")
	viper.SetDefault("tenants.uploads_root", "./uploads")

	// Cache defaults
	viper.SetDefault("cache.enabled", true)
	viper.SetDefault("cache.host", "localhost")
	viper.SetDefault("cache.port", "6379")
	viper.SetDefault("cache.db", 0)
	viper.SetDefault("cache.pool_size", 10)
	viper.SetDefault("cache.suggest_ttl", 60)
	viper.SetDefault("cache.session_ttl", 86400)

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.output", "stdout")
	viper.SetDefault("logging.time_format", "2006-01-02T15:04:05Z07:00")

	// Security defaults
	viper.SetDefault("security.enable_cors", true)
	viper.SetDefault("security.cookie_name", "docsearch_session")
	viper.SetDefault("security.cookie_secure", false)

	// Highlight defaults
	viper.SetDefault("highlight.timeout_seconds", 60)
}

// bindEnvVars binds environment variables to configuration keys
func bindEnvVars() {
	viper.BindEnv("server.port", "PORT")
	viper.BindEnv("server.host", "HOST")

	viper.BindEnv("tenants.config_root", "TENANTS_CONFIG_ROOT")
	viper.BindEnv("tenants.uploads_root", "TENANTS_UPLOADS_ROOT")

	viper.BindEnv("cache.enabled", "CACHE_ENABLED")
	viper.BindEnv("cache.host", "REDIS_HOST")
	viper.BindEnv("cache.port", "REDIS_PORT")
	viper.BindEnv("cache.password", "REDIS_PASSWORD")
	viper.BindEnv("cache.db", "REDIS_DB")
	viper.BindEnv("cache.pool_size", "REDIS_POOL_SIZE")

	viper.BindEnv("security.provision_token", "PROVISION_TOKEN")
	viper.BindEnv("security.enable_cors", "ENABLE_CORS")

	viper.BindEnv("events.nats_url", "NATS_URL")
}

// validateConfig validates the loaded configuration
func validateConfig(config *Config) error {
	if config.Tenants.ConfigRoot == "" {
		return fmt.Errorf("tenants config root is required")
	}
	if config.Tenants.UploadsRoot == "" {
		return fmt.Errorf("tenants uploads root is required")
	}
	if config.Highlight.TimeoutSeconds <= 0 {
		return fmt.Errorf("highlight timeout must be greater than 0")
	}
	if config.Cache.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be greater than 0")
	}
	return nil
}

// GetAddr returns the server address
func (c *Config) GetAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := os.Getenv("GO_ENV")
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	env := os.Getenv("GO_ENV")
	return env == "development" || env == "dev" || env == ""
}
