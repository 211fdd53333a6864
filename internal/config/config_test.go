package config

import (
	"os"
	"path/filepath"
	"testing"
)

// chtemp runs the test from an empty directory so no config.yaml on the
// developer machine leaks into the assertions.
func chtemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
}

func TestLoadConfig_Defaults(t *testing.T) {
	chtemp(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Tenants.ConfigRoot != "./clients" {
		t.Errorf("Expected default config root ./clients, got %s", cfg.Tenants.ConfigRoot)
	}
	if cfg.Tenants.UploadsRoot != "./uploads" {
		t.Errorf("Expected default uploads root ./uploads, got %s", cfg.Tenants.UploadsRoot)
	}
	if cfg.Security.CookieName != "docsearch_session" {
		t.Errorf("Unexpected cookie name %s", cfg.Security.CookieName)
	}
	if cfg.Highlight.TimeoutSeconds != 60 {
		t.Errorf("Expected 60s highlight timeout, got %d", cfg.Highlight.TimeoutSeconds)
	}
	if cfg.Cache.SuggestTTL != 60 {
		t.Errorf("Expected 60s suggest TTL, got %d", cfg.Cache.SuggestTTL)
	}
	if cfg.Cache.SessionTTL != 86400 {
		t.Errorf("Expected 86400s session TTL, got %d", cfg.Cache.SessionTTL)
	}
	if !cfg.Security.EnableCORS {
		t.Error("Expected CORS enabled by default")
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	chtemp(t)

	t.Setenv("PORT", "9090")
	t.Setenv("TENANTS_CONFIG_ROOT", "/srv/clients")
	t.Setenv("NATS_URL", "nats://localhost:4222")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Tenants.ConfigRoot != "/srv/clients" {
		t.Errorf("Expected /srv/clients, got %s", cfg.Tenants.ConfigRoot)
	}
	if cfg.Events.NATSURL != "nats://localhost:4222" {
		t.Errorf("Expected NATS URL bound, got %s", cfg.Events.NATSURL)
	}
}

func TestLoadConfig_FromFile(t *testing.T) {
	chtemp(t)

	yaml := `server:
  port: "7070"
tenants:
  config_root: ./custom-clients
highlight:
  timeout_seconds: 30
`
	wd, _ := os.Getwd()
	if err := os.WriteFile(filepath.Join(wd, "config.yaml"), []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if cfg.Server.Port != "7070" {
		t.Errorf("Expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Tenants.ConfigRoot != "./custom-clients" {
		t.Errorf("Expected custom config root, got %s", cfg.Tenants.ConfigRoot)
	}
	if cfg.Highlight.TimeoutSeconds != 30 {
		t.Errorf("Expected 30s timeout, got %d", cfg.Highlight.TimeoutSeconds)
	}
}

func TestGetAddr(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Host = "0.0.0.0"
	cfg.Server.Port = "8080"
	if cfg.GetAddr() != "0.0.0.0:8080" {
		t.Errorf("Unexpected addr %s", cfg.GetAddr())
	}
}
