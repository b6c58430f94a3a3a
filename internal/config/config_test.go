package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfig(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configData := `
apiPort: 9000
database:
  type: sqlite
  path: /tmp/test-bookkeeper.db
billing:
  baseUrl: http://localhost:9999/v1
siteUrl: http://localhost:3000
`
	configPath := filepath.Join(tempDir, "app.yml")
	if err := os.WriteFile(configPath, []byte(configData), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.APIPort != 9000 {
		t.Errorf("Expected port 9000, got %d", cfg.APIPort)
	}
	if cfg.Database.Path != "/tmp/test-bookkeeper.db" {
		t.Errorf("Unexpected database path: %s", cfg.Database.Path)
	}
	if cfg.Billing.BaseURL != "http://localhost:9999/v1" {
		t.Errorf("Unexpected billing base URL: %s", cfg.Billing.BaseURL)
	}
	if cfg.SiteURL != "http://localhost:3000" {
		t.Errorf("Unexpected site URL: %s", cfg.SiteURL)
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	// Missing file falls back to defaults rather than failing
	cfg, err := LoadConfig(filepath.Join(tempDir, "nonexistent.yml"))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if cfg.APIPort != 8081 {
		t.Errorf("Expected default port 8081, got %d", cfg.APIPort)
	}
	if cfg.Database.Type != "sqlite" {
		t.Errorf("Expected default database type sqlite, got %s", cfg.Database.Type)
	}
	if !cfg.Database.WALMode {
		t.Error("Expected WAL mode enabled by default")
	}
	if cfg.Maintenance.UsageResetSchedule != "@monthly" {
		t.Errorf("Expected default usage reset schedule @monthly, got %s", cfg.Maintenance.UsageResetSchedule)
	}
	if cfg.Maintenance.AuditRetentionDays != 365 {
		t.Errorf("Expected default audit retention 365 days, got %d", cfg.Maintenance.AuditRetentionDays)
	}
}

func TestLoadConfigInvalidFile(t *testing.T) {
	tempDir, err := os.MkdirTemp("", "config-test")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(tempDir)

	configPath := filepath.Join(tempDir, "invalid.yml")
	invalidConfig := "apiPort: [not, a, number]"

	if err := os.WriteFile(configPath, []byte(invalidConfig), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	if _, err := LoadConfig(configPath); err == nil {
		t.Error("Expected error for invalid config, got none")
	}
}
