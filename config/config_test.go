package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeTestConfig(t, `
server: {}
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Storage.MetadataDriver != "memory" {
		t.Errorf("Expected default metadata driver memory, got %s", cfg.Storage.MetadataDriver)
	}
	if cfg.Storage.BlobDriver != "memory" {
		t.Errorf("Expected default blob driver memory, got %s", cfg.Storage.BlobDriver)
	}
	if cfg.Model.MaxTokens != 2000 {
		t.Errorf("Expected default max_tokens 2000, got %d", cfg.Model.MaxTokens)
	}
	if cfg.Model.Temperature != 0.3 {
		t.Errorf("Expected default temperature 0.3, got %f", cfg.Model.Temperature)
	}
	if cfg.Create.TolerateMetadataFailure == nil || !*cfg.Create.TolerateMetadataFailure {
		t.Error("Expected tolerate_metadata_failure to default to true")
	}
	if cfg.Auth.TokenExpireHours != 24 {
		t.Errorf("Expected default token expiry 24h, got %d", cfg.Auth.TokenExpireHours)
	}
}

func TestLoadExplicitValues(t *testing.T) {
	path := writeTestConfig(t, `
server:
  port: 9090
storage:
  metadata_driver: redis
  blob_driver: minio
create:
  tolerate_metadata_failure: false
users:
  - username: alice
    password: secret
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Storage.MetadataDriver != "redis" {
		t.Errorf("Expected redis metadata driver, got %s", cfg.Storage.MetadataDriver)
	}
	if *cfg.Create.TolerateMetadataFailure {
		t.Error("Expected tolerate_metadata_failure false to be preserved")
	}
	if !cfg.AuthEnabled() {
		t.Error("Expected auth enabled with configured users")
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("MODEL_API_KEY", "env-key")

	path := writeTestConfig(t, `
model:
  api_key: file-key
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Model.APIKey != "env-key" {
		t.Errorf("Expected env to override api_key, got %s", cfg.Model.APIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestFindUser(t *testing.T) {
	cfg := &Config{Users: []User{
		{Username: "alice", Password: "a"},
		{Username: "bob", Password: "b"},
	}}

	if u := cfg.FindUser("bob"); u == nil || u.Password != "b" {
		t.Error("Expected to find bob")
	}
	if cfg.FindUser("carol") != nil {
		t.Error("Expected nil for unknown user")
	}
}
