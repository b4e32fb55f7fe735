package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/daybook-bot/daybook/pkg/config"
	dberrors "github.com/daybook-bot/daybook/pkg/errors"
)

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()

	if cfg.Provider.BaseURL == "" || cfg.Provider.Model == "" {
		t.Fatalf("default provider should be populated: %+v", cfg.Provider)
	}
	if cfg.Provider.Timeout <= 0 {
		t.Fatalf("default timeout should be positive: %v", cfg.Provider.Timeout)
	}
	if !cfg.Speech.Enabled || cfg.Speech.Language != "en" {
		t.Fatalf("unexpected speech defaults: %+v", cfg.Speech)
	}
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")

	content := `
provider:
  api_key: file-key
  model: file/model
access:
  allowed_user_ids: ["100", "200"]
`
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv(config.EnvAPIKey, "")
	t.Setenv(config.EnvModel, "env/model")
	t.Setenv(config.EnvAllowedUsers, "300, 400")

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Provider.APIKey != "file-key" {
		t.Fatalf("api key: %q", cfg.Provider.APIKey)
	}
	if cfg.Provider.Model != "env/model" {
		t.Fatalf("env should override file model, got %q", cfg.Provider.Model)
	}
	if !cfg.Authorized("300") || !cfg.Authorized("400") {
		t.Fatal("env allow-list should replace file allow-list")
	}
	if cfg.Authorized("100") {
		t.Fatal("file allow-list should have been replaced")
	}
}

func TestLoadAPIKeyFile(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "")
	dir := t.TempDir()
	keyPath := filepath.Join(dir, "api_key.txt")
	if err := os.WriteFile(keyPath, []byte("secret-key\n"), 0o600); err != nil {
		t.Fatalf("write key: %v", err)
	}

	cfgPath := filepath.Join(dir, "config.yaml")
	content := "provider:\n  api_key_file: " + keyPath + "\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Provider.APIKey != "secret-key" {
		t.Fatalf("expected trimmed key from file, got %q", cfg.Provider.APIKey)
	}
}

func TestLoadMissingAPIKeyFails(t *testing.T) {
	t.Setenv(config.EnvAPIKey, "")
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error without API key")
	}
	if !dberrors.IsCode(err, dberrors.ErrCodeConfigInvalid) {
		t.Fatalf("expected CONFIG_INVALID, got %v", err)
	}
}

func TestValidateFillsTimeout(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Provider.APIKey = "k"
	cfg.Provider.Timeout = -1 * time.Second

	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	if cfg.Provider.Timeout != config.DefaultModelTimeout {
		t.Fatalf("expected default timeout, got %v", cfg.Provider.Timeout)
	}
}

func TestAuthorizedEmptyListDeniesAll(t *testing.T) {
	cfg := config.DefaultConfig()
	if cfg.Authorized("1") {
		t.Fatal("empty allow-list must deny")
	}
}
