package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() *Config {
	return &Config{
		Telegram: TelegramConfig{Token: "123:abc"},
	}
}

func TestNormalizeDefaults(t *testing.T) {
	cfg := validConfig()
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("run_mode = %q, want longpoll", cfg.Telegram.RunMode)
	}
	if cfg.Storage.Backend != BackendFile {
		t.Fatalf("backend = %q, want file", cfg.Storage.Backend)
	}
	if cfg.Storage.File.Path != "users.json" {
		t.Fatalf("file path = %q", cfg.Storage.File.Path)
	}
	if cfg.DraftTTL() != 30*time.Minute {
		t.Fatalf("draft ttl = %v", cfg.DraftTTL())
	}
	if cfg.SheetsTimeout() != 10*time.Second {
		t.Fatalf("sheets timeout = %v", cfg.SheetsTimeout())
	}
}

func TestNormalizeRequiresToken(t *testing.T) {
	if err := Normalize(&Config{}); err == nil {
		t.Fatal("expected error for missing token")
	}
}

func TestNormalizeWebhookRequiresURL(t *testing.T) {
	cfg := validConfig()
	cfg.Telegram.RunMode = RunModeWebhook
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for webhook mode without url")
	}

	cfg.Webhook = WebhookConfig{URL: "https://example.com/hook", Listen: "0.0.0.0", Port: 10000}
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
}

func TestNormalizeRejectsUnknownBackend(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Backend = "redis"
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for unknown backend")
	}
}

func TestNormalizePostgresRequiresHost(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.Backend = BackendPostgres
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for postgres backend without host")
	}
}

func TestNormalizeSheetsRequiresSpreadsheet(t *testing.T) {
	cfg := validConfig()
	cfg.Sheets.Enabled = true
	if err := Normalize(cfg); err == nil {
		t.Fatal("expected error for sheets without spreadsheet id")
	}
	cfg.Sheets.SpreadsheetID = "abc"
	if err := Normalize(cfg); err != nil {
		t.Fatalf("normalize: %v", err)
	}
	if cfg.Sheets.SheetName == "" {
		t.Fatal("sheet name default not applied")
	}
}

func TestLoadYAMLWithEnvOverlay(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	body := `
telegram:
  token: from-yaml
  run_mode: polling
wizard:
  draft_ttl_minutes: 5
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("BOT_TOKEN", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Telegram.Token != "from-env" {
		t.Fatalf("token = %q, env must win", cfg.Telegram.Token)
	}
	if cfg.Telegram.RunMode != RunModeLongpoll {
		t.Fatalf("polling alias not normalized: %q", cfg.Telegram.RunMode)
	}
	if cfg.DraftTTL() != 5*time.Minute {
		t.Fatalf("draft ttl = %v", cfg.DraftTTL())
	}
}
