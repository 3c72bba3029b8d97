package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

const (
	// BackendFile selects the JSON snapshot profile store.
	BackendFile = "file"
	// BackendPostgres selects the Postgres profile store.
	BackendPostgres = "postgres"
)

// TelegramConfig holds Telegram bot settings.
type TelegramConfig struct {
	Token   string `yaml:"token" envconfig:"BOT_TOKEN"`
	RunMode string `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL    string `yaml:"url" envconfig:"WEBHOOK_URL"`
	Listen string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port   int    `yaml:"port" envconfig:"WEBHOOK_PORT"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Format      string `yaml:"format"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile"`
}

// RateLimitConfig holds settings for rate limiting.
type RateLimitConfig struct {
	IntervalMS     int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeUpdates []string `yaml:"exclude_updates" envconfig:"RATE_LIMIT_EXCLUDE_UPDATES"`
}

// FileStoreConfig locates the JSON snapshot file.
type FileStoreConfig struct {
	Path string `yaml:"path" envconfig:"USERS_FILE"`
}

// PostgresConfig holds database connection settings.
type PostgresConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// StorageConfig selects and configures the profile store backend.
type StorageConfig struct {
	Backend  string          `yaml:"backend" envconfig:"STORAGE_BACKEND"`
	File     FileStoreConfig `yaml:"file"`
	Postgres PostgresConfig  `yaml:"postgres"`
}

// SheetsConfig configures the Google Sheets mirror.
type SheetsConfig struct {
	Enabled       bool   `yaml:"enabled" envconfig:"SHEETS_ENABLED"`
	SpreadsheetID string `yaml:"spreadsheet_id" envconfig:"SHEETS_SPREADSHEET_ID"`
	SheetName     string `yaml:"sheet_name" envconfig:"SHEETS_SHEET_NAME"`
	// Credentials accepts inline service-account JSON or a path to a key file.
	Credentials    string `yaml:"credentials" envconfig:"GOOGLE_CREDENTIALS_JSON"`
	TimeoutSeconds int    `yaml:"timeout_seconds" envconfig:"SHEETS_TIMEOUT_SECONDS"`
}

// WizardConfig controls registration wizard behaviour.
type WizardConfig struct {
	DraftTTLMinutes int `yaml:"draft_ttl_minutes" envconfig:"WIZARD_DRAFT_TTL_MINUTES"`
}

// Config aggregates all bot configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Storage   StorageConfig   `yaml:"storage"`
	Sheets    SheetsConfig    `yaml:"sheets"`
	Wizard    WizardConfig    `yaml:"wizard"`
}

// DraftTTL returns the configured draft lifetime.
func (c *Config) DraftTTL() time.Duration {
	if c.Wizard.DraftTTLMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(c.Wizard.DraftTTLMinutes) * time.Minute
}

// SheetsTimeout returns the bounded timeout for a single sync call.
func (c *Config) SheetsTimeout() time.Duration {
	if c.Sheets.TimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.Sheets.TimeoutSeconds) * time.Second
}

// Load reads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	if cfg.Telegram.Token == "" {
		return fmt.Errorf("telegram token is required")
	}

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	if rm == "" {
		rm = RunModeLongpoll
	}
	if rm == "polling" { // accept alias
		rm = RunModeLongpoll
	}
	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if strings.TrimSpace(cfg.Webhook.Listen) == "" {
			return fmt.Errorf("webhook.listen is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	case RunModeLongpoll:
		if cfg.Telegram.LongPollTimeoutSeconds < 0 {
			return fmt.Errorf("telegram.longpoll_timeout_seconds must be >= 0")
		}
	default:
		return fmt.Errorf("invalid telegram.run_mode %q; allowed: webhook, longpoll", cfg.Telegram.RunMode)
	}
	cfg.Telegram.RunMode = rm

	backend := strings.ToLower(strings.TrimSpace(cfg.Storage.Backend))
	if backend == "" {
		backend = BackendFile
	}
	switch backend {
	case BackendFile:
		if strings.TrimSpace(cfg.Storage.File.Path) == "" {
			cfg.Storage.File.Path = "users.json"
		}
	case BackendPostgres:
		if strings.TrimSpace(cfg.Storage.Postgres.Host) == "" {
			return fmt.Errorf("storage.postgres.host is required when storage.backend is 'postgres'")
		}
		if strings.TrimSpace(cfg.Storage.Postgres.Name) == "" {
			return fmt.Errorf("storage.postgres.name is required when storage.backend is 'postgres'")
		}
		if cfg.Storage.Postgres.MaxConnections <= 0 {
			cfg.Storage.Postgres.MaxConnections = 4
		}
	default:
		return fmt.Errorf("invalid storage.backend %q; allowed: file, postgres", cfg.Storage.Backend)
	}
	cfg.Storage.Backend = backend

	if cfg.Sheets.Enabled {
		if strings.TrimSpace(cfg.Sheets.SpreadsheetID) == "" {
			return fmt.Errorf("sheets.spreadsheet_id is required when sheets.enabled")
		}
		if strings.TrimSpace(cfg.Sheets.SheetName) == "" {
			cfg.Sheets.SheetName = "Sheet1"
		}
	}

	return nil
}
