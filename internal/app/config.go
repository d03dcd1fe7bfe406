package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"bc-history/internal/barchart"
)

// Config holds application configuration. Sources, later wins:
// defaults, YAML file, environment, command-line flags.
type Config struct {
	APIKey       string        `yaml:"api_key" validate:"required"`
	BackupAPIKey string        `yaml:"backup_api_key"`
	BaseURL      string        `yaml:"base_url" validate:"required,url"`
	Interval     string        `yaml:"interval" validate:"required,oneof=daily 5min intraday minutes"`
	Mode         string        `yaml:"mode" validate:"required,oneof=concurrent sequential"`
	Workers      int           `yaml:"workers" validate:"min=1,max=16"`
	Timeout      time.Duration `yaml:"timeout" validate:"min=0"`
	RateLimit    float64       `yaml:"rate_limit" validate:"min=0"` // requests per second, 0 = unlimited
	Proxy        string        `yaml:"proxy" validate:"omitempty,url"`
	Tickers      []string      `yaml:"tickers"`
	TickersFile  string        `yaml:"tickers_file"`
	DataDir      string        `yaml:"data_dir"`
	SaveFormat   string        `yaml:"save_format" validate:"omitempty,oneof=csv json parquet sqlite"`
	LogLevel     string        `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	LogFormat    string        `yaml:"log_format" validate:"omitempty,oneof=text json"`
	Heartbeat    time.Duration `yaml:"heartbeat" validate:"min=0"`
	Schedule     string        `yaml:"schedule"` // cron spec with seconds; empty = run once
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:   barchart.DefaultBaseURL,
		Interval:  "5min",
		Mode:      "concurrent",
		Workers:   3,
		Timeout:   30 * time.Second,
		LogLevel:  "info",
		LogFormat: "text",
		Heartbeat: 30 * time.Second,
	}
}

// LoadConfig reads path (if it exists) over the defaults, then applies environment overrides.
// An empty path skips the file.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.APIKey, "BARCHART_API_KEY")
	setString(&c.BackupAPIKey, "BARCHART_BACKUP_API_KEY")
	setString(&c.BaseURL, "BARCHART_BASE_URL")
	setString(&c.Interval, "INTERVAL")
	setString(&c.Mode, "FETCH_MODE")
	setString(&c.Proxy, "HTTPS_PROXY")
	setString(&c.TickersFile, "TICKERS_FILE")
	setString(&c.DataDir, "DATA_DIR")
	setString(&c.SaveFormat, "SAVE_FORMAT")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.Schedule, "SCHEDULE_CRON")
	if v := os.Getenv("TICKERS"); v != "" {
		c.Tickers = splitList(v)
	}
	if v := os.Getenv("WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("WORKERS: %w", err)
		}
		c.Workers = n
	}
	if v := os.Getenv("RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT: %w", err)
		}
		c.RateLimit = f
	}
	if v := os.Getenv("HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("HTTP_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks field constraints.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// Credentials returns the vendor tokens. Without a backup key the primary key
// serves intraday requests too.
func (c *Config) Credentials() barchart.Credentials {
	backup := c.BackupAPIKey
	if backup == "" {
		slog.Warn("no backup API key configured, intraday requests use the primary key")
		backup = c.APIKey
	}
	return barchart.Credentials{Primary: c.APIKey, Backup: backup}
}

// LogValue hides the keys when the config is logged.
func (c *Config) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Any("credentials", barchart.Credentials{Primary: c.APIKey, Backup: c.BackupAPIKey}),
		slog.String("base_url", c.BaseURL),
		slog.String("interval", c.Interval),
		slog.String("mode", c.Mode),
		slog.Int("workers", c.Workers),
		slog.Duration("timeout", c.Timeout),
		slog.Float64("rate_limit", c.RateLimit),
		slog.String("data_dir", c.DataDir),
		slog.String("save_format", c.SaveFormat),
		slog.String("schedule", c.Schedule),
	)
}
