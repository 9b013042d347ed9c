// Package config defines the top-level configuration for the odds scanner
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ODDSARB_* environment variables.
type Config struct {
	OddsAPI   OddsAPIConfig   `toml:"oddsapi"`
	Arbitrage ArbitrageConfig `toml:"arbitrage"`
	Scan      ScanConfig      `toml:"scan"`
	Replay    ReplayConfig    `toml:"replay"`
	Archive   ArchiveConfig   `toml:"archive"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Redis     RedisConfig     `toml:"redis"`
	S3        S3Config        `toml:"s3"`
	Notify    NotifyConfig    `toml:"notify"`
	Metrics   MetricsConfig   `toml:"metrics"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// OddsAPIConfig configures the odds provider client.
type OddsAPIConfig struct {
	BaseURL           string   `toml:"base_url"`
	APIKey            string   `toml:"api_key"`
	Regions           string   `toml:"regions"`
	Markets           []string `toml:"markets"`
	OddsFormat        string   `toml:"odds_format"`
	Sports            []string `toml:"sports"`
	Timeout           duration `toml:"timeout"`
	RequestsPerSecond float64  `toml:"requests_per_second"`
	BreakerFailures   int      `toml:"breaker_failures"`
	BreakerCooldown   duration `toml:"breaker_cooldown"`
}

// ArbitrageConfig selects the strategies and sizes the lay allocation.
type ArbitrageConfig struct {
	// Strategies lists strategy names to run; empty runs every built-in one.
	Strategies []string `toml:"strategies"`
	TotalStake float64  `toml:"total_stake"`
	LayFee     float64  `toml:"lay_fee"`
}

// ScanConfig holds scan scheduling parameters.
type ScanConfig struct {
	Interval    duration `toml:"interval"`
	Concurrency int      `toml:"concurrency"`
	LockTTL     duration `toml:"lock_ttl"`
}

// ReplayConfig locates recorded provider snapshots in object storage.
type ReplayConfig struct {
	Prefix string `toml:"prefix"`
}

// ArchiveConfig controls the export of old findings to object storage.
type ArchiveConfig struct {
	Prefix        string `toml:"prefix"`
	RetentionDays int    `toml:"retention_days"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Enabled      bool     `toml:"enabled"`
	Addr         string   `toml:"addr"`
	Password     string   `toml:"password"`
	DB           int      `toml:"db"`
	PoolSize     int      `toml:"pool_size"`
	MaxRetries   int      `toml:"max_retries"`
	TLSEnabled   bool     `toml:"tls_enabled"`
	ReportTTL    duration `toml:"report_ttl"`
	StreamMaxLen int64    `toml:"stream_max_len"`
}

// S3Config holds S3-compatible object storage parameters.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `toml:"enabled"`
	Addr    string `toml:"addr"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with the values in config.example.toml.
func Defaults() Config {
	return Config{
		OddsAPI: OddsAPIConfig{
			BaseURL:           "https://api.the-odds-api.com",
			Regions:           "au",
			Markets:           []string{"h2h", "spreads", "totals"},
			OddsFormat:        "decimal",
			Timeout:           duration{30 * time.Second},
			RequestsPerSecond: 1,
			BreakerFailures:   3,
			BreakerCooldown:   duration{time.Minute},
		},
		Arbitrage: ArbitrageConfig{
			TotalStake: 100,
			LayFee:     0.05,
		},
		Scan: ScanConfig{
			Interval:    duration{5 * time.Minute},
			Concurrency: 4,
			LockTTL:     duration{2 * time.Minute},
		},
		Replay: ReplayConfig{
			Prefix: "snapshots",
		},
		Archive: ArchiveConfig{
			Prefix:        "archive",
			RetentionDays: 30,
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "oddsarb",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  1,
			RunMigrations: true,
		},
		Redis: RedisConfig{
			Addr:         "localhost:6379",
			PoolSize:     10,
			MaxRetries:   3,
			ReportTTL:    duration{10 * time.Minute},
			StreamMaxLen: 10000,
		},
		S3: S3Config{
			Region:         "us-east-1",
			Bucket:         "oddsarb",
			ForcePathStyle: true,
		},
		Notify: NotifyConfig{
			Events: []string{"arb_detected", "scan_failed"},
		},
		Metrics: MetricsConfig{
			Addr: ":9090",
		},
		Mode:     "scan",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"scan":    true,
	"monitor": true,
	"replay":  true,
	"archive": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for invalid or missing values and returns a combined
// error describing every problem found.
func (c *Config) Validate() error {
	var errs []string
	mode := strings.ToLower(c.Mode)

	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: scan, monitor, replay, archive)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Provider: live modes call the API.
	if mode == "scan" || mode == "monitor" {
		if c.OddsAPI.APIKey == "" {
			errs = append(errs, "oddsapi: api_key is required for mode "+c.Mode)
		}
		if c.OddsAPI.BaseURL == "" {
			errs = append(errs, "oddsapi: base_url must not be empty")
		}
		if c.OddsAPI.RequestsPerSecond < 0 {
			errs = append(errs, "oddsapi: requests_per_second must be >= 0")
		}
		if c.OddsAPI.BreakerFailures < 1 {
			errs = append(errs, "oddsapi: breaker_failures must be >= 1")
		}
	}
	if mode != "archive" && len(c.OddsAPI.Sports) == 0 {
		errs = append(errs, "oddsapi: sports must list at least one sport key")
	}

	// Arbitrage
	if c.Arbitrage.TotalStake <= 0 {
		errs = append(errs, "arbitrage: total_stake must be > 0")
	}
	if c.Arbitrage.LayFee < 0 || c.Arbitrage.LayFee >= 1 {
		errs = append(errs, fmt.Sprintf("arbitrage: lay_fee must be in [0, 1), got %v", c.Arbitrage.LayFee))
	}

	// Scan
	if c.Scan.Concurrency < 1 {
		errs = append(errs, "scan: concurrency must be >= 1")
	}
	if mode == "monitor" && c.Scan.Interval.Duration <= 0 {
		errs = append(errs, "scan: interval must be > 0 for monitor mode")
	}

	// Object storage is the input of replay and the output of archive.
	if mode == "replay" || mode == "archive" {
		if c.S3.Bucket == "" {
			errs = append(errs, "s3: bucket must not be empty for mode "+c.Mode)
		}
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty for mode "+c.Mode)
		}
	}
	if mode == "archive" {
		if !c.Postgres.Enabled {
			errs = append(errs, "postgres: must be enabled for archive mode")
		}
		if c.Archive.RetentionDays < 1 {
			errs = append(errs, "archive: retention_days must be >= 1")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Notify
	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	// Metrics
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, "metrics: addr must not be empty when enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
