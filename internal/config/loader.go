package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// envPrefix namespaces every environment override.
const envPrefix = "ODDSARB_"

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ODDSARB_* environment overrides, and returns the
// final Config. An empty path skips the file. The returned Config has NOT been
// validated; call Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: decode %s: %w", path, err)
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites Config fields from ODDSARB_* variables that are
// set and non-empty, so secrets can be injected at deploy time.
func applyEnvOverrides(cfg *Config) {
	// ── Odds API ──
	setStr(&cfg.OddsAPI.BaseURL, "ODDSAPI_BASE_URL")
	setStr(&cfg.OddsAPI.APIKey, "ODDSAPI_API_KEY")
	setStr(&cfg.OddsAPI.Regions, "ODDSAPI_REGIONS")
	setStringSlice(&cfg.OddsAPI.Markets, "ODDSAPI_MARKETS")
	setStr(&cfg.OddsAPI.OddsFormat, "ODDSAPI_ODDS_FORMAT")
	setStringSlice(&cfg.OddsAPI.Sports, "ODDSAPI_SPORTS")
	setDuration(&cfg.OddsAPI.Timeout, "ODDSAPI_TIMEOUT")
	setFloat64(&cfg.OddsAPI.RequestsPerSecond, "ODDSAPI_REQUESTS_PER_SECOND")
	setInt(&cfg.OddsAPI.BreakerFailures, "ODDSAPI_BREAKER_FAILURES")
	setDuration(&cfg.OddsAPI.BreakerCooldown, "ODDSAPI_BREAKER_COOLDOWN")

	// ── Arbitrage ──
	setStringSlice(&cfg.Arbitrage.Strategies, "ARBITRAGE_STRATEGIES")
	setFloat64(&cfg.Arbitrage.TotalStake, "ARBITRAGE_TOTAL_STAKE")
	setFloat64(&cfg.Arbitrage.LayFee, "ARBITRAGE_LAY_FEE")

	// ── Scan / replay / archive ──
	setDuration(&cfg.Scan.Interval, "SCAN_INTERVAL")
	setInt(&cfg.Scan.Concurrency, "SCAN_CONCURRENCY")
	setDuration(&cfg.Scan.LockTTL, "SCAN_LOCK_TTL")
	setStr(&cfg.Replay.Prefix, "REPLAY_PREFIX")
	setStr(&cfg.Archive.Prefix, "ARCHIVE_PREFIX")
	setInt(&cfg.Archive.RetentionDays, "ARCHIVE_RETENTION_DAYS")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "REDIS_ADDR")
	setStr(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "REDIS_TLS_ENABLED")
	setDuration(&cfg.Redis.ReportTTL, "REDIS_REPORT_TTL")
	setInt64(&cfg.Redis.StreamMaxLen, "REDIS_STREAM_MAX_LEN")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "S3_ENDPOINT")
	setStr(&cfg.S3.Region, "S3_REGION")
	setStr(&cfg.S3.Bucket, "S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "S3_FORCE_PATH_STYLE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "NOTIFY_EVENTS")

	// ── Metrics ──
	setBool(&cfg.Metrics.Enabled, "METRICS_ENABLED")
	setStr(&cfg.Metrics.Addr, "METRICS_ADDR")

	// ── Top-level ──
	setStr(&cfg.Mode, "MODE")
	setStr(&cfg.LogLevel, "LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Keys are given without the ODDSARB_ prefix; each
// helper only mutates the target when the variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt64(dst *int64, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(envPrefix + key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
