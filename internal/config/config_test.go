package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTOML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_FileOverDefaults(t *testing.T) {
	path := writeTOML(t, `
mode = "monitor"

[oddsapi]
api_key = "k"
sports = ["soccer_epl", "basketball_nba"]

[scan]
interval = "90s"

[arbitrage]
strategies = ["back", "point"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "monitor", cfg.Mode)
	assert.Equal(t, []string{"soccer_epl", "basketball_nba"}, cfg.OddsAPI.Sports)
	assert.Equal(t, 90*time.Second, cfg.Scan.Interval.Duration)
	assert.Equal(t, []string{"back", "point"}, cfg.Arbitrage.Strategies)
	assert.Equal(t, "decimal", cfg.OddsAPI.OddsFormat, "untouched fields keep defaults")
	assert.Equal(t, 100.0, cfg.Arbitrage.TotalStake)
	require.NoError(t, cfg.Validate())
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ODDSARB_ODDSAPI_API_KEY", "from-env")
	t.Setenv("ODDSARB_ODDSAPI_SPORTS", "soccer_epl, ,tennis_atp")
	t.Setenv("ODDSARB_SCAN_CONCURRENCY", "8")
	t.Setenv("ODDSARB_ARBITRAGE_LAY_FEE", "0.02")
	t.Setenv("ODDSARB_REDIS_REPORT_TTL", "1m")
	t.Setenv("ODDSARB_SCAN_INTERVAL", "not-a-duration")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.OddsAPI.APIKey)
	assert.Equal(t, []string{"soccer_epl", "tennis_atp"}, cfg.OddsAPI.Sports)
	assert.Equal(t, 8, cfg.Scan.Concurrency)
	assert.Equal(t, 0.02, cfg.Arbitrage.LayFee)
	assert.Equal(t, time.Minute, cfg.Redis.ReportTTL.Duration)
	assert.Equal(t, 5*time.Minute, cfg.Scan.Interval.Duration, "unparsable values are ignored")
}

func TestLoad_BadFile(t *testing.T) {
	_, err := Load(writeTOML(t, "mode = "))
	require.Error(t, err)
}

func TestValidate_CollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.Arbitrage.LayFee = 1
	cfg.Scan.Concurrency = 0
	cfg.Notify.TelegramToken = "t"

	err := cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		`unknown mode "trade"`,
		"oddsapi: sports",
		"arbitrage: lay_fee",
		"scan: concurrency",
		"notify: telegram_token",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestValidate_ModeRequirements(t *testing.T) {
	cfg := Defaults()
	cfg.OddsAPI.Sports = []string{"soccer_epl"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api_key is required")

	cfg.Mode = "replay"
	assert.NoError(t, cfg.Validate(), "replay reads snapshots and needs no api key")

	cfg.Mode = "archive"
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: must be enabled")

	cfg.Postgres.Enabled = true
	assert.NoError(t, cfg.Validate())
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.OddsAPI.APIKey = "secret"
	cfg.Postgres.Password = "pw"
	cfg.S3.SecretKey = "s3"
	cfg.OddsAPI.Sports = []string{"soccer_epl"}

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.OddsAPI.APIKey)
	assert.Equal(t, "***", out.Postgres.Password)
	assert.Equal(t, "***", out.S3.SecretKey)
	assert.Empty(t, out.Postgres.DSN, "empty secrets stay empty")

	out.OddsAPI.Sports[0] = "changed"
	assert.Equal(t, "soccer_epl", cfg.OddsAPI.Sports[0])
	assert.Equal(t, "secret", cfg.OddsAPI.APIKey)
}
