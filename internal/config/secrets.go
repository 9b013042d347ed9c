package config

// RedactedConfig returns a copy of cfg with sensitive fields replaced by the
// placeholder "***". Use it whenever the active configuration is logged.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.OddsAPI.APIKey)

	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	redact(&out.Redis.Password)

	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the copy.
	out.OddsAPI.Markets = cloneStrings(cfg.OddsAPI.Markets)
	out.OddsAPI.Sports = cloneStrings(cfg.OddsAPI.Sports)
	out.Arbitrage.Strategies = cloneStrings(cfg.Arbitrage.Strategies)
	out.Notify.Events = cloneStrings(cfg.Notify.Events)

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
