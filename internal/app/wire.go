package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/oddsarb/internal/arbitrage"
	s3blob "github.com/alanyoungcy/oddsarb/internal/blob/s3"
	"github.com/alanyoungcy/oddsarb/internal/cache/redis"
	"github.com/alanyoungcy/oddsarb/internal/config"
	"github.com/alanyoungcy/oddsarb/internal/domain"
	"github.com/alanyoungcy/oddsarb/internal/metrics"
	"github.com/alanyoungcy/oddsarb/internal/notify"
	"github.com/alanyoungcy/oddsarb/internal/platform/oddsapi"
	"github.com/alanyoungcy/oddsarb/internal/scan"
	"github.com/alanyoungcy/oddsarb/internal/store/postgres"
)

// Dependencies bundles everything the modes need. Optional sinks are nil when
// their backend is not configured.
type Dependencies struct {
	// Event sources
	Provider  *oddsapi.Client
	Snapshots *s3blob.SnapshotSource

	// Scanning
	Summarizer *scan.Summarizer
	Direct     *scan.DirectScanner

	// Stores
	FindingStore *postgres.FindingStore
	AuditStore   domain.AuditStore

	// Caches
	ReportCache  domain.ReportCache
	QuotaTracker domain.QuotaTracker
	LockManager  domain.LockManager
	SignalBus    domain.SignalBus

	// Blob storage
	Archiver *s3blob.Archiver

	Notifier *notify.Notifier
	Metrics  *metrics.Registry
}

// needsProvider returns true for modes that call the odds API.
func needsProvider(mode string) bool {
	return mode == "scan" || mode == "monitor"
}

// needsS3 returns true for modes that require object storage.
func needsS3(mode string) bool {
	return mode == "replay" || mode == "archive"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	mode := strings.ToLower(cfg.Mode)

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Strategies ---
	registry := arbitrage.NewDefaultRegistry(arbitrage.LayAllocationConfig{
		TotalStake: cfg.Arbitrage.TotalStake,
		Fee:        cfg.Arbitrage.LayFee,
	}, nil, logger)
	strategies, err := registry.Select(cfg.Arbitrage.Strategies)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: strategies: %w", err)
	}
	agg := arbitrage.NewAggregator(strategies, logger)
	logger.Info("strategies selected", slog.Any("strategies", agg.Strategies()))
	deps.Summarizer = scan.NewSummarizer(agg, logger)
	deps.Direct = scan.NewDirectScanner(logger)

	// --- Odds provider ---
	if needsProvider(mode) {
		deps.Provider = oddsapi.NewClient(oddsapi.Config{
			BaseURL:           cfg.OddsAPI.BaseURL,
			APIKey:            cfg.OddsAPI.APIKey,
			Regions:           cfg.OddsAPI.Regions,
			Markets:           cfg.OddsAPI.Markets,
			OddsFormat:        cfg.OddsAPI.OddsFormat,
			Timeout:           cfg.OddsAPI.Timeout.Duration,
			RequestsPerSecond: cfg.OddsAPI.RequestsPerSecond,
			BreakerFailures:   uint32(cfg.OddsAPI.BreakerFailures),
			BreakerCooldown:   cfg.OddsAPI.BreakerCooldown.Duration,
		}, logger)
	}

	// --- PostgreSQL ---
	if cfg.Postgres.Enabled {
		pgClient, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.FindingStore = postgres.NewFindingStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
	}

	// --- Redis ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		deps.ReportCache = redis.NewReportCache(redisClient, cfg.Redis.ReportTTL.Duration)
		deps.QuotaTracker = redis.NewQuotaTracker(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.SignalBus = redis.NewSignalBus(redisClient, cfg.Redis.StreamMaxLen)
	}

	// --- S3 blob storage (only for modes that need object storage) ---
	if needsS3(mode) {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		if err := s3Client.Health(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}

		deps.Snapshots = s3blob.NewSnapshotSource(s3blob.NewReader(s3Client), cfg.Replay.Prefix, logger)
		if deps.FindingStore != nil {
			deps.Archiver = s3blob.NewArchiver(s3blob.NewWriter(s3Client), deps.FindingStore, deps.AuditStore, cfg.Archive.Prefix)
		}
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(cfg.Notify.TelegramToken, cfg.Notify.TelegramChatID, ""))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Metrics ---
	if cfg.Metrics.Enabled {
		deps.Metrics = metrics.NewRegistry()
	}

	return deps, cleanup, nil
}
