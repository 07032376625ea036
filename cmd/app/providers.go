package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valkey-io/valkey-go"

	"github.com/yanqian/thermostraw/internal/domain/chart"
	"github.com/yanqian/thermostraw/internal/domain/dashboard"
	"github.com/yanqian/thermostraw/internal/domain/fraction"
	"github.com/yanqian/thermostraw/internal/domain/prediction"
	"github.com/yanqian/thermostraw/internal/domain/threshold"
	"github.com/yanqian/thermostraw/internal/infra/chartarchive"
	"github.com/yanqian/thermostraw/internal/infra/config"
	"github.com/yanqian/thermostraw/internal/infra/predictor"
	"github.com/yanqian/thermostraw/internal/infra/queue"
	"github.com/yanqian/thermostraw/internal/infra/recordrepo"
	"github.com/yanqian/thermostraw/internal/infra/sessionstore"
)

const chartArchivePrefix = "charts"

func provideDashboardConfig(cfg *config.Config) dashboard.Config {
	params := make([]prediction.Parameter, 0, len(cfg.Model.Parameters))
	for _, p := range cfg.Model.Parameters {
		params = append(params, prediction.Parameter{Name: p.Name, Value: p.Value})
	}
	return dashboard.Config{
		RequireBatch:  cfg.Dashboard.RequireBatch,
		DefaultSample: fraction.FromMap(fraction.Default(), cfg.Dashboard.DefaultFractions),
		ChartWidth:    cfg.Dashboard.ChartWidth,
		ChartHeight:   cfg.Dashboard.ChartHeight,
		ArchivePrefix: chartArchivePrefix,
		Model: prediction.Model{
			Name:       cfg.Model.Name,
			Indicator:  cfg.Model.Indicator,
			Parameters: params,
		},
	}
}

func providePredictorClient(cfg *config.Config, logger *slog.Logger) *predictor.Client {
	ep := cfg.Backend.Endpoints
	paths := predictor.Paths{
		Predict:          ep.Predict,
		CurrentThreshold: ep.CurrentThreshold,
		VerifyPIN:        ep.VerifyPIN,
		UpdateThreshold:  ep.UpdateThreshold,
		SaveChartImage:   ep.SaveChartImage,
		ExportCSV:        ep.ExportCSV,
	}
	return predictor.NewClient(cfg.Backend.BaseURL, paths, cfg.Backend.Timeout, logger)
}

func provideChartExporter(cfg *config.Config) *chart.Exporter {
	return chart.NewExporter(chart.NewGoChartRenderer(), cfg.Dashboard.ChartWidth, cfg.Dashboard.ChartHeight, cfg.Dashboard.PixelCeiling)
}

// provideThresholdStore loads the backend threshold once at startup. A failed load keeps
// the fallback in place and is only logged.
func provideThresholdStore(cfg *config.Config, client *predictor.Client, logger *slog.Logger) *threshold.Store {
	store := threshold.NewStore(cfg.Dashboard.FallbackThreshold, logger)
	store.Subscribe(func(previous, current float64) {
		logger.Info("threshold changed", "previous", previous, "current", current)
	})
	ctx, cancel := context.WithTimeout(context.Background(), cfg.Backend.Timeout)
	defer cancel()
	if err := store.Load(ctx, client); err != nil {
		logger.Warn("threshold load failed, using fallback", "fallback", cfg.Dashboard.FallbackThreshold, "error", err)
	}
	return store
}

func provideThresholdRegistry(cfg *config.Config, client *predictor.Client, store *threshold.Store, logger *slog.Logger) *threshold.Registry {
	return threshold.NewRegistry(client, store, cfg.Dashboard.SuccessCloseDelay, logger)
}

// provideValkeyClient returns nil when Valkey is disabled or unreachable.
func provideValkeyClient(cfg *config.Config, logger *slog.Logger) valkey.Client {
	if !cfg.Storage.Valkey.Enabled {
		return nil
	}
	opt, err := buildValkeyOptions(cfg)
	if err != nil {
		logger.Error("invalid valkey configuration, falling back to memory", "error", err)
		return nil
	}
	client, err := valkey.NewClient(opt)
	if err != nil {
		logger.Error("failed to create valkey client, falling back to memory", "error", err)
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Do(ctx, client.B().Ping().Build()).Error(); err != nil {
		logger.Error("valkey ping failed, falling back to memory", "error", err)
		client.Close()
		return nil
	}
	logger.Info("valkey enabled", "addr", cfg.Storage.Valkey.Addr)
	return client
}

func buildValkeyOptions(cfg *config.Config) (valkey.ClientOption, error) {
	var (
		opt valkey.ClientOption
		err error
	)
	if strings.Contains(cfg.Storage.Valkey.Addr, "://") {
		opt, err = valkey.ParseURL(cfg.Storage.Valkey.Addr)
	} else {
		opt = valkey.ClientOption{InitAddress: []string{cfg.Storage.Valkey.Addr}}
	}
	if err != nil {
		return valkey.ClientOption{}, err
	}
	return opt, nil
}

func provideSessionStore(cfg *config.Config, client valkey.Client) dashboard.SessionStore {
	if client == nil {
		return sessionstore.NewMemoryStore(cfg.Session.TTL)
	}
	return sessionstore.NewValkeyStore(client, cfg.Storage.Valkey.Prefix, cfg.Storage.Valkey.SessionTTL)
}

func provideJobQueue(cfg *config.Config, client valkey.Client, logger *slog.Logger) queue.HandlerQueue {
	if client == nil {
		logger.Info("snapshot jobs run in process")
		return queue.NewImmediateQueue(nil)
	}
	return queue.NewValkeyQueue(client, cfg.Storage.Valkey.QueueKey, logger)
}

func provideDashboardQueue(q queue.HandlerQueue) dashboard.JobQueue {
	return q
}

func provideRecordRepository(cfg *config.Config, logger *slog.Logger) dashboard.RecordRepository {
	fallback := recordrepo.NewMemoryRepository()
	dsn := strings.TrimSpace(cfg.Storage.Postgres.DSN)
	if dsn == "" {
		logger.Info("postgres dsn not set, using memory history")
		return fallback
	}
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		logger.Error("invalid postgres dsn, using memory history", "error", err)
		return fallback
	}
	if cfg.Storage.Postgres.MaxConns > 0 {
		poolConfig.MaxConns = cfg.Storage.Postgres.MaxConns
	}
	if cfg.Storage.Postgres.MinConns > 0 {
		poolConfig.MinConns = cfg.Storage.Postgres.MinConns
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		logger.Error("failed to initialize postgres pool, using memory history", "error", err)
		return fallback
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctx); err != nil {
		logger.Error("postgres ping failed, using memory history", "error", err)
		pool.Close()
		return fallback
	}
	repo := recordrepo.NewPostgresRepository(pool)
	if err := repo.EnsureSchema(ctx); err != nil {
		logger.Error("postgres schema setup failed, using memory history", "error", err)
		pool.Close()
		return fallback
	}
	logger.Info("postgres history enabled")
	return repo
}

func provideChartArchive(cfg *config.Config, logger *slog.Logger) dashboard.ChartArchive {
	s3cfg := cfg.Storage.S3
	if strings.TrimSpace(s3cfg.Endpoint) == "" || s3cfg.AccessKey == "" || s3cfg.SecretKey == "" {
		logger.Info("s3 archive not configured, keeping chart snapshots in memory")
		return chartarchive.NewMemoryArchive()
	}
	archive, err := chartarchive.NewS3Archive(s3cfg.Endpoint, s3cfg.AccessKey, s3cfg.SecretKey, s3cfg.Bucket, s3cfg.Region, logger)
	if err != nil {
		logger.Error("failed to create s3 archive, keeping chart snapshots in memory", "error", err)
		return chartarchive.NewMemoryArchive()
	}
	logger.Info("s3 chart archive enabled", "bucket", s3cfg.Bucket)
	return archive
}
