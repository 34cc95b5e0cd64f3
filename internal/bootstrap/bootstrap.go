// Package bootstrap wires infrastructure shared by the api and worker binaries.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/olhodeaguia/scan-service/internal/domain/port"
	"github.com/olhodeaguia/scan-service/internal/infra/config"
	"github.com/olhodeaguia/scan-service/internal/infra/dynamo"
	"github.com/olhodeaguia/scan-service/internal/infra/ffmpeg"
	"github.com/olhodeaguia/scan-service/internal/infra/memory"
	"github.com/olhodeaguia/scan-service/internal/infra/postgres"
	"github.com/olhodeaguia/scan-service/internal/infra/zxing"
	"github.com/olhodeaguia/scan-service/internal/usecase"
	"go.uber.org/zap"
)

var errNoPool = errors.New("postgres catalog needs a database pool")

// OpenPostgres connects, waits until the database answers and applies migrations.
func OpenPostgres(ctx context.Context, cfg *config.Config, log *zap.Logger) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := postgres.WaitForDB(ctx, pool, cfg.DBWaitRetries, cfg.DBWaitInterval, log); err != nil {
		pool.Close()
		return nil, err
	}

	if err := postgres.RunMigrations(cfg.DatabaseURL, cfg.MigrationsDir); err != nil {
		pool.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return pool, nil
}

// OpenCatalog builds the catalog backend selected by CATALOG_BACKEND. pool is
// only used, and then required, by the postgres backend.
func OpenCatalog(ctx context.Context, cfg *config.Config, pool *pgxpool.Pool, log *zap.Logger) (port.CatalogStore, error) {
	log = log.With(zap.String("catalog_backend", cfg.CatalogBackend))

	switch cfg.CatalogBackend {
	case config.CatalogBackendPostgres:
		if pool == nil {
			return nil, errNoPool
		}
		log.Info("using postgres catalog")
		return postgres.NewCatalogRepository(pool), nil

	case config.CatalogBackendDynamoDB:
		client, err := dynamo.NewClient(ctx, dynamo.CatalogConfig{
			Region:          cfg.AWSRegion,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
			Endpoint:        cfg.DynamoDBEndpoint,
			Table:           cfg.DynamoDBTable,
		})
		if err != nil {
			return nil, err
		}
		log.Info("using dynamodb catalog", zap.String("table", cfg.DynamoDBTable))
		return dynamo.NewCatalog(client, cfg.DynamoDBTable), nil

	case config.CatalogBackendMemory:
		log.Info("using in-memory demo catalog")
		return memory.NewCatalog(memory.DemoProducts()...), nil
	}
	return nil, fmt.Errorf("unknown catalog backend %q", cfg.CatalogBackend)
}

// NewScanner assembles the video scan pipeline: ffmpeg frames, gozxing decode
// and the given catalog.
func NewScanner(cfg *config.Config, catalog port.Catalog, log *zap.Logger) *usecase.ScanVideoUseCase {
	source := ffmpeg.NewSource(ffmpeg.SourceConfig{
		FFmpegPath:    cfg.FFmpegPath,
		FFprobePath:   cfg.FFprobePath,
		EveryNthFrame: cfg.EveryNthFrame,
		MaxFrames:     cfg.MaxFrames,
	}, log)

	return usecase.NewScanVideoUseCase(
		source,
		zxing.NewDecoder(cfg.DecoderTryHarder),
		catalog,
		log,
		usecase.ScanVideoConfig{Timeout: cfg.ScanTimeout},
	)
}
