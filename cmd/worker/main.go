package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/olhodeaguia/scan-service/internal/bootstrap"
	"github.com/olhodeaguia/scan-service/internal/infra/config"
	"github.com/olhodeaguia/scan-service/internal/infra/metrics"
	miniostorage "github.com/olhodeaguia/scan-service/internal/infra/minio"
	"github.com/olhodeaguia/scan-service/internal/infra/postgres"
	"github.com/olhodeaguia/scan-service/internal/infra/rabbitmq"
	"github.com/olhodeaguia/scan-service/internal/infra/tracing"
	"github.com/olhodeaguia/scan-service/internal/usecase"
	"github.com/olhodeaguia/scan-service/pkg/logger"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting olhodeaguia scan worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if Jaeger unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, "olhodeaguia-worker")
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	// Jobs always live in postgres, whatever backs the catalog.
	pool, err := bootstrap.OpenPostgres(ctx, cfg, log)
	fatalOnErr(err, "open postgres")
	defer pool.Close()

	catalog, err := bootstrap.OpenCatalog(ctx, cfg, pool, log)
	fatalOnErr(err, "open catalog")

	storage, err := miniostorage.NewStorage(miniostorage.StorageConfig{
		Endpoint:  cfg.MinIOEndpoint,
		AccessKey: cfg.MinIOAccessKey,
		SecretKey: cfg.MinIOSecretKey,
		UseSSL:    cfg.MinIOUseSSL,
		Bucket:    cfg.MinIOVideoBucket,
	})
	fatalOnErr(err, "create minio storage")
	fatalOnErr(storage.EnsureBucket(ctx), "ensure minio bucket")

	// RabbitMQ publisher connection
	rmqConn, err := amqp.Dial(cfg.RabbitMQURL)
	fatalOnErr(err, "connect to rabbitmq for publisher")
	defer rmqConn.Close()

	pub, err := rabbitmq.NewPublisher(rmqConn, cfg.RabbitMQExchange)
	fatalOnErr(err, "create rabbitmq publisher")
	defer pub.Close()

	uc := usecase.NewProcessScanJobUseCase(
		postgres.NewScanJobRepository(pool),
		storage,
		bootstrap.NewScanner(cfg, catalog, log),
		rabbitmq.NewStatusPublisher(pub),
		rabbitmq.NewDLQPublisher(pub, cfg.RabbitMQDLQ),
		log,
		usecase.ProcessScanJobConfig{
			TempDir:    cfg.TempDir,
			MaxRetries: cfg.MaxRetries,
		},
	)

	// Consumer (worker pool)
	consumer, err := rabbitmq.NewConsumer(rabbitmq.ConsumerConfig{
		URL: cfg.RabbitMQURL,
		Topology: rabbitmq.Topology{
			Exchange:     cfg.RabbitMQExchange,
			RequestQueue: cfg.RabbitMQRequestQueue,
			StatusQueue:  cfg.RabbitMQStatusQueue,
			DLQ:          cfg.RabbitMQDLQ,
		},
		Prefetch:    cfg.RabbitMQPrefetch,
		WorkerCount: cfg.WorkerCount,
		BaseDelayMs: cfg.RetryBaseDelayMs,
	}, uc.Execute, log)
	fatalOnErr(err, "create consumer")
	defer consumer.Close()

	metricsSrv := metrics.StartMetricsServer(ctx, cfg.MetricsPort, log)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
		cancel()
	}()

	log.Info("scan worker started, consuming messages")

	if err := consumer.Start(ctx); err != nil {
		log.Error("consumer error", zap.Error(err))
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Shutdown(shutdownCtx)

	log.Info("olhodeaguia scan worker stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
