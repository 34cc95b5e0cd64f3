package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/olhodeaguia/scan-service/internal/bootstrap"
	"github.com/olhodeaguia/scan-service/internal/infra/config"
	"github.com/olhodeaguia/scan-service/internal/infra/httpserver"
	"github.com/olhodeaguia/scan-service/internal/infra/tracing"
	"github.com/olhodeaguia/scan-service/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	fatalOnErr(err, "load config")

	log, err := logger.New(cfg.LogLevel)
	fatalOnErr(err, "init logger")
	defer log.Sync()

	log.Info("starting olhodeaguia api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Tracing (non-fatal if Jaeger unavailable)
	tp, err := tracing.InitTracer(ctx, cfg.JaegerEndpoint, "olhodeaguia-api")
	if err != nil {
		log.Warn("tracing init failed, continuing without tracing", zap.Error(err))
	} else {
		defer tp.Shutdown(ctx)
	}

	var pool *pgxpool.Pool
	if cfg.CatalogBackend == config.CatalogBackendPostgres {
		pool, err = bootstrap.OpenPostgres(ctx, cfg, log)
		fatalOnErr(err, "open postgres")
		defer pool.Close()
	}

	catalog, err := bootstrap.OpenCatalog(ctx, cfg, pool, log)
	fatalOnErr(err, "open catalog")

	scanner := bootstrap.NewScanner(cfg, catalog, log)

	srv, err := httpserver.New(scanner, catalog, log, httpserver.Config{
		MaxUploadBytes: cfg.MaxUploadBytes(),
		TempDir:        cfg.TempDir,
		AccessLog:      true,
	})
	fatalOnErr(err, "create http server")

	go func() {
		if err := srv.Listen(cfg.HTTPPort); err != nil {
			log.Error("http server error", zap.Error(err))
			cancel()
		}
	}()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", zap.String("signal", sig.String()))
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http shutdown", zap.Error(err))
	}

	log.Info("olhodeaguia api stopped")
}

func fatalOnErr(err error, msg string) {
	if err != nil {
		panic(msg + ": " + err.Error())
	}
}
