// Package httpserver exposes the scan pipeline and the product catalog over HTTP.
package httpserver

import (
	"context"
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/olhodeaguia/scan-service/internal/domain/entity"
	"github.com/olhodeaguia/scan-service/internal/domain/port"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	msgTooLarge = "Arquivo muito grande. Tamanho máximo permitido excedido."
	msgInternal = "Erro interno do servidor"
)

// Scanner is the part of the scan use case the handlers drive.
type Scanner interface {
	Execute(ctx context.Context, videoPath string) (*entity.ProcessingReport, error)
	ScanImage(ctx context.Context, img image.Image) *entity.ProcessingReport
}

type Config struct {
	MaxUploadBytes int
	TempDir        string
	AccessLog      bool
}

type Server struct {
	app     *fiber.App
	scanner Scanner
	catalog port.CatalogStore
	tempDir string
	logger  *zap.Logger
}

func New(scanner Scanner, catalog port.CatalogStore, logger *zap.Logger, cfg Config) (*Server, error) {
	if err := os.MkdirAll(cfg.TempDir, 0o755); err != nil {
		return nil, fmt.Errorf("create temp dir: %w", err)
	}

	s := &Server{
		scanner: scanner,
		catalog: catalog,
		tempDir: cfg.TempDir,
		logger:  logger,
	}

	s.app = fiber.New(fiber.Config{
		AppName:               "Olho de Águia",
		BodyLimit:             cfg.MaxUploadBytes,
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})

	s.app.Use(recover.New())
	if cfg.AccessLog {
		s.app.Use(fiberlogger.New())
	}
	s.app.Use(cors.New())
	s.app.Use(Prometheus())

	api := s.app.Group("/api")
	api.Post("/processar_video", s.processVideo)
	api.Post("/processar_imagem", s.processImage)
	api.Get("/health", s.health)
	api.Get("/produtos", s.listProducts)

	s.app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return s, nil
}

// App returns the underlying fiber app, mostly for tests.
func (s *Server) App() *fiber.App {
	return s.app
}

func (s *Server) Listen(port int) error {
	s.logger.Info("http server listening", zap.Int("port", port))
	return s.app.Listen(fmt.Sprintf(":%d", port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) && fe.Code != fiber.StatusInternalServerError {
		if fe.Code == fiber.StatusRequestEntityTooLarge {
			return c.Status(fe.Code).JSON(fiber.Map{"erro": msgTooLarge})
		}
		return c.Status(fe.Code).JSON(fiber.Map{"erro": fe.Message})
	}

	s.logger.Error("request failed",
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"erro": msgInternal})
}
