package httpserver

import (
	"errors"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"mime/multipart"
	"os"
	"path/filepath"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/olhodeaguia/scan-service/internal/domain/entity"
	"github.com/olhodeaguia/scan-service/internal/domain/port"
	"go.uber.org/zap"
)

const (
	msgNoVideo       = "Nenhum arquivo de vídeo foi enviado"
	msgNoImage       = "Nenhuma imagem foi enviada"
	msgNoSelection   = "Nenhum arquivo selecionado"
	msgBadVideo      = "Não foi possível ler o vídeo"
	msgBadImage      = "Não foi possível ler a imagem"
	msgHealthy       = "Olho de Águia Backend está funcionando!"
	healthStatusOK   = "OK"
	databaseErrorPfx = "Erro: "
)

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Message  string `json:"message"`
}

type productsResponse struct {
	Products []entity.Product `json:"produtos"`
	Total    int              `json:"total"`
}

// uploadedFile returns the file sent under field, or the error message for the
// client. An empty file input arrives as a part with filename="", which the
// multipart parser files under Value, not File.
func uploadedFile(c *fiber.Ctx, field, missing string) (*multipart.FileHeader, string) {
	form, err := c.MultipartForm()
	if err != nil {
		return nil, missing
	}
	if files := form.File[field]; len(files) > 0 {
		if files[0].Filename == "" {
			return nil, msgNoSelection
		}
		return files[0], ""
	}
	if _, ok := form.Value[field]; ok {
		return nil, msgNoSelection
	}
	return nil, missing
}

func (s *Server) processVideo(c *fiber.Ctx) error {
	file, msg := uploadedFile(c, "video", msgNoVideo)
	if file == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"erro": msg})
	}

	path := filepath.Join(s.tempDir, "upload_"+uuid.NewString()+filepath.Ext(file.Filename))
	log := s.logger.With(zap.String("upload", filepath.Base(path)), zap.Int64("size", file.Size))

	if err := c.SaveFile(file, path); err != nil {
		return err
	}
	defer func() {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Warn("failed to remove upload", zap.Error(err))
		}
	}()

	log.Info("video received", zap.String("filename", file.Filename))

	report, err := s.scanner.Execute(c.UserContext(), path)
	if errors.Is(err, port.ErrUnreadableVideo) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"erro": msgBadVideo})
	}
	if err != nil {
		return err
	}
	return c.JSON(report)
}

func (s *Server) processImage(c *fiber.Ctx) error {
	file, msg := uploadedFile(c, "image", msgNoImage)
	if file == nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"erro": msg})
	}

	f, err := file.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		s.logger.Warn("image could not be decoded", zap.String("filename", file.Filename), zap.Error(err))
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"erro": msgBadImage})
	}
	s.logger.Info("image received", zap.String("filename", file.Filename), zap.String("format", format))

	return c.JSON(s.scanner.ScanImage(c.UserContext(), img))
}

func (s *Server) health(c *fiber.Ctx) error {
	database := healthStatusOK
	if err := s.catalog.Ping(c.UserContext()); err != nil {
		database = databaseErrorPfx + err.Error()
	}
	return c.JSON(healthResponse{
		Status:   healthStatusOK,
		Database: database,
		Message:  msgHealthy,
	})
}

func (s *Server) listProducts(c *fiber.Ctx) error {
	products, err := s.catalog.ListProducts(c.UserContext())
	if err != nil {
		s.logger.Error("failed to list products", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"erro": err.Error()})
	}
	if products == nil {
		products = []entity.Product{}
	}
	return c.JSON(productsResponse{Products: products, Total: len(products)})
}
