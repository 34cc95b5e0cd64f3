package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/olhodeaguia/scan-service/internal/domain/entity"
	"github.com/olhodeaguia/scan-service/internal/domain/port"
	"github.com/olhodeaguia/scan-service/internal/infra/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubScanner struct {
	report  *entity.ProcessingReport
	err     error
	path    string
	content []byte
	images  int
}

func (s *stubScanner) Execute(_ context.Context, path string) (*entity.ProcessingReport, error) {
	s.path = path
	s.content, _ = os.ReadFile(path)
	return s.report, s.err
}

func (s *stubScanner) ScanImage(_ context.Context, _ image.Image) *entity.ProcessingReport {
	s.images++
	return s.report
}

type downCatalog struct {
	*memory.Catalog
}

func (downCatalog) Ping(context.Context) error { return errors.New("connection refused") }

func (downCatalog) ListProducts(context.Context) ([]entity.Product, error) {
	return nil, errors.New("relation \"produtos\" does not exist")
}

func newTestServer(t *testing.T, scanner Scanner, catalog port.CatalogStore) *Server {
	t.Helper()
	srv, err := New(scanner, catalog, zap.NewNop(), Config{MaxUploadBytes: 1 << 20, TempDir: t.TempDir()})
	require.NoError(t, err)
	return srv
}

func multipartRequest(t *testing.T, url, field, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if field != "" {
		part, err := w.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	} else {
		require.NoError(t, w.WriteField("note", "no file"))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, url, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func sampleReport() *entity.ProcessingReport {
	return entity.NewProcessingReport([]entity.ResultEntry{
		entity.FoundEntry("7891234567890", entity.Product{Name: "Produto A", Location: "Estante 1A"}),
		entity.MissingEntry("9999999999999"),
	})
}

func TestProcessVideo(t *testing.T) {
	scanner := &stubScanner{report: sampleReport()}
	srv := newTestServer(t, scanner, memory.NewCatalog())

	resp, err := srv.App().Test(multipartRequest(t, "/api/processar_video", "video", "shelf.mp4", []byte("fake video")), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "Processamento concluído! Encontrados 2 códigos únicos.", body["message"])
	assert.EqualValues(t, 2, body["codes_found"])
	assert.EqualValues(t, 1, body["success_count"])
	assert.EqualValues(t, 1, body["error_count"])
	assert.NotContains(t, body, "partial_error")

	assert.Equal(t, []byte("fake video"), scanner.content)
	assert.True(t, strings.HasPrefix(filepath.Base(scanner.path), "upload_"))
	assert.True(t, strings.HasSuffix(scanner.path, ".mp4"))
	assert.NoFileExists(t, scanner.path)
}

func TestProcessVideoMissingFile(t *testing.T) {
	srv := newTestServer(t, &stubScanner{}, memory.NewCatalog())

	resp, err := srv.App().Test(multipartRequest(t, "/api/processar_video", "", "", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Nenhum arquivo de vídeo foi enviado", decodeBody(t, resp)["erro"])
}

func TestProcessVideoNoFileSelected(t *testing.T) {
	scanner := &stubScanner{}
	srv := newTestServer(t, scanner, memory.NewCatalog())

	resp, err := srv.App().Test(multipartRequest(t, "/api/processar_video", "video", "", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Nenhum arquivo selecionado", decodeBody(t, resp)["erro"])
	assert.Empty(t, scanner.path)
}

func TestProcessImageNoFileSelected(t *testing.T) {
	scanner := &stubScanner{}
	srv := newTestServer(t, scanner, memory.NewCatalog())

	resp, err := srv.App().Test(multipartRequest(t, "/api/processar_imagem", "image", "", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Nenhum arquivo selecionado", decodeBody(t, resp)["erro"])
	assert.Zero(t, scanner.images)
}

func TestProcessVideoUnreadable(t *testing.T) {
	scanner := &stubScanner{err: fmt.Errorf("open video: %w", port.ErrUnreadableVideo)}
	srv := newTestServer(t, scanner, memory.NewCatalog())

	resp, err := srv.App().Test(multipartRequest(t, "/api/processar_video", "video", "broken.avi", []byte("junk")), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Não foi possível ler o vídeo", body["erro"])
	assert.NotContains(t, body, "results")
	assert.NoFileExists(t, scanner.path)
}

func TestProcessVideoUnexpectedError(t *testing.T) {
	scanner := &stubScanner{err: errors.New("boom")}
	srv := newTestServer(t, scanner, memory.NewCatalog())

	resp, err := srv.App().Test(multipartRequest(t, "/api/processar_video", "video", "v.mp4", []byte("x")), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Erro interno do servidor", decodeBody(t, resp)["erro"])
}

func TestProcessImage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))))
	scanner := &stubScanner{report: sampleReport()}
	srv := newTestServer(t, scanner, memory.NewCatalog())

	resp, err := srv.App().Test(multipartRequest(t, "/api/processar_imagem", "image", "shelf.png", buf.Bytes()), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.EqualValues(t, 2, decodeBody(t, resp)["codes_found"])
	assert.Equal(t, 1, scanner.images)
}

func TestProcessImageUndecodable(t *testing.T) {
	scanner := &stubScanner{report: sampleReport()}
	srv := newTestServer(t, scanner, memory.NewCatalog())

	resp, err := srv.App().Test(multipartRequest(t, "/api/processar_imagem", "image", "shelf.png", []byte("not an image")), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Zero(t, scanner.images)
}

func TestHealth(t *testing.T) {
	srv := newTestServer(t, &stubScanner{}, memory.NewCatalog())

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/health", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, map[string]any{
		"status":   "OK",
		"database": "OK",
		"message":  "Olho de Águia Backend está funcionando!",
	}, decodeBody(t, resp))
}

func TestHealthDatabaseDown(t *testing.T) {
	srv := newTestServer(t, &stubScanner{}, downCatalog{memory.NewCatalog()})

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/health", nil), -1)
	require.NoError(t, err)

	body := decodeBody(t, resp)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "Erro: connection refused", body["database"])
}

func TestListProducts(t *testing.T) {
	srv := newTestServer(t, &stubScanner{}, memory.NewCatalog(memory.DemoProducts()...))

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/produtos", nil), -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body productsResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 8, body.Total)
	require.Len(t, body.Products, 8)
	assert.Equal(t, entity.Product{Code: "7891234567890", Name: "Produto A", Location: "Estante 1A"}, body.Products[0])
}

func TestListProductsEmptyIsArray(t *testing.T) {
	srv := newTestServer(t, &stubScanner{}, memory.NewCatalog())

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/produtos", nil), -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.JSONEq(t, `{"produtos":[],"total":0}`, string(raw))
}

func TestListProductsError(t *testing.T) {
	srv := newTestServer(t, &stubScanner{}, downCatalog{memory.NewCatalog()})

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/api/produtos", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Contains(t, decodeBody(t, resp)["erro"], "does not exist")
}

func TestErrorHandlerTooLarge(t *testing.T) {
	srv := newTestServer(t, &stubScanner{}, memory.NewCatalog())
	srv.App().Get("/too-large", func(*fiber.Ctx) error { return fiber.ErrRequestEntityTooLarge })

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/too-large", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusRequestEntityTooLarge, resp.StatusCode)
	assert.Equal(t, "Arquivo muito grande. Tamanho máximo permitido excedido.", decodeBody(t, resp)["erro"])
}

func TestErrorHandlerRecoversPanic(t *testing.T) {
	srv := newTestServer(t, &stubScanner{}, memory.NewCatalog())
	srv.App().Get("/panic", func(*fiber.Ctx) error { panic("unexpected") })

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/panic", nil), -1)
	require.NoError(t, err)

	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Erro interno do servidor", decodeBody(t, resp)["erro"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, &stubScanner{}, memory.NewCatalog())

	resp, err := srv.App().Test(httptest.NewRequest(http.MethodGet, "/metrics", nil), -1)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "go_goroutines")
}
