package server

import (
	"bytes"
	"errors"
	"image"
	"image/png"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dkellner/pdflight/config"
	"github.com/dkellner/pdflight/raster"
)

// stubNative serves a single document with fixed-size pages so handlers
// can be exercised without the real PDFium worker.
type stubNative struct {
	pageCount int
	loadErr   error
}

func (s *stubNative) LoadDocument(path, password string) (raster.DocumentHandle, error) {
	if s.loadErr != nil {
		return raster.DocumentHandle{}, s.loadErr
	}
	return raster.DocumentHandle{Ref: 1}, nil
}

func (s *stubNative) GetPageCount(doc raster.DocumentHandle) (int, error) {
	return s.pageCount, nil
}

func (s *stubNative) LoadPage(doc raster.DocumentHandle, index int) (raster.PageHandle, error) {
	return raster.PageHandle{Ref: index}, nil
}

func (s *stubNative) GetPageSize(page raster.PageHandle) (float64, float64, error) {
	return 10, 20, nil
}

func (s *stubNative) CreateBitmap(width, height int, alpha bool) (raster.BitmapHandle, error) {
	return raster.BitmapHandle{Ref: 1}, nil
}

func (s *stubNative) FillRect(bitmap raster.BitmapHandle, left, top, width, height int, colour uint32) error {
	return nil
}

func (s *stubNative) RenderPageBitmap(bitmap raster.BitmapHandle, page raster.PageHandle, startX, startY, sizeX, sizeY, rotate, flags int) error {
	return nil
}

func (s *stubNative) GetBitmapBuffer(bitmap raster.BitmapHandle) ([]byte, error) {
	return make([]byte, 10*20*4), nil
}

func (s *stubNative) DestroyBitmap(bitmap raster.BitmapHandle) error { return nil }
func (s *stubNative) ClosePage(page raster.PageHandle) error         { return nil }
func (s *stubNative) CloseDocument(doc raster.DocumentHandle) error  { return nil }

// stubRenderer returns canned page images for preview tests.
type stubRenderer struct {
	images []image.Image
	err    error
}

func (s *stubRenderer) RenderPDF(filename string) ([]image.Image, error) {
	return s.images, s.err
}

func (s *stubRenderer) Close() error { return nil }

func newTestHandler(t *testing.T, native raster.Native) *ServerHandler {
	t.Helper()
	Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return &ServerHandler{
		Echo: echo.New(),
		ServerConfig: config.ServerConfig{
			ScratchPath:   t.TempDir(),
			MaxUploadMB:   4,
			DefaultScale:  1.0,
			Annotations:   true,
			ScratchMaxAge: 60,
		},
		Library: raster.NewLibrary(native),
		Renderer: &stubRenderer{
			images: []image.Image{image.NewRGBA(image.Rect(0, 0, 100, 200))},
		},
	}
}

// uploadRequest builds a multipart POST with a dummy PDF body.
func uploadRequest(t *testing.T, target string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("pdf", "doc.pdf")
	if err != nil {
		t.Fatalf("Failed to create form file: %v", err)
	}
	part.Write([]byte("%PDF-fake"))
	writer.Close()

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set(echo.HeaderContentType, writer.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	handler := newTestHandler(t, &stubNative{pageCount: 1})
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	if err := handler.Health(handler.Echo.NewContext(req, rec)); err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "healthy") {
		t.Errorf("Expected healthy status, got: %s", rec.Body.String())
	}
}

func TestRenderPage_OK(t *testing.T) {
	handler := newTestHandler(t, &stubNative{pageCount: 1})
	req := uploadRequest(t, "/api/render?page=0")
	rec := httptest.NewRecorder()

	if err := handler.RenderPage(handler.Echo.NewContext(req, rec)); err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get(echo.HeaderContentType); got != "image/png" {
		t.Errorf("Expected image/png, got %q", got)
	}

	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("Response is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 10 || img.Bounds().Dy() != 20 {
		t.Errorf("Expected 10x20 image, got %v", img.Bounds())
	}
}

func TestRenderPage_PageOutOfRange(t *testing.T) {
	handler := newTestHandler(t, &stubNative{pageCount: 1})
	req := uploadRequest(t, "/api/render?page=5")
	rec := httptest.NewRecorder()

	if err := handler.RenderPage(handler.Echo.NewContext(req, rec)); err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "1 pages") {
		t.Errorf("Expected page count in error, got: %s", rec.Body.String())
	}
}

func TestRenderPage_BadDocument(t *testing.T) {
	handler := newTestHandler(t, &stubNative{loadErr: errors.New("format error")})
	req := uploadRequest(t, "/api/render")
	rec := httptest.NewRecorder()

	if err := handler.RenderPage(handler.Echo.NewContext(req, rec)); err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", rec.Code)
	}
}

func TestRenderPage_NoUpload(t *testing.T) {
	handler := newTestHandler(t, &stubNative{pageCount: 1})
	req := httptest.NewRequest(http.MethodPost, "/api/render", nil)
	rec := httptest.NewRecorder()

	if err := handler.RenderPage(handler.Echo.NewContext(req, rec)); err != nil {
		t.Fatalf("RenderPage failed: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without upload, got %d", rec.Code)
	}
}

func TestDocumentInfo(t *testing.T) {
	handler := newTestHandler(t, &stubNative{pageCount: 3})
	req := uploadRequest(t, "/api/info")
	rec := httptest.NewRecorder()

	if err := handler.DocumentInfo(handler.Echo.NewContext(req, rec)); err != nil {
		t.Fatalf("DocumentInfo failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"pages":3`) {
		t.Errorf("Expected 3 pages in response, got: %s", rec.Body.String())
	}
}

func TestPreview(t *testing.T) {
	handler := newTestHandler(t, &stubNative{pageCount: 1})
	req := uploadRequest(t, "/api/preview?width=50")
	rec := httptest.NewRecorder()

	if err := handler.Preview(handler.Echo.NewContext(req, rec)); err != nil {
		t.Fatalf("Preview failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("Response is not a PNG: %v", err)
	}
	if img.Bounds().Dx() != 50 {
		t.Errorf("Expected width 50, got %d", img.Bounds().Dx())
	}
}

func TestThumbnail(t *testing.T) {
	handler := newTestHandler(t, &stubNative{pageCount: 3})
	req := uploadRequest(t, "/api/thumbnail?width=8")
	rec := httptest.NewRecorder()

	if err := handler.Thumbnail(handler.Echo.NewContext(req, rec)); err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	img, err := png.Decode(rec.Body)
	if err != nil {
		t.Fatalf("Response is not a PNG: %v", err)
	}
	// First page is 10x20 points; resized to the requested width with the
	// aspect ratio kept.
	if img.Bounds().Dx() != 8 || img.Bounds().Dy() != 16 {
		t.Errorf("Expected 8x16 thumbnail, got %v", img.Bounds())
	}
}

func TestThumbnail_BadWidth(t *testing.T) {
	handler := newTestHandler(t, &stubNative{pageCount: 1})
	req := uploadRequest(t, "/api/thumbnail?width=wide")
	rec := httptest.NewRecorder()

	if err := handler.Thumbnail(handler.Echo.NewContext(req, rec)); err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400, got %d", rec.Code)
	}
}

func TestThumbnail_BadDocument(t *testing.T) {
	handler := newTestHandler(t, &stubNative{loadErr: errors.New("format error")})
	req := uploadRequest(t, "/api/thumbnail")
	rec := httptest.NewRecorder()

	if err := handler.Thumbnail(handler.Echo.NewContext(req, rec)); err != nil {
		t.Fatalf("Thumbnail failed: %v", err)
	}
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("Expected 422, got %d", rec.Code)
	}
}

func TestParseRenderRequest(t *testing.T) {
	serverConfig := config.ServerConfig{DefaultScale: 1.5, Annotations: true}

	get := func(values map[string]string) func(string) string {
		return func(name string) string { return values[name] }
	}

	t.Run("defaults", func(t *testing.T) {
		req, err := parseRenderRequest(get(nil), serverConfig)
		if err != nil {
			t.Fatalf("parseRenderRequest failed: %v", err)
		}
		if req.page != 0 || req.format != "png" {
			t.Errorf("Unexpected defaults: %+v", req)
		}
		if req.config.Scale != 1.5 || !req.config.RenderAnnotations {
			t.Errorf("Server defaults not applied: %+v", req.config)
		}
		if req.config.BackgroundColour != 0xFFFFFFFF {
			t.Errorf("Expected white background, got %#x", req.config.BackgroundColour)
		}
		if req.config.OptimiseMode != raster.OptimiseLCDDisplay {
			t.Errorf("Expected lcd-display default, got %v", req.config.OptimiseMode)
		}
	})

	t.Run("explicit values", func(t *testing.T) {
		req, err := parseRenderRequest(get(map[string]string{
			"page":        "2",
			"scale":       "2.5",
			"rotation":    "180",
			"background":  "FF336699",
			"annotations": "false",
			"optimise":    "printing",
			"format":      "jpg",
			"password":    "secret",
		}), serverConfig)
		if err != nil {
			t.Fatalf("parseRenderRequest failed: %v", err)
		}
		if req.page != 2 || req.format != "jpeg" || req.password != "secret" {
			t.Errorf("Unexpected request: %+v", req)
		}
		if req.config.Scale != 2.5 || req.config.Rotation != 180 || req.config.RenderAnnotations {
			t.Errorf("Unexpected config: %+v", req.config)
		}
		if req.config.BackgroundColour != 0xFF336699 {
			t.Errorf("Expected parsed background, got %#x", req.config.BackgroundColour)
		}
		if req.config.OptimiseMode != raster.OptimisePrinting {
			t.Errorf("Expected printing mode, got %v", req.config.OptimiseMode)
		}
	})

	bad := []map[string]string{
		{"page": "two"},
		{"scale": "big"},
		{"rotation": "nine"},
		{"background": "red"},
		{"annotations": "maybe"},
		{"optimise": "grayscale"},
		{"format": "tiff"},
	}
	for _, values := range bad {
		if _, err := parseRenderRequest(get(values), serverConfig); err == nil {
			t.Errorf("Expected error for %v", values)
		}
	}
}

func TestCombinePages(t *testing.T) {
	pages := []image.Image{
		image.NewRGBA(image.Rect(0, 0, 10, 20)),
		image.NewRGBA(image.Rect(0, 0, 30, 5)),
	}
	combined := combinePages(pages)
	if combined.Bounds().Dx() != 30 || combined.Bounds().Dy() != 25 {
		t.Errorf("Expected 30x25 combined image, got %v", combined.Bounds())
	}
}

func TestCleanupScratch(t *testing.T) {
	handler := newTestHandler(t, &stubNative{pageCount: 1})

	stale := filepath.Join(handler.ServerConfig.ScratchPath, "stale.pdf")
	fresh := filepath.Join(handler.ServerConfig.ScratchPath, "fresh.pdf")
	for _, name := range []string{stale, fresh} {
		if err := os.WriteFile(name, []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to create scratch file: %v", err)
		}
	}
	old := time.Now().Add(-2 * time.Hour)
	if err := os.Chtimes(stale, old, old); err != nil {
		t.Fatalf("Failed to age scratch file: %v", err)
	}

	handler.cleanupScratchFunc()

	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Error("Expected stale file to be removed")
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Error("Expected fresh file to survive")
	}
}
