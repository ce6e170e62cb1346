package server

import (
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"

	"github.com/dkellner/pdflight/config"
	"github.com/dkellner/pdflight/raster"
)

// renderRequest carries the parsed parameters of a render call.
type renderRequest struct {
	page     int
	format   string
	password string
	config   raster.RenderConfig
}

// parseRenderRequest builds a renderRequest from request values. get
// returns the raw value for a parameter name, or "" when absent.
func parseRenderRequest(get func(string) string, serverConfig config.ServerConfig) (renderRequest, error) {
	req := renderRequest{
		page:   0,
		format: "png",
		config: raster.RenderConfig{
			Scale:             serverConfig.DefaultScale,
			BackgroundColour:  0xFFFFFFFF,
			RenderAnnotations: serverConfig.Annotations,
		},
	}

	if value := get("page"); value != "" {
		page, err := strconv.Atoi(value)
		if err != nil {
			return req, fmt.Errorf("invalid page %q", value)
		}
		req.page = page
	}

	if value := get("scale"); value != "" {
		scale, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return req, fmt.Errorf("invalid scale %q", value)
		}
		req.config.Scale = scale
	}

	if value := get("rotation"); value != "" {
		rotation, err := strconv.Atoi(value)
		if err != nil {
			return req, fmt.Errorf("invalid rotation %q", value)
		}
		req.config.Rotation = rotation
	}

	if value := get("background"); value != "" {
		colour, err := strconv.ParseUint(value, 16, 32)
		if err != nil {
			return req, fmt.Errorf("invalid background colour %q (want 8 hex digits, ARGB)", value)
		}
		req.config.BackgroundColour = uint32(colour)
	}

	if value := get("annotations"); value != "" {
		annotations, err := strconv.ParseBool(value)
		if err != nil {
			return req, fmt.Errorf("invalid annotations flag %q", value)
		}
		req.config.RenderAnnotations = annotations
	}

	mode, err := raster.ParseOptimiseMode(get("optimise"))
	if err != nil {
		return req, err
	}
	req.config.OptimiseMode = mode

	switch value := get("format"); value {
	case "", "png":
		req.format = "png"
	case "jpeg", "jpg":
		req.format = "jpeg"
	default:
		return req, fmt.Errorf("unsupported output format %q (want png or jpeg)", value)
	}

	req.password = get("password")

	return req, nil
}

// formOrQuery looks a parameter up in the multipart form first and falls
// back to the query string.
func formOrQuery(c echo.Context, name string) string {
	if value := c.FormValue(name); value != "" {
		return value
	}
	return c.QueryParam(name)
}

// saveUpload stores the uploaded "pdf" form file in the scratch folder
// under the job ID. The caller must invoke the returned cleanup func.
func (serverHandler *ServerHandler) saveUpload(c echo.Context, jobID ulid.ULID) (string, func(), error) {
	fileHeader, err := c.FormFile("pdf")
	if err != nil {
		return "", nil, fmt.Errorf("no PDF file provided")
	}
	if maxBytes := int64(serverHandler.ServerConfig.MaxUploadMB) << 20; fileHeader.Size > maxBytes {
		return "", nil, fmt.Errorf("upload of %d bytes exceeds the %dMB limit", fileHeader.Size, serverHandler.ServerConfig.MaxUploadMB)
	}

	source, err := fileHeader.Open()
	if err != nil {
		return "", nil, fmt.Errorf("unable to open upload: %w", err)
	}
	defer source.Close()

	scratchPath := filepath.Join(serverHandler.ServerConfig.ScratchPath, jobID.String()+".pdf")
	target, err := os.Create(scratchPath)
	if err != nil {
		return "", nil, fmt.Errorf("unable to create scratch file: %w", err)
	}
	defer target.Close()

	if _, err := io.Copy(target, source); err != nil {
		os.Remove(scratchPath)
		return "", nil, fmt.Errorf("unable to store upload: %w", err)
	}

	return scratchPath, func() { os.Remove(scratchPath) }, nil
}

// renderStatus maps a render fault to an HTTP status code.
func renderStatus(err error) int {
	switch {
	case errors.Is(err, raster.ErrPageIndex), errors.Is(err, raster.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, raster.ErrDocumentLoad), errors.Is(err, raster.ErrPageCountInvalid):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// Health reports service liveness
// @Summary Health check
// @Tags Admin
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (serverHandler *ServerHandler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// RenderPage rasterises one page of an uploaded PDF
// @Summary Render a single PDF page to an image
// @Description Accepts a multipart PDF upload and returns the requested page as PNG or JPEG
// @Tags Render
// @Accept mpfd
// @Produce png
// @Param pdf formData file true "PDF document"
// @Param page query int false "Zero-based page index" default(0)
// @Param scale query number false "Point-to-pixel scale factor"
// @Param rotation query int false "Clockwise rotation: 0, 90, 180 or 270"
// @Param background query string false "Background colour, 8 hex digits ARGB"
// @Param annotations query bool false "Render page annotations"
// @Param optimise query string false "Optimise mode: none, lcd-display or printing"
// @Param format query string false "Output format: png or jpeg"
// @Param password query string false "Document password"
// @Success 200 {file} file "Rendered page image"
// @Failure 400 {object} map[string]string "Bad parameters or page out of range"
// @Failure 422 {object} map[string]string "Document could not be loaded"
// @Router /api/render [post]
func (serverHandler *ServerHandler) RenderPage(c echo.Context) error {
	jobID := ulid.Make()

	request, err := parseRenderRequest(func(name string) string { return formOrQuery(c, name) }, serverHandler.ServerConfig)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	scratchPath, cleanup, err := serverHandler.saveUpload(c, jobID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	defer cleanup()

	started := time.Now()
	var rendered *image.NRGBA
	err = serverHandler.Library.WithDocument(scratchPath, request.password, func(doc *raster.Document) error {
		img, renderErr := doc.RenderPage(request.page, request.config)
		rendered = img
		return renderErr
	})
	if err != nil {
		Logger.Warn("Render failed", "job", jobID.String(), "page", request.page, "error", err)
		return c.JSON(renderStatus(err), map[string]string{"error": err.Error()})
	}

	body, contentType, err := encodeImage(rendered, request.format)
	if err != nil {
		Logger.Error("Image encoding failed", "job", jobID.String(), "format", request.format, "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	Logger.Info("Rendered page",
		"job", jobID.String(),
		"page", request.page,
		"scale", request.config.Scale,
		"duration", time.Since(started))

	return c.Blob(http.StatusOK, contentType, body)
}
