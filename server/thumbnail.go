package server

import (
	"fmt"
	"image"
	"net/http"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"

	"github.com/dkellner/pdflight/raster"
)

// Thumbnail renders the first page of an uploaded PDF as a small image
// @Summary Thumbnail of a PDF's first page
// @Description Renders page 0, resizes it to the requested width, sharpens it and returns a PNG
// @Tags Render
// @Accept mpfd
// @Produce png
// @Param pdf formData file true "PDF document"
// @Param width query int false "Thumbnail width in pixels" default(256)
// @Param password query string false "Document password"
// @Success 200 {file} file "Thumbnail image"
// @Failure 400 {object} map[string]string "Bad parameters"
// @Failure 422 {object} map[string]string "Document could not be loaded"
// @Router /api/thumbnail [post]
func (serverHandler *ServerHandler) Thumbnail(c echo.Context) error {
	jobID := ulid.Make()

	width := 256
	if value := formOrQuery(c, "width"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil || parsed < 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("invalid width %q", value)})
		}
		width = parsed
	}

	scratchPath, cleanup, err := serverHandler.saveUpload(c, jobID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	defer cleanup()

	renderConfig := raster.DefaultRenderConfig()
	renderConfig.Scale = serverHandler.ServerConfig.DefaultScale
	renderConfig.RenderAnnotations = serverHandler.ServerConfig.Annotations

	started := time.Now()
	var rendered *image.NRGBA
	err = serverHandler.Library.WithDocument(scratchPath, formOrQuery(c, "password"), func(doc *raster.Document) error {
		img, renderErr := doc.RenderPage(0, renderConfig)
		rendered = img
		return renderErr
	})
	if err != nil {
		Logger.Warn("Thumbnail render failed", "job", jobID.String(), "error", err)
		return c.JSON(renderStatus(err), map[string]string{"error": err.Error()})
	}

	resized := imaging.Resize(rendered, width, 0, imaging.Lanczos)
	sharpened := imaging.Sharpen(resized, 0.5)

	body, contentType, err := encodeImage(sharpened, "png")
	if err != nil {
		Logger.Error("Thumbnail encoding failed", "job", jobID.String(), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	Logger.Info("Rendered thumbnail",
		"job", jobID.String(),
		"width", width,
		"duration", time.Since(started))

	return c.Blob(http.StatusOK, contentType, body)
}
