package server

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"image/png"
	"net/http"
	"strconv"
	"time"

	"github.com/disintegration/imaging"
	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
)

// encodeImage serialises an image as PNG or JPEG.
func encodeImage(img image.Image, format string) ([]byte, string, error) {
	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("failed to encode PNG: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	case "jpeg":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
			return nil, "", fmt.Errorf("failed to encode JPEG: %w", err)
		}
		return buf.Bytes(), "image/jpeg", nil
	default:
		return nil, "", fmt.Errorf("unsupported output format %q", format)
	}
}

// combinePages stacks page images vertically into one image.
func combinePages(images []image.Image) image.Image {
	if len(images) == 1 {
		return images[0]
	}

	totalHeight := 0
	maxWidth := 0
	for _, img := range images {
		bounds := img.Bounds()
		totalHeight += bounds.Dy()
		if bounds.Dx() > maxWidth {
			maxWidth = bounds.Dx()
		}
	}

	combined := image.NewRGBA(image.Rect(0, 0, maxWidth, totalHeight))
	currentY := 0
	for _, img := range images {
		bounds := img.Bounds()
		target := image.Rect(0, currentY, bounds.Dx(), currentY+bounds.Dy())
		draw.Draw(combined, target, img, bounds.Min, draw.Src)
		currentY += bounds.Dy()
	}

	return combined
}

// Preview renders every page of an uploaded PDF into one image
// @Summary Preview a whole PDF as a single image
// @Description Renders all pages, stacks them vertically and returns a resized, sharpened PNG
// @Tags Render
// @Accept mpfd
// @Produce png
// @Param pdf formData file true "PDF document"
// @Param width query int false "Output width in pixels" default(1024)
// @Success 200 {file} file "Preview image"
// @Failure 400 {object} map[string]string "Bad parameters"
// @Failure 422 {object} map[string]string "Document could not be rendered"
// @Router /api/preview [post]
func (serverHandler *ServerHandler) Preview(c echo.Context) error {
	jobID := ulid.Make()

	width := 1024
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

	started := time.Now()
	images, err := serverHandler.Renderer.RenderPDF(scratchPath)
	if err != nil {
		Logger.Warn("Preview render failed", "job", jobID.String(), "error", err)
		return c.JSON(renderStatus(err), map[string]string{"error": err.Error()})
	}
	if len(images) == 0 {
		return c.JSON(http.StatusUnprocessableEntity, map[string]string{"error": "PDF has no pages"})
	}

	combined := combinePages(images)
	resized := imaging.Resize(combined, width, 0, imaging.Lanczos)
	sharpened := imaging.Sharpen(resized, 0.5)

	body, contentType, err := encodeImage(sharpened, "png")
	if err != nil {
		Logger.Error("Preview encoding failed", "job", jobID.String(), "error", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	Logger.Info("Rendered preview",
		"job", jobID.String(),
		"pages", len(images),
		"width", width,
		"duration", time.Since(started))

	return c.Blob(http.StatusOK, contentType, body)
}
