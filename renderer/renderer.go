package renderer

import (
	"fmt"
	"image"
)

// Renderer defines the interface for PDF to image conversion
type Renderer interface {
	// RenderPDF converts all pages of a PDF file to images
	// Returns a slice of images, one per page
	RenderPDF(filename string) ([]image.Image, error)

	// Close cleans up any resources used by the renderer
	Close() error
}

// NewRenderer creates a renderer for the given backend: "pdfium" (pure Go,
// no CGo - the default) or "fitz" (requires CGo and MuPDF).
func NewRenderer(backend string, scale float64) (Renderer, error) {
	switch backend {
	case "", "pdfium":
		return NewPDFiumRenderer(scale)
	case "fitz":
		return NewFitzRenderer(scale)
	default:
		return nil, fmt.Errorf("unknown renderer backend %q (want pdfium or fitz)", backend)
	}
}
