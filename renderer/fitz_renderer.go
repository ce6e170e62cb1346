package renderer

import (
	"fmt"
	"image"

	"github.com/gen2brain/go-fitz"
)

// At scale 1.0 one PDF point (1/72in) maps to one pixel, i.e. 72dpi.
const basePointDPI = 72.0

// FitzRenderer implements PDF rendering using go-fitz (requires CGo and
// MuPDF). It exists as a fallback for platforms where the WebAssembly
// PDFium worker is not wanted.
type FitzRenderer struct {
	dpi float64
}

// NewFitzRenderer creates a Fitz-based renderer rasterising at the given
// point-to-pixel scale.
func NewFitzRenderer(scale float64) (*FitzRenderer, error) {
	dpi := basePointDPI
	if scale > 0 {
		dpi = basePointDPI * scale
	}
	return &FitzRenderer{dpi: dpi}, nil
}

// RenderPDF converts all pages of a PDF file to images using go-fitz
func (r *FitzRenderer) RenderPDF(filename string) ([]image.Image, error) {
	doc, err := fitz.New(filename)
	if err != nil {
		return nil, fmt.Errorf("unable to open PDF document: %w", err)
	}
	defer doc.Close()

	numPages := doc.NumPage()

	var images []image.Image
	for pageNum := 0; pageNum < numPages; pageNum++ {
		img, err := doc.ImageDPI(pageNum, r.dpi)
		if err != nil {
			return nil, fmt.Errorf("unable to render page %d: %w", pageNum, err)
		}
		images = append(images, img)
	}

	return images, nil
}

// Close cleans up resources (no-op for Fitz renderer as doc is closed per-render)
func (r *FitzRenderer) Close() error {
	return nil
}
