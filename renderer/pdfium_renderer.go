package renderer

import (
	"fmt"
	"image"

	"github.com/dkellner/pdflight/raster"
)

// PDFiumRenderer implements PDF rendering on top of the raster package's
// PDFium backend (pure Go, no CGo).
type PDFiumRenderer struct {
	library *raster.Library
	config  raster.RenderConfig
}

// NewPDFiumRenderer starts the PDFium worker and returns a renderer that
// rasterises at the given point-to-pixel scale.
func NewPDFiumRenderer(scale float64) (*PDFiumRenderer, error) {
	library, err := raster.InitLibrary()
	if err != nil {
		return nil, fmt.Errorf("unable to initialize PDFium: %w", err)
	}

	config := raster.DefaultRenderConfig()
	if scale > 0 {
		config.Scale = scale
	}

	return &PDFiumRenderer{
		library: library,
		config:  config,
	}, nil
}

// newPDFiumRendererWithLibrary exists so tests can supply a Library over a
// fake native backend.
func newPDFiumRendererWithLibrary(library *raster.Library, config raster.RenderConfig) *PDFiumRenderer {
	return &PDFiumRenderer{library: library, config: config}
}

// RenderPDF converts all pages of a PDF file to images
func (r *PDFiumRenderer) RenderPDF(filename string) ([]image.Image, error) {
	var images []image.Image
	err := r.library.WithDocument(filename, "", func(doc *raster.Document) error {
		images = make([]image.Image, 0, doc.PageCount())
		for pageIndex := 0; pageIndex < doc.PageCount(); pageIndex++ {
			img, err := doc.RenderPage(pageIndex, r.config)
			if err != nil {
				return fmt.Errorf("unable to render page %d: %w", pageIndex, err)
			}
			images = append(images, img)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return images, nil
}

// Close cleans up resources used by the PDFium renderer
func (r *PDFiumRenderer) Close() error {
	if r.library != nil {
		r.library.Close()
		r.library = nil
	}
	return nil
}
