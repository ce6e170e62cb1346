package raster

import (
	"fmt"
	"image"
	"math"
)

// OptimiseMode selects what the native rasteriser optimises text output for.
type OptimiseMode int

const (
	// OptimiseNone applies no output optimisation.
	OptimiseNone OptimiseMode = iota
	// OptimiseLCDDisplay optimises text for LCD displays (subpixel rendering).
	OptimiseLCDDisplay
	// OptimisePrinting optimises output for printing.
	OptimisePrinting
)

func (m OptimiseMode) String() string {
	switch m {
	case OptimiseNone:
		return "none"
	case OptimiseLCDDisplay:
		return "lcd-display"
	case OptimisePrinting:
		return "printing"
	default:
		return fmt.Sprintf("OptimiseMode(%d)", int(m))
	}
}

// ParseOptimiseMode converts the textual form used by the CLI and the HTTP
// API ("none", "lcd-display", "printing") into an OptimiseMode.
func ParseOptimiseMode(s string) (OptimiseMode, error) {
	switch s {
	case "", "lcd-display":
		return OptimiseLCDDisplay, nil
	case "none":
		return OptimiseNone, nil
	case "printing":
		return OptimisePrinting, nil
	default:
		return 0, fmt.Errorf("%w: unknown optimise mode %q", ErrConfiguration, s)
	}
}

// RenderConfig holds the options for rendering a single page.
type RenderConfig struct {
	// Scale maps PDF points to pixels. At 1.0 one point (1/72in) becomes
	// one pixel. Must be positive. Page-level /UserUnit scaling is not
	// applied; callers wanting it must pre-multiply Scale themselves.
	Scale float64

	// Rotation rotates the page clockwise. Only 0, 90, 180 and 270 degrees
	// are supported; anything else is rejected with ErrConfiguration.
	Rotation int

	// BackgroundColour is a 32-bit colour in 8888 ARGB format, painted
	// before the page content.
	BackgroundColour uint32

	// RenderAnnotations includes page annotations in the output.
	RenderAnnotations bool

	// OptimiseMode selects the text rendering optimisation.
	OptimiseMode OptimiseMode
}

// DefaultRenderConfig returns the default options: scale 1.0, no rotation,
// opaque white background, annotations rendered, LCD display optimisation.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		Scale:             1.0,
		Rotation:          0,
		BackgroundColour:  0xFFFFFFFF,
		RenderAnnotations: true,
		OptimiseMode:      OptimiseLCDDisplay,
	}
}

// renderFlags folds the configuration into the native flag word.
func (c RenderConfig) renderFlags() (int, error) {
	flags := 0
	if c.RenderAnnotations {
		flags |= flagAnnotations
	}
	switch c.OptimiseMode {
	case OptimiseNone:
	case OptimiseLCDDisplay:
		flags |= flagLCDText
	case OptimisePrinting:
		flags |= flagPrinting
	default:
		return 0, fmt.Errorf("%w: unknown optimise mode %d", ErrConfiguration, int(c.OptimiseMode))
	}
	return flags, nil
}

// rotationCode maps rotation degrees to the native rotation code. Values
// outside {0, 90, 180, 270} are an explicit configuration error rather
// than a silent default.
func (c RenderConfig) rotationCode() (int, error) {
	switch c.Rotation {
	case 0:
		return 0, nil
	case 90:
		return 1, nil
	case 180:
		return 2, nil
	case 270:
		return 3, nil
	default:
		return 0, fmt.Errorf("%w: unsupported rotation %d degrees (must be 0, 90, 180 or 270)", ErrConfiguration, c.Rotation)
	}
}

// RenderPage rasterises the page at the given zero-based index into an
// RGBA image of ceil(width×scale) by ceil(height×scale) pixels.
//
// Validation happens before any native resource is allocated: an index
// outside [0, PageCount) fails with ErrPageIndex, a bad configuration with
// ErrConfiguration. On any later fault the page and bitmap handles already
// acquired are released before the error is returned, the bitmap first.
// The call either returns a fully rendered image or an error, never a
// partial result.
func (d *Document) RenderPage(pageIndex int, config RenderConfig) (*image.NRGBA, error) {
	if d.closed {
		return nil, fmt.Errorf("render page %d: %w", pageIndex, ErrDocumentClosed)
	}
	if pageIndex < 0 || pageIndex >= d.pageCount {
		return nil, fmt.Errorf("%w: page index %d is out of bounds for document with %d pages", ErrPageIndex, pageIndex, d.pageCount)
	}
	if config.Scale <= 0 {
		return nil, fmt.Errorf("%w: scale %v is not positive", ErrConfiguration, config.Scale)
	}
	flags, err := config.renderFlags()
	if err != nil {
		return nil, err
	}
	rotate, err := config.rotationCode()
	if err != nil {
		return nil, err
	}

	page, err := d.native.LoadPage(d.handle, pageIndex)
	if err != nil {
		return nil, fmt.Errorf("unable to load page %d: %w", pageIndex, err)
	}
	defer d.native.ClosePage(page)

	widthPoints, heightPoints, err := d.native.GetPageSize(page)
	if err != nil {
		return nil, fmt.Errorf("unable to get size of page %d: %w", pageIndex, err)
	}
	width := int(math.Ceil(widthPoints * config.Scale))
	height := int(math.Ceil(heightPoints * config.Scale))

	bitmap, err := d.native.CreateBitmap(width, height, false)
	if err != nil {
		return nil, fmt.Errorf("unable to create %dx%d bitmap: %w", width, height, err)
	}
	// Deferred after ClosePage, so the bitmap is destroyed first.
	defer d.native.DestroyBitmap(bitmap)

	if err := d.native.FillRect(bitmap, 0, 0, width, height, config.BackgroundColour); err != nil {
		return nil, fmt.Errorf("unable to fill bitmap background: %w", err)
	}

	if err := d.native.RenderPageBitmap(bitmap, page, 0, 0, width, height, rotate, flags); err != nil {
		return nil, fmt.Errorf("unable to render page %d: %w", pageIndex, err)
	}

	buffer, err := d.native.GetBitmapBuffer(bitmap)
	if err != nil {
		return nil, fmt.Errorf("unable to read bitmap buffer for page %d: %w", pageIndex, err)
	}
	if len(buffer) < width*height*4 {
		return nil, fmt.Errorf("short bitmap buffer for page %d: got %d bytes, want %d", pageIndex, len(buffer), width*height*4)
	}

	return decodeBGRA(buffer, width, height), nil
}

// decodeBGRA converts the native BGRA pixel buffer into an RGBA image.
func decodeBGRA(buffer []byte, width, height int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, width, height))
	for i := 0; i < width*height*4; i += 4 {
		img.Pix[i+0] = buffer[i+2]
		img.Pix[i+1] = buffer[i+1]
		img.Pix[i+2] = buffer[i+0]
		img.Pix[i+3] = buffer[i+3]
	}
	return img
}
