package raster

// PDFium render flag bits (see fpdfview.h)
const (
	flagAnnotations = 0x01  // FPDF_ANNOT
	flagLCDText     = 0x02  // FPDF_LCD_TEXT
	flagPrinting    = 0x800 // FPDF_PRINTING
)

// DocumentHandle identifies an open document inside a Native backend.
// The Ref payload is backend-specific and opaque to callers.
type DocumentHandle struct {
	Ref any
}

// PageHandle identifies a loaded page. It is only valid for the duration
// of a single render call.
type PageHandle struct {
	Ref any
}

// BitmapHandle identifies a native pixel buffer. It is only valid for the
// duration of a single render call.
type BitmapHandle struct {
	Ref any
}

// Native is the boundary with the native rendering library. It mirrors the
// small set of PDFium calls the document context and the page rasteriser
// need, so that the whole layer can be driven against a test double.
type Native interface {
	// LoadDocument opens the PDF at path, optionally unlocking it with
	// password (empty string means no password).
	LoadDocument(path string, password string) (DocumentHandle, error)

	// GetPageCount returns the number of pages in the document.
	GetPageCount(doc DocumentHandle) (int, error)

	// LoadPage loads the page at the given zero-based index.
	LoadPage(doc DocumentHandle, index int) (PageHandle, error)

	// GetPageSize returns the page width and height in PDF points (1/72in).
	GetPageSize(page PageHandle) (width, height float64, err error)

	// CreateBitmap allocates a width×height BGRA bitmap, 4 bytes per pixel.
	CreateBitmap(width, height int, alpha bool) (BitmapHandle, error)

	// FillRect fills a rectangle of the bitmap with a 32-bit ARGB colour.
	FillRect(bitmap BitmapHandle, left, top, width, height int, colour uint32) error

	// RenderPageBitmap rasterises the page into the bitmap. rotate is the
	// PDFium rotation code (0..3, quarter turns clockwise) and flags is an
	// OR of the FPDF render flag bits.
	RenderPageBitmap(bitmap BitmapHandle, page PageHandle, startX, startY, sizeX, sizeY, rotate, flags int) error

	// GetBitmapBuffer returns the bitmap's pixel buffer: width×height×4
	// bytes of tightly packed BGRA, row-major, top to bottom.
	GetBitmapBuffer(bitmap BitmapHandle) ([]byte, error)

	// DestroyBitmap releases the bitmap buffer.
	DestroyBitmap(bitmap BitmapHandle) error

	// ClosePage releases a loaded page.
	ClosePage(page PageHandle) error

	// CloseDocument releases an open document.
	CloseDocument(doc DocumentHandle) error
}
