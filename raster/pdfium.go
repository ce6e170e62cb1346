package raster

import (
	"fmt"
	"time"

	"github.com/klippa-app/go-pdfium"
	"github.com/klippa-app/go-pdfium/enums"
	"github.com/klippa-app/go-pdfium/references"
	"github.com/klippa-app/go-pdfium/requests"
	"github.com/klippa-app/go-pdfium/webassembly"
)

// Library holds the process-wide native rendering state. Initialize it
// once at startup with InitLibrary and tear it down with Close; documents
// are opened from it. It replaces the implicit FPDF_InitLibrary /
// FPDF_DestroyLibrary pairing with an explicit lifecycle.
type Library struct {
	pool   pdfium.Pool
	native Native
}

// InitLibrary starts the PDFium WebAssembly worker (pure Go, no CGo) and
// returns the process-wide Library. Call Close when the process is done
// rendering.
func InitLibrary() (*Library, error) {
	// Single worker: rendering is synchronous and callers serialize
	// access per document handle anyway.
	pool, err := webassembly.Init(webassembly.Config{
		MinIdle:  1,
		MaxIdle:  1,
		MaxTotal: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize PDFium WebAssembly: %w", err)
	}

	instance, err := pool.GetInstance(time.Second * 30)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to get PDFium instance: %w", err)
	}

	return &Library{
		pool:   pool,
		native: &pdfiumNative{instance: instance},
	}, nil
}

// NewLibrary wraps a custom Native backend. Most callers want InitLibrary;
// this form exists for alternative backends and for test doubles.
func NewLibrary(native Native) *Library {
	return &Library{native: native}
}

// Close tears down the native worker. No document opened from this
// Library may be used afterwards.
func (l *Library) Close() error {
	if l.pool != nil {
		l.pool.Close()
		l.pool = nil
	}
	l.native = nil
	return nil
}

// pdfiumNative implements Native on top of go-pdfium's raw FPDF_* API.
type pdfiumNative struct {
	instance pdfium.Pdfium
}

func (p *pdfiumNative) LoadDocument(path string, password string) (DocumentHandle, error) {
	req := &requests.FPDF_LoadDocument{Path: &path}
	if password != "" {
		req.Password = &password
	}
	resp, err := p.instance.FPDF_LoadDocument(req)
	if err != nil {
		return DocumentHandle{}, err
	}
	return DocumentHandle{Ref: resp.Document}, nil
}

func (p *pdfiumNative) GetPageCount(doc DocumentHandle) (int, error) {
	resp, err := p.instance.FPDF_GetPageCount(&requests.FPDF_GetPageCount{
		Document: doc.Ref.(references.FPDF_DOCUMENT),
	})
	if err != nil {
		return 0, err
	}
	return resp.PageCount, nil
}

func (p *pdfiumNative) LoadPage(doc DocumentHandle, index int) (PageHandle, error) {
	resp, err := p.instance.FPDF_LoadPage(&requests.FPDF_LoadPage{
		Document: doc.Ref.(references.FPDF_DOCUMENT),
		Index:    index,
	})
	if err != nil {
		return PageHandle{}, err
	}
	return PageHandle{Ref: resp.Page}, nil
}

func (p *pdfiumNative) GetPageSize(page PageHandle) (float64, float64, error) {
	pageRef := page.Ref.(references.FPDF_PAGE)
	widthResp, err := p.instance.FPDF_GetPageWidthF(&requests.FPDF_GetPageWidthF{
		Page: requests.Page{ByReference: &pageRef},
	})
	if err != nil {
		return 0, 0, err
	}
	heightResp, err := p.instance.FPDF_GetPageHeightF(&requests.FPDF_GetPageHeightF{
		Page: requests.Page{ByReference: &pageRef},
	})
	if err != nil {
		return 0, 0, err
	}
	return float64(widthResp.PageWidth), float64(heightResp.PageHeight), nil
}

func (p *pdfiumNative) CreateBitmap(width, height int, alpha bool) (BitmapHandle, error) {
	alphaFlag := 0
	if alpha {
		alphaFlag = 1
	}
	resp, err := p.instance.FPDFBitmap_Create(&requests.FPDFBitmap_Create{
		Width:  width,
		Height: height,
		Alpha:  alphaFlag,
	})
	if err != nil {
		return BitmapHandle{}, err
	}
	return BitmapHandle{Ref: resp.Bitmap}, nil
}

func (p *pdfiumNative) FillRect(bitmap BitmapHandle, left, top, width, height int, colour uint32) error {
	_, err := p.instance.FPDFBitmap_FillRect(&requests.FPDFBitmap_FillRect{
		Bitmap: bitmap.Ref.(references.FPDF_BITMAP),
		Left:   left,
		Top:    top,
		Width:  width,
		Height: height,
		Color:  uint64(colour),
	})
	return err
}

func (p *pdfiumNative) RenderPageBitmap(bitmap BitmapHandle, page PageHandle, startX, startY, sizeX, sizeY, rotate, flags int) error {
	pageRef := page.Ref.(references.FPDF_PAGE)
	_, err := p.instance.FPDF_RenderPageBitmap(&requests.FPDF_RenderPageBitmap{
		Bitmap: bitmap.Ref.(references.FPDF_BITMAP),
		Page:   requests.Page{ByReference: &pageRef},
		StartX: startX,
		StartY: startY,
		SizeX:  sizeX,
		SizeY:  sizeY,
		Rotate: enums.FPDF_PAGE_ROTATION(rotate),
		Flags:  enums.FPDF_RENDER_FLAG(flags),
	})
	return err
}

func (p *pdfiumNative) GetBitmapBuffer(bitmap BitmapHandle) ([]byte, error) {
	resp, err := p.instance.FPDFBitmap_GetBuffer(&requests.FPDFBitmap_GetBuffer{
		Bitmap: bitmap.Ref.(references.FPDF_BITMAP),
	})
	if err != nil {
		return nil, err
	}
	return resp.Buffer, nil
}

func (p *pdfiumNative) DestroyBitmap(bitmap BitmapHandle) error {
	_, err := p.instance.FPDFBitmap_Destroy(&requests.FPDFBitmap_Destroy{
		Bitmap: bitmap.Ref.(references.FPDF_BITMAP),
	})
	return err
}

func (p *pdfiumNative) ClosePage(page PageHandle) error {
	_, err := p.instance.FPDF_ClosePage(&requests.FPDF_ClosePage{
		Page: page.Ref.(references.FPDF_PAGE),
	})
	return err
}

func (p *pdfiumNative) CloseDocument(doc DocumentHandle) error {
	_, err := p.instance.FPDF_CloseDocument(&requests.FPDF_CloseDocument{
		Document: doc.Ref.(references.FPDF_DOCUMENT),
	})
	return err
}
