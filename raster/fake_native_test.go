package raster

import (
	"errors"
	"path/filepath"
)

// fakePage describes one page of a fake document, sized in points.
type fakePage struct {
	width  float64
	height float64
}

// fakeDocument is a canned document the fake backend can "load".
type fakeDocument struct {
	password string
	pages    []fakePage
}

// fakeBitmap is an in-memory BGRA buffer.
type fakeBitmap struct {
	width  int
	height int
	pix    []byte
}

// fakeNative implements Native in memory. It keeps live-handle counters so
// tests can assert that no native resource leaks on any exit path, and it
// records the release order and the last render parameters.
type fakeNative struct {
	documents map[string]*fakeDocument // keyed by base name

	liveDocuments int
	livePages     int
	liveBitmaps   int

	nextHandle int
	pages      map[int]fakePage
	bitmaps    map[int]*fakeBitmap

	lastRotate int
	lastFlags  int
	released   []string // "bitmap"/"page"/"document" in release order

	// paint is invoked by RenderPageBitmap to simulate page content.
	paint func(bmp *fakeBitmap, rotate, flags int)

	failLoadPage     bool
	failCreateBitmap bool
	failFillRect     bool
	failRender       bool
	failGetBuffer    bool
	truncateBuffer   bool
}

func newFakeNative() *fakeNative {
	return &fakeNative{
		documents: make(map[string]*fakeDocument),
		pages:     make(map[int]fakePage),
		bitmaps:   make(map[int]*fakeBitmap),
	}
}

// addDocument registers a canned document under the given file name.
func (f *fakeNative) addDocument(name, password string, pages ...fakePage) {
	f.documents[name] = &fakeDocument{password: password, pages: pages}
}

// liveHandles reports how many native handles are still open.
func (f *fakeNative) liveHandles() int {
	return f.liveDocuments + f.livePages + f.liveBitmaps
}

func (f *fakeNative) LoadDocument(path string, password string) (DocumentHandle, error) {
	doc, ok := f.documents[filepath.Base(path)]
	if !ok {
		return DocumentHandle{}, errors.New("file not found or format error")
	}
	if doc.password != password {
		return DocumentHandle{}, errors.New("password required or incorrect password")
	}
	f.liveDocuments++
	return DocumentHandle{Ref: doc}, nil
}

func (f *fakeNative) GetPageCount(docHandle DocumentHandle) (int, error) {
	return len(docHandle.Ref.(*fakeDocument).pages), nil
}

func (f *fakeNative) LoadPage(docHandle DocumentHandle, index int) (PageHandle, error) {
	if f.failLoadPage {
		return PageHandle{}, errors.New("injected page load failure")
	}
	doc := docHandle.Ref.(*fakeDocument)
	if index < 0 || index >= len(doc.pages) {
		return PageHandle{}, errors.New("page not found or content error")
	}
	f.nextHandle++
	f.pages[f.nextHandle] = doc.pages[index]
	f.livePages++
	return PageHandle{Ref: f.nextHandle}, nil
}

func (f *fakeNative) GetPageSize(page PageHandle) (float64, float64, error) {
	p := f.pages[page.Ref.(int)]
	return p.width, p.height, nil
}

func (f *fakeNative) CreateBitmap(width, height int, alpha bool) (BitmapHandle, error) {
	if f.failCreateBitmap {
		return BitmapHandle{}, errors.New("injected bitmap allocation failure")
	}
	f.nextHandle++
	f.bitmaps[f.nextHandle] = &fakeBitmap{
		width:  width,
		height: height,
		pix:    make([]byte, width*height*4),
	}
	f.liveBitmaps++
	return BitmapHandle{Ref: f.nextHandle}, nil
}

func (f *fakeNative) FillRect(bitmap BitmapHandle, left, top, width, height int, colour uint32) error {
	if f.failFillRect {
		return errors.New("injected fill failure")
	}
	bmp := f.bitmaps[bitmap.Ref.(int)]
	a := byte(colour >> 24)
	r := byte(colour >> 16)
	g := byte(colour >> 8)
	b := byte(colour)
	for y := top; y < top+height; y++ {
		for x := left; x < left+width; x++ {
			i := (y*bmp.width + x) * 4
			bmp.pix[i+0] = b
			bmp.pix[i+1] = g
			bmp.pix[i+2] = r
			bmp.pix[i+3] = a
		}
	}
	return nil
}

func (f *fakeNative) RenderPageBitmap(bitmap BitmapHandle, page PageHandle, startX, startY, sizeX, sizeY, rotate, flags int) error {
	if f.failRender {
		return errors.New("injected rasteriser failure")
	}
	f.lastRotate = rotate
	f.lastFlags = flags
	if f.paint != nil {
		f.paint(f.bitmaps[bitmap.Ref.(int)], rotate, flags)
	}
	return nil
}

func (f *fakeNative) GetBitmapBuffer(bitmap BitmapHandle) ([]byte, error) {
	if f.failGetBuffer {
		return nil, errors.New("injected buffer failure")
	}
	bmp := f.bitmaps[bitmap.Ref.(int)]
	if f.truncateBuffer {
		return bmp.pix[:len(bmp.pix)/2], nil
	}
	return bmp.pix, nil
}

func (f *fakeNative) DestroyBitmap(bitmap BitmapHandle) error {
	delete(f.bitmaps, bitmap.Ref.(int))
	f.liveBitmaps--
	f.released = append(f.released, "bitmap")
	return nil
}

func (f *fakeNative) ClosePage(page PageHandle) error {
	delete(f.pages, page.Ref.(int))
	f.livePages--
	f.released = append(f.released, "page")
	return nil
}

func (f *fakeNative) CloseDocument(doc DocumentHandle) error {
	f.liveDocuments--
	f.released = append(f.released, "document")
	return nil
}
