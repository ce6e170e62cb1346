package raster

import (
	"fmt"
	"path/filepath"
)

// Document is an open PDF document. It owns the underlying native handle
// for its lifetime; the handle is released by Close and is invalid
// afterwards. A Document is not safe for concurrent use - callers must
// serialize renders against a single Document, though independent
// Documents may be used from independent goroutines.
type Document struct {
	native    Native
	handle    DocumentHandle
	path      string
	pageCount int
	closed    bool
}

// OpenDocument opens the PDF at filePath, optionally unlocked with
// password (pass "" for unencrypted documents). The path is resolved to an
// absolute path before it is handed to the native library.
//
// A document that loads but reports zero pages is treated as a load
// failure and rejected with ErrPageCountInvalid. The caller owns the
// returned Document and must Close it.
func (l *Library) OpenDocument(filePath string, password string) (*Document, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrDocumentLoad, filePath, err)
	}

	handle, err := l.native.LoadDocument(absPath, password)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrDocumentLoad, absPath, err)
	}

	pageCount, err := l.native.GetPageCount(handle)
	if err != nil {
		l.native.CloseDocument(handle)
		return nil, fmt.Errorf("unable to get page count for %q: %w", absPath, err)
	}
	if pageCount < 1 {
		l.native.CloseDocument(handle)
		return nil, fmt.Errorf("%w in %q", ErrPageCountInvalid, absPath)
	}

	return &Document{
		native:    l.native,
		handle:    handle,
		path:      absPath,
		pageCount: pageCount,
	}, nil
}

// WithDocument opens the PDF at filePath, runs fn against it and closes it
// again. The document is closed on every exit path, including when fn
// returns an error or panics.
func (l *Library) WithDocument(filePath string, password string, fn func(*Document) error) error {
	doc, err := l.OpenDocument(filePath, password)
	if err != nil {
		return err
	}
	defer doc.Close()
	return fn(doc)
}

// Close releases the native document handle. It is safe to call more than
// once; only the first call releases the handle.
func (d *Document) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	return d.native.CloseDocument(d.handle)
}

// PageCount returns the number of pages in the document. It is always at
// least 1 for a successfully opened document.
func (d *Document) PageCount() int {
	return d.pageCount
}

// Path returns the absolute path the document was opened from.
func (d *Document) Path() string {
	return d.path
}
