package raster

import "errors"

var (
	// ErrDocumentLoad is returned when the native library cannot load a
	// document (bad path, corrupt file, or wrong password).
	ErrDocumentLoad = errors.New("unable to load document")

	// ErrPageCountInvalid is returned when a document loads but reports no
	// usable pages, which indicates a corrupt or non-PDF input.
	ErrPageCountInvalid = errors.New("no pages could be recognised")

	// ErrPageIndex is returned when a requested page index is outside the
	// document's [0, page_count) range.
	ErrPageIndex = errors.New("page index out of bounds")

	// ErrConfiguration is returned for an unrecognised optimise mode, an
	// unsupported rotation, or a non-positive scale factor.
	ErrConfiguration = errors.New("invalid render configuration")

	// ErrDocumentClosed is returned when a document is used after Close.
	ErrDocumentClosed = errors.New("document is closed")
)
