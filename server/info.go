package server

import (
	"bytes"
	"net/http"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/ledongthuc/pdf"
	"github.com/oklog/ulid/v2"

	"github.com/dkellner/pdflight/raster"
)

type documentInfoResponse struct {
	Job   string `json:"job"`
	Pages int    `json:"pages"`
	Text  string `json:"text,omitempty"`
}

// extractText pulls the plain text out of a PDF file. Scanned documents
// usually come back empty; that is not an error here.
func extractText(file string) (string, error) {
	fileName := filepath.Base(file)
	pdfFile, result, err := pdf.Open(file)
	if err != nil {
		Logger.Error("Unable to open PDF for text extraction", "fileName", fileName)
		return "", err
	}
	defer pdfFile.Close()

	textReader, err := result.GetPlainText()
	if err != nil {
		Logger.Error("Unable to convert PDF to text", "fileName", fileName)
		return "", err
	}

	var buf bytes.Buffer
	buf.ReadFrom(textReader)
	return buf.String(), nil
}

// DocumentInfo reports the page count and plain text of an uploaded PDF
// @Summary Inspect an uploaded PDF
// @Description Returns the page count and any extractable plain text
// @Tags Documents
// @Accept mpfd
// @Produce json
// @Param pdf formData file true "PDF document"
// @Param password query string false "Document password"
// @Success 200 {object} documentInfoResponse
// @Failure 400 {object} map[string]string "Bad upload"
// @Failure 422 {object} map[string]string "Document could not be loaded"
// @Router /api/info [post]
func (serverHandler *ServerHandler) DocumentInfo(c echo.Context) error {
	jobID := ulid.Make()

	scratchPath, cleanup, err := serverHandler.saveUpload(c, jobID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	defer cleanup()

	response := documentInfoResponse{Job: jobID.String()}
	err = serverHandler.Library.WithDocument(scratchPath, formOrQuery(c, "password"), func(doc *raster.Document) error {
		response.Pages = doc.PageCount()
		return nil
	})
	if err != nil {
		Logger.Warn("Document inspection failed", "job", jobID.String(), "error", err)
		return c.JSON(renderStatus(err), map[string]string{"error": err.Error()})
	}

	text, err := extractText(scratchPath)
	if err != nil {
		// Page count is still useful without text.
		Logger.Warn("Text extraction failed", "job", jobID.String(), "error", err)
	}
	response.Text = text

	return c.JSON(http.StatusOK, response)
}
