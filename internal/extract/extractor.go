// Package extract converts uploaded files into plain text by declared type
// tag. Extraction is CPU-bound for some formats and is expected to run on the
// background ingest path, never inside a request handler.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/clearsight-ai/docchat/internal/domain"
	docx "github.com/fumiama/go-docx"
	"github.com/ledongthuc/pdf"
	"github.com/xuri/excelize/v2"
)

// Extractor dispatches raw file bytes to a format-specific text parser.
type Extractor struct{}

// New creates an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract returns the plain text of a file. Unknown type tags fail with an
// UNSUPPORTED_FORMAT domain error, parse failures with EXTRACTION_FAILED.
// The context is checked before the (non-interruptible) parse starts.
func (e *Extractor) Extract(ctx context.Context, r io.ReaderAt, size int64, fileType domain.FileType) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	switch fileType {
	case domain.FileTypePDF:
		return extractPDF(r, size)
	case domain.FileTypeText:
		return extractText(r, size)
	case domain.FileTypeDocx:
		return extractDocx(r, size)
	case domain.FileTypeXlsx:
		return extractXlsx(r, size)
	default:
		return "", domain.NewDomainError(domain.ErrCodeUnsupportedFormat, fmt.Sprintf("unsupported file type: %s", fileType))
	}
}

func extractText(r io.ReaderAt, size int64) (string, error) {
	data, err := io.ReadAll(io.NewSectionReader(r, 0, size))
	if err != nil {
		return "", domain.NewExtractionError(err)
	}
	return string(data), nil
}

func extractPDF(r io.ReaderAt, size int64) (text string, err error) {
	// The pdf package panics on some malformed files; treat that as a
	// normal extraction failure.
	defer func() {
		if rec := recover(); rec != nil {
			text = ""
			err = domain.NewExtractionError(fmt.Errorf("pdf parser panic: %v", rec))
		}
	}()

	reader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", domain.NewExtractionError(err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", domain.NewExtractionError(err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", domain.NewExtractionError(err)
	}
	return buf.String(), nil
}

func extractDocx(r io.ReaderAt, size int64) (string, error) {
	doc, err := docx.Parse(r, size)
	if err != nil {
		return "", domain.NewExtractionError(err)
	}

	var sb strings.Builder
	for _, item := range doc.Document.Body.Items {
		switch block := item.(type) {
		case *docx.Paragraph:
			sb.WriteString(block.String())
			sb.WriteString("\n")
		case *docx.Table:
			sb.WriteString(block.String())
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func extractXlsx(r io.ReaderAt, size int64) (string, error) {
	f, err := excelize.OpenReader(io.NewSectionReader(r, 0, size))
	if err != nil {
		return "", domain.NewExtractionError(err)
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", domain.NewExtractionError(err)
		}
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}
