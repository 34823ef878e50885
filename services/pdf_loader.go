package services

import (
	"context"
	"fmt"
	"os"
	"strings"

	"pdf-qa-platform/models"

	"github.com/ledongthuc/pdf"
)

// PDFLoader extracts plain text page by page with ledongthuc/pdf.
type PDFLoader struct {
	// MaxBytes caps files accepted for in-memory parsing. Zero disables the cap.
	MaxBytes int64
}

func NewPDFLoader() *PDFLoader {
	return &PDFLoader{MaxBytes: 200 << 20}
}

// Load returns one PageDocument per page that has text. Pages are 1-based.
// A page whose content cannot be decoded fails the whole load.
func (l *PDFLoader) Load(ctx context.Context, path, source string) (pages []models.PageDocument, err error) {
	stat, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat PDF file: %w", err)
	}
	if l.MaxBytes > 0 && stat.Size() > l.MaxBytes {
		return nil, fmt.Errorf("pdf too large for in-memory extraction")
	}

	// The parser panics on some malformed inputs.
	defer func() {
		if r := recover(); r != nil {
			pages = nil
			err = fmt.Errorf("malformed PDF: %v", r)
		}
	}()

	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(make(map[string]*pdf.Font))
		if err != nil {
			return nil, fmt.Errorf("extract page %d: %w", i, err)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}

		pages = append(pages, models.PageDocument{Page: i, Text: text, Source: source})
	}

	if len(pages) == 0 {
		return nil, fmt.Errorf("no extractable text in %d pages", total)
	}
	return pages, nil
}
