package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/paperwavelabs/paperwave-core/internal/config"
)

// Extractor provides page-by-page plain text from an uploaded document.
type Extractor interface {
	Pages(ctx context.Context, path string) ([]string, error)
}

// New selects an extractor backend by configured mode.
func New(cfg config.ExtractConfig) (Extractor, error) {
	switch cfg.Mode {
	case "pdf":
		return &PDFExtractor{}, nil
	case "text":
		return &TextExtractor{}, nil
	default:
		return nil, fmt.Errorf("unknown extract mode: %s", cfg.Mode)
	}
}

// PDFExtractor reads page text from a PDF document.
type PDFExtractor struct{}

func (e *PDFExtractor) Pages(ctx context.Context, path string) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	defer f.Close()

	total := reader.NumPage()
	pages := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// Unparseable pages behave like blank ones; the summarizer
			// skips anything under its content floor.
			pages = append(pages, "")
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}

// TextExtractor reads a plain text file, splitting pages on form feeds.
// Used for local development and tests.
type TextExtractor struct{}

func (e *TextExtractor) Pages(ctx context.Context, path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("open document: %w", err)
	}
	return strings.Split(string(data), "\f"), nil
}
