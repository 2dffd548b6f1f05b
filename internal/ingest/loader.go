package ingest

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	pdf "github.com/ledongthuc/pdf"
)

var ErrUnsupportedFile = errors.New("unsupported file type")

// Page is one unit of loaded text with its metadata.
type Page struct {
	Text     string
	Metadata map[string]any
}

// LoadFile detects the file type and extracts text. PDFs yield one page per
// PDF page; text files yield a single page.
func LoadFile(path string) ([]Page, error) {
	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return nil, fmt.Errorf("detect type: %w", err)
	}
	source := filepath.Base(path)
	switch {
	case mt.Is("application/pdf"):
		return loadPDF(path, source)
	case strings.HasPrefix(mt.String(), "text/"), mt.Is("application/json"):
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return []Page{{Text: string(b), Metadata: map[string]any{"source": source}}}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, mt.String())
	}
}

func loadPDF(path, source string) ([]Page, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages := make([]Page, 0, r.NumPage())
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		pages = append(pages, Page{Text: text, Metadata: map[string]any{"source": source, "page": i - 1}})
	}
	return pages, nil
}
