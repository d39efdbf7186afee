package document

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"specbook/internal/util"

	"github.com/ledongthuc/pdf"
)

// Page is one page of a specbook, identified by its 1-based position in the
// source document.
type Page struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// Document is an immutable, page-indexed view of a specbook PDF.
type Document struct {
	Base  string `json:"base"`
	Pages []Page `json:"pages"`
}

// Load reads a specbook PDF into a Document, one entry per page. Pages
// whose text cannot be extracted are kept (empty text) so page indices stay
// aligned with the source file.
func Load(path string) (Document, error) {
	if _, err := os.Stat(path); err != nil {
		return Document{}, fmt.Errorf("%w: %s", util.ErrDocumentNotFound, path)
	}
	f, r, err := pdf.Open(path)
	if err != nil {
		return Document{}, fmt.Errorf("%w: open %s: %v", util.ErrDocumentNotFound, path, err)
	}
	defer f.Close()

	total := r.NumPage()
	pages := make([]Page, 0, total)
	for i := 1; i <= total; i++ {
		p := r.Page(i)
		text := ""
		if !p.V.IsNull() {
			if extracted, err := p.GetPlainText(nil); err == nil {
				text = util.SanitizeText(extracted)
			}
		}
		pages = append(pages, Page{Number: i, Text: text})
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return Document{Base: base, Pages: pages}, nil
}
