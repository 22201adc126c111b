package extractor

import (
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// readPDFText reads the native text layer. The pdf package panics on some
// malformed inputs, so panics are converted into errors.
func readPDFText(path string) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, pages, err = "", 0, fmt.Errorf("pdf reader panic: %v", r)
		}
	}()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", 0, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	pages = r.NumPage()
	fonts := make(map[string]*pdf.Font)
	parts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		for _, name := range p.Fonts() {
			if _, ok := fonts[name]; !ok {
				font := p.Font(name)
				fonts[name] = &font
			}
		}
		t, err := p.GetPlainText(fonts)
		if err != nil {
			return "", pages, fmt.Errorf("page %d: %w", i, err)
		}
		parts = append(parts, t)
	}
	return strings.TrimSpace(strings.Join(parts, " ")), pages, nil
}
