package ingest

import (
	"fmt"
	"log/slog"

	"github.com/ledongthuc/pdf"
)

// ExtractPages returns the plain text of each page of a PDF. Pages whose
// text cannot be decoded are skipped with a warning; a document where every
// page fails simply yields an empty slice, which the pipeline treats as
// zero chunks rather than a fatal error.
func ExtractPages(path string, logger *slog.Logger) ([]string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}
	defer f.Close()

	var pages []string
	total := reader.NumPage()
	for i := 1; i <= total; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			logger.Warn("page text extraction failed", "file", path, "page", i, "err", err)
			continue
		}
		pages = append(pages, text)
	}
	return pages, nil
}
