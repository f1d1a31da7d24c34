package loader

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// isPDF reports whether the bytes start with the PDF magic header.
func isPDF(b []byte) bool {
	return len(b) >= 5 && string(b[:5]) == "%PDF-"
}

// pdfPagesStrategy extracts text page by page, producing one record per page.
// This is the most capable PDF strategy: page boundaries survive into the
// records, so retrieval can point back at a page.
type pdfPagesStrategy struct{}

func (s *pdfPagesStrategy) Name() string { return "pdf-pages" }

func (s *pdfPagesStrategy) Parse(blob Blob) (records []Record, err error) {
	if !isPDF(blob.Data) {
		return nil, fmt.Errorf("missing %%PDF header")
	}

	// The pdf library panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = fmt.Errorf("pdf page extraction panicked: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(blob.Data), int64(len(blob.Data)))
	if err != nil {
		return nil, fmt.Errorf("pdf reader: %w", err)
	}

	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("pdf page %d: %w", i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		records = append(records, newRecord(blob, i, collapseWhitespace(text), s.Name()))
	}
	return records, nil
}

// pdfDocumentStrategy extracts the whole document as a single record. It is the
// fallback for PDFs whose page tree the per-page extractor cannot walk.
type pdfDocumentStrategy struct{}

func (s *pdfDocumentStrategy) Name() string { return "pdf-document" }

func (s *pdfDocumentStrategy) Parse(blob Blob) (records []Record, err error) {
	if !isPDF(blob.Data) {
		return nil, fmt.Errorf("missing %%PDF header")
	}

	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = fmt.Errorf("pdf plaintext extraction panicked: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(blob.Data), int64(len(blob.Data)))
	if err != nil {
		return nil, fmt.Errorf("pdf reader: %w", err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return nil, fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return nil, fmt.Errorf("pdf read: %w", err)
	}

	text := collapseWhitespace(string(b))
	if text == "" {
		return nil, nil
	}
	return []Record{newRecord(blob, 1, text, s.Name())}, nil
}

// collapseWhitespace normalizes runs of spaces and tabs and trims each line,
// keeping line breaks so the chunker can split on them.
func collapseWhitespace(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, strings.Join(strings.Fields(line), " "))
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
