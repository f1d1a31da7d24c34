// Package loader turns raw document blobs into normalized text records.
//
// A Chain tries several extraction strategies in priority order; the first
// strategy producing at least one non-empty record wins. Strategies are
// self-gating: each one inspects the blob (magic bytes, name hints) and fails
// fast when the format is not its own, so the chain can hold strategies for
// several formats in a single ordered list.
package loader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"careassist/internal/contextutil"
)

// ErrUnsupportedDocument is returned when every strategy in the chain failed
// or produced an empty result for a document.
var ErrUnsupportedDocument = errors.New("unsupported document")

// Blob is one raw uploaded document.
type Blob struct {
	// Name is the document identity within the blob store.
	Name string
	// Data is the raw document bytes.
	Data []byte
}

// Record is a normalized unit of extracted text: one page of a PDF, one sheet
// of a spreadsheet, or a whole text document.
type Record struct {
	// Source is the originating document identity.
	Source string
	// PageOrSheet is the 1-based page or sheet number within the source.
	PageOrSheet int
	// Text is the extracted text content.
	Text string
	// Metadata carries extraction details (e.g. which strategy produced it).
	Metadata map[string]string
}

// Strategy is one document extraction method.
type Strategy interface {
	// Name identifies the strategy for logging and record metadata.
	Name() string
	// Parse extracts normalized records from the blob. An error or an empty
	// result means the next strategy in the chain should be tried.
	Parse(blob Blob) ([]Record, error)
}

// Chain tries an ordered list of strategies until one succeeds.
type Chain struct {
	strategies []Strategy
}

// NewChain creates a chain with the default strategy order: PDF per-page,
// PDF whole-document, XLSX per-sheet, CSV, then plain text as a last resort.
func NewChain() *Chain {
	return &Chain{
		strategies: []Strategy{
			&pdfPagesStrategy{},
			&pdfDocumentStrategy{},
			&xlsxSheetsStrategy{},
			&csvTableStrategy{},
			newPlainTextStrategy(),
		},
	}
}

// NewChainWith creates a chain with an explicit strategy order.
func NewChainWith(strategies ...Strategy) *Chain {
	return &Chain{strategies: strategies}
}

// Load extracts normalized records from the blob. It returns the output of the
// first strategy that yields at least one non-empty record. If every strategy
// fails or returns nothing, the error wraps ErrUnsupportedDocument.
func (c *Chain) Load(ctx context.Context, blob Blob) ([]Record, error) {
	logger := contextutil.LoggerFromContext(ctx)

	if len(blob.Data) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", ErrUnsupportedDocument, blob.Name)
	}

	for _, strategy := range c.strategies {
		records, err := strategy.Parse(blob)
		if err != nil {
			logger.DebugContext(ctx, "loader strategy failed",
				"strategy", strategy.Name(), "document", blob.Name, "error", err)
			continue
		}

		records = dropEmptyRecords(records)
		if len(records) == 0 {
			logger.DebugContext(ctx, "loader strategy produced no text",
				"strategy", strategy.Name(), "document", blob.Name)
			continue
		}

		logger.InfoContext(ctx, "document loaded",
			"strategy", strategy.Name(), "document", blob.Name, "records", len(records))
		return records, nil
	}

	return nil, fmt.Errorf("%w: all %d strategies failed for %s",
		ErrUnsupportedDocument, len(c.strategies), blob.Name)
}

// dropEmptyRecords removes records whose text is blank.
func dropEmptyRecords(records []Record) []Record {
	kept := records[:0]
	for _, r := range records {
		if strings.TrimSpace(r.Text) != "" {
			kept = append(kept, r)
		}
	}
	return kept
}

// newRecord builds a record tagged with the producing strategy.
func newRecord(blob Blob, pageOrSheet int, text, strategy string) Record {
	return Record{
		Source:      blob.Name,
		PageOrSheet: pageOrSheet,
		Text:        text,
		Metadata:    map[string]string{"strategy": strategy},
	}
}
