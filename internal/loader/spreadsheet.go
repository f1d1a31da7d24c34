package loader

import (
	"archive/zip"
	"bytes"
	"encoding/csv"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

// isZip reports whether the bytes start with a ZIP local file header.
func isZip(b []byte) bool {
	return len(b) >= 4 && b[0] == 'P' && b[1] == 'K' && b[2] == 3 && b[3] == 4
}

// xlsxSheetsStrategy extracts an OpenXML workbook sheet by sheet, producing one
// record per worksheet. Cells in a row are joined with " | " and rows with
// newlines, which keeps tables recognizable downstream.
type xlsxSheetsStrategy struct{}

func (s *xlsxSheetsStrategy) Name() string { return "xlsx-sheets" }

func (s *xlsxSheetsStrategy) Parse(blob Blob) ([]Record, error) {
	if !isZip(blob.Data) {
		return nil, fmt.Errorf("not a zip container")
	}

	zr, err := zip.NewReader(bytes.NewReader(blob.Data), int64(len(blob.Data)))
	if err != nil {
		return nil, fmt.Errorf("zip reader: %w", err)
	}

	shared, err := readSharedStrings(zr)
	if err != nil {
		return nil, err
	}

	sheetFiles := make([]*zip.File, 0, 4)
	for _, f := range zr.File {
		if strings.HasPrefix(f.Name, "xl/worksheets/sheet") && strings.HasSuffix(f.Name, ".xml") {
			sheetFiles = append(sheetFiles, f)
		}
	}
	if len(sheetFiles) == 0 {
		return nil, fmt.Errorf("zip does not look like a workbook")
	}
	sort.Slice(sheetFiles, func(i, j int) bool {
		return sheetNumber(sheetFiles[i].Name) < sheetNumber(sheetFiles[j].Name)
	})

	var records []Record
	for i, f := range sheetFiles {
		text, err := extractSheetText(f, shared)
		if err != nil {
			return nil, fmt.Errorf("sheet %s: %w", f.Name, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		records = append(records, newRecord(blob, i+1, text, s.Name()))
	}
	return records, nil
}

// sheetNumber extracts the numeric suffix from "xl/worksheets/sheetN.xml".
func sheetNumber(name string) int {
	name = strings.TrimSuffix(name, ".xml")
	idx := strings.LastIndex(name, "sheet")
	if idx < 0 {
		return 0
	}
	n, _ := strconv.Atoi(name[idx+len("sheet"):])
	return n
}

// readSharedStrings parses xl/sharedStrings.xml into an index-addressable list.
// Workbooks without shared strings (all inline cells) yield an empty list.
func readSharedStrings(zr *zip.Reader) ([]string, error) {
	var file *zip.File
	for _, f := range zr.File {
		if f.Name == "xl/sharedStrings.xml" {
			file = f
			break
		}
	}
	if file == nil {
		return nil, nil
	}

	rc, err := file.Open()
	if err != nil {
		return nil, fmt.Errorf("shared strings: %w", err)
	}
	defer func() {
		_ = rc.Close()
	}()

	var (
		shared  []string
		current strings.Builder
		inItem  bool
		inText  bool
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("shared strings: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "si":
				inItem = true
				current.Reset()
			case "t":
				inText = inItem
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "si":
				shared = append(shared, current.String())
				inItem = false
			}
		}
	}
	return shared, nil
}

// extractSheetText flattens one worksheet into pipe-joined rows.
func extractSheetText(f *zip.File, shared []string) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", err
	}
	defer func() {
		_ = rc.Close()
	}()

	var (
		rows     []string
		cells    []string
		cellType string
		value    strings.Builder
		inValue  bool
	)
	dec := xml.NewDecoder(rc)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "row":
				cells = cells[:0]
			case "c":
				cellType = ""
				for _, attr := range t.Attr {
					if attr.Name.Local == "t" {
						cellType = attr.Value
					}
				}
			case "v", "t":
				inValue = true
				value.Reset()
			}
		case xml.CharData:
			if inValue {
				value.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "v", "t":
				if inValue {
					cells = append(cells, resolveCell(cellType, value.String(), shared))
					inValue = false
				}
			case "row":
				if row := strings.TrimSpace(strings.Join(cells, " | ")); row != "" {
					rows = append(rows, row)
				}
			}
		}
	}
	return strings.Join(rows, "\n"), nil
}

// resolveCell maps a raw cell value to its text, dereferencing shared strings.
func resolveCell(cellType, raw string, shared []string) string {
	if cellType == "s" {
		idx, err := strconv.Atoi(strings.TrimSpace(raw))
		if err == nil && idx >= 0 && idx < len(shared) {
			return shared[idx]
		}
	}
	return raw
}

// csvTableStrategy parses comma-separated data, producing a single record with
// pipe-joined rows. It refuses input that does not look tabular so that plain
// prose falls through to the text strategy.
type csvTableStrategy struct{}

func (s *csvTableStrategy) Name() string { return "csv-table" }

func (s *csvTableStrategy) Parse(blob Blob) ([]Record, error) {
	if isZip(blob.Data) || isPDF(blob.Data) {
		return nil, fmt.Errorf("binary container, not csv")
	}
	if !isProbablyText(blob.Data) {
		return nil, fmt.Errorf("not text")
	}

	reader := csv.NewReader(bytes.NewReader(blob.Data))
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv parse: %w", err)
	}

	multiColumn := 0
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) >= 2 {
			multiColumn++
		}
		lines = append(lines, strings.Join(row, " | "))
	}

	// Prose parses as one giant single-column "csv"; require real columns
	// unless the name says otherwise.
	if multiColumn*2 < len(rows) && !strings.HasSuffix(strings.ToLower(blob.Name), ".csv") {
		return nil, fmt.Errorf("no delimited columns found")
	}

	return []Record{newRecord(blob, 1, strings.Join(lines, "\n"), s.Name())}, nil
}
