package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"careassist/internal/loader"
)

func record(source string, page int, text string) loader.Record {
	return loader.Record{Source: source, PageOrSheet: page, Text: text}
}

func TestSplit_ShortRecordSingleChunk(t *testing.T) {
	result, err := Split([]loader.Record{record("doc.pdf", 1, "short text")}, 100, 20, Limits{})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(result.Chunks) != 1 {
		t.Fatalf("got %d chunks, want 1", len(result.Chunks))
	}
	c := result.Chunks[0]
	if c.Text != "short text" || c.Source != "doc.pdf" || c.PageOrSheet != 1 || c.Seq != 0 {
		t.Errorf("chunk = %+v", c)
	}
	if result.Truncated {
		t.Error("Truncated = true, want false")
	}
}

func TestSplit_BoundsAndOverlap(t *testing.T) {
	// One long line with no newlines, so every cut lands on the rune budget.
	text := strings.Repeat("abcdefghij", 50) // 500 runes
	size, overlap := 120, 30

	result, err := Split([]loader.Record{record("doc.pdf", 1, text)}, size, overlap, Limits{})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(result.Chunks) < 2 {
		t.Fatalf("got %d chunks, want several", len(result.Chunks))
	}

	for i, c := range result.Chunks {
		if n := utf8.RuneCountInString(c.Text); n > size {
			t.Errorf("chunk %d has %d runes, want <= %d", i, n, size)
		}
		if c.Seq != i {
			t.Errorf("chunk %d Seq = %d", i, c.Seq)
		}
	}

	// Adjacent chunks share exactly the prior chunk's trailing overlap runes.
	for i := 1; i < len(result.Chunks); i++ {
		prev := []rune(result.Chunks[i-1].Text)
		tail := string(prev[len(prev)-overlap:])
		head := string([]rune(result.Chunks[i].Text)[:overlap])
		if tail != head {
			t.Errorf("chunks %d/%d overlap mismatch: tail=%q head=%q", i-1, i, tail, head)
		}
	}
}

func TestSplit_PrefersLineBoundaries(t *testing.T) {
	// Lines of 40 runes (incl. newline); budget 100 should cut after a line.
	var b strings.Builder
	for i := 0; i < 10; i++ {
		b.WriteString(strings.Repeat("x", 39))
		b.WriteByte('\n')
	}

	result, err := Split([]loader.Record{record("doc.txt", 1, b.String())}, 100, 10, Limits{})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	for i, c := range result.Chunks[:len(result.Chunks)-1] {
		if !strings.HasSuffix(c.Text, "\n") {
			t.Errorf("chunk %d does not end on a line boundary: %q", i, c.Text)
		}
	}
}

func TestSplit_ChunkCountApproximation(t *testing.T) {
	// count ≈ ceil((L - overlap) / (size - overlap)) for boundary-free text
	text := strings.Repeat("a", 1000)
	size, overlap := 100, 20

	result, err := Split([]loader.Record{record("d", 1, text)}, size, overlap, Limits{})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	want := (1000 - overlap + (size - overlap) - 1) / (size - overlap)
	got := len(result.Chunks)
	if got < want-1 || got > want+1 {
		t.Errorf("got %d chunks, want about %d", got, want)
	}
}

func TestSplit_MaxChunksTruncatesDeterministically(t *testing.T) {
	records := []loader.Record{
		record("a", 1, strings.Repeat("a", 500)),
		record("b", 1, strings.Repeat("b", 500)),
	}

	full, err := Split(records, 100, 10, Limits{})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	capped, err := Split(records, 100, 10, Limits{MaxChunks: 3})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if !capped.Truncated {
		t.Error("Truncated = false, want true")
	}
	if len(capped.Chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(capped.Chunks))
	}
	// Truncation keeps the first chunks in generation order.
	for i := range capped.Chunks {
		if capped.Chunks[i] != full.Chunks[i] {
			t.Errorf("chunk %d = %+v, want %+v", i, capped.Chunks[i], full.Chunks[i])
		}
	}
}

func TestSplit_MaxRecordsPerDoc(t *testing.T) {
	records := []loader.Record{
		record("doc", 1, "page one"),
		record("doc", 2, "page two"),
		record("doc", 3, "page three"),
		record("other", 1, "different doc"),
	}

	result, err := Split(records, 100, 10, Limits{MaxRecordsPerDoc: 2})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if !result.Truncated {
		t.Error("Truncated = false, want true")
	}
	if len(result.Chunks) != 3 {
		t.Fatalf("got %d chunks, want 3", len(result.Chunks))
	}
	if result.Chunks[2].Source != "other" {
		t.Errorf("chunk 2 source = %q, want the other document kept", result.Chunks[2].Source)
	}
}

func TestSplit_InvalidParams(t *testing.T) {
	records := []loader.Record{record("d", 1, "text")}

	if _, err := Split(records, 0, 0, Limits{}); err == nil {
		t.Error("Split(size=0) expected error")
	}
	if _, err := Split(records, 100, 100, Limits{}); err == nil {
		t.Error("Split(overlap=size) expected error")
	}
	if _, err := Split(records, 100, -1, Limits{}); err == nil {
		t.Error("Split(overlap<0) expected error")
	}
}

func TestSplit_BlankRecordsProduceNothing(t *testing.T) {
	result, err := Split([]loader.Record{record("d", 1, "   \n\n  ")}, 100, 10, Limits{})
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	if len(result.Chunks) != 0 {
		t.Errorf("got %d chunks for blank record, want 0", len(result.Chunks))
	}
}
