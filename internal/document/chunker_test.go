package document

import (
	"errors"
	"fmt"
	"testing"

	"specbook/internal/util"
)

func makePages(n int) []Page {
	pages := make([]Page, 0, n)
	for i := 1; i <= n; i++ {
		pages = append(pages, Page{Number: i, Text: fmt.Sprintf("page %d text", i)})
	}
	return pages
}

func TestSplitPagesOverlappingWindows(t *testing.T) {
	chunks, err := SplitPages("spec", makePages(12), 5, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	wantWindows := [][2]int{{0, 5}, {4, 9}, {8, 12}}
	for i, c := range chunks {
		if c.Start != wantWindows[i][0] || c.End != wantWindows[i][1] {
			t.Fatalf("chunk %d: got window [%d,%d) want [%d,%d)", i, c.Start, c.End, wantWindows[i][0], wantWindows[i][1])
		}
		wantName := fmt.Sprintf("spec_chunk_%d", i+1)
		if c.Name != wantName {
			t.Fatalf("chunk %d: got name %s want %s", i, c.Name, wantName)
		}
		if len(c.Pages) != c.End-c.Start {
			t.Fatalf("chunk %d: got %d pages want %d", i, len(c.Pages), c.End-c.Start)
		}
	}
	// Overlapping page 5 appears at the end of chunk 1 and the start of chunk 2.
	if chunks[0].Pages[4].Number != 5 || chunks[1].Pages[0].Number != 5 {
		t.Fatalf("overlap page mismatch: %d vs %d", chunks[0].Pages[4].Number, chunks[1].Pages[0].Number)
	}
}

func TestSplitPagesNoOverlap(t *testing.T) {
	chunks, err := SplitPages("spec", makePages(6), 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
	if chunks[2].Start != 4 || chunks[2].End != 6 {
		t.Fatalf("unexpected last window [%d,%d)", chunks[2].Start, chunks[2].End)
	}
}

func TestSplitPagesEmptyDocument(t *testing.T) {
	chunks, err := SplitPages("spec", nil, 5, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected 0 chunks, got %d", len(chunks))
	}
}

func TestSplitPagesInvalidParams(t *testing.T) {
	cases := []struct {
		name      string
		chunkSize int
		overlap   int
	}{
		{"zero chunk size", 0, 0},
		{"negative overlap", 5, -1},
		{"overlap equals chunk size", 3, 3},
		{"overlap exceeds chunk size", 3, 4},
	}
	for _, tc := range cases {
		_, err := SplitPages("spec", makePages(4), tc.chunkSize, tc.overlap)
		if !errors.Is(err, util.ErrInvalidChunkParams) {
			t.Fatalf("%s: expected ErrInvalidChunkParams, got %v", tc.name, err)
		}
	}
}

func TestPageTexts(t *testing.T) {
	c := Chunk{Pages: []Page{{Number: 3, Text: "concrete"}, {Number: 4, Text: "rebar"}}}
	texts := c.PageTexts()
	if len(texts) != 2 {
		t.Fatalf("expected 2 texts, got %d", len(texts))
	}
	if texts[0] != "Page 3:\nconcrete" {
		t.Fatalf("unexpected rendered page: %q", texts[0])
	}
}
