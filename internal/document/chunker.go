package document

import (
	"fmt"

	"specbook/internal/util"
)

// Chunk is a contiguous window of document pages, processed as one
// independent unit of extraction work. Start/End are 0-based half-open
// offsets into the page sequence; Index is the 1-based chunk number used in
// the chunk name.
type Chunk struct {
	Name  string `json:"name"`
	Index int    `json:"index"`
	Start int    `json:"start"`
	End   int    `json:"end"`
	Pages []Page `json:"pages"`
}

// SplitPages slides a window of chunkSize pages with stride
// chunkSize-overlap across the document. The last chunk may be shorter. A
// document with zero pages yields zero chunks. Chunk names follow
// "{base}_chunk_{n}" with n assigned in ascending start order.
func SplitPages(base string, pages []Page, chunkSize, overlap int) ([]Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk_size must be positive", util.ErrInvalidChunkParams)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("%w: overlap must be non-negative", util.ErrInvalidChunkParams)
	}
	if overlap >= chunkSize {
		return nil, fmt.Errorf("%w: overlap must be smaller than chunk_size", util.ErrInvalidChunkParams)
	}

	stride := chunkSize - overlap
	out := make([]Chunk, 0, (len(pages)+stride-1)/stride)
	for start := 0; start < len(pages); start += stride {
		end := start + chunkSize
		if end > len(pages) {
			end = len(pages)
		}
		n := start/stride + 1
		window := make([]Page, end-start)
		copy(window, pages[start:end])
		out = append(out, Chunk{
			Name:  fmt.Sprintf("%s_chunk_%d", base, n),
			Index: n,
			Start: start,
			End:   end,
			Pages: window,
		})
	}
	return out, nil
}

// PageTexts renders the chunk's pages as prompt-ready strings, one per
// page, preserving page order.
func (c Chunk) PageTexts() []string {
	out := make([]string, 0, len(c.Pages))
	for _, p := range c.Pages {
		out = append(out, fmt.Sprintf("Page %d:\n%s", p.Number, p.Text))
	}
	return out
}
