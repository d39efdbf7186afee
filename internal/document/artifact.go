package document

import (
	"fmt"
	"path/filepath"

	"specbook/internal/util"
)

// WriteChunkArtifact materializes a chunk as a standalone JSONL file, one
// page per line in document order. Returns the artifact path.
func WriteChunkArtifact(dir string, c Chunk) (string, error) {
	rows := make([]any, 0, len(c.Pages))
	for _, p := range c.Pages {
		rows = append(rows, p)
	}
	path := filepath.Join(dir, c.Name+".jsonl")
	if err := util.WriteJSONLinesAtomic(path, rows); err != nil {
		return "", fmt.Errorf("write chunk artifact %s: %w", c.Name, err)
	}
	return path, nil
}

// ReadChunkArtifact loads the pages of a previously materialized chunk.
func ReadChunkArtifact(path string) ([]Page, error) {
	pages, err := util.ReadJSONLines[Page](path)
	if err != nil {
		return nil, fmt.Errorf("read chunk artifact %s: %w", path, err)
	}
	return pages, nil
}
