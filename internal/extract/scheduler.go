package extract

import (
	"context"
	"sort"
	"sync"
	"time"

	"specbook/internal/document"
	"specbook/internal/models"
	"specbook/internal/util"
)

// ExtractFunc performs one extraction attempt for one chunk: call the
// provider, decode the response, validate the rules. Any error makes the
// chunk eligible for the next round.
type ExtractFunc func(ctx context.Context, c document.Chunk) ([]models.Rule, error)

type Options struct {
	MaxRetries     int
	MaxConcurrency int
	Backoff        time.Duration
}

// Failure records one failed attempt for diagnostics. Chunks that succeed
// on a later round still keep their earlier failures.
type Failure struct {
	Chunk  string `json:"chunk"`
	Round  int    `json:"round"`
	Reason string `json:"reason"`
}

// Run dispatches fn for every chunk with at most MaxConcurrency calls in
// flight, then re-runs only the failed chunks for up to MaxRetries rounds,
// sleeping Backoff*round between rounds. Chunks still failing after the
// last round are finalized as empty rule lists, so the returned slice is
// always index-aligned with chunks and has the same length.
func Run(ctx context.Context, chunks []document.Chunk, fn ExtractFunc, opts Options) ([][]models.Rule, []Failure) {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = 1
	}
	if opts.MaxConcurrency <= 0 {
		opts.MaxConcurrency = 1
	}

	results := make([][]models.Rule, len(chunks))
	failures := make([]Failure, 0)
	pending := make([]int, len(chunks))
	for i := range chunks {
		pending[i] = i
	}

	sem := make(chan struct{}, opts.MaxConcurrency)
	for round := 1; round <= opts.MaxRetries && len(pending) > 0; round++ {
		var (
			wg   sync.WaitGroup
			mu   sync.Mutex
			next []int
		)
		for _, idx := range pending {
			idx := idx
			sem <- struct{}{}
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer func() { <-sem }()
				chunkRules, err := fn(ctx, chunks[idx])
				if err != nil {
					mu.Lock()
					failures = append(failures, Failure{
						Chunk:  chunks[idx].Name,
						Round:  round,
						Reason: util.DisplaySnippet(err.Error(), 300),
					})
					next = append(next, idx)
					mu.Unlock()
					return
				}
				results[idx] = chunkRules
			}()
		}
		wg.Wait()
		sort.Ints(next)
		pending = next

		if len(pending) == 0 || round == opts.MaxRetries {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(opts.Backoff * time.Duration(round)):
		}
	}

	for i := range results {
		if results[i] == nil {
			results[i] = []models.Rule{}
		}
	}
	return results, failures
}
