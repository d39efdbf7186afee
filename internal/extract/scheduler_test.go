package extract

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"specbook/internal/document"
	"specbook/internal/models"
)

func makeChunks(n int) []document.Chunk {
	out := make([]document.Chunk, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, document.Chunk{Name: fmt.Sprintf("spec_chunk_%d", i), Index: i})
	}
	return out
}

func TestRunAllSucceed(t *testing.T) {
	chunks := makeChunks(4)
	fn := func(_ context.Context, c document.Chunk) ([]models.Rule, error) {
		return []models.Rule{{RuleID: c.Name, Description: "d", SourceChunk: c.Name}}, nil
	}
	results, failures := Run(context.Background(), chunks, fn, Options{MaxRetries: 3, MaxConcurrency: 2})
	if len(results) != len(chunks) {
		t.Fatalf("expected %d results, got %d", len(chunks), len(results))
	}
	if len(failures) != 0 {
		t.Fatalf("expected no failures, got %d", len(failures))
	}
	for i, c := range chunks {
		if len(results[i]) != 1 || results[i][0].RuleID != c.Name {
			t.Fatalf("result %d not aligned with chunk %s: %+v", i, c.Name, results[i])
		}
	}
}

func TestRunRetriesOnlyFailedChunks(t *testing.T) {
	chunks := makeChunks(3)
	var (
		mu       sync.Mutex
		attempts = map[string]int{}
	)
	fn := func(_ context.Context, c document.Chunk) ([]models.Rule, error) {
		mu.Lock()
		attempts[c.Name]++
		n := attempts[c.Name]
		mu.Unlock()
		if c.Name == "spec_chunk_2" && n < 3 {
			return nil, errors.New("transient provider failure")
		}
		return []models.Rule{{RuleID: c.Name, Description: "d", SourceChunk: c.Name}}, nil
	}
	results, failures := Run(context.Background(), chunks, fn, Options{MaxRetries: 3, MaxConcurrency: 2})

	if attempts["spec_chunk_1"] != 1 || attempts["spec_chunk_3"] != 1 {
		t.Fatalf("healthy chunks must run once, got %v", attempts)
	}
	if attempts["spec_chunk_2"] != 3 {
		t.Fatalf("expected 3 attempts for chunk 2, got %d", attempts["spec_chunk_2"])
	}
	if len(results[1]) != 1 || results[1][0].RuleID != "spec_chunk_2" {
		t.Fatalf("late success must land at original index: %+v", results[1])
	}
	if len(failures) != 2 {
		t.Fatalf("expected 2 recorded failures, got %d", len(failures))
	}
	if failures[0].Round != 1 || failures[1].Round != 2 {
		t.Fatalf("unexpected failure rounds: %+v", failures)
	}
}

func TestRunExhaustedChunksYieldEmptyLists(t *testing.T) {
	chunks := makeChunks(2)
	fn := func(_ context.Context, _ document.Chunk) ([]models.Rule, error) {
		return nil, errors.New("always fails")
	}
	results, failures := Run(context.Background(), chunks, fn, Options{MaxRetries: 3, MaxConcurrency: 2})
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	for i, r := range results {
		if r == nil || len(r) != 0 {
			t.Fatalf("result %d must be an empty, non-nil list: %v", i, r)
		}
	}
	if len(failures) != 6 {
		t.Fatalf("expected 2 chunks x 3 rounds = 6 failures, got %d", len(failures))
	}
}

func TestRunRespectsConcurrencyCap(t *testing.T) {
	chunks := makeChunks(8)
	var inFlight, peak int64
	fn := func(_ context.Context, _ document.Chunk) ([]models.Rule, error) {
		cur := atomic.AddInt64(&inFlight, 1)
		for {
			old := atomic.LoadInt64(&peak)
			if cur <= old || atomic.CompareAndSwapInt64(&peak, old, cur) {
				break
			}
		}
		defer atomic.AddInt64(&inFlight, -1)
		return []models.Rule{}, nil
	}
	Run(context.Background(), chunks, fn, Options{MaxRetries: 1, MaxConcurrency: 2})
	if atomic.LoadInt64(&peak) > 2 {
		t.Fatalf("concurrency cap exceeded: peak %d", peak)
	}
}

func TestRunCanceledContextStopsRetrying(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	chunks := makeChunks(1)
	calls := int64(0)
	fn := func(_ context.Context, _ document.Chunk) ([]models.Rule, error) {
		atomic.AddInt64(&calls, 1)
		cancel()
		return nil, errors.New("fail then cancel")
	}
	results, _ := Run(ctx, chunks, fn, Options{MaxRetries: 5, MaxConcurrency: 1})
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("expected 1 attempt before cancellation, got %d", got)
	}
	if len(results) != 1 || results[0] == nil {
		t.Fatalf("results must stay index-aligned after cancellation: %v", results)
	}
}

func TestRunZeroChunks(t *testing.T) {
	results, failures := Run(context.Background(), nil, func(context.Context, document.Chunk) ([]models.Rule, error) {
		t.Fatal("fn must not be called")
		return nil, nil
	}, Options{})
	if len(results) != 0 || len(failures) != 0 {
		t.Fatalf("expected empty outputs, got %v %v", results, failures)
	}
}
