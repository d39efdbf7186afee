package activities

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"specbook/internal/config"
	"specbook/internal/document"
	"specbook/internal/extract"
	"specbook/internal/models"
	"specbook/internal/providers"
	"specbook/internal/rules"
	"specbook/internal/util"

	"go.temporal.io/sdk/activity"
)

type Activities struct {
	cfg       config.Config
	providers *providers.Manager
}

func New(cfg config.Config) (*Activities, error) {
	pm, err := providers.NewManager(cfg)
	if err != nil {
		return nil, err
	}
	return &Activities{cfg: cfg, providers: pm}, nil
}

func (a *Activities) ListSpecbooksActivity(ctx context.Context, in ListSpecbooksInput) (ListSpecbooksOutput, error) {
	_ = ctx
	entries, err := os.ReadDir(in.InputDir)
	if err != nil {
		return ListSpecbooksOutput{}, fmt.Errorf("read input dir: %w", err)
	}
	paths := make([]string, 0)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasSuffix(strings.ToLower(name), ".pdf") {
			paths = append(paths, filepath.Join(in.InputDir, name))
		}
	}
	sort.Strings(paths)
	return ListSpecbooksOutput{Paths: paths}, nil
}

func (a *Activities) ComputeSpecbookIDActivity(ctx context.Context, in ComputeSpecbookIDInput) (ComputeSpecbookIDOutput, error) {
	_ = ctx
	f, err := os.Open(in.SpecbookPath)
	if err != nil {
		return ComputeSpecbookIDOutput{}, fmt.Errorf("%w: %s", util.ErrDocumentNotFound, in.SpecbookPath)
	}
	defer f.Close()
	id, err := util.SHA256HexFromReader(f)
	if err != nil {
		return ComputeSpecbookIDOutput{}, fmt.Errorf("hash specbook: %w", err)
	}
	return ComputeSpecbookIDOutput{SpecbookID: id}, nil
}

func (a *Activities) ExtractPagesActivity(ctx context.Context, in ExtractPagesInput) (ExtractPagesOutput, error) {
	_ = ctx
	doc, err := document.Load(in.SpecbookPath)
	if err != nil {
		return ExtractPagesOutput{}, err
	}
	return ExtractPagesOutput{Base: doc.Base, Pages: doc.Pages}, nil
}

func (a *Activities) ChunkDocumentActivity(ctx context.Context, in ChunkDocumentInput) (ChunkDocumentOutput, error) {
	_ = ctx
	chunks, err := document.SplitPages(in.Base, in.Pages, in.ChunkSize, in.Overlap)
	if err != nil {
		return ChunkDocumentOutput{}, err
	}
	dir := filepath.Join(a.cfg.DataOutRoot, in.SpecbookID, "chunks")
	refs := make([]ChunkRef, 0, len(chunks))
	for _, c := range chunks {
		path, err := document.WriteChunkArtifact(dir, c)
		if err != nil {
			return ChunkDocumentOutput{}, err
		}
		refs = append(refs, ChunkRef{
			Name:         c.Name,
			Index:        c.Index,
			Start:        c.Start,
			End:          c.End,
			ArtifactPath: path,
		})
	}
	return ChunkDocumentOutput{Chunks: refs}, nil
}

// ExtractRulesActivity runs the batch extraction loop for every chunk of
// one specbook: bounded-concurrency dispatch to the LLM provider, per-chunk
// parse and validation, retry rounds for the chunks that failed. Retry is
// handled here, inside the round loop; the workflow must not add its own
// activity retries on top.
func (a *Activities) ExtractRulesActivity(ctx context.Context, in ExtractRulesInput) (ExtractRulesOutput, error) {
	logger := activity.GetLogger(ctx)

	if in.ProviderRef != "" {
		if idx := a.providers.FindLLMProviderIndex(in.ProviderRef); idx >= 0 {
			in.ProviderIndex = idx
		} else {
			return ExtractRulesOutput{}, fmt.Errorf("llm provider ref not configured in worker: %s", in.ProviderRef)
		}
	}
	provider, ref := a.providers.LLMProviderByIndex(in.ProviderIndex)

	trades := in.Trades
	if len(trades) == 0 {
		trades = a.cfg.Trades
	}
	template := in.PromptTemplate
	if template == "" {
		template = a.cfg.PromptTemplate
	}
	prompt := rules.BuildRulesPrompt(template, trades)

	chunks := make([]document.Chunk, 0, len(in.Chunks))
	for _, r := range in.Chunks {
		pages, err := document.ReadChunkArtifact(r.ArtifactPath)
		if err != nil {
			return ExtractRulesOutput{}, err
		}
		chunks = append(chunks, document.Chunk{
			Name:  r.Name,
			Index: r.Index,
			Start: r.Start,
			End:   r.End,
			Pages: pages,
		})
	}

	var (
		infoOnce sync.Once
		info     providers.ProviderInfo
	)
	fn := func(ctx context.Context, c document.Chunk) ([]models.Rule, error) {
		resp, callInfo, err := provider.Generate(ctx, providers.GenerateRequest{
			Operation: "rules_extract",
			Prompt:    prompt,
			Pages:     c.PageTexts(),
		})
		infoOnce.Do(func() { info = callInfo })
		if err != nil {
			return nil, fmt.Errorf("extraction call via %s failed (%s): %w", ref.Raw, providers.ClassifyError(err), err)
		}
		payload, err := rules.DecodeRulesJSON(resp.Text)
		if err != nil {
			return nil, err
		}
		return rules.RulesFromPayload(payload, c.Name)
	}

	opts := extract.Options{
		MaxRetries:     orDefault(in.MaxRetries, a.cfg.MaxRetries),
		MaxConcurrency: orDefault(in.MaxConcurrency, a.cfg.MaxConcurrency),
		Backoff:        time.Duration(orDefault(in.BackoffSeconds, a.cfg.BackoffSeconds)) * time.Second,
	}
	perChunk, failures := extract.Run(ctx, chunks, fn, opts)

	// A chunk that still fails in the final round contributed nothing.
	lastRound := map[string]int{}
	for _, f := range failures {
		if f.Round > lastRound[f.Chunk] {
			lastRound[f.Chunk] = f.Round
		}
	}
	exhausted := make([]string, 0)
	for chunk, round := range lastRound {
		if round == opts.MaxRetries {
			exhausted = append(exhausted, chunk)
		}
	}
	sort.Strings(exhausted)
	if len(exhausted) > 0 {
		logger.Warn("proceeding with empty rules for failed chunks", "chunks", strings.Join(exhausted, ", "))
	}

	return ExtractRulesOutput{
		RulesPerChunk:   perChunk,
		Failures:        failures,
		ExhaustedChunks: exhausted,
		ProviderName:    info.Name,
		Model:           info.Model,
	}, nil
}

func (a *Activities) WriteRulesArtifactActivity(ctx context.Context, in WriteRulesArtifactInput) (WriteRulesArtifactOutput, error) {
	_ = ctx
	grouped := rules.GroupByTrade(in.RulesPerChunk)
	path := filepath.Join(a.cfg.DataOutRoot, in.SpecbookID, in.Base+"_rules.json")
	if err := util.WriteJSONAtomic(path, grouped); err != nil {
		return WriteRulesArtifactOutput{}, err
	}
	return WriteRulesArtifactOutput{
		Path:       path,
		TradeCount: len(grouped.Trades()),
		RuleCount:  grouped.RuleCount(),
	}, nil
}

func (a *Activities) WriteDiagnosticsActivity(ctx context.Context, in WriteDiagnosticsInput) (WriteDiagnosticsOutput, error) {
	_ = ctx
	rows := make([]any, 0, len(in.Failures))
	for _, f := range in.Failures {
		rows = append(rows, f)
	}
	path := filepath.Join(a.cfg.DataOutRoot, in.SpecbookID, "runs", in.RunID, "failures.jsonl")
	if err := util.WriteJSONLinesAtomic(path, rows); err != nil {
		return WriteDiagnosticsOutput{}, err
	}
	return WriteDiagnosticsOutput{Path: path}, nil
}

func (a *Activities) WriteRunManifestActivity(ctx context.Context, in WriteRunManifestInput) (WriteRunManifestOutput, error) {
	_ = ctx
	path := filepath.Join(a.cfg.DataOutRoot, in.SpecbookID, "runs", in.RunID, "manifest.json")
	if err := util.WriteJSONAtomic(path, in.Manifest); err != nil {
		return WriteRunManifestOutput{}, err
	}
	return WriteRunManifestOutput{Path: path}, nil
}

func (a *Activities) WriteBatchSummaryActivity(ctx context.Context, in WriteBatchSummaryInput) error {
	_ = ctx
	path := filepath.Join(a.cfg.DataOutRoot, "batches", in.RunID, "batch_summary.json")
	return util.WriteJSONAtomic(path, in.Summary)
}

func orDefault(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}
