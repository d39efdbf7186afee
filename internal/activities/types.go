package activities

import (
	"specbook/internal/document"
	"specbook/internal/extract"
	"specbook/internal/models"
)

type ListSpecbooksInput struct {
	InputDir string `json:"input_dir"`
}

type ListSpecbooksOutput struct {
	Paths []string `json:"paths"`
}

type ComputeSpecbookIDInput struct {
	SpecbookPath string `json:"specbook_path"`
}

type ComputeSpecbookIDOutput struct {
	SpecbookID string `json:"specbook_id"`
}

type ExtractPagesInput struct {
	SpecbookPath string `json:"specbook_path"`
}

type ExtractPagesOutput struct {
	Base  string          `json:"base"`
	Pages []document.Page `json:"pages"`
}

type ChunkDocumentInput struct {
	SpecbookID string          `json:"specbook_id"`
	Base       string          `json:"base"`
	Pages      []document.Page `json:"pages"`
	ChunkSize  int             `json:"chunk_size"`
	Overlap    int             `json:"overlap"`
}

// ChunkRef points at a materialized chunk artifact. Pages travel through
// the artifact file, not through workflow history.
type ChunkRef struct {
	Name         string `json:"name"`
	Index        int    `json:"index"`
	Start        int    `json:"start"`
	End          int    `json:"end"`
	ArtifactPath string `json:"artifact_path"`
}

type ChunkDocumentOutput struct {
	Chunks []ChunkRef `json:"chunks"`
}

type ExtractRulesInput struct {
	SpecbookID     string     `json:"specbook_id"`
	Chunks         []ChunkRef `json:"chunks"`
	Trades         []string   `json:"trades"`
	PromptTemplate string     `json:"prompt_template,omitempty"`
	MaxRetries     int        `json:"max_retries"`
	MaxConcurrency int        `json:"max_concurrency"`
	BackoffSeconds int        `json:"backoff_seconds"`
	ProviderRef    string     `json:"provider_ref,omitempty"`
	ProviderIndex  int        `json:"provider_index"`
}

type ExtractRulesOutput struct {
	RulesPerChunk   [][]models.Rule   `json:"rules_per_chunk"`
	Failures        []extract.Failure `json:"failures"`
	ExhaustedChunks []string          `json:"exhausted_chunks,omitempty"`
	ProviderName    string            `json:"provider_name"`
	Model           string            `json:"model"`
}

type WriteRulesArtifactInput struct {
	SpecbookID    string          `json:"specbook_id"`
	Base          string          `json:"base"`
	RulesPerChunk [][]models.Rule `json:"rules_per_chunk"`
}

type WriteRulesArtifactOutput struct {
	Path       string `json:"path"`
	TradeCount int    `json:"trade_count"`
	RuleCount  int    `json:"rule_count"`
}

type WriteDiagnosticsInput struct {
	SpecbookID string            `json:"specbook_id"`
	RunID      string            `json:"run_id"`
	Failures   []extract.Failure `json:"failures"`
}

type WriteDiagnosticsOutput struct {
	Path string `json:"path"`
}

type WriteRunManifestInput struct {
	SpecbookID string         `json:"specbook_id"`
	RunID      string         `json:"run_id"`
	Manifest   map[string]any `json:"manifest"`
}

type WriteRunManifestOutput struct {
	Path string `json:"path"`
}

type WriteBatchSummaryInput struct {
	RunID   string         `json:"run_id"`
	Summary map[string]any `json:"summary"`
}
