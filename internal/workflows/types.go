package workflows

type SpecbookProcessInput struct {
	SpecbookPath   string   `json:"specbook_path"`
	RunID          string   `json:"run_id,omitempty"`
	Trades         []string `json:"trades,omitempty"`
	ChunkSize      int      `json:"chunk_size,omitempty"`
	ChunkOverlap   int      `json:"chunk_overlap,omitempty"`
	MaxRetries     int      `json:"max_retries,omitempty"`
	MaxConcurrency int      `json:"max_concurrency,omitempty"`
	BackoffSeconds int      `json:"backoff_seconds,omitempty"`
	PromptTemplate string   `json:"prompt_template,omitempty"`
	LLMProviderRef string   `json:"llm_provider_ref,omitempty"`
}

type SpecbookStatus struct {
	SpecbookID   string            `json:"specbook_id"`
	SpecbookPath string            `json:"specbook_path"`
	CurrentStep  string            `json:"current_step"`
	Status       string            `json:"status"`
	FailReason   string            `json:"fail_reason,omitempty"`
	ChunkCount   int               `json:"chunk_count"`
	RuleCount    int               `json:"rule_count"`
	TradeCount   int               `json:"trade_count"`
	FailedChunks []string          `json:"failed_chunks,omitempty"`
	RulesPath    string            `json:"rules_path,omitempty"`
	Provider     string            `json:"provider,omitempty"`
	Steps        map[string]string `json:"steps"`
}

type BatchIngestInput struct {
	RunID                 string   `json:"run_id,omitempty"`
	InputDir              string   `json:"input_dir"`
	MaxConcurrentChildren int      `json:"max_concurrent_children,omitempty"`
	Trades                []string `json:"trades,omitempty"`
	ChunkSize             int      `json:"chunk_size,omitempty"`
	ChunkOverlap          int      `json:"chunk_overlap,omitempty"`
	MaxRetries            int      `json:"max_retries,omitempty"`
	MaxConcurrency        int      `json:"max_concurrency,omitempty"`
	BackoffSeconds        int      `json:"backoff_seconds,omitempty"`
	PromptTemplate        string   `json:"prompt_template,omitempty"`
	LLMProviderRef        string   `json:"llm_provider_ref,omitempty"`
}

type BatchIngestProgress struct {
	RunID         string            `json:"run_id"`
	Total         int               `json:"total"`
	Done          int               `json:"done"`
	Failed        int               `json:"failed"`
	PerSpecbook   map[string]string `json:"per_specbook_status"`
	ChildWorkflow map[string]string `json:"child_workflow_ids,omitempty"`
}
