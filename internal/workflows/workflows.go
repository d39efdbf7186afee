package workflows

import (
	"strings"
	"time"

	"specbook/internal/activities"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

const (
	QueryGetSpecbookStatus = "GetSpecbookStatus"
	QueryGetBatchProgress  = "GetBatchProgress"
)

// SpecbookProcessWorkflow runs one specbook end to end: identity, page
// extraction, chunking, batch rule extraction, aggregation, artifacts.
// Chunk-level retry lives inside ExtractRulesActivity, so that activity
// runs with a single attempt; everything else keeps the standard policy.
func SpecbookProcessWorkflow(ctx workflow.Context, input SpecbookProcessInput) (string, error) {
	status := SpecbookStatus{
		SpecbookPath: input.SpecbookPath,
		CurrentStep:  "init",
		Status:       "processing",
		Steps:        map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetSpecbookStatus, func() (SpecbookStatus, error) {
		return status, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	runID := strings.TrimSpace(input.RunID)
	if runID == "" {
		runID = workflow.GetInfo(ctx).WorkflowExecution.RunID
	}

	status.CurrentStep = "compute_specbook_id"
	status.Steps[status.CurrentStep] = "processing"
	var idOut activities.ComputeSpecbookIDOutput
	if err := workflow.ExecuteActivity(ctx, "ComputeSpecbookIDActivity", activities.ComputeSpecbookIDInput{SpecbookPath: input.SpecbookPath}).Get(ctx, &idOut); err != nil {
		if isDocumentNotFoundError(err) {
			status.Status = "failed"
			status.FailReason = "specbook document not found or unreadable"
			status.Steps[status.CurrentStep] = "failed"
			return status.Status, nil
		}
		return "", err
	}
	status.SpecbookID = idOut.SpecbookID
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "extract_pages"
	status.Steps[status.CurrentStep] = "processing"
	var pagesOut activities.ExtractPagesOutput
	if err := workflow.ExecuteActivity(ctx, "ExtractPagesActivity", activities.ExtractPagesInput{SpecbookPath: input.SpecbookPath}).Get(ctx, &pagesOut); err != nil {
		if isDocumentNotFoundError(err) {
			status.Status = "failed"
			status.FailReason = "specbook document not found or unreadable"
			status.Steps[status.CurrentStep] = "failed"
			return status.Status, nil
		}
		return "", err
	}
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "chunk_document"
	status.Steps[status.CurrentStep] = "processing"
	var chunkOut activities.ChunkDocumentOutput
	if err := workflow.ExecuteActivity(ctx, "ChunkDocumentActivity", activities.ChunkDocumentInput{
		SpecbookID: idOut.SpecbookID,
		Base:       pagesOut.Base,
		Pages:      pagesOut.Pages,
		ChunkSize:  input.ChunkSize,
		Overlap:    input.ChunkOverlap,
	}).Get(ctx, &chunkOut); err != nil {
		return "", err
	}
	status.ChunkCount = len(chunkOut.Chunks)
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "extract_rules"
	status.Steps[status.CurrentStep] = "processing"
	var extractOut activities.ExtractRulesOutput
	if len(chunkOut.Chunks) > 0 {
		extractCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
			StartToCloseTimeout: 30 * time.Minute,
			RetryPolicy:         &temporal.RetryPolicy{MaximumAttempts: 1},
		})
		if err := workflow.ExecuteActivity(extractCtx, "ExtractRulesActivity", activities.ExtractRulesInput{
			SpecbookID:     idOut.SpecbookID,
			Chunks:         chunkOut.Chunks,
			Trades:         input.Trades,
			PromptTemplate: input.PromptTemplate,
			MaxRetries:     input.MaxRetries,
			MaxConcurrency: input.MaxConcurrency,
			BackoffSeconds: input.BackoffSeconds,
			ProviderRef:    input.LLMProviderRef,
		}).Get(ctx, &extractOut); err != nil {
			return "", err
		}
	}
	status.Provider = extractOut.ProviderName
	status.FailedChunks = extractOut.ExhaustedChunks
	status.Steps[status.CurrentStep] = "done"

	status.CurrentStep = "write_rules"
	status.Steps[status.CurrentStep] = "processing"
	var rulesOut activities.WriteRulesArtifactOutput
	if err := workflow.ExecuteActivity(ctx, "WriteRulesArtifactActivity", activities.WriteRulesArtifactInput{
		SpecbookID:    idOut.SpecbookID,
		Base:          pagesOut.Base,
		RulesPerChunk: extractOut.RulesPerChunk,
	}).Get(ctx, &rulesOut); err != nil {
		return "", err
	}
	status.RulesPath = rulesOut.Path
	status.RuleCount = rulesOut.RuleCount
	status.TradeCount = rulesOut.TradeCount
	status.Steps[status.CurrentStep] = "done"

	if len(extractOut.Failures) > 0 {
		_ = workflow.ExecuteActivity(ctx, "WriteDiagnosticsActivity", activities.WriteDiagnosticsInput{
			SpecbookID: idOut.SpecbookID,
			RunID:      runID,
			Failures:   extractOut.Failures,
		}).Get(ctx, nil)
	}

	_ = workflow.ExecuteActivity(ctx, "WriteRunManifestActivity", activities.WriteRunManifestInput{
		SpecbookID: idOut.SpecbookID,
		RunID:      runID,
		Manifest: map[string]any{
			"run_id":        runID,
			"specbook_id":   idOut.SpecbookID,
			"specbook_path": input.SpecbookPath,
			"chunk_count":   len(chunkOut.Chunks),
			"rule_count":    rulesOut.RuleCount,
			"trade_count":   rulesOut.TradeCount,
			"failed_chunks": status.FailedChunks,
			"provider":      extractOut.ProviderName,
			"model":         extractOut.Model,
			"rules_path":    rulesOut.Path,
			"generated_at":  workflow.Now(ctx),
		},
	}).Get(ctx, nil)

	status.CurrentStep = "done"
	status.Status = "processed"
	return status.Status, nil
}

// BatchIngestWorkflow processes every specbook PDF in a directory, running
// child workflows in bounded batches.
func BatchIngestWorkflow(ctx workflow.Context, input BatchIngestInput) (string, error) {
	progress := BatchIngestProgress{
		RunID:         input.RunID,
		PerSpecbook:   map[string]string{},
		ChildWorkflow: map[string]string{},
	}
	if err := workflow.SetQueryHandler(ctx, QueryGetBatchProgress, func() (BatchIngestProgress, error) {
		return progress, nil
	}); err != nil {
		return "", err
	}

	ao := workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    20 * time.Second,
			MaximumAttempts:    3,
		},
	}
	ctx = workflow.WithActivityOptions(ctx, ao)

	runID := strings.TrimSpace(input.RunID)
	if runID == "" {
		runID = workflow.GetInfo(ctx).WorkflowExecution.RunID
		progress.RunID = runID
	}

	var listOut activities.ListSpecbooksOutput
	if err := workflow.ExecuteActivity(ctx, "ListSpecbooksActivity", activities.ListSpecbooksInput{InputDir: input.InputDir}).Get(ctx, &listOut); err != nil {
		return "", err
	}
	paths := listOut.Paths
	progress.Total = len(paths)
	maxChildren := input.MaxConcurrentChildren
	if maxChildren <= 0 {
		maxChildren = 3
	}

	for i := 0; i < len(paths); i += maxChildren {
		end := i + maxChildren
		if end > len(paths) {
			end = len(paths)
		}
		futures := make([]workflow.ChildWorkflowFuture, 0, end-i)
		childPaths := make([]string, 0, end-i)
		for _, path := range paths[i:end] {
			progress.PerSpecbook[path] = "processing"
			workflowID := "specbook-" + sanitizeID(runID) + "-" + sanitizeID(filepathBase(path))
			childCtx := workflow.WithChildOptions(ctx, workflow.ChildWorkflowOptions{WorkflowID: workflowID})
			f := workflow.ExecuteChildWorkflow(childCtx, SpecbookProcessWorkflow, SpecbookProcessInput{
				SpecbookPath:   path,
				RunID:          runID,
				Trades:         input.Trades,
				ChunkSize:      input.ChunkSize,
				ChunkOverlap:   input.ChunkOverlap,
				MaxRetries:     input.MaxRetries,
				MaxConcurrency: input.MaxConcurrency,
				BackoffSeconds: input.BackoffSeconds,
				PromptTemplate: input.PromptTemplate,
				LLMProviderRef: input.LLMProviderRef,
			})
			futures = append(futures, f)
			childPaths = append(childPaths, path)
			progress.ChildWorkflow[path] = workflowID
		}

		for idx, f := range futures {
			var childStatus string
			err := f.Get(ctx, &childStatus)
			path := childPaths[idx]
			if err != nil {
				progress.Failed++
				progress.PerSpecbook[path] = "failed"
				continue
			}
			if childStatus == "failed" {
				progress.Failed++
			}
			progress.Done++
			progress.PerSpecbook[path] = childStatus
		}
	}

	_ = workflow.ExecuteActivity(ctx, "WriteBatchSummaryActivity", activities.WriteBatchSummaryInput{
		RunID: runID,
		Summary: map[string]any{
			"run_id":              runID,
			"input_dir":           input.InputDir,
			"total":               progress.Total,
			"done":                progress.Done,
			"failed":              progress.Failed,
			"per_specbook_status": progress.PerSpecbook,
			"generated_at":        workflow.Now(ctx),
		},
	}).Get(ctx, nil)

	return "completed", nil
}

func isDocumentNotFoundError(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "not found")
}

func filepathBase(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) == 0 {
		return path
	}
	return parts[len(parts)-1]
}

func sanitizeID(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "-")
	s = strings.ReplaceAll(s, ".", "-")
	s = strings.ReplaceAll(s, "/", "-")
	return s
}
