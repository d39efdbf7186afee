package activities

import "go.temporal.io/sdk/worker"

func Register(w worker.Worker, a *Activities) {
	w.RegisterActivity(a.ListSpecbooksActivity)
	w.RegisterActivity(a.ComputeSpecbookIDActivity)
	w.RegisterActivity(a.ExtractPagesActivity)
	w.RegisterActivity(a.ChunkDocumentActivity)
	w.RegisterActivity(a.ExtractRulesActivity)
	w.RegisterActivity(a.WriteRulesArtifactActivity)
	w.RegisterActivity(a.WriteDiagnosticsActivity)
	w.RegisterActivity(a.WriteRunManifestActivity)
	w.RegisterActivity(a.WriteBatchSummaryActivity)
}
