package api

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"specbook/internal/config"
	"specbook/internal/util"
	"specbook/internal/workflows"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	tclient "go.temporal.io/sdk/client"
)

type Server struct {
	cfg      config.Config
	temporal tclient.Client
}

func NewServer(cfg config.Config) *Server {
	tc, err := tclient.Dial(tclient.Options{HostPort: cfg.TemporalAddress})
	if err != nil {
		panic(err)
	}
	return &Server{cfg: cfg, temporal: tc}
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/specbooks", s.handleSpecbooks)
	mux.HandleFunc("/specbooks/", s.handleSpecbooksScoped)
	mux.HandleFunc("/batches", s.handleBatches)
	mux.HandleFunc("/batches/", s.handleBatchesScoped)
	return withCORS(mux)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *Server) handleSpecbooks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		entries, err := os.ReadDir(s.cfg.DataInRoot)
		if err != nil && !os.IsNotExist(err) {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		names := make([]string, 0)
		for _, e := range entries {
			if e.IsDir() {
				continue
			}
			if strings.HasSuffix(strings.ToLower(e.Name()), ".pdf") {
				names = append(names, e.Name())
			}
		}
		sort.Strings(names)
		writeJSON(w, http.StatusOK, map[string]any{"specbooks": names})
	case http.MethodPost:
		s.handleUpload(w, r)
	default:
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
	}
}

func (s *Server) handleSpecbooksScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/specbooks/"), "/"), "/")
	if len(parts) < 2 || parts[0] == "" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	name := parts[0]

	switch parts[1] {
	case "extract":
		if r.Method != http.MethodPost {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		s.handleExtract(w, r, name)
	case "status":
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		s.handleStatus(w, r, name)
	case "rules":
		if r.Method != http.MethodGet {
			writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
			return
		}
		s.handleRules(w, r, name)
	default:
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
	}
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request, name string) {
	var req struct {
		Trades         []string `json:"trades"`
		ChunkSize      int      `json:"chunk_size"`
		ChunkOverlap   int      `json:"chunk_overlap"`
		MaxRetries     int      `json:"max_retries"`
		MaxConcurrency int      `json:"max_concurrency"`
		BackoffSeconds int      `json:"backoff_seconds"`
		PromptTemplate string   `json:"prompt_template"`
		Provider       string   `json:"provider"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
	}

	path := util.SafeJoin(s.cfg.DataInRoot, name)
	if _, statErr := os.Stat(path); statErr != nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("specbook not found: %s", name))
		return
	}

	runID := uuid.NewString()
	wfID := "extract-" + workflowSafeID(name)
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:                                       wfID,
		TaskQueue:                                s.cfg.TemporalTaskQueue,
		WorkflowIDReusePolicy:                    enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE,
		WorkflowExecutionErrorWhenAlreadyStarted: true,
	}, workflows.SpecbookProcessWorkflow, workflows.SpecbookProcessInput{
		SpecbookPath:   path,
		RunID:          runID,
		Trades:         req.Trades,
		ChunkSize:      req.ChunkSize,
		ChunkOverlap:   req.ChunkOverlap,
		MaxRetries:     req.MaxRetries,
		MaxConcurrency: req.MaxConcurrency,
		BackoffSeconds: req.BackoffSeconds,
		PromptTemplate: req.PromptTemplate,
		LLMProviderRef: req.Provider,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"workflow_id": we.GetID(), "run_id": we.GetRunID()})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request, name string) {
	wfID := "extract-" + workflowSafeID(name)

	var status workflows.SpecbookStatus
	resp, err := s.temporal.QueryWorkflow(r.Context(), wfID, "", workflows.QueryGetSpecbookStatus)
	if err != nil {
		writeErr(w, http.StatusNotFound, fmt.Errorf("no extraction found for %s: %w", name, err))
		return
	}
	if err := resp.Get(&status); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	execStatus := ""
	if desc, dErr := s.temporal.DescribeWorkflowExecution(r.Context(), wfID, ""); dErr == nil {
		info := desc.GetWorkflowExecutionInfo()
		if info != nil {
			execStatus = executionStatusLabel(info.GetStatus())
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"workflow_id":      wfID,
		"execution_status": execStatus,
		"status":           status,
	})
}

func executionStatusLabel(st enumspb.WorkflowExecutionStatus) string {
	switch st {
	case enumspb.WORKFLOW_EXECUTION_STATUS_RUNNING:
		return "running"
	case enumspb.WORKFLOW_EXECUTION_STATUS_COMPLETED:
		return "completed"
	case enumspb.WORKFLOW_EXECUTION_STATUS_FAILED:
		return "failed"
	case enumspb.WORKFLOW_EXECUTION_STATUS_CANCELED:
		return "canceled"
	case enumspb.WORKFLOW_EXECUTION_STATUS_TERMINATED:
		return "terminated"
	case enumspb.WORKFLOW_EXECUTION_STATUS_TIMED_OUT:
		return "timed_out"
	default:
		return strings.ToLower(st.String())
	}
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request, name string) {
	base := strings.TrimSuffix(name, filepath.Ext(name))

	// The workflow query carries the exact artifact path while the worker is
	// reachable; the filesystem glob covers completed runs after a restart.
	wfID := "extract-" + workflowSafeID(name)
	if resp, err := s.temporal.QueryWorkflow(r.Context(), wfID, "", workflows.QueryGetSpecbookStatus); err == nil {
		var status workflows.SpecbookStatus
		if err := resp.Get(&status); err == nil && status.RulesPath != "" {
			if _, statErr := os.Stat(status.RulesPath); statErr == nil {
				serveRulesFile(w, r, status.RulesPath)
				return
			}
		}
	}

	matches, err := filepath.Glob(filepath.Join(s.cfg.DataOutRoot, "*", base+"_rules.json"))
	if err != nil || len(matches) == 0 {
		writeErr(w, http.StatusNotFound, fmt.Errorf("no rules artifact found for %s", name))
		return
	}
	sort.Strings(matches)
	serveRulesFile(w, r, matches[len(matches)-1])
}

func serveRulesFile(w http.ResponseWriter, r *http.Request, path string) {
	w.Header().Set("Content-Type", "application/json")
	http.ServeFile(w, r, path)
}

func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	var req struct {
		MaxConcurrentChildren int      `json:"max_concurrent_children"`
		Trades                []string `json:"trades"`
		Provider              string   `json:"provider"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeErr(w, http.StatusBadRequest, fmt.Errorf("invalid json: %w", err))
			return
		}
	}
	runID := uuid.NewString()
	we, err := s.temporal.ExecuteWorkflow(r.Context(), tclient.StartWorkflowOptions{
		ID:        "batch-" + runID,
		TaskQueue: s.cfg.TemporalTaskQueue,
	}, workflows.BatchIngestWorkflow, workflows.BatchIngestInput{
		RunID:                 runID,
		InputDir:              s.cfg.DataInRoot,
		MaxConcurrentChildren: req.MaxConcurrentChildren,
		Trades:                req.Trades,
		LLMProviderRef:        req.Provider,
	})
	if err != nil {
		writeErr(w, http.StatusConflict, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"batch_run_id": runID, "workflow_id": we.GetID(), "run_id": we.GetRunID()})
}

func (s *Server) handleBatchesScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/batches/"), "/"), "/")
	if len(parts) != 2 || parts[1] != "progress" {
		writeErr(w, http.StatusNotFound, fmt.Errorf("not found"))
		return
	}
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed"))
		return
	}
	runID := parts[0]
	var prog workflows.BatchIngestProgress
	resp, err := s.temporal.QueryWorkflow(r.Context(), "batch-"+runID, "", workflows.QueryGetBatchProgress)
	if err != nil {
		writeErr(w, http.StatusNotFound, err)
		return
	}
	if err := resp.Get(&prog); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, prog)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(128 << 20); err != nil {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("parse multipart: %w", err))
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		if single, ok := firstSingleFile(r.MultipartForm.File); ok {
			files = append(files, single)
		}
	}
	if len(files) == 0 {
		writeErr(w, http.StatusBadRequest, fmt.Errorf("no files provided"))
		return
	}

	if err := util.EnsureDir(s.cfg.DataInRoot); err != nil {
		writeErr(w, http.StatusInternalServerError, err)
		return
	}

	type uploadResult struct {
		Filename   string `json:"filename"`
		SpecbookID string `json:"specbook_id"`
	}
	out := make([]uploadResult, 0, len(files))

	for _, fh := range files {
		if !strings.HasSuffix(strings.ToLower(fh.Filename), ".pdf") {
			continue
		}
		specbookID, savedPath, err := saveUploadedFile(s.cfg.DataInRoot, fh)
		if err != nil {
			writeErr(w, http.StatusInternalServerError, err)
			return
		}
		out = append(out, uploadResult{Filename: filepath.Base(savedPath), SpecbookID: specbookID})
	}

	writeJSON(w, http.StatusOK, map[string]any{"uploaded": out})
}

func saveUploadedFile(dstDir string, fh *multipart.FileHeader) (specbookID, path string, err error) {
	src, err := fh.Open()
	if err != nil {
		return "", "", fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()

	tmp, err := os.CreateTemp(dstDir, "upload-*.pdf")
	if err != nil {
		return "", "", fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
	}()

	hashed, err := util.SHA256HexFromReader(io.TeeReader(src, tmp))
	if err != nil {
		return "", "", fmt.Errorf("write upload: %w", err)
	}
	specbookID = hashed

	safeName := filepath.Base(fh.Filename)
	finalPath := filepath.Join(dstDir, safeName)
	if err := tmp.Close(); err != nil {
		return "", "", err
	}
	if err := os.Rename(tmp.Name(), finalPath); err != nil {
		return "", "", fmt.Errorf("atomic move upload: %w", err)
	}

	return specbookID, finalPath, nil
}

func firstSingleFile(m map[string][]*multipart.FileHeader) (*multipart.FileHeader, bool) {
	for _, v := range m {
		if len(v) > 0 {
			return v[0], true
		}
	}
	return nil, false
}

func workflowSafeID(name string) string {
	name = strings.ToLower(name)
	name = strings.ReplaceAll(name, "_", "-")
	name = strings.ReplaceAll(name, ".", "-")
	name = strings.ReplaceAll(name, "/", "-")
	return name
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, code int, err error) {
	apiErr := toAPIError(code, err)
	writeJSON(w, code, map[string]any{
		"error": map[string]any{
			"code":    apiErr.Code,
			"message": apiErr.Message,
		},
	})
}

type apiError struct {
	Code    string
	Message string
}

func toAPIError(status int, err error) apiError {
	msg := "Request failed."
	code := "SB-API-4000"
	raw := ""
	if err != nil {
		raw = strings.ToLower(err.Error())
	}

	switch {
	case status >= 500:
		switch {
		case strings.Contains(raw, "connect"), strings.Contains(raw, "dial tcp"), strings.Contains(raw, "connection refused"):
			return apiError{
				Code:    "SB-WF-5002",
				Message: "Workflow service connection is unavailable. Check local services and retry.",
			}
		default:
			return apiError{
				Code:    "SB-API-5000",
				Message: "Internal server error. Please retry or check service logs.",
			}
		}
	case status == http.StatusBadRequest:
		code = "SB-API-4001"
		msg = "Invalid request. Check inputs and retry."
	case status == http.StatusNotFound:
		code = "SB-API-4004"
		msg = "Requested resource was not found."
	case status == http.StatusConflict:
		code = "SB-API-4009"
		msg = "Operation conflicts with current state. Retry after checking status."
	case status == http.StatusMethodNotAllowed:
		code = "SB-API-4005"
		msg = "This endpoint does not support the requested method."
	case status == http.StatusBadGateway:
		code = "SB-API-5020"
		msg = "Upstream provider unavailable. Retry shortly."
	}

	// For 4xx, keep user-safe validation context only.
	if status >= 400 && status < 500 && err != nil {
		low := strings.ToLower(err.Error())
		switch {
		case strings.Contains(low, "no files provided"):
			msg = "No PDF files were provided."
		case strings.Contains(low, "invalid json"):
			msg = "Malformed JSON request body."
		case strings.Contains(low, "specbook not found"):
			msg = "Specbook PDF was not found in the input directory."
		case strings.Contains(low, "no extraction found"):
			msg = "No extraction workflow exists for this specbook yet."
		case strings.Contains(low, "no rules artifact"):
			msg = "Rules have not been extracted for this specbook yet."
		}
	}

	return apiError{Code: code, Message: msg}
}

func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
