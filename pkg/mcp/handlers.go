package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/Sriram-PR/specdoc/pkg/ingest"
	"github.com/Sriram-PR/specdoc/pkg/models"
	"github.com/Sriram-PR/specdoc/pkg/orchestrate"
	"github.com/Sriram-PR/specdoc/pkg/render"
	"github.com/Sriram-PR/specdoc/pkg/structure"
	"github.com/Sriram-PR/specdoc/pkg/utils"
)

const (
	defaultListResults = 50
	maxListResults     = 500
)

// markdownArg reads the markdown argument, enforcing max_input_bytes
func (s *Server) markdownArg(request mcp.CallToolRequest) (string, *mcp.CallToolResult) {
	markdown := request.GetString("markdown", "")
	if limit := s.cfg.AppConfig.MaxInputBytes; limit > 0 && int64(len(markdown)) > limit {
		return "", mcp.NewToolResultError(fmt.Sprintf("markdown is %d bytes (limit %d)", len(markdown), limit))
	}
	return markdown, nil
}

// handleParseMarkdown handles the parse_markdown tool
func (s *Server) handleParseMarkdown(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markdown, errResult := s.markdownArg(request)
	if errResult != nil {
		return errResult, nil
	}

	doc := structure.ParseMarkdownDocument(markdown)
	return mcp.NewToolResultText(formatJSON(doc)), nil
}

// handleGetTOC handles the get_toc tool
func (s *Server) handleGetTOC(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markdown, errResult := s.markdownArg(request)
	if errResult != nil {
		return errResult, nil
	}

	toc := structure.BuildTOC(structure.ExtractHeadings(markdown))
	switch format := strings.ToLower(request.GetString("format", "json")); format {
	case "tree":
		var buf bytes.Buffer
		if err := render.WriteTOCTree(&buf, "TOC", toc); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(buf.String()), nil
	case "json", "":
		if request.GetBool("flat", false) {
			toc = structure.FlattenTOC(toc)
		}
		result := map[string]interface{}{
			"toc":   toc,
			"depth": structure.TOCDepth(toc),
		}
		return mcp.NewToolResultText(formatJSON(result)), nil
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown format '%s' (supported: json, tree)", format)), nil
	}
}

// sectionOutline is a section without its text
type sectionOutline struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Level int    `json:"level"`
}

// handleGetSections handles the get_sections tool
func (s *Server) handleGetSections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markdown, errResult := s.markdownArg(request)
	if errResult != nil {
		return errResult, nil
	}

	sections := structure.SplitIntoSections(markdown)
	result := map[string]interface{}{
		"total_sections": len(sections),
	}
	if request.GetBool("include_content", true) {
		result["sections"] = sections
	} else {
		outline := make([]sectionOutline, 0, len(sections))
		for _, section := range sections {
			outline = append(outline, sectionOutline{ID: section.ID, Title: section.Title, Level: section.Level})
		}
		result["sections"] = outline
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleAddHeadingIDs handles the add_heading_ids tool
func (s *Server) handleAddHeadingIDs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markdown, errResult := s.markdownArg(request)
	if errResult != nil {
		return errResult, nil
	}
	return mcp.NewToolResultText(structure.AddHeadingIDs(markdown)), nil
}

// handleInspectMarkdown handles the inspect_markdown tool
func (s *Server) handleInspectMarkdown(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markdown, errResult := s.markdownArg(request)
	if errResult != nil {
		return errResult, nil
	}

	report := structure.Inspect(markdown)
	result := map[string]interface{}{
		"clean":    report.Clean(),
		"warnings": report.Warnings(),
		"report":   report,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleChunkMarkdown handles the chunk_markdown tool
func (s *Server) handleChunkMarkdown(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	markdown, errResult := s.markdownArg(request)
	if errResult != nil {
		return errResult, nil
	}

	chunks, err := s.cfg.Structurer.Chunk(structure.SplitIntoSections(markdown))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("chunking failed: %v", err)), nil
	}
	result := map[string]interface{}{
		"chunks":       chunks,
		"total_chunks": len(chunks),
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleStructureSource handles the structure_source tool
func (s *Server) handleStructureSource(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	source := request.GetString("source", "")
	if source == "" {
		return mcp.NewToolResultError("source parameter is required"), nil
	}
	if source == "-" {
		return mcp.NewToolResultError("stdin is not available over MCP; pass markdown to parse_markdown instead"), nil
	}
	loader := s.cfg.Structurer.Loader()
	if loader == nil {
		return mcp.NewToolResultError("source loading is not configured"), nil
	}

	startTime := time.Now()
	loaded, err := loader.Load(ctx, source)
	if err != nil {
		return s.errorResult("failed to load source", err), nil
	}
	name := request.GetString("name", "")
	if name == "" {
		name = loaded.Name
	}

	record, created, err := s.cfg.Structurer.Process(ctx, name, loaded.Source, loaded.Markdown)
	if err != nil {
		return s.errorResult("failed to structure source", err), nil
	}

	result := map[string]interface{}{
		"id":          record.ID,
		"name":        record.Name,
		"source":      record.Source,
		"created":     created,
		"stored":      s.cfg.Structurer.Store() != nil,
		"converted":   loaded.Converted,
		"stats":       record.Stats,
		"warnings":    record.Report.Warnings(),
		"toc":         record.Document.TOC,
		"duration_ms": time.Since(startTime).Milliseconds(),
	}
	if loaded.Converted {
		result["framework"] = loaded.Framework
	}

	if request.GetBool("export", false) {
		if s.cfg.Exporter == nil {
			return mcp.NewToolResultError("export is not configured"), nil
		}
		exported, err := s.cfg.Exporter.Export(record)
		if err != nil {
			return s.errorResult("export failed", err), nil
		}
		result["export_dir"] = exported.Dir
		result["export_files"] = exported.Files
	}

	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleListDocuments handles the list_documents tool
func (s *Server) handleListDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	store := s.cfg.Structurer.Store()
	if store == nil {
		return mcp.NewToolResultError("document store is not configured"), nil
	}

	maxResults := request.GetInt("max_results", defaultListResults)
	if maxResults <= 0 {
		maxResults = defaultListResults
	}
	if maxResults > maxListResults {
		maxResults = maxListResults
	}

	summaries, err := store.ListDocuments(ctx)
	if err != nil {
		return s.errorResult("failed to list documents", err), nil
	}
	total := len(summaries)
	if len(summaries) > maxResults {
		summaries = summaries[:maxResults]
	}

	result := map[string]interface{}{
		"documents":       summaries,
		"total_documents": total,
		"truncated":       total > len(summaries),
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// lookupDocument resolves ref and loads the record
func (s *Server) lookupDocument(ref string) (*models.DocumentRecord, error) {
	store := s.cfg.Structurer.Store()
	if store == nil {
		return nil, fmt.Errorf("document store is not configured")
	}
	id, err := store.ResolveID(ref)
	if err != nil {
		return nil, err
	}
	status, record, err := store.GetDocument(id)
	if err != nil {
		return nil, err
	}
	if status != models.DocumentStatusFound || record == nil {
		return nil, fmt.Errorf("%w: document '%s'", utils.ErrNotFound, ref)
	}
	return record, nil
}

// handleGetDocument handles the get_document tool
func (s *Server) handleGetDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := request.GetString("ref", "")
	if ref == "" {
		return mcp.NewToolResultError("ref parameter is required"), nil
	}

	record, err := s.lookupDocument(ref)
	if err != nil {
		return s.errorResult("failed to get document", err), nil
	}

	include := strings.ToLower(request.GetString("include", "summary"))
	switch include {
	case "markdown":
		return mcp.NewToolResultText(record.Markdown), nil
	case "anchored":
		return mcp.NewToolResultText(structure.AddHeadingIDs(record.Markdown)), nil
	}

	result := map[string]interface{}{
		"summary":    record.Summary(),
		"created_at": record.CreatedAt.Format(time.RFC3339),
		"warnings":   record.Report.Warnings(),
	}
	switch include {
	case "summary", "":
	case "toc":
		result["toc"] = record.Document.TOC
	case "sections":
		result["sections"] = record.Document.Sections
	case "all":
		result["toc"] = record.Document.TOC
		result["sections"] = record.Document.Sections
		result["headings"] = record.Document.Headings
		result["report"] = record.Report
	default:
		return mcp.NewToolResultError(fmt.Sprintf("unknown include '%s' (supported: summary, toc, sections, markdown, anchored, all)", include)), nil
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleDeleteDocument handles the delete_document tool
func (s *Server) handleDeleteDocument(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := request.GetString("ref", "")
	if ref == "" {
		return mcp.NewToolResultError("ref parameter is required"), nil
	}
	store := s.cfg.Structurer.Store()
	if store == nil {
		return mcp.NewToolResultError("document store is not configured"), nil
	}

	id, err := store.ResolveID(ref)
	if err != nil {
		return s.errorResult("failed to resolve document", err), nil
	}
	deleted, err := store.DeleteDocument(id)
	if err != nil {
		return s.errorResult("failed to delete document", err), nil
	}

	result := map[string]interface{}{
		"id":      id,
		"deleted": deleted,
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleStructureBatch handles the structure_batch tool
func (s *Server) handleStructureBatch(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if s.cfg.Structurer.Loader() == nil {
		return mcp.NewToolResultError("source loading is not configured"), nil
	}

	directory := request.GetString("directory", "")
	var sources []string
	var target string
	if directory != "" {
		collected, err := orchestrate.CollectSources(directory, s.cfg.AppConfig.Batch)
		if err != nil {
			return s.errorResult("failed to collect sources", err), nil
		}
		sources = collected
		if abs, err := filepath.Abs(directory); err == nil {
			target = abs
		} else {
			target = directory
		}
	} else {
		sources = ingest.DedupeSources(splitSources(request.GetString("sources", "")))
		target = strings.Join(sources, "\n")
	}
	if len(sources) == 0 {
		return mcp.NewToolResultError("no sources to structure (pass directory or sources)"), nil
	}

	job, existing := s.jobManager.CreateJob(target)
	if existing {
		result := map[string]interface{}{
			"status":  "already_running",
			"message": "A batch is already in progress for this target",
			"job_id":  job.ID,
			"target":  job.Target,
		}
		return mcp.NewToolResultText(formatJSON(result)), nil
	}

	s.jobManager.SetTotal(job.ID, len(sources))
	go s.runBatchJob(job.ID, sources)

	result := map[string]interface{}{
		"status":        "started",
		"message":       "Batch started successfully",
		"job_id":        job.ID,
		"target":        job.Target,
		"total_sources": len(sources),
	}
	return mcp.NewToolResultText(formatJSON(result)), nil
}

// handleGetJobStatus handles the get_job_status tool
func (s *Server) handleGetJobStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	jobID := request.GetString("job_id", "")
	if jobID == "" {
		return mcp.NewToolResultError("job_id parameter is required"), nil
	}

	job, ok := s.jobManager.GetJob(jobID)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("job '%s' not found", jobID)), nil
	}

	result := map[string]interface{}{
		"job_id":     job.ID,
		"target":     job.Target,
		"status":     job.Status,
		"started_at": job.StartedAt.Format(time.RFC3339),
		"total":      job.Total,
		"processed":  job.Processed,
		"succeeded":  job.Succeeded,
		"skipped":    job.Skipped,
		"failed":     job.Failed,
	}

	if !job.CompletedAt.IsZero() {
		result["completed_at"] = job.CompletedAt.Format(time.RFC3339)
		result["duration_seconds"] = job.CompletedAt.Sub(job.StartedAt).Seconds()
	}
	if job.ErrorMessage != "" {
		result["error_message"] = job.ErrorMessage
	}
	if request.GetBool("include_results", false) && len(job.Results) > 0 {
		result["results"] = job.Results
	}

	return mcp.NewToolResultText(formatJSON(result)), nil
}

// runBatchJob runs a batch job in the background
func (s *Server) runBatchJob(jobID string, sources []string) {
	s.jobManager.UpdateStatus(jobID, JobStatusRunning, "")
	jobCtx := s.jobManager.GetContext(jobID)
	jobLog := s.log.WithField("job_id", jobID)
	jobLog.Infof("Batch job started for %d sources", len(sources))

	results := s.cfg.Structurer.ProcessSourcesWithProgress(jobCtx, sources, func(done int, r orchestrate.Result) {
		s.jobManager.RecordResult(jobID, done, r)
	})
	s.jobManager.SetResults(jobID, results)

	if errors.Is(jobCtx.Err(), context.Canceled) {
		s.jobManager.UpdateStatus(jobID, JobStatusCancelled, "")
		jobLog.Info("Batch job cancelled")
		return
	}

	success, skipped, failed := orchestrate.Summarize(results)
	if success+skipped == 0 && failed > 0 {
		s.jobManager.UpdateStatus(jobID, JobStatusFailed, fmt.Sprintf("all %d sources failed", failed))
		jobLog.Warn("Batch job failed: every source failed")
		return
	}
	s.jobManager.UpdateStatus(jobID, JobStatusCompleted, "")
	jobLog.Infof("Batch job completed (%d success, %d unchanged, %d failed)", success, skipped, failed)
}

// splitSources splits a comma or newline separated list, dropping blanks
func splitSources(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool { return r == ',' || r == '\n' || r == '\r' })
	sources := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			sources = append(sources, f)
		}
	}
	return sources
}

// errorResult builds a tool error carrying the error category
func (s *Server) errorResult(msg string, err error) *mcp.CallToolResult {
	category := utils.CategorizeError(err)
	s.log.WithField("category", category).Warnf("%s: %v", msg, err)
	return mcp.NewToolResultError(fmt.Sprintf("%s [%s]: %v", msg, category, err))
}

// formatJSON formats data as an indented JSON string
func formatJSON(data interface{}) string {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("{\"error\": %q}", err.Error())
	}
	return string(b)
}
