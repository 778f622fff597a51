package mcp

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/specdoc/pkg/config"
	"github.com/Sriram-PR/specdoc/pkg/orchestrate"
	"github.com/Sriram-PR/specdoc/pkg/render"
)

const (
	serverName    = "specdoc"
	serverVersion = "1.0.0"
)

// ServerConfig holds configuration for the MCP server
type ServerConfig struct {
	AppConfig  *config.AppConfig
	ConfigPath string
	Structurer *orchestrate.Structurer
	Exporter   *render.Exporter // Optional; enables the export flag of structure_source
	Transport  string           // "stdio" or "sse"
	Port       int
	Logger     *logrus.Logger
}

// Server exposes the Markdown structurer as MCP tools
type Server struct {
	mcpServer  *server.MCPServer
	sseServer  *server.SSEServer
	cfg        *ServerConfig
	log        *logrus.Entry
	jobManager *JobManager
	toolCount  int
}

// NewServer creates a new MCP server instance
func NewServer(cfg *ServerConfig) (*Server, error) {
	if cfg.AppConfig == nil {
		return nil, fmt.Errorf("AppConfig is required")
	}
	if cfg.Structurer == nil {
		return nil, fmt.Errorf("Structurer is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}

	mcpServer := server.NewMCPServer(
		serverName,
		serverVersion,
		server.WithLogging(),
	)

	s := &Server{
		mcpServer:  mcpServer,
		cfg:        cfg,
		log:        cfg.Logger.WithField("component", "mcp"),
		jobManager: NewJobManager(),
	}

	s.registerTools()

	return s, nil
}

func (s *Server) addTool(tool mcp.Tool, handler server.ToolHandlerFunc) {
	s.mcpServer.AddTool(tool, handler)
	s.toolCount++
}

func markdownParam() mcp.ToolOption {
	return mcp.WithString("markdown",
		mcp.Required(),
		mcp.Description("Markdown text to structure"),
	)
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	s.addTool(mcp.NewTool("parse_markdown",
		mcp.WithDescription("Parse Markdown into its table of contents, sections and heading list"),
		markdownParam(),
	), s.handleParseMarkdown)

	s.addTool(mcp.NewTool("get_toc",
		mcp.WithDescription("Build the nested table of contents of a Markdown document"),
		markdownParam(),
		mcp.WithString("format",
			mcp.Description("'json' (default) or 'tree' for a text tree"),
		),
		mcp.WithBoolean("flat",
			mcp.Description("Return the TOC flattened in document order (json format only)"),
		),
	), s.handleGetTOC)

	s.addTool(mcp.NewTool("get_sections",
		mcp.WithDescription("Split a Markdown document into top-level and deep-heading sections"),
		markdownParam(),
		mcp.WithBoolean("include_content",
			mcp.Description("Include section content and original Markdown (default: true)"),
		),
	), s.handleGetSections)

	s.addTool(mcp.NewTool("add_heading_ids",
		mcp.WithDescription("Append {#id} anchor markers to every ATX heading"),
		markdownParam(),
	), s.handleAddHeadingIDs)

	s.addTool(mcp.NewTool("inspect_markdown",
		mcp.WithDescription("Report duplicate or empty heading ids and headings the line scanner and CommonMark disagree on"),
		markdownParam(),
	), s.handleInspectMarkdown)

	s.addTool(mcp.NewTool("chunk_markdown",
		mcp.WithDescription("Split the sections of a Markdown document into token-bounded retrieval chunks"),
		markdownParam(),
	), s.handleChunkMarkdown)

	s.addTool(mcp.NewTool("structure_source",
		mcp.WithDescription("Load a file path or http(s) URL, structure it and store the result"),
		mcp.WithString("source",
			mcp.Required(),
			mcp.Description("File path or http(s) URL; HTML is converted to Markdown"),
		),
		mcp.WithString("name",
			mcp.Description("Document name (defaults to the source base name)"),
		),
		mcp.WithBoolean("export",
			mcp.Description("Also write the export directory for the document"),
		),
	), s.handleStructureSource)

	s.addTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List stored documents, most recently updated first"),
		mcp.WithNumber("max_results",
			mcp.Description("Maximum number of documents to return (default: 50, max: 500)"),
		),
	), s.handleListDocuments)

	s.addTool(mcp.NewTool("get_document",
		mcp.WithDescription("Fetch a stored document by id, id prefix or name"),
		mcp.WithString("ref",
			mcp.Required(),
			mcp.Description("Document id, unique id prefix, or name"),
		),
		mcp.WithString("include",
			mcp.Description("'summary' (default), 'toc', 'sections', 'markdown', 'anchored' or 'all'"),
		),
	), s.handleGetDocument)

	s.addTool(mcp.NewTool("delete_document",
		mcp.WithDescription("Delete a stored document by id, id prefix or name"),
		mcp.WithString("ref",
			mcp.Required(),
			mcp.Description("Document id, unique id prefix, or name"),
		),
	), s.handleDeleteDocument)

	s.addTool(mcp.NewTool("structure_batch",
		mcp.WithDescription("Start a background job structuring a directory or a list of sources. Returns immediately with a job ID."),
		mcp.WithString("directory",
			mcp.Description("Directory to walk using the configured batch filters"),
		),
		mcp.WithString("sources",
			mcp.Description("Comma or newline separated file paths and URLs (used when directory is empty)"),
		),
	), s.handleStructureBatch)

	s.addTool(mcp.NewTool("get_job_status",
		mcp.WithDescription("Get the status of a batch job"),
		mcp.WithString("job_id",
			mcp.Required(),
			mcp.Description("The job ID returned by structure_batch"),
		),
		mcp.WithBoolean("include_results",
			mcp.Description("Include per-source results once the job finished"),
		),
	), s.handleGetJobStatus)

	s.log.Infof("Registered %d MCP tools", s.toolCount)
}

// Run starts the MCP server with the configured transport
func (s *Server) Run() error {
	switch s.cfg.Transport {
	case "stdio":
		s.log.Info("Starting MCP server with stdio transport")
		return server.ServeStdio(s.mcpServer)
	case "sse":
		addr := fmt.Sprintf(":%d", s.cfg.Port)
		s.log.Infof("Starting MCP server with SSE transport on %s", addr)
		s.sseServer = server.NewSSEServer(s.mcpServer)
		return s.sseServer.Start(addr)
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio, sse)", s.cfg.Transport)
	}
}

// Shutdown cancels running jobs and stops the SSE listener if one is running
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info("Shutting down MCP server...")
	s.jobManager.CancelAll()
	if s.sseServer != nil {
		return s.sseServer.Shutdown(ctx)
	}
	return nil
}
