package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/Sriram-PR/specdoc/pkg/mcp"
	"github.com/Sriram-PR/specdoc/pkg/render"
)

// runMcpServer handles the mcp-server subcommand
func runMcpServer(args []string) int {
	fs := flag.NewFlagSet("mcp-server", flag.ExitOnError)
	opts := addGlobalFlags(fs)
	transport := fs.String("transport", "", "Transport type (stdio, sse); defaults to mcp.transport from config")
	port := fs.Int("port", 0, "HTTP port (for sse transport); defaults to mcp.port from config")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: specdoc mcp-server [options]

Start an MCP (Model Context Protocol) server for AI tool integration.

Options:
`)
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # Start with stdio transport (for desktop AI clients)
  specdoc mcp-server -config config.yaml

  # Start with SSE transport on port 8080
  specdoc mcp-server -config config.yaml -transport sse -port 8080

Available MCP Tools:
  parse_markdown     Parse Markdown into TOC, sections and headings
  get_toc            Table of contents as JSON or a text tree
  get_sections       Sections of a document
  add_heading_ids    Append {#id} anchors to every heading
  inspect_markdown   Report duplicate/empty ids and disputed headings
  chunk_markdown     Token-bounded retrieval chunks
  structure_source   Load a file or URL, structure and store it
  list_documents     List stored documents
  get_document       Read a stored document
  delete_document    Delete a stored document
  structure_batch    Start a background batch job
  get_job_status     Progress and results of a batch job
`)
	}

	if err := fs.Parse(args); err != nil {
		return 1
	}
	return doMcpServer(opts, *transport, *port, os.Stdout, os.Stderr)
}

// doMcpServer is the testable implementation of the MCP server.
// The MCP protocol uses stdout, so logs go to stderr.
func doMcpServer(opts *globalOptions, transport string, port int, stdout, stderr io.Writer) int {
	env, err := newEnv(opts, nil, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return 1
	}
	if transport == "" {
		transport = env.cfg.MCP.Transport
	}
	if port <= 0 {
		port = env.cfg.MCP.Port
	}

	recorder, stopMetrics := env.startMetrics()
	defer stopMetrics()

	store, err := env.openStore()
	if err != nil {
		fmt.Fprintf(stderr, "Error opening store: %v\n", err)
		return 1
	}
	defer store.Close()

	ctx, stop := signalContext(env.log)
	defer stop()
	go store.RunGC(ctx, env.cfg.GCInterval)

	s := env.structurer(store, recorder)
	exporter := render.NewExporter(env.cfg.OutputBaseDir, env.component("export")).WithChunks(s.Chunk)

	server, err := mcp.NewServer(&mcp.ServerConfig{
		AppConfig:  env.cfg,
		ConfigPath: opts.ConfigPath,
		Structurer: s,
		Exporter:   exporter,
		Transport:  transport,
		Port:       port,
		Logger:     env.log,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error creating MCP server: %v\n", err)
		return 1
	}

	env.log.Infof("Starting MCP server (transport: %s)", transport)

	errCh := make(chan error, 1)
	go func() { errCh <- server.Run() }()

	select {
	case err = <-errCh:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err = server.Shutdown(shutdownCtx)
		cancel()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		fmt.Fprintf(stderr, "MCP server error: %v\n", err)
		return 1
	}
	return 0
}
