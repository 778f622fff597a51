package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/specdoc/pkg/config"
	"github.com/Sriram-PR/specdoc/pkg/ingest"
	applog "github.com/Sriram-PR/specdoc/pkg/log"
	"github.com/Sriram-PR/specdoc/pkg/metrics"
	"github.com/Sriram-PR/specdoc/pkg/orchestrate"
	"github.com/Sriram-PR/specdoc/pkg/process"
	"github.com/Sriram-PR/specdoc/pkg/storage"
)

const version = "1.0.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	args := os.Args[2:]
	switch os.Args[1] {
	case "parse":
		os.Exit(runParse(args))
	case "toc":
		os.Exit(runTOC(args))
	case "sections":
		os.Exit(runSections(args))
	case "anchors":
		os.Exit(runAnchors(args))
	case "inspect":
		os.Exit(runInspect(args))
	case "chunk":
		os.Exit(runChunk(args))
	case "export":
		os.Exit(runExport(args))
	case "store":
		os.Exit(runStore(args))
	case "batch":
		os.Exit(runBatch(args))
	case "watch":
		os.Exit(runWatch(args))
	case "validate":
		os.Exit(runValidate(args))
	case "mcp-server":
		os.Exit(runMcpServer(args))
	case "version":
		fmt.Printf("specdoc %s\n", version)
	case "-h", "--help", "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	printUsageTo(os.Stdout)
}

// printUsageTo writes usage information to the provided writer.
func printUsageTo(w io.Writer) {
	fmt.Fprintln(w, `specdoc - Markdown document structurer

Usage:
  specdoc <command> [options] <source>

A source is a file path, an http(s) URL, or "-" for stdin.
HTML sources are converted to Markdown first.

Commands:
  parse       Print the table of contents, sections and headings
  toc         Print the table of contents
  sections    Print the sections
  anchors     Print the Markdown with {#id} anchors on every heading
  inspect     Report duplicate or empty ids and disputed headings
  chunk       Split sections into token-bounded retrieval chunks
  export      Write a per-document export directory
  store       Manage stored documents (put, list, get, delete)
  batch       Structure a directory or a list of sources into the store
  watch       Re-structure directories or sources on an interval
  validate    Validate configuration file
  mcp-server  Start MCP server for AI tool integration
  version     Show version info

Run 'specdoc <command> -h' for command-specific help.`)
}

// globalOptions are the flags every command accepts
type globalOptions struct {
	ConfigPath string
	LogLevel   string
}

func addGlobalFlags(fs *flag.FlagSet) *globalOptions {
	opts := &globalOptions{}
	fs.StringVar(&opts.ConfigPath, "config", "", "Path to YAML config file (defaults apply when empty)")
	fs.StringVar(&opts.LogLevel, "loglevel", "", "Log level (trace, debug, info, warn, error); overrides log_level from config")
	return opts
}

// appEnv bundles configuration and shared components for one command run
type appEnv struct {
	cfg   *config.AppConfig
	log   *logrus.Logger
	stdin io.Reader
}

// loadConfig loads the config file, or the defaults when path is empty.
// Validate is applied; its warnings are returned.
func loadConfig(path string) (*config.AppConfig, []string, error) {
	cfg := &config.AppConfig{}
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, nil, err
		}
		cfg = loaded
	}
	warnings, err := cfg.Validate()
	if err != nil {
		return nil, nil, err
	}
	return cfg, warnings, nil
}

// newEnv loads configuration and builds a logger writing to stderr
func newEnv(opts *globalOptions, stdin io.Reader, stderr io.Writer) (*appEnv, error) {
	cfg, warnings, err := loadConfig(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	level := cfg.LogLevel
	if opts.LogLevel != "" {
		level = opts.LogLevel
	}
	log, err := applog.NewLogger(level, stderr)
	if err != nil {
		log.Warnf("%v; using 'info'", err)
	}
	// Default-filling notes are warnings only when a config file was given
	for _, w := range warnings {
		if opts.ConfigPath == "" {
			log.Debug(w)
		} else {
			log.Warn(w)
		}
	}
	return &appEnv{cfg: cfg, log: log, stdin: stdin}, nil
}

func (e *appEnv) component(name string) *logrus.Entry {
	return applog.Component(e.log, name)
}

// loader builds a Loader that reads stdin, files and http(s) URLs
func (e *appEnv) loader() *ingest.Loader {
	ingestLog := e.component("ingest")
	client := ingest.NewClient(e.cfg.Ingest.HTTPClientSettings, ingestLog)
	fetcher := ingest.NewFetcher(client, e.cfg.Ingest, ingestLog)
	return ingest.NewLoader(fetcher, e.cfg.MaxInputBytes, e.cfg.Ingest.ContentSelector, ingestLog).WithStdin(e.stdin)
}

// tokenCounter returns the configured codec, falling back to the estimate with a warning
func (e *appEnv) tokenCounter() *process.TokenCounter {
	counter, err := process.NewTokenCounter(e.cfg.TokenizerEncoding)
	if err != nil {
		e.log.Warnf("Token counts are estimated: %v", err)
	}
	return counter
}

func (e *appEnv) openStore() (*storage.BadgerStore, error) {
	return storage.NewBadgerStore(e.cfg.StateDir, e.component("storage"))
}

func (e *appEnv) structurer(store storage.DocumentStore, recorder metrics.Recorder) *orchestrate.Structurer {
	return orchestrate.NewStructurer(orchestrate.Options{
		Store:    store,
		Loader:   e.loader(),
		Counter:  e.tokenCounter(),
		Recorder: recorder,
		Chunking: process.ChunkerConfig{
			MaxChunkSize: e.cfg.Chunking.MaxChunkSize,
			ChunkOverlap: e.cfg.Chunking.ChunkOverlap,
		},
		NumWorkers: e.cfg.NumWorkers,
	}, e.component("structure"))
}

// startMetrics serves /metrics on metrics_addr. With no address it returns a
// NoopRecorder and a no-op stop function.
func (e *appEnv) startMetrics() (metrics.Recorder, func()) {
	addr := e.cfg.MetricsAddr
	if addr == "" {
		return metrics.NoopRecorder{}, func() {}
	}
	metricsLog := e.component("metrics")
	reg := prom.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.HTTPHandler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		metricsLog.Infof("Serving metrics at http://%s/metrics", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			metricsLog.Errorf("Metrics server error: %v", err)
		}
	}()
	return recorder, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

// signalContext returns a context cancelled on SIGINT/SIGTERM. A second signal forces exit.
func signalContext(log *logrus.Logger) (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case sig := <-sigChan:
			log.Warnf("Received signal: %v. Initiating graceful shutdown...", sig)
			cancel()
		case <-ctx.Done():
			return
		}
		select {
		case sig := <-sigChan:
			log.Warnf("Received second signal: %v. Forcing exit.", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			log.Warn("Graceful shutdown period exceeded after signal. Forcing exit.")
			os.Exit(1)
		}
	}()

	return ctx, func() {
		signal.Stop(sigChan)
		cancel()
	}
}

// sourceArg returns the single positional source, defaulting to stdin
func sourceArg(fs *flag.FlagSet, stderr io.Writer) (string, bool) {
	switch fs.NArg() {
	case 0:
		return "-", true
	case 1:
		return fs.Arg(0), true
	default:
		fmt.Fprintf(stderr, "Error: expected one source, got %d\n", fs.NArg())
		return "", false
	}
}

// runValidate handles the validate subcommand
func runValidate(args []string) int {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	configFile := fs.String("config", "config.yaml", "Path to config file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: specdoc validate [options]\n\nOptions:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return 2
	}
	return doValidate(*configFile, os.Stdout, os.Stderr)
}

// doValidate performs validation and writes output to provided writers.
// Returns exit code (0 = success, 1 = error).
func doValidate(configPath string, stdout, stderr io.Writer) int {
	appCfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	warnings, err := appCfg.Validate()
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: %v\n", err)
		return 1
	}
	for _, w := range warnings {
		fmt.Fprintf(stdout, "WARN: %s\n", w)
	}

	batchWarnings, err := appCfg.Batch.Validate()
	if err != nil {
		fmt.Fprintf(stderr, "ERROR: [batch] %v\n", err)
		return 1
	}
	for _, w := range batchWarnings {
		fmt.Fprintf(stdout, "WARN: [batch] %s\n", w)
	}

	if _, err := process.NewTokenCounter(appCfg.TokenizerEncoding); err != nil {
		fmt.Fprintf(stderr, "ERROR: [tokenizer] %v\n", err)
		return 1
	}

	fmt.Fprintf(stdout, "OK: workers=%d state_dir=%s output_base_dir=%s tokenizer=%s\n",
		appCfg.NumWorkers, appCfg.StateDir, appCfg.OutputBaseDir, appCfg.TokenizerEncoding)
	fmt.Fprintln(stdout, "\nConfiguration valid.")
	return 0
}
