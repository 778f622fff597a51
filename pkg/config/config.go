package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/specdoc/pkg/utils"
)

// AppConfig holds the global application configuration
type AppConfig struct {
	LogLevel          string         `yaml:"log_level,omitempty"`
	StateDir          string         `yaml:"state_dir"`
	OutputBaseDir     string         `yaml:"output_base_dir"`
	MaxInputBytes     int64          `yaml:"max_input_bytes,omitempty"` // Upper bound on a single Markdown/HTML source
	NumWorkers        int            `yaml:"num_workers"`
	TokenizerEncoding string         `yaml:"tokenizer_encoding,omitempty"`
	GCInterval        time.Duration  `yaml:"gc_interval,omitempty"` // Badger value-log GC period
	MetricsAddr       string         `yaml:"metrics_addr,omitempty"` // Empty disables the /metrics listener
	Chunking          ChunkingConfig `yaml:"chunking,omitempty"`
	Ingest            IngestConfig   `yaml:"ingest,omitempty"`
	Batch             BatchConfig    `yaml:"batch,omitempty"`
	MCP               MCPConfig      `yaml:"mcp,omitempty"`
}

// ChunkingConfig controls how sections are split for retrieval
type ChunkingConfig struct {
	MaxChunkSize int `yaml:"max_chunk_size,omitempty"` // In tokens
	ChunkOverlap int `yaml:"chunk_overlap,omitempty"`  // In tokens
}

// IngestConfig controls loading of remote and HTML sources
type IngestConfig struct {
	ContentSelector    string           `yaml:"content_selector,omitempty"` // CSS selector for the main content of HTML pages
	UserAgent          string           `yaml:"user_agent,omitempty"`
	MaxRetries         int              `yaml:"max_retries,omitempty"`
	InitialRetryDelay  time.Duration    `yaml:"initial_retry_delay,omitempty"`
	MaxRetryDelay      time.Duration    `yaml:"max_retry_delay,omitempty"`
	MaxRequestsPerHost int              `yaml:"max_requests_per_host,omitempty"` // Concurrent fetches per host during a batch
	RequestDelay       time.Duration    `yaml:"request_delay,omitempty"`         // Minimum gap between requests to one host; 0 disables
	HTTPClientSettings HTTPClientConfig `yaml:"http_client_settings,omitempty"`
}

// BatchConfig filters which files a directory batch picks up
type BatchConfig struct {
	IncludeExtensions []string `yaml:"include_extensions,omitempty"`
	ExcludePatterns   []string `yaml:"exclude_patterns,omitempty"` // Regex patterns matched against the slash-separated relative path
}

// MCPConfig selects the MCP transport
type MCPConfig struct {
	Transport string `yaml:"transport,omitempty"` // "stdio" or "sse"
	Port      int    `yaml:"port,omitempty"`
}

// HTTPClientConfig holds settings for the shared HTTP client
type HTTPClientConfig struct {
	Timeout               time.Duration `yaml:"timeout,omitempty"`                 // Overall request timeout
	MaxIdleConns          int           `yaml:"max_idle_conns,omitempty"`          // Max total idle connections
	MaxIdleConnsPerHost   int           `yaml:"max_idle_conns_per_host,omitempty"` // Max idle connections per host
	IdleConnTimeout       time.Duration `yaml:"idle_conn_timeout,omitempty"`
	TLSHandshakeTimeout   time.Duration `yaml:"tls_handshake_timeout,omitempty"`
	ExpectContinueTimeout time.Duration `yaml:"expect_continue_timeout,omitempty"`
	ForceAttemptHTTP2     *bool         `yaml:"force_attempt_http2,omitempty"` // nil=default, true=force, false=disable
	DialerTimeout         time.Duration `yaml:"dialer_timeout,omitempty"`
	DialerKeepAlive       time.Duration `yaml:"dialer_keep_alive,omitempty"`
}

// Load reads and parses a YAML config file. Defaults are not applied; call Validate.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read config file '%s': %w", utils.ErrFilesystem, path, err)
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: YAML config file '%s': %w", utils.ErrParsing, path, err)
	}
	return &cfg, nil
}

// Default returns a config with every default applied
func Default() *AppConfig {
	cfg := &AppConfig{}
	_, _ = cfg.Validate()
	return cfg
}
