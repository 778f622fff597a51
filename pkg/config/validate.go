package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Sriram-PR/specdoc/pkg/utils"
)

const (
	DefaultMaxInputBytes     = 10 << 20
	DefaultTokenizerEncoding = "cl100k_base"
	DefaultMaxChunkSize      = 512
	DefaultUserAgent         = "specdoc/1.0"
	DefaultMCPPort           = 8080
)

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}

	// NumWorkers
	if c.NumWorkers <= 0 {
		warnings = append(warnings, "num_workers should be > 0, defaulting to 4")
		c.NumWorkers = 4
	}

	// OutputBaseDir
	if c.OutputBaseDir == "" {
		warnings = append(warnings, "output_base_dir is empty, defaulting to './specdoc_output'")
		c.OutputBaseDir = "./specdoc_output"
	}

	// StateDir
	if c.StateDir == "" {
		warnings = append(warnings, "state_dir is empty, defaulting to './specdoc_state'")
		c.StateDir = "./specdoc_state"
	}

	// MaxInputBytes
	if c.MaxInputBytes < 0 {
		warnings = append(warnings, fmt.Sprintf("max_input_bytes cannot be negative, defaulting to %d", DefaultMaxInputBytes))
		c.MaxInputBytes = DefaultMaxInputBytes
	} else if c.MaxInputBytes == 0 {
		c.MaxInputBytes = DefaultMaxInputBytes
	}

	if c.TokenizerEncoding == "" {
		c.TokenizerEncoding = DefaultTokenizerEncoding
	}

	if c.GCInterval <= 0 {
		c.GCInterval = 10 * time.Minute
	}

	warnings = append(warnings, c.Chunking.applyDefaults()...)
	warnings = append(warnings, c.MCP.applyDefaults()...)
	c.Batch.normalizeExtensions()

	warnings = append(warnings, c.Ingest.applyDefaults()...)
	c.validateHTTPClientSettings()

	return warnings, nil // AppConfig validation never fails fatally
}

func (c *ChunkingConfig) applyDefaults() (warnings []string) {
	if c.MaxChunkSize <= 0 {
		c.MaxChunkSize = DefaultMaxChunkSize
	}
	if c.ChunkOverlap < 0 {
		warnings = append(warnings, "chunking.chunk_overlap cannot be negative, setting to 0")
		c.ChunkOverlap = 0
	}
	if c.ChunkOverlap >= c.MaxChunkSize {
		warnings = append(warnings, fmt.Sprintf(
			"chunking.chunk_overlap (%d) must be smaller than max_chunk_size (%d), setting to %d",
			c.ChunkOverlap, c.MaxChunkSize, c.MaxChunkSize/10))
		c.ChunkOverlap = c.MaxChunkSize / 10
	}
	return warnings
}

func (c *IngestConfig) applyDefaults() (warnings []string) {
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}

	if c.MaxRetries < 0 {
		warnings = append(warnings, "ingest.max_retries cannot be negative, setting to 0")
		c.MaxRetries = 0
	}
	if c.MaxRetries == 0 && c.InitialRetryDelay == 0 {
		c.MaxRetries = 2
	}
	if c.MaxRetries > 0 {
		if c.InitialRetryDelay <= 0 {
			c.InitialRetryDelay = 500 * time.Millisecond
		}
		if c.MaxRetryDelay <= 0 {
			c.MaxRetryDelay = 5 * time.Second
		}
	}
	if c.InitialRetryDelay > c.MaxRetryDelay && c.MaxRetryDelay > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"ingest.initial_retry_delay (%v) > max_retry_delay (%v), using max_retry_delay for initial",
			c.InitialRetryDelay, c.MaxRetryDelay))
		c.InitialRetryDelay = c.MaxRetryDelay
	}

	if c.MaxRequestsPerHost <= 0 {
		c.MaxRequestsPerHost = 2
	}
	if c.RequestDelay < 0 {
		warnings = append(warnings, "ingest.request_delay cannot be negative, disabling")
		c.RequestDelay = 0
	}
	return warnings
}

func (c *MCPConfig) applyDefaults() (warnings []string) {
	c.Transport = strings.ToLower(strings.TrimSpace(c.Transport))
	switch c.Transport {
	case "":
		c.Transport = "stdio"
	case "stdio", "sse":
	default:
		warnings = append(warnings, fmt.Sprintf("mcp.transport '%s' is not supported, defaulting to 'stdio'", c.Transport))
		c.Transport = "stdio"
	}
	if c.Port <= 0 || c.Port > 65535 {
		if c.Port != 0 {
			warnings = append(warnings, fmt.Sprintf("mcp.port %d is out of range, defaulting to %d", c.Port, DefaultMCPPort))
		}
		c.Port = DefaultMCPPort
	}
	return warnings
}

// normalizeExtensions lowercases extensions and ensures a leading dot.
func (c *BatchConfig) normalizeExtensions() {
	if len(c.IncludeExtensions) == 0 {
		c.IncludeExtensions = []string{".md", ".markdown"}
		return
	}
	normalized := make([]string, 0, len(c.IncludeExtensions))
	for _, ext := range c.IncludeExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		normalized = append(normalized, ext)
	}
	c.IncludeExtensions = normalized
}

// validateHTTPClientSettings applies defaults to HTTP client settings.
func (c *AppConfig) validateHTTPClientSettings() {
	h := &c.Ingest.HTTPClientSettings
	if h.Timeout <= 0 {
		h.Timeout = 45 * time.Second
	}
	if h.MaxIdleConns <= 0 {
		h.MaxIdleConns = 100
	}
	if h.MaxIdleConnsPerHost <= 0 {
		h.MaxIdleConnsPerHost = 2
	}
	if h.IdleConnTimeout <= 0 {
		h.IdleConnTimeout = 90 * time.Second
	}
	if h.TLSHandshakeTimeout <= 0 {
		h.TLSHandshakeTimeout = 10 * time.Second
	}
	if h.ExpectContinueTimeout <= 0 {
		h.ExpectContinueTimeout = 1 * time.Second
	}
	if h.DialerTimeout <= 0 {
		h.DialerTimeout = 15 * time.Second
	}
	if h.DialerKeepAlive <= 0 {
		h.DialerKeepAlive = 30 * time.Second
	}
}

// Validate checks the batch filters. An invalid exclude pattern is fatal.
func (c *BatchConfig) Validate() (warnings []string, err error) {
	c.normalizeExtensions()
	if len(c.IncludeExtensions) == 0 {
		return nil, fmt.Errorf("%w: batch.include_extensions has no usable entries", utils.ErrConfigValidation)
	}
	if _, err := utils.CompileRegexPatterns(c.ExcludePatterns); err != nil {
		return nil, fmt.Errorf("batch.exclude_patterns: %w", err)
	}
	for _, ext := range c.IncludeExtensions {
		if ext == ".html" || ext == ".htm" {
			warnings = append(warnings, fmt.Sprintf("batch includes '%s' files; they are converted to Markdown before structuring", ext))
		}
	}
	return warnings, nil
}
