package utils

import (
	"context"
	"errors"
	"net"
	"os"
	"strings"
)

// --- Sentinel Errors for Categorization ---
var (
	ErrParsing            = errors.New("parsing error")    // Wraps specific parsing error (JSON, YAML, regex)
	ErrFilesystem         = errors.New("filesystem error") // Wraps os errors
	ErrDatabase           = errors.New("database error")   // Wraps badger errors
	ErrNotFound           = errors.New("not found")
	ErrConfigValidation   = errors.New("configuration validation error")
	ErrInputTooLarge      = errors.New("input exceeds size limit")
	ErrUnsupportedSource  = errors.New("unsupported source")
	ErrFetch              = errors.New("fetch error") // Wraps HTTP transport errors and non-2xx statuses
	ErrMarkdownConversion = errors.New("failed to convert HTML to markdown")
	ErrContentSelector    = errors.New("content selector not found")
)

// CategorizeError maps an error to a predefined category string for logging/metrics.
func CategorizeError(err error) string {
	if err == nil {
		return "None"
	}

	switch {
	case errors.Is(err, ErrInputTooLarge):
		return "Input_TooLarge"
	case errors.Is(err, ErrUnsupportedSource):
		return "Input_UnsupportedSource"
	case errors.Is(err, ErrNotFound):
		return "Lookup_NotFound"
	case errors.Is(err, ErrFetch):
		errMsg := err.Error()
		if strings.Contains(errMsg, " 404 ") {
			return "Fetch_HTTP404"
		}
		if strings.Contains(errMsg, "status 4") {
			return "Fetch_HTTP4xx"
		}
		if strings.Contains(errMsg, "status 5") {
			return "Fetch_HTTP5xx"
		}
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "Fetch_Timeout"
		}
		return "Fetch_Other"
	case errors.Is(err, ErrContentSelector):
		return "Content_SelectorNotFound"
	case errors.Is(err, ErrMarkdownConversion):
		return "Content_Markdown"
	case errors.Is(err, ErrParsing):
		errMsg := err.Error()
		if strings.Contains(errMsg, "JSON") {
			return "Content_ParsingJSON"
		}
		if strings.Contains(errMsg, "YAML") {
			return "Content_ParsingYAML"
		}
		if strings.Contains(errMsg, "regex") {
			return "Content_ParsingRegex"
		}
		return "Content_ParsingOther"
	case errors.Is(err, ErrFilesystem):
		if errors.Is(err, os.ErrPermission) {
			return "Filesystem_Permission"
		}
		if errors.Is(err, os.ErrNotExist) {
			return "Filesystem_NotExist"
		}
		if errors.Is(err, os.ErrExist) {
			return "Filesystem_Exist"
		}
		return "Filesystem_Other"
	case errors.Is(err, ErrDatabase):
		return "Database_Other"
	case errors.Is(err, ErrConfigValidation):
		return "Config_Validation"
	}

	// --- Fallback checks for common underlying error types ---
	if errors.Is(err, context.Canceled) {
		return "System_ContextCanceled"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "System_ContextDeadlineExceeded"
	}
	if errors.Is(err, os.ErrNotExist) {
		return "Filesystem_NotExist"
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Network_Timeout"
	}
	lowerErrMsg := strings.ToLower(err.Error())
	if strings.Contains(lowerErrMsg, "timeout") {
		return "Network_TimeoutGeneric"
	}
	if strings.Contains(lowerErrMsg, "connection refused") {
		return "Network_ConnectionRefused"
	}
	if strings.Contains(lowerErrMsg, "no such host") {
		return "Network_DNSLookup"
	}

	return "Unknown"
}
