package ingest

import (
	"net"
	"net/url"
	"path/filepath"
	"strings"
)

// NormalizeURL standardizes a URL for comparison. It lowercases the scheme and
// host, drops default ports, trailing path slashes and the fragment, and turns
// an empty path into "/". The query is kept since it can change the content.
func NormalizeURL(u *url.URL) string {
	if u == nil {
		return ""
	}
	normalized := *u

	normalized.Scheme = strings.ToLower(normalized.Scheme)
	normalized.Host = strings.ToLower(normalized.Host)

	if host, port, err := net.SplitHostPort(normalized.Host); err == nil {
		if (normalized.Scheme == "http" && port == "80") || (normalized.Scheme == "https" && port == "443") {
			normalized.Host = host
		}
	}

	if normalized.Path == "" {
		normalized.Path = "/"
	} else if len(normalized.Path) > 1 && strings.HasSuffix(normalized.Path, "/") {
		normalized.Path = strings.TrimRight(normalized.Path, "/")
		if normalized.Path == "" {
			normalized.Path = "/"
		}
	}
	normalized.Fragment = ""
	normalized.RawFragment = ""

	return normalized.String()
}

// NormalizeSource returns the comparison key of a source: a normalized URL,
// a cleaned file path, or "-" for stdin
func NormalizeSource(src string) string {
	src = strings.TrimSpace(src)
	if src == "-" || src == "" {
		return src
	}
	if IsURL(src) {
		if parsed, err := url.Parse(src); err == nil && parsed.Host != "" {
			return NormalizeURL(parsed)
		}
		return src
	}
	return filepath.Clean(src)
}

// DedupeSources drops sources equal to an earlier one after NormalizeSource.
// The first spelling of each source is kept, in input order.
func DedupeSources(sources []string) []string {
	seen := make(map[string]struct{}, len(sources))
	out := make([]string, 0, len(sources))
	for _, src := range sources {
		key := NormalizeSource(src)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, strings.TrimSpace(src))
	}
	return out
}
