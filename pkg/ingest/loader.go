package ingest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/Sriram-PR/specdoc/pkg/utils"
)

// Loaded is a source read into memory as Markdown
type Loaded struct {
	Name      string // Display name derived from the source (or the HTML title)
	Source    string // As given: path, URL or "-"
	Markdown  string
	Converted bool      // True when the source was HTML
	Framework Framework // Set for converted pages
}

// Loader reads Markdown from stdin, local files or http(s) URLs
type Loader struct {
	fetcher  *Fetcher
	stdin    io.Reader
	maxBytes int64
	selector string
	log      *logrus.Entry
}

// NewLoader creates a Loader. fetcher may be nil, in which case URLs are rejected.
func NewLoader(fetcher *Fetcher, maxBytes int64, selector string, log *logrus.Entry) *Loader {
	return &Loader{
		fetcher:  fetcher,
		stdin:    os.Stdin,
		maxBytes: maxBytes,
		selector: selector,
		log:      log,
	}
}

// WithStdin replaces the reader used for "-"
func (l *Loader) WithStdin(r io.Reader) *Loader {
	l.stdin = r
	return l
}

// IsURL reports whether src is an http(s) URL
func IsURL(src string) bool {
	lower := strings.ToLower(src)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func isHTMLPath(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm", ".xhtml":
		return true
	}
	return false
}

// Load reads src. "-" is stdin, http(s) URLs are fetched, anything else is a file path.
// HTML (by extension or Content-Type) is converted to Markdown.
func (l *Loader) Load(ctx context.Context, src string) (*Loaded, error) {
	srcLog := l.log.WithField("source", src)
	switch {
	case src == "-":
		data, err := l.readLimited(l.stdin, "stdin")
		if err != nil {
			return nil, err
		}
		return l.finish(src, data, looksLikeHTML(data), srcLog)

	case IsURL(src):
		if l.fetcher == nil {
			return nil, fmt.Errorf("%w: URL sources are disabled", utils.ErrUnsupportedSource)
		}
		resp, err := l.fetcher.Fetch(ctx, src)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		data, err := l.readLimited(resp.Body, src)
		if err != nil {
			return nil, err
		}
		mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
		isHTML := mediaType == "text/html" || mediaType == "application/xhtml+xml" ||
			(mediaType == "" && looksLikeHTML(data))
		return l.finish(src, data, isHTML, srcLog)

	case strings.Contains(src, "://"):
		return nil, fmt.Errorf("%w: '%s' (only http and https URLs are supported)", utils.ErrUnsupportedSource, src)

	default:
		info, err := os.Stat(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", utils.ErrFilesystem, err)
		}
		if info.IsDir() {
			return nil, fmt.Errorf("%w: '%s' is a directory", utils.ErrUnsupportedSource, src)
		}
		if l.maxBytes > 0 && info.Size() > l.maxBytes {
			return nil, fmt.Errorf("%w: '%s' is %d bytes (limit %d)", utils.ErrInputTooLarge, src, info.Size(), l.maxBytes)
		}
		f, err := os.Open(src)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", utils.ErrFilesystem, err)
		}
		defer f.Close()
		data, err := l.readLimited(f, src)
		if err != nil {
			return nil, err
		}
		return l.finish(src, data, isHTMLPath(src), srcLog)
	}
}

func (l *Loader) finish(src string, data []byte, isHTML bool, log *logrus.Entry) (*Loaded, error) {
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: '%s' is not valid UTF-8 text", utils.ErrUnsupportedSource, src)
	}
	loaded := &Loaded{
		Name:      utils.DocumentName(src),
		Source:    src,
		Framework: FrameworkUnknown,
	}
	if !isHTML {
		loaded.Markdown = strings.TrimPrefix(string(data), "\ufeff")
		log.Debugf("Loaded %d bytes of Markdown", len(loaded.Markdown))
		return loaded, nil
	}

	page, err := HTMLToMarkdown(bytes.NewReader(data), l.selector)
	if err != nil {
		return nil, fmt.Errorf("converting '%s': %w", src, err)
	}
	loaded.Markdown = page.Markdown
	loaded.Converted = true
	loaded.Framework = page.Framework
	if src == "-" && page.Title != "" {
		loaded.Name = page.Title
	}
	log.WithField("framework", page.Framework).Debugf("Converted HTML to %d bytes of Markdown", len(page.Markdown))
	return loaded, nil
}

// readLimited reads r fully, failing with ErrInputTooLarge past maxBytes.
func (l *Loader) readLimited(r io.Reader, what string) ([]byte, error) {
	if l.maxBytes <= 0 {
		data, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %w", utils.ErrFilesystem, what, err)
		}
		return data, nil
	}
	data, err := io.ReadAll(io.LimitReader(r, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %w", utils.ErrFilesystem, what, err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("%w: %s exceeds %d bytes", utils.ErrInputTooLarge, what, l.maxBytes)
	}
	return data, nil
}

// looksLikeHTML sniffs the start of data for an HTML document
func looksLikeHTML(data []byte) bool {
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	trimmed := strings.ToLower(strings.TrimSpace(string(head)))
	return strings.HasPrefix(trimmed, "<!doctype html") || strings.HasPrefix(trimmed, "<html")
}
