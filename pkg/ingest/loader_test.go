package ingest

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/specdoc/pkg/utils"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_MarkdownFile(t *testing.T) {
	path := writeFile(t, "product-spec.md", "# Spec\nbody\n")
	loader := NewLoader(nil, 1024, "", testLogger())

	loaded, err := loader.Load(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, "product-spec", loaded.Name)
	assert.Equal(t, path, loaded.Source)
	assert.Equal(t, "# Spec\nbody\n", loaded.Markdown)
	assert.False(t, loaded.Converted)
}

func TestLoad_StripsBOM(t *testing.T) {
	path := writeFile(t, "bom.md", "\ufeff# Title\n")

	loaded, err := NewLoader(nil, 0, "", testLogger()).Load(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "# Title\n", loaded.Markdown)
}

func TestLoad_HTMLFileIsConverted(t *testing.T) {
	path := writeFile(t, "page.html", plainPage)

	loaded, err := NewLoader(nil, 1<<20, "main", testLogger()).Load(context.Background(), path)
	require.NoError(t, err)

	assert.True(t, loaded.Converted)
	assert.Equal(t, "page", loaded.Name)
	assert.Contains(t, loaded.Markdown, "# Install")
}

func TestLoad_Stdin(t *testing.T) {
	loader := NewLoader(nil, 1024, "", testLogger()).WithStdin(strings.NewReader("## Piped\ntext"))

	loaded, err := loader.Load(context.Background(), "-")
	require.NoError(t, err)
	assert.Equal(t, "stdin", loaded.Name)
	assert.Equal(t, "## Piped\ntext", loaded.Markdown)
}

func TestLoad_StdinHTMLUsesTitle(t *testing.T) {
	loader := NewLoader(nil, 1<<20, "", testLogger()).WithStdin(strings.NewReader(plainPage))

	loaded, err := loader.Load(context.Background(), "-")
	require.NoError(t, err)
	assert.True(t, loaded.Converted)
	assert.Equal(t, "Install Guide", loaded.Name)
}

func TestLoad_TooLarge(t *testing.T) {
	loader := NewLoader(nil, 8, "", testLogger())

	_, err := loader.Load(context.Background(), writeFile(t, "big.md", "# 0123456789"))
	assert.ErrorIs(t, err, utils.ErrInputTooLarge)

	_, err = loader.WithStdin(strings.NewReader("# 0123456789")).Load(context.Background(), "-")
	assert.ErrorIs(t, err, utils.ErrInputTooLarge)

	loaded, err := loader.WithStdin(strings.NewReader("# exact!")).Load(context.Background(), "-")
	require.NoError(t, err)
	assert.Equal(t, "# exact!", loaded.Markdown)
}

func TestLoad_Errors(t *testing.T) {
	loader := NewLoader(nil, 1024, "", testLogger())
	ctx := context.Background()

	_, err := loader.Load(ctx, filepath.Join(t.TempDir(), "missing.md"))
	assert.ErrorIs(t, err, utils.ErrFilesystem)
	assert.Equal(t, "Filesystem_NotExist", utils.CategorizeError(err))

	_, err = loader.Load(ctx, t.TempDir())
	assert.ErrorIs(t, err, utils.ErrUnsupportedSource)

	_, err = loader.Load(ctx, "ftp://example.com/spec.md")
	assert.ErrorIs(t, err, utils.ErrUnsupportedSource)

	_, err = loader.Load(ctx, "https://example.com/spec.md")
	assert.ErrorIs(t, err, utils.ErrUnsupportedSource, "URL without a fetcher")

	_, err = loader.Load(ctx, writeFile(t, "binary.md", "\xff\xfe\x00"))
	assert.ErrorIs(t, err, utils.ErrUnsupportedSource)
}

func TestLoad_URL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/docs/spec.md", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/markdown")
		_, _ = io.WriteString(w, "# Remote\ncontent")
	})
	mux.HandleFunc("/docs/page", func(w http.ResponseWriter, r *http.Request) {
		writeHTML(w, plainPage)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	loader := NewLoader(testFetcher(t), 1<<20, "auto", testLogger())

	md, err := loader.Load(context.Background(), server.URL+"/docs/spec.md")
	require.NoError(t, err)
	assert.Equal(t, "spec", md.Name)
	assert.Equal(t, "# Remote\ncontent", md.Markdown)
	assert.False(t, md.Converted)

	page, err := loader.Load(context.Background(), server.URL+"/docs/page")
	require.NoError(t, err)
	assert.True(t, page.Converted)
	assert.Equal(t, "page", page.Name)
	assert.Contains(t, page.Markdown, "## Options")
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://x.io/a.md"))
	assert.True(t, IsURL("HTTP://x.io"))
	assert.False(t, IsURL("docs/a.md"))
	assert.False(t, IsURL("-"))
}
