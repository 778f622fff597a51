package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/specdoc/pkg/structure"
)

func TestComputeStats(t *testing.T) {
	doc := structure.ParseMarkdownDocument("# A\nx\n## B\ny\n### C\nz\n# D\nw\n")

	stats := ComputeStats(doc, 42)

	assert.Equal(t, DocumentStats{
		HeadingCount: 4,
		SectionCount: 3,
		TOCRoots:     2,
		TOCDepth:     3,
		TokenCount:   42,
	}, stats)
}

func TestComputeStats_EmptyDocument(t *testing.T) {
	assert.Equal(t, DocumentStats{}, ComputeStats(structure.ParseMarkdownDocument(""), 0))
}

func TestDocumentRecord_Summary(t *testing.T) {
	md := "# Setup\n## Setup\ntext\n"
	now := time.Now().UTC()
	record := DocumentRecord{
		ID:        "abc",
		Name:      "guide",
		Source:    "guide.md",
		UpdatedAt: now,
		Document:  structure.ParseMarkdownDocument(md),
		Report:    structure.Inspect(md),
	}
	record.Stats = ComputeStats(record.Document, 7)

	summary := record.Summary()

	assert.Equal(t, "abc", summary.ID)
	assert.Equal(t, "guide", summary.Name)
	assert.Equal(t, now, summary.UpdatedAt)
	assert.Equal(t, 7, summary.Stats.TokenCount)
	assert.Equal(t, 1, summary.Warnings) // duplicate "setup" id
}

func TestDocumentRecord_JSONKeepsDocumentShape(t *testing.T) {
	record := DocumentRecord{ID: "x", Document: structure.ParseMarkdownDocument("# T\nbody")}

	data, err := json.Marshal(record)
	require.NoError(t, err)

	var got DocumentRecord
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, record.Document, got.Document)
	assert.Contains(t, string(data), `"originalMarkdown"`)
}

func TestExportMetadata_YAMLFieldNames(t *testing.T) {
	meta := ExportMetadata{
		DocumentID: "abc",
		Name:       "guide",
		Sections:   []SectionFileEntry{{Index: 1, ID: "intro", Title: "Intro", Level: 1, File: "01-intro.md"}},
	}

	data, err := yaml.Marshal(meta)
	require.NoError(t, err)

	out := string(data)
	assert.Contains(t, out, "document_id: abc")
	assert.Contains(t, out, "file: 01-intro.md")
	assert.NotContains(t, out, "warnings:")
}
