package render

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/specdoc/pkg/models"
	"github.com/Sriram-PR/specdoc/pkg/process"
	"github.com/Sriram-PR/specdoc/pkg/structure"
	"github.com/Sriram-PR/specdoc/pkg/utils"
)

// Export file names inside a document directory
const (
	SectionsJSONLFile = "sections.jsonl"
	ChunksJSONLFile   = "chunks.jsonl"
	TOCFile           = "toc.txt"
	AnchoredFile      = "anchored.md"
	MetadataFile      = "metadata.yaml"
)

const maxSectionSlugLength = 60

// ChunkFunc produces retrieval chunks for the exported sections
type ChunkFunc func(sections []structure.MarkdownSection) ([]process.Chunk, error)

// Exporter writes structured documents under a base directory
type Exporter struct {
	baseDir string
	chunk   ChunkFunc
	log     *logrus.Entry
	now     func() time.Time
}

// ExportResult describes one finished export
type ExportResult struct {
	Dir      string
	Files    []string // Relative to Dir, in write order
	Metadata models.ExportMetadata
}

// NewExporter creates an Exporter writing below baseDir
func NewExporter(baseDir string, log *logrus.Entry) *Exporter {
	return &Exporter{
		baseDir: baseDir,
		log:     log,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// WithChunks makes Export also write chunks.jsonl using fn
func (e *Exporter) WithChunks(fn ChunkFunc) *Exporter {
	e.chunk = fn
	return e
}

// DocumentDir returns the directory Export uses for a document name
func (e *Exporter) DocumentDir(name string) string {
	return filepath.Join(e.baseDir, utils.SanitizeFilename(name))
}

// Export writes record into <base>/<sanitized name>/, replacing any previous export
// of the same name. The directory holds one NN-<slug>.md file per section plus
// sections.jsonl, toc.txt, anchored.md and metadata.yaml.
func (e *Exporter) Export(record *models.DocumentRecord) (*ExportResult, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: nothing to export", utils.ErrNotFound)
	}
	dir := e.DocumentDir(record.Name)
	exportLog := e.log.WithFields(logrus.Fields{"document": record.Name, "dir": dir})

	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("%w: clearing export dir '%s': %w", utils.ErrFilesystem, dir, err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("%w: creating export dir '%s': %w", utils.ErrFilesystem, dir, err)
	}

	result := &ExportResult{Dir: dir}
	write := func(name string, data []byte) error {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("%w: writing '%s': %w", utils.ErrFilesystem, path, err)
		}
		result.Files = append(result.Files, name)
		return nil
	}

	sections := record.Document.Sections
	entries := make([]models.SectionFileEntry, 0, len(sections))
	for i, section := range sections {
		name := SectionFileName(i, section)
		if err := write(name, []byte(withTrailingNewline(section.OriginalMarkdown))); err != nil {
			return nil, err
		}
		entries = append(entries, models.SectionFileEntry{
			Index:       i,
			ID:          section.ID,
			Title:       section.Title,
			Level:       section.Level,
			File:        name,
			ContentHash: utils.CalculateStringSHA256(section.OriginalMarkdown),
		})
	}

	sectionLines := make([]any, len(sections))
	for i := range sections {
		sectionLines[i] = sections[i]
	}
	data, err := jsonLines(sectionLines)
	if err != nil {
		return nil, err
	}
	if err := write(SectionsJSONLFile, data); err != nil {
		return nil, err
	}

	if e.chunk != nil {
		chunks, err := e.chunk(sections)
		if err != nil {
			return nil, fmt.Errorf("chunking '%s': %w", record.Name, err)
		}
		chunkLines := make([]any, len(chunks))
		for i := range chunks {
			chunkLines[i] = chunks[i]
		}
		data, err := jsonLines(chunkLines)
		if err != nil {
			return nil, err
		}
		if err := write(ChunksJSONLFile, data); err != nil {
			return nil, err
		}
	}

	var tree bytes.Buffer
	if err := WriteTOCTree(&tree, record.Name, record.Document.TOC); err != nil {
		return nil, err
	}
	if err := write(TOCFile, tree.Bytes()); err != nil {
		return nil, err
	}

	if err := write(AnchoredFile, []byte(structure.AddHeadingIDs(record.Markdown))); err != nil {
		return nil, err
	}

	result.Metadata = models.ExportMetadata{
		DocumentID: record.ID,
		Name:       record.Name,
		Source:     record.Source,
		ExportedAt: e.now(),
		Stats:      record.Stats,
		Sections:   entries,
		Warnings:   record.Report.Warnings(),
	}
	yamlData, err := yaml.Marshal(&result.Metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: YAML metadata for '%s': %w", utils.ErrParsing, record.Name, err)
	}
	if err := write(MetadataFile, yamlData); err != nil {
		return nil, err
	}

	exportLog.Infof("Exported %d sections (%d files)", len(sections), len(result.Files))
	return result, nil
}

// SectionFileName returns "NN-<slug>.md" for the section at 0-based index i.
func SectionFileName(i int, section structure.MarkdownSection) string {
	name := slug.Make(section.Title)
	if len(name) > maxSectionSlugLength {
		name = strings.TrimRight(name[:maxSectionSlugLength], "-")
	}
	if name == "" {
		name = "section"
	}
	return fmt.Sprintf("%02d-%s.md", i+1, name)
}

func jsonLines(values []any) ([]byte, error) {
	var buf bytes.Buffer
	for _, v := range values {
		line, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("%w: JSON encode: %w", utils.ErrParsing, err)
		}
		buf.Write(line)
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

func withTrailingNewline(s string) string {
	if s == "" || strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
