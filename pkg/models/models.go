package models

import (
	"time"

	"github.com/Sriram-PR/specdoc/pkg/structure"
)

// DocumentRecord is a structured document as persisted in the store
type DocumentRecord struct {
	ID          string             `json:"id"`           // SHA-256 of the Markdown
	Name        string             `json:"name"`         // Display name, usually derived from the source
	Source      string             `json:"source"`       // Path, URL or "-" for stdin
	ContentHash string             `json:"content_hash"` // Same as ID; kept separate so a future id scheme can diverge
	Markdown    string             `json:"markdown"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Document    structure.Document `json:"document"`
	Stats       DocumentStats      `json:"stats"`
	Report      structure.Report   `json:"report"`
}

// DocumentStats summarises the shape of a structured document
type DocumentStats struct {
	HeadingCount int `json:"heading_count" yaml:"heading_count"`
	SectionCount int `json:"section_count" yaml:"section_count"`
	TOCRoots     int `json:"toc_roots" yaml:"toc_roots"`
	TOCDepth     int `json:"toc_depth" yaml:"toc_depth"`
	TokenCount   int `json:"token_count" yaml:"token_count"`
}

// DocumentSummary is the list view of a stored document
type DocumentSummary struct {
	ID        string        `json:"id"`
	Name      string        `json:"name"`
	Source    string        `json:"source"`
	UpdatedAt time.Time     `json:"updated_at"`
	Stats     DocumentStats `json:"stats"`
	Warnings  int           `json:"warnings"`
}

// ComputeStats derives DocumentStats from a parsed document
func ComputeStats(doc structure.Document, tokenCount int) DocumentStats {
	return DocumentStats{
		HeadingCount: len(doc.Headings),
		SectionCount: len(doc.Sections),
		TOCRoots:     len(doc.TOC),
		TOCDepth:     structure.TOCDepth(doc.TOC),
		TokenCount:   tokenCount,
	}
}

// Summary returns the list view of the record
func (r DocumentRecord) Summary() DocumentSummary {
	return DocumentSummary{
		ID:        r.ID,
		Name:      r.Name,
		Source:    r.Source,
		UpdatedAt: r.UpdatedAt,
		Stats:     r.Stats,
		Warnings:  len(r.Report.Warnings()),
	}
}

// ExportMetadata is written as metadata.yaml next to an exported document
type ExportMetadata struct {
	DocumentID string             `yaml:"document_id"`
	Name       string             `yaml:"name"`
	Source     string             `yaml:"source"`
	ExportedAt time.Time          `yaml:"exported_at"`
	Stats      DocumentStats      `yaml:"stats"`
	Sections   []SectionFileEntry `yaml:"sections"`
	Warnings   []string           `yaml:"warnings,omitempty"`
}

// SectionFileEntry describes one exported section file
type SectionFileEntry struct {
	Index       int    `yaml:"index"`
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Level       int    `yaml:"level"`
	File        string `yaml:"file"` // Relative to the document export dir
	ContentHash string `yaml:"content_hash,omitempty"`
}
