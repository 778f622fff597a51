package process

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/Sriram-PR/specdoc/pkg/structure"
)

// Chunk is a retrieval-sized piece of one section
type Chunk struct {
	SectionID        string   `json:"section_id"`
	SectionTitle     string   `json:"section_title"`
	SectionLevel     int      `json:"section_level"`
	Index            int      `json:"index"` // 0-based position within the section
	Content          string   `json:"content"`
	HeadingHierarchy []string `json:"heading_hierarchy,omitempty"` // Headings found in the chunk, in order
	TokenCount       int      `json:"token_count"`
}

// ChunkerConfig holds configuration for the chunker.
type ChunkerConfig struct {
	MaxChunkSize int // Maximum chunk size in tokens (triggers markdown/recursive split if exceeded)
	ChunkOverlap int // Overlap between chunks in tokens
}

// DefaultChunkerConfig returns sensible defaults for RAG chunking.
func DefaultChunkerConfig() ChunkerConfig {
	return ChunkerConfig{
		MaxChunkSize: 512,
		ChunkOverlap: 50,
	}
}

// headingRegex matches markdown headings at the start of lines.
var headingRegex = regexp.MustCompile(`(?m)^(#{1,6})[ \t\p{Zs}]+(.+)$`)

// ChunkSections turns sections into chunks. A section that fits in MaxChunkSize
// tokens becomes a single chunk; a larger one is split by markdown headers first
// and by recursive character splitting after that.
func ChunkSections(sections []structure.MarkdownSection, cfg ChunkerConfig, counter *TokenCounter) ([]Chunk, error) {
	if len(sections) == 0 {
		return nil, nil
	}
	if cfg.MaxChunkSize <= 0 {
		cfg = DefaultChunkerConfig()
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.MaxChunkSize {
		cfg.ChunkOverlap = 0
	}

	lenFunc := counter.Count

	// Fallback for parts that are still too large after header splitting
	recursiveSplitter := textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(cfg.MaxChunkSize),
		textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		textsplitter.WithLenFunc(lenFunc),
	)
	splitter := textsplitter.NewMarkdownTextSplitter(
		textsplitter.WithHeadingHierarchy(true),
		textsplitter.WithChunkSize(cfg.MaxChunkSize),
		textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		textsplitter.WithSecondSplitter(recursiveSplitter),
		textsplitter.WithLenFunc(lenFunc),
	)

	var chunks []Chunk
	for _, section := range sections {
		text := strings.TrimSpace(section.OriginalMarkdown)
		if text == "" {
			continue
		}

		parts := []string{text}
		if counter.Count(text) > cfg.MaxChunkSize {
			split, err := splitter.SplitText(text)
			if err != nil {
				return nil, fmt.Errorf("splitting section '%s': %w", section.ID, err)
			}
			parts = split
		}

		index := 0
		for _, part := range parts {
			if strings.TrimSpace(part) == "" {
				continue
			}
			chunks = append(chunks, Chunk{
				SectionID:        section.ID,
				SectionTitle:     section.Title,
				SectionLevel:     section.Level,
				Index:            index,
				Content:          part,
				HeadingHierarchy: extractHeadingHierarchy(part),
				TokenCount:       counter.Count(part),
			})
			index++
		}
	}
	return chunks, nil
}

// extractHeadingHierarchy extracts the heading titles from chunk content, in order.
func extractHeadingHierarchy(content string) []string {
	matches := headingRegex.FindAllStringSubmatch(content, -1)
	if len(matches) == 0 {
		return nil
	}

	hierarchy := make([]string, 0, len(matches))
	for _, match := range matches {
		if len(match) >= 3 {
			heading := strings.TrimSpace(match[2])
			if heading != "" {
				hierarchy = append(hierarchy, heading)
			}
		}
	}

	return hierarchy
}
