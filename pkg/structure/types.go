// Package structure turns a flat Markdown document into a table of contents and a
// list of addressable sections.
//
// Every function in this package is pure: no I/O, no shared state, no errors.
// Headings are detected line by line with an anchored pattern rather than a
// block-level Markdown parser, so the output is defined for any input string.
package structure

// HeadingOccurrence is one heading line found in a document
type HeadingOccurrence struct {
	Level int    `json:"level" yaml:"level"` // 1..6, number of leading '#'
	Title string `json:"title" yaml:"title"` // Trimmed heading text
	ID    string `json:"id" yaml:"id"`       // Slug from GenerateID(Title)
}

// TOCItem is a node of the table-of-contents forest.
// Children always have a strictly greater Level than their parent and keep document order.
type TOCItem struct {
	ID       string    `json:"id" yaml:"id"`
	Title    string    `json:"title" yaml:"title"`
	Level    int       `json:"level" yaml:"level"`
	Children []TOCItem `json:"children" yaml:"children"`
}

// MarkdownSection is a contiguous run of lines starting at a boundary heading.
type MarkdownSection struct {
	ID               string `json:"id" yaml:"id"`
	Title            string `json:"title" yaml:"title"`
	Level            int    `json:"level" yaml:"level"`
	Content          string `json:"content" yaml:"content"`                     // Trimmed body without the section's own heading line
	OriginalMarkdown string `json:"originalMarkdown" yaml:"original_markdown"` // Verbatim lines, heading line included
}

// Document is the result of ParseMarkdownDocument
type Document struct {
	TOC      []TOCItem           `json:"toc" yaml:"toc"`
	Sections []MarkdownSection   `json:"sections" yaml:"sections"`
	Headings []HeadingOccurrence `json:"headings" yaml:"headings"`
}
