// Package render writes structured documents for people and tools: a text tree
// of the table of contents and a per-document export directory.
package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/Sriram-PR/specdoc/pkg/structure"
)

// WriteTOCTree writes items as a box-drawing tree under title.
// Each line shows the heading title followed by its anchor id.
func WriteTOCTree(w io.Writer, title string, items []structure.TOCItem) error {
	var b strings.Builder
	b.WriteString(title)
	b.WriteByte('\n')
	if len(items) == 0 {
		b.WriteString("(no headings)\n")
	}
	writeTreeLevel(&b, items, "")
	_, err := io.WriteString(w, b.String())
	return err
}

func writeTreeLevel(b *strings.Builder, items []structure.TOCItem, prefix string) {
	for i, item := range items {
		last := i == len(items)-1
		branch, indent := "├── ", "│   "
		if last {
			branch, indent = "└── ", "    "
		}
		b.WriteString(prefix)
		b.WriteString(branch)
		b.WriteString(tocLabel(item))
		b.WriteByte('\n')
		writeTreeLevel(b, item.Children, prefix+indent)
	}
}

func tocLabel(item structure.TOCItem) string {
	if item.ID == "" {
		return item.Title
	}
	return fmt.Sprintf("%s [#%s]", item.Title, item.ID)
}

// WriteTOCMarkdown writes items as a nested Markdown link list, two spaces of
// indent per tree depth. Items without an id are written as plain text.
func WriteTOCMarkdown(w io.Writer, items []structure.TOCItem) error {
	var b strings.Builder
	writeMarkdownLevel(&b, items, 0)
	_, err := io.WriteString(w, b.String())
	return err
}

func writeMarkdownLevel(b *strings.Builder, items []structure.TOCItem, depth int) {
	for _, item := range items {
		b.WriteString(strings.Repeat("  ", depth))
		if item.ID == "" {
			fmt.Fprintf(b, "- %s\n", item.Title)
		} else {
			fmt.Fprintf(b, "- [%s](#%s)\n", item.Title, item.ID)
		}
		writeMarkdownLevel(b, item.Children, depth+1)
	}
}
