package structure

import (
	"strings"
	"unicode"
)

// AnchorMarker returns the inline attribute appended to a heading line for id.
// The `{#id}` form is understood by goldmark's parser.WithAttribute option.
func AnchorMarker(id string) string {
	return "{#" + id + "}"
}

// AddHeadingIDs appends an anchor marker carrying the heading's id to every heading line.
// Non-heading lines are returned byte-identical. Headings whose id would be empty are
// left as they are.
func AddHeadingIDs(markdown string) string {
	lines := splitLines(markdown)
	for i, line := range lines {
		_, title, ok := parseHeadingLine(line)
		if !ok {
			continue
		}
		id := GenerateID(title)
		if id == "" {
			continue
		}
		body, cr := strings.CutSuffix(line, "\r")
		lines[i] = strings.TrimRightFunc(body, unicode.IsSpace) + " " + AnchorMarker(id)
		if cr {
			lines[i] += "\r"
		}
	}
	return strings.Join(lines, "\n")
}
