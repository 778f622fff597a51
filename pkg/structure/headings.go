package structure

import (
	"regexp"
	"strings"
)

// headingLineRegex matches a single ATX-style heading line. The separator after the
// hashes may be any whitespace, including Unicode space separators like U+3000.
// Evaluated per line, never against the whole document: `\s` would otherwise
// match a newline and glue a bare "#" to the following line.
var headingLineRegex = regexp.MustCompile(`^(#{1,6})[\s\p{Zs}]+(.+)$`)

// parseHeadingLine reports whether line is a heading and returns its level and trimmed title.
// A line whose remaining text is only whitespace is not a heading.
func parseHeadingLine(line string) (level int, title string, ok bool) {
	m := headingLineRegex.FindStringSubmatch(line)
	if m == nil {
		return 0, "", false
	}
	title = strings.TrimSpace(m[2])
	if title == "" {
		return 0, "", false
	}
	return len(m[1]), title, true
}

// splitLines splits on '\n' only, so "\r" stays part of the line content
func splitLines(markdown string) []string {
	return strings.Split(markdown, "\n")
}

// ExtractHeadings returns every heading line of markdown in top-to-bottom order.
func ExtractHeadings(markdown string) []HeadingOccurrence {
	var headings []HeadingOccurrence
	for _, line := range splitLines(markdown) {
		level, title, ok := parseHeadingLine(line)
		if !ok {
			continue
		}
		headings = append(headings, HeadingOccurrence{
			Level: level,
			Title: title,
			ID:    GenerateID(title),
		})
	}
	return headings
}
