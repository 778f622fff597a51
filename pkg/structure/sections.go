package structure

import "strings"

// subtitleLevel is the heading level folded into the enclosing section instead of
// starting a new one.
const subtitleLevel = 2

// isBoundary reports whether a heading of the given level starts a new section
// while another section is already open.
func isBoundary(level int) bool {
	return level != subtitleLevel
}

// sectionBuilder accumulates the lines of the section currently open.
type sectionBuilder struct {
	section   MarkdownSection
	lines     []string
	headingAt int // index of the section's own heading line within lines
}

func (b *sectionBuilder) finish() MarkdownSection {
	body := make([]string, 0, len(b.lines))
	body = append(body, b.lines[:b.headingAt]...)
	body = append(body, b.lines[b.headingAt+1:]...)

	s := b.section
	s.Content = strings.TrimSpace(strings.Join(body, "\n"))
	s.OriginalMarkdown = strings.Join(b.lines, "\n")
	return s
}

// SplitIntoSections partitions markdown into sections.
//
// Headings of level 1 and 3..6 start a new section; level 2 headings are kept as
// content of the open section. The one exception is a level 2 heading seen before
// any section exists, which opens a section of its own. Non-blank lines before the
// first section are folded into it; blank ones are dropped. Sections consisting of
// nothing but their heading line are removed from the result.
func SplitIntoSections(markdown string) []MarkdownSection {
	var (
		sections  []MarkdownSection
		current   *sectionBuilder
		preHeader []string
	)

	for _, line := range splitLines(markdown) {
		level, title, isHeading := parseHeadingLine(line)

		switch {
		case isHeading && (current == nil || isBoundary(level)):
			if current != nil {
				sections = append(sections, current.finish())
			}
			current = &sectionBuilder{
				section: MarkdownSection{ID: GenerateID(title), Title: title, Level: level},
			}
			if preHeader != nil {
				current.lines = append(preHeader, line)
				current.headingAt = len(preHeader)
				preHeader = nil
			} else {
				current.lines = []string{line}
			}

		case current != nil:
			current.lines = append(current.lines, line)

		case strings.TrimSpace(line) != "":
			preHeader = append(preHeader, line)
		}
	}

	if current != nil {
		sections = append(sections, current.finish())
	}

	result := make([]MarkdownSection, 0, len(sections))
	for _, s := range sections {
		if isVacuous(s) {
			continue
		}
		result = append(result, s)
	}
	return result
}

// isVacuous reports whether a section is a bare heading with nothing else in it.
func isVacuous(s MarkdownSection) bool {
	if strings.TrimSpace(s.Content) != "" {
		return false
	}
	_, title, ok := parseHeadingLine(strings.TrimSpace(s.OriginalMarkdown))
	return ok && title == s.Title
}
