package structure

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Finding points at one heading that deserves attention. Line is 1-based.
type Finding struct {
	Line  int    `json:"line" yaml:"line"`
	Level int    `json:"level" yaml:"level"`
	Title string `json:"title" yaml:"title"`
	ID    string `json:"id,omitempty" yaml:"id,omitempty"`
}

// DuplicateID is a slug shared by several headings
type DuplicateID struct {
	ID     string   `json:"id" yaml:"id"`
	Count  int      `json:"count" yaml:"count"`
	Titles []string `json:"titles" yaml:"titles"`
}

// Report summarizes heading quality issues. It never alters what the other
// functions in this package return.
type Report struct {
	DuplicateIDs  []DuplicateID `json:"duplicateIds" yaml:"duplicate_ids"`
	EmptyIDs      []Finding     `json:"emptyIds" yaml:"empty_ids"`
	NonCommonMark []Finding     `json:"nonCommonMark" yaml:"non_commonmark"` // matched by the line pattern, not a CommonMark heading
	Unrecognized  []Finding     `json:"unrecognized" yaml:"unrecognized"`    // CommonMark heading the line pattern misses
}

// Clean reports whether no issue was found
func (r Report) Clean() bool {
	return len(r.DuplicateIDs) == 0 && len(r.EmptyIDs) == 0 &&
		len(r.NonCommonMark) == 0 && len(r.Unrecognized) == 0
}

// Warnings renders the report as human-readable lines.
func (r Report) Warnings() []string {
	var out []string
	for _, d := range r.DuplicateIDs {
		out = append(out, fmt.Sprintf("id %q is shared by %d headings: %s", d.ID, d.Count, strings.Join(d.Titles, " | ")))
	}
	for _, f := range r.EmptyIDs {
		out = append(out, fmt.Sprintf("line %d: heading %q has an empty id", f.Line, f.Title))
	}
	for _, f := range r.NonCommonMark {
		out = append(out, fmt.Sprintf("line %d: %q is treated as a heading but is not one in CommonMark (code block?)", f.Line, f.Title))
	}
	for _, f := range r.Unrecognized {
		out = append(out, fmt.Sprintf("line %d: CommonMark heading %q is not detected (setext or indented heading)", f.Line, f.Title))
	}
	return out
}

// Inspect cross-checks line-pattern headings against goldmark's CommonMark parse.
func Inspect(markdown string) Report {
	report := Report{
		DuplicateIDs:  []DuplicateID{},
		EmptyIDs:      []Finding{},
		NonCommonMark: []Finding{},
		Unrecognized:  []Finding{},
	}

	patternLines := make(map[int]Finding)
	byID := make(map[string]*DuplicateID)
	var idOrder []string

	for i, line := range splitLines(markdown) {
		level, title, ok := parseHeadingLine(line)
		if !ok {
			continue
		}
		f := Finding{Line: i + 1, Level: level, Title: title, ID: GenerateID(title)}
		patternLines[f.Line] = f

		if f.ID == "" {
			report.EmptyIDs = append(report.EmptyIDs, f)
			continue
		}
		d, seen := byID[f.ID]
		if !seen {
			d = &DuplicateID{ID: f.ID}
			byID[f.ID] = d
			idOrder = append(idOrder, f.ID)
		}
		d.Count++
		d.Titles = append(d.Titles, title)
	}
	for _, id := range idOrder {
		if d := byID[id]; d.Count > 1 {
			report.DuplicateIDs = append(report.DuplicateIDs, *d)
		}
	}

	astLines := commonMarkHeadings([]byte(markdown))
	for line, f := range astLines {
		if _, ok := patternLines[line]; !ok {
			report.Unrecognized = append(report.Unrecognized, f)
		}
	}
	for line, f := range patternLines {
		if _, ok := astLines[line]; !ok {
			report.NonCommonMark = append(report.NonCommonMark, f)
		}
	}
	sortFindings(report.Unrecognized)
	sortFindings(report.NonCommonMark)

	return report
}

// commonMarkHeadings maps the 1-based line of each goldmark heading to a Finding.
func commonMarkHeadings(src []byte) map[int]Finding {
	doc := goldmark.DefaultParser().Parse(text.NewReader(src))

	found := make(map[int]Finding)
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		heading, ok := n.(*ast.Heading)
		if !ok {
			return ast.WalkContinue, nil
		}
		segs := heading.Lines()
		if segs.Len() == 0 {
			return ast.WalkContinue, nil
		}
		var buf bytes.Buffer
		for i := 0; i < segs.Len(); i++ {
			if i > 0 {
				buf.WriteByte(' ')
			}
			seg := segs.At(i)
			buf.Write(seg.Value(src))
		}
		title := strings.TrimSpace(buf.String())
		line := bytes.Count(src[:segs.At(0).Start], []byte("\n")) + 1
		found[line] = Finding{Line: line, Level: heading.Level, Title: title, ID: GenerateID(title)}
		return ast.WalkContinue, nil
	})
	return found
}

func sortFindings(fs []Finding) {
	slices.SortFunc(fs, func(a, b Finding) int { return a.Line - b.Line })
}
