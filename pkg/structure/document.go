package structure

// ParseMarkdownDocument extracts headings once, builds the TOC from them and
// splits the text into sections independently. Nothing is cached between calls.
func ParseMarkdownDocument(markdown string) Document {
	headings := ExtractHeadings(markdown)
	if headings == nil {
		headings = []HeadingOccurrence{}
	}
	return Document{
		TOC:      BuildTOC(headings),
		Sections: SplitIntoSections(markdown),
		Headings: headings,
	}
}
