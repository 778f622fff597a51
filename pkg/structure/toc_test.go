package structure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func h(level int, title string) HeadingOccurrence {
	return HeadingOccurrence{Level: level, Title: title, ID: GenerateID(title)}
}

func leaf(level int, title string) TOCItem {
	return TOCItem{ID: GenerateID(title), Title: title, Level: level, Children: []TOCItem{}}
}

func TestBuildTOC_Nesting(t *testing.T) {
	toc := BuildTOC([]HeadingOccurrence{h(1, "A"), h(2, "B"), h(3, "C"), h(1, "D")})

	c := leaf(3, "C")
	b := leaf(2, "B")
	b.Children = []TOCItem{c}
	a := leaf(1, "A")
	a.Children = []TOCItem{b}

	assert.Equal(t, []TOCItem{a, leaf(1, "D")}, toc)
}

func TestBuildTOC_SkippedLevels(t *testing.T) {
	toc := BuildTOC([]HeadingOccurrence{h(1, "A"), h(4, "B")})

	require.Len(t, toc, 1)
	require.Len(t, toc[0].Children, 1)
	assert.Equal(t, "B", toc[0].Children[0].Title)
	assert.Equal(t, 4, toc[0].Children[0].Level)
	assert.Empty(t, toc[0].Children[0].Children)
}

func TestBuildTOC_OutOfOrderLevels(t *testing.T) {
	toc := BuildTOC([]HeadingOccurrence{h(3, "Deep"), h(1, "Top"), h(2, "Child")})

	require.Len(t, toc, 2)
	assert.Equal(t, "Deep", toc[0].Title)
	assert.Empty(t, toc[0].Children)
	assert.Equal(t, "Top", toc[1].Title)
	require.Len(t, toc[1].Children, 1)
	assert.Equal(t, "Child", toc[1].Children[0].Title)
}

func TestBuildTOC_SiblingsCloseEachOther(t *testing.T) {
	toc := BuildTOC([]HeadingOccurrence{h(2, "One"), h(2, "Two"), h(2, "Three")})

	require.Len(t, toc, 3)
	for _, item := range toc {
		assert.Empty(t, item.Children)
	}
}

func TestBuildTOC_Empty(t *testing.T) {
	assert.Empty(t, BuildTOC(nil))
	assert.NotNil(t, BuildTOC(nil))
}

func TestBuildTOC_ChildLevelInvariant(t *testing.T) {
	headings := ExtractHeadings(`# Intro
### Detail
## Usage
#### Flags
##### Deep flag
## Config
# Appendix
###### Tiny
`)
	toc := BuildTOC(headings)

	var check func(parent TOCItem)
	check = func(parent TOCItem) {
		for _, child := range parent.Children {
			assert.Greater(t, child.Level, parent.Level, "child %q under %q", child.Title, parent.Title)
			check(child)
		}
	}
	for _, root := range toc {
		check(root)
	}
}

func TestFlattenTOC_PreservesDocumentOrder(t *testing.T) {
	headings := ExtractHeadings("# A\n## B\n### C\n## D\n# E\n#### F\n")

	flat := FlattenTOC(BuildTOC(headings))

	require.Len(t, flat, len(headings))
	for i, item := range flat {
		assert.Equal(t, headings[i].Title, item.Title)
		assert.Equal(t, headings[i].Level, item.Level)
		assert.Empty(t, item.Children)
	}
}

func TestTOCDepth(t *testing.T) {
	assert.Equal(t, 0, TOCDepth(nil))
	assert.Equal(t, 1, TOCDepth(BuildTOC([]HeadingOccurrence{h(1, "A"), h(1, "B")})))
	assert.Equal(t, 3, TOCDepth(BuildTOC([]HeadingOccurrence{h(1, "A"), h(2, "B"), h(6, "C"), h(1, "D")})))
}
