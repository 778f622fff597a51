package render

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/specdoc/pkg/structure"
)

func TestWriteTOCTree(t *testing.T) {
	toc := structure.BuildTOC(structure.ExtractHeadings("# Intro\n## Install\n### Linux\n## Usage\n# FAQ\n"))

	var buf bytes.Buffer
	require.NoError(t, WriteTOCTree(&buf, "guide", toc))

	expected := `guide
├── Intro [#intro]
│   ├── Install [#install]
│   │   └── Linux [#linux]
│   └── Usage [#usage]
└── FAQ [#faq]
`
	assert.Equal(t, expected, buf.String())
}

func TestWriteTOCTree_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTOCTree(&buf, "empty", nil))
	assert.Equal(t, "empty\n(no headings)\n", buf.String())
}

func TestWriteTOCTree_EmptyIDShowsTitleOnly(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTOCTree(&buf, "doc", structure.BuildTOC(structure.ExtractHeadings("# !!!\n"))))
	assert.Equal(t, "doc\n└── !!!\n", buf.String())
}

func TestWriteTOCMarkdown(t *testing.T) {
	toc := structure.BuildTOC(structure.ExtractHeadings("# Intro\n### Deep\n## Usage\n# ???\n"))

	var buf bytes.Buffer
	require.NoError(t, WriteTOCMarkdown(&buf, toc))

	expected := "- [Intro](#intro)\n  - [Deep](#deep)\n  - [Usage](#usage)\n- ???\n"
	assert.Equal(t, expected, buf.String())
}
