package ingest

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Framework is a documentation site generator recognised by its markup
type Framework string

const (
	FrameworkUnknown     Framework = "unknown"
	FrameworkDocusaurus  Framework = "docusaurus"
	FrameworkMkDocs      Framework = "mkdocs"
	FrameworkSphinx      Framework = "sphinx"
	FrameworkGitBook     Framework = "gitbook"
	FrameworkReadTheDocs Framework = "readthedocs"
)

// genericSelectors are tried in order when no framework is recognised
var genericSelectors = []string{"main article", "article", "main", "[role='main']", "body"}

type frameworkSignature struct {
	framework    Framework
	selector     string   // CSS selector for main content
	attributes   []string // Attribute presence, e.g. "data-docusaurus"
	classes      []string // Class presence; a trailing '*' matches by prefix
	htmlPatterns []string // Case-insensitive substrings of the raw HTML
}

// Order matters: ReadTheDocs pages are usually Sphinx too.
var frameworkSignatures = []frameworkSignature{
	{
		framework:    FrameworkDocusaurus,
		selector:     "article[class*='theme-doc'], .theme-doc-markdown, article.markdown, main article",
		attributes:   []string{"data-docusaurus", "data-docusaurus-root-container"},
		classes:      []string{"docusaurus-wrapper", "theme-doc-markdown"},
		htmlPatterns: []string{"__docusaurus"},
	},
	{
		framework:    FrameworkMkDocs,
		selector:     "article.md-content__inner, .md-content article, .md-content",
		attributes:   []string{"data-md-component", "data-md-color-scheme"},
		classes:      []string{"md-content", "md-main"},
		htmlPatterns: []string{"material for mkdocs"},
	},
	{
		framework:    FrameworkReadTheDocs,
		selector:     ".rst-content, div[role='main'], .document",
		classes:      []string{"rst-content", "wy-nav-content"},
		htmlPatterns: []string{"readthedocs.org", "readthedocs.io", "sphinx-rtd-theme"},
	},
	{
		framework:    FrameworkSphinx,
		selector:     "div.body, article.bd-article, div.document, main.bd-main",
		classes:      []string{"sphinxsidebar", "sphinx-tabs"},
		htmlPatterns: []string{"created using sphinx", "_static/alabaster", "_static/pygments"},
	},
	{
		framework:    FrameworkGitBook,
		selector:     "section.normal.markdown-section, .page-inner section, main[class*='gitbook']",
		classes:      []string{"gitbook*", "markdown-section"},
		htmlPatterns: []string{"gb-page"},
	},
}

func (sig *frameworkSignature) matches(doc *goquery.Document, htmlLower string) bool {
	for _, attr := range sig.attributes {
		if doc.Find("["+attr+"]").Length() > 0 {
			return true
		}
	}
	for _, class := range sig.classes {
		if prefix, ok := strings.CutSuffix(class, "*"); ok {
			if hasClassPrefix(doc, prefix) {
				return true
			}
		} else if doc.Find("."+class).Length() > 0 {
			return true
		}
	}
	for _, pattern := range sig.htmlPatterns {
		if strings.Contains(htmlLower, pattern) {
			return true
		}
	}
	return false
}

func hasClassPrefix(doc *goquery.Document, prefix string) bool {
	found := false
	doc.Find("[class]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		for _, c := range strings.Fields(s.AttrOr("class", "")) {
			if strings.HasPrefix(c, prefix) {
				found = true
				return false
			}
		}
		return true
	})
	return found
}

// DetectFramework identifies the site generator of a page and its content selector.
func DetectFramework(doc *goquery.Document) (Framework, string) {
	html, _ := doc.Html()
	htmlLower := strings.ToLower(html)
	for i := range frameworkSignatures {
		sig := &frameworkSignatures[i]
		if sig.matches(doc, htmlLower) {
			return sig.framework, sig.selector
		}
	}
	return FrameworkUnknown, ""
}

// IsAutoSelector returns true if the selector value asks for auto-detection
func IsAutoSelector(selector string) bool {
	return selector == "" || strings.EqualFold(selector, "auto")
}

// autoSelect picks the main content of a page without a configured selector
func autoSelect(doc *goquery.Document) (*goquery.Selection, Framework) {
	framework, selector := DetectFramework(doc)
	if selector != "" {
		if sel := doc.Find(selector); sel.Length() > 0 {
			return sel.First(), framework
		}
	}
	for _, generic := range genericSelectors {
		if sel := doc.Find(generic); sel.Length() > 0 {
			return sel.First(), framework
		}
	}
	return doc.Selection, framework
}
