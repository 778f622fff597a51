package ingest

import (
	"fmt"
	"io"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"

	"github.com/Sriram-PR/specdoc/pkg/utils"
)

// Page is an HTML page converted to Markdown
type Page struct {
	Title     string
	Markdown  string
	Framework Framework // Detected generator when the selector was automatic
}

// HTMLToMarkdown extracts the main content of an HTML page and converts it to Markdown.
// selector is a CSS selector; "" or "auto" detects the content area.
func HTMLToMarkdown(r io.Reader, selector string) (*Page, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: HTML: %w", utils.ErrParsing, err)
	}

	page := &Page{
		Title:     strings.TrimSpace(doc.Find("title").First().Text()),
		Framework: FrameworkUnknown,
	}

	var content *goquery.Selection
	if IsAutoSelector(selector) {
		content, page.Framework = autoSelect(doc)
	} else {
		found := doc.Find(selector)
		if found.Length() == 0 {
			return nil, fmt.Errorf("%w: selector '%s' not found", utils.ErrContentSelector, selector)
		}
		content = found.First()
	}
	content = content.Clone()
	cleanupHTML(content)

	fragment, err := goquery.OuterHtml(content)
	if err != nil {
		return nil, fmt.Errorf("%w: serializing content: %w", utils.ErrMarkdownConversion, err)
	}

	converter := md.NewConverter("", true, nil)
	markdown, err := converter.ConvertString(fragment)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrMarkdownConversion, err)
	}
	page.Markdown = strings.TrimSpace(markdown) + "\n"

	if page.Title == "" {
		page.Title = strings.TrimSpace(content.Find("h1").First().Text())
	}
	return page, nil
}

// cleanupHTML removes navigation noise that would otherwise end up in headings
// (Sphinx headerlinks, permalink anchors, edit links, scripts).
func cleanupHTML(content *goquery.Selection) {
	content.Find("script, style, noscript, nav, footer").Remove()
	content.Find("a.headerlink, a.permalink, a.edit-on-github, a.hash-link").Remove()
	content.Find("a[title='Permalink to this heading'], a[title='Link to this heading']").Remove()

	content.Find("a").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		href, _ := s.Attr("href")
		if text == "¶" || text == "#" || (text == "" && strings.HasPrefix(href, "#")) {
			s.Remove()
		}
	})
}
