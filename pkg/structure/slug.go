package structure

import (
	"regexp"
	"strings"
)

var (
	nonSlugChars = regexp.MustCompile(`[^a-z0-9\s\p{Zs}-]`)
	whitespaceRe = regexp.MustCompile(`[\s\p{Zs}]+`)
	hyphenRunRe  = regexp.MustCompile(`-+`)
)

// GenerateID converts heading text into a URL-safe identifier.
//
// The text is lower-cased, everything except ASCII letters, digits, whitespace and
// hyphens is dropped (whitespace includes Unicode space separators such as NBSP), whitespace runs become a single hyphen, hyphen runs collapse,
// and leading/trailing hyphens are trimmed. Identical titles always map to the same
// id; no de-duplication is done, so two headings with the same title share an id.
func GenerateID(text string) string {
	id := strings.ToLower(text)
	id = nonSlugChars.ReplaceAllString(id, "")
	id = whitespaceRe.ReplaceAllString(id, "-")
	id = hyphenRunRe.ReplaceAllString(id, "-")
	return strings.Trim(id, "-")
}
