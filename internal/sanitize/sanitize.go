// Package sanitize cleans node labels and tags arriving from import files
// before they reach the store. Labels are echoed back to agents through the
// MCP tools, so markup that could steer a prompt is stripped.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxLabelLength is the maximum allowed length for a node label, in runes.
const MaxLabelLength = 200

// MaxTagLength is the maximum allowed length for a tag.
const MaxTagLength = 64

var (
	// reXMLTag matches XML/HTML tags including those with attributes and self-closing tags.
	// It also matches XML processing instructions like <?xml ...?>.
	reXMLTag = regexp.MustCompile(`<[/?!]?[a-zA-Z][a-zA-Z0-9]*(?:\s+[^>]*)?/?>|<\?[^?]*\?>`)

	// reWhitespace matches runs of whitespace.
	reWhitespace = regexp.MustCompile(`\s+`)

	// reRepeatedHyphens matches 2 or more consecutive hyphens.
	reRepeatedHyphens = regexp.MustCompile(`-{2,}`)
)

// Label sanitizes a node label. The pipeline runs in this order:
//  1. Strip ASCII control characters
//  2. Strip XML/HTML tags
//  3. Collapse whitespace runs to one space
//  4. Trim leading/trailing whitespace
//  5. Truncate to MaxLabelLength runes
func Label(input string) string {
	if input == "" {
		return ""
	}

	s := stripControlChars(input)
	s = reXMLTag.ReplaceAllString(s, "")
	s = reWhitespace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if r := []rune(s); len(r) > MaxLabelLength {
		s = string(r[:MaxLabelLength])
	}
	return s
}

// Tag sanitizes a tag, keeping only [a-zA-Z0-9-_], collapsing repeated
// hyphens and enforcing MaxTagLength. Tags are matched exactly by the
// engine, so case is preserved.
func Tag(input string) string {
	if input == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(input))
	for _, r := range input {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '-' || r == '_' {
			b.WriteRune(r)
		}
	}
	s := reRepeatedHyphens.ReplaceAllString(b.String(), "-")

	if len(s) > MaxTagLength {
		s = s[:MaxTagLength]
	}
	return s
}

// Tags sanitizes each tag and drops those that end up empty.
func Tags(input []string) []string {
	if len(input) == 0 {
		return input
	}
	out := make([]string, 0, len(input))
	for _, t := range input {
		if clean := Tag(t); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}

// stripControlChars removes ASCII control characters (0x00-0x1F, 0x7F).
// Tabs and line breaks become spaces so the words they separate stay apart.
func stripControlChars(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '\t' || r == '\n' || r == '\r':
			r = ' '
		case r < 0x20 || r == 0x7f:
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
