package loader

import (
	"regexp"
	"strings"
)

var (
	hyphenBreakRe = regexp.MustCompile(`([\p{L}\p{N}_])-\s*\n\s*([\p{L}\p{N}_])`)
	horizontalRe  = regexp.MustCompile(`[ \t]+`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
)

// Normalize cleans raw extracted text before chunking.
// It rejoins words split by a hyphenated line break, collapses runs of
// spaces and tabs, reduces three or more newlines to a paragraph break and
// trims the result.
func Normalize(raw string) string {
	text := raw
	// Matches never overlap, so repeat until chains like "a-\nb-\nc" are joined.
	for {
		joined := hyphenBreakRe.ReplaceAllString(text, "${1}${2}")
		if joined == text {
			break
		}
		text = joined
	}
	text = horizontalRe.ReplaceAllString(text, " ")
	text = blankRunRe.ReplaceAllString(text, ParagraphSeparator)
	return strings.TrimSpace(text)
}
