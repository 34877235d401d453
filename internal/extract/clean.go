package extract

import "strings"

var blankReplacer = strings.NewReplacer(
	"\r\n", " ",
	"\r", " ",
	"\n", " ",
	"\u00a0", " ",
	"&nbsp;", " ",
	"&#160;", " ",
)

// CleanSentence normalizes whitespace in an extracted sentence.
// Line breaks and non-breaking spaces (raw or as HTML entities) become
// spaces, runs of spaces collapse to one, and the result is trimmed.
// CleanSentence(CleanSentence(s)) == CleanSentence(s).
func CleanSentence(s string) string {
	s = strings.TrimSpace(s)
	s = blankReplacer.Replace(s)
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.TrimSpace(s)
}
