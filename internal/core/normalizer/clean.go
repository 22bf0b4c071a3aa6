package normalizer

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	spaceRunRe   = regexp.MustCompile(`[ \t]+`)
	blankLinesRe = regexp.MustCompile(`\n{3,}`)
)

// CleanText is the mandatory cleaning step shared by every normalization path:
// non-printable characters are stripped, runs of spaces/tabs collapse to one
// space, and runs of blank lines collapse to a single blank line. Paragraph
// breaks (double newlines) survive so the chunker can split on them.
// Idempotent: CleanText(CleanText(s)) == CleanText(s).
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r == '\n' || r == '\t' || unicode.IsPrint(r) {
			b.WriteRune(r)
		}
	}
	s = b.String()

	s = spaceRunRe.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	for i := range lines {
		lines[i] = strings.TrimSpace(lines[i])
	}
	s = strings.Join(lines, "\n")

	s = blankLinesRe.ReplaceAllString(s, "\n\n")

	return strings.TrimSpace(s)
}

// WordCount counts whitespace-separated words.
func WordCount(s string) int {
	return len(strings.Fields(s))
}

// EstimatePages approximates a page count from text length (~2000 chars per
// page). Display heuristic only, never used for correctness.
func EstimatePages(content string) int {
	n := len(content)
	if n == 0 {
		return 0
	}
	return (n + 1999) / 2000
}
