package crawler

import (
	"regexp"
	"strings"
)

// markdownLinkRe matches [text](target) links in markdown content.
var markdownLinkRe = regexp.MustCompile(`\[[^\]]*\]\(([^)\s]+)\)`)

// ExtractLinks pulls outbound http(s) links from markdown-formatted content.
// Advisory only: the result feeds provider hints and diagnostics, it never
// gates crawl success.
func ExtractLinks(markdown string) []string {
	matches := markdownLinkRe.FindAllStringSubmatch(markdown, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	var links []string
	for _, m := range matches {
		link := NormalizeURL(m[1])
		if !strings.HasPrefix(link, "http://") && !strings.HasPrefix(link, "https://") {
			continue
		}
		if seen[link] {
			continue
		}
		seen[link] = true
		links = append(links, link)
	}
	return links
}
