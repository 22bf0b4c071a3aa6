package crawler

import (
	"strings"
)

// NormalizeURL produces the canonical deduplication key for a page URL:
// the fragment is dropped and a single trailing slash is stripped, so
// "https://a.com/docs/", "https://a.com/docs#intro" and "https://a.com/docs"
// all collapse to the same record. Must run before persistence, not just at
// crawl time.
func NormalizeURL(raw string) string {
	u := strings.TrimSpace(raw)

	if i := strings.Index(u, "#"); i >= 0 {
		u = u[:i]
	}

	// Strip one trailing slash, but never mangle the scheme separator.
	if strings.HasSuffix(u, "/") && !strings.HasSuffix(u, "://") {
		u = strings.TrimSuffix(u, "/")
	}

	return u
}

// Domain extracts the bare host from a URL for display in refresh summaries.
func Domain(raw string) string {
	u := NormalizeURL(raw)
	if i := strings.Index(u, "://"); i >= 0 {
		u = u[i+3:]
	}
	if i := strings.IndexAny(u, "/?"); i >= 0 {
		u = u[:i]
	}
	return u
}
