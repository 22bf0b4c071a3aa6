package core

import "context"

// PageRecord is one crawled page after URL normalization and text cleaning.
type PageRecord struct {
	URL      string
	Title    string
	Content  string
	Links    []string
	Metadata PageMetadata
}

// PageMetadata carries the crawl provider's per-page metadata verbatim.
type PageMetadata struct {
	Title         string `json:"title,omitempty"`
	OgTitle       string `json:"ogTitle,omitempty"`
	OgDescription string `json:"ogDescription,omitempty"`
	Description   string `json:"description,omitempty"`
	Keywords      string `json:"keywords,omitempty"`
	SourceURL     string `json:"sourceURL,omitempty"`
	Language      string `json:"language,omitempty"`
	StatusCode    int    `json:"statusCode,omitempty"`
}

// Crawler discovers and fetches pages under a base URL. Implementations
// deduplicate by normalized URL and drop pages with empty cleaned content;
// a provider outage surfaces as ErrCrawlProviderUnavailable.
type Crawler interface {
	Crawl(ctx context.Context, baseURL string, maxDepth, maxPages int) ([]PageRecord, error)
}
