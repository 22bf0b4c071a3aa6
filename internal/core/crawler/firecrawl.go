package crawler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/quillbase/ingesta/internal/core"
	"github.com/quillbase/ingesta/internal/core/normalizer"
)

var _ core.Crawler = (*FirecrawlClient)(nil)

// FirecrawlClient crawls a site through a Firecrawl-compatible provider API.
// Page discovery, depth tracking and main-content extraction all happen on the
// provider side; this client enforces the budgets, normalizes URLs and drops
// unusable pages.
type FirecrawlClient struct {
	apiURL string
	apiKey string
	client *http.Client
}

func NewFirecrawlClient(apiURL, apiKey string) *FirecrawlClient {
	return &FirecrawlClient{
		apiURL: apiURL,
		apiKey: apiKey,
		client: &http.Client{
			Timeout: 5 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConns:          10,
				IdleConnTimeout:       90 * time.Second,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: 2 * time.Minute,
			},
		},
	}
}

type crawlRequest struct {
	URL           string        `json:"url"`
	Limit         int           `json:"limit"`
	MaxDepth      int           `json:"maxDepth,omitempty"`
	ScrapeOptions scrapeOptions `json:"scrapeOptions"`
}

type scrapeOptions struct {
	Formats         []string `json:"formats"`
	OnlyMainContent bool     `json:"onlyMainContent"`
}

type crawlResponse struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    []crawlPage `json:"data"`
}

type crawlPage struct {
	URL      string            `json:"url,omitempty"`
	Markdown string            `json:"markdown,omitempty"`
	Content  string            `json:"content,omitempty"`
	Metadata core.PageMetadata `json:"metadata"`
}

// Crawl fetches up to maxPages pages under baseURL (site-wide cap, not
// per-depth). Pages that failed to fetch or cleaned to empty text are excluded
// without aborting the crawl; zero remaining pages is the caller's soft-failure
// signal, not an error from here unless the provider itself was unreachable.
func (f *FirecrawlClient) Crawl(ctx context.Context, baseURL string, maxDepth, maxPages int) ([]core.PageRecord, error) {
	reqBody := crawlRequest{
		URL:      baseURL,
		Limit:    maxPages,
		MaxDepth: maxDepth,
		ScrapeOptions: scrapeOptions{
			Formats:         []string{"markdown"},
			OnlyMainContent: true,
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal crawl request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.apiURL+"/crawl", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create crawl request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if f.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrCrawlProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("%w: HTTP %d: %s", core.ErrCrawlProviderUnavailable, resp.StatusCode, bytes.TrimSpace(body))
	}

	var cr crawlResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", core.ErrCrawlProviderUnavailable, err)
	}
	if !cr.Success && len(cr.Data) == 0 {
		return nil, fmt.Errorf("%w: %s", core.ErrCrawlProviderUnavailable, cr.Error)
	}
	// No payload at all is a hard failure for this invocation.
	if cr.Data == nil {
		return nil, fmt.Errorf("%w: empty response payload", core.ErrCrawlProviderUnavailable)
	}

	return collectPages(baseURL, cr.Data, maxPages), nil
}

// collectPages normalizes, cleans and deduplicates the provider's result set,
// keeping the first occurrence per canonical URL.
func collectPages(baseURL string, data []crawlPage, maxPages int) []core.PageRecord {
	seen := make(map[string]bool, len(data))
	var pages []core.PageRecord

	for _, p := range data {
		rawURL := p.Metadata.SourceURL
		if rawURL == "" {
			rawURL = p.URL
		}
		if rawURL == "" {
			rawURL = baseURL
		}
		canonical := NormalizeURL(rawURL)

		if seen[canonical] {
			continue
		}

		raw := p.Markdown
		if raw == "" {
			raw = p.Content
		}
		content := normalizer.CleanText(raw)
		if content == "" {
			log.Printf("crawler: skipping %s: empty content after cleaning", canonical)
			continue
		}

		title := p.Metadata.Title
		if title == "" {
			title = p.Metadata.OgTitle
		}

		seen[canonical] = true
		pages = append(pages, core.PageRecord{
			URL:      canonical,
			Title:    title,
			Content:  content,
			Links:    ExtractLinks(raw),
			Metadata: p.Metadata,
		})

		if len(pages) >= maxPages {
			break
		}
	}

	return pages
}
