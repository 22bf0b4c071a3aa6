package crawler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillbase/ingesta/internal/core"
)

func TestNormalizeURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips fragment", "https://a.com/docs#intro", "https://a.com/docs"},
		{"strips trailing slash", "https://a.com/docs/", "https://a.com/docs"},
		{"fragment and slash", "https://a.com/docs/#intro", "https://a.com/docs"},
		{"bare origin slash", "https://a.com/", "https://a.com"},
		{"bare origin", "https://a.com", "https://a.com"},
		{"untouched", "https://a.com/docs?page=2", "https://a.com/docs?page=2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeURL(tt.in))
		})
	}
}

func TestNormalizeURLCollapsesPairs(t *testing.T) {
	pairs := [][2]string{
		{"https://a.com/docs", "https://a.com/docs/"},
		{"https://a.com/docs", "https://a.com/docs#section-3"},
		{"https://a.com", "https://a.com/"},
	}
	for _, p := range pairs {
		assert.Equal(t, NormalizeURL(p[0]), NormalizeURL(p[1]), "%q vs %q", p[0], p[1])
	}
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "a.com", Domain("https://a.com/docs/page"))
	assert.Equal(t, "sub.a.com", Domain("http://sub.a.com"))
	assert.Equal(t, "a.com", Domain("https://a.com/?q=1"))
}

func TestExtractLinks(t *testing.T) {
	md := "See [docs](https://a.com/docs/) and [api](https://a.com/api#auth).\n" +
		"Relative [here](/local) and repeat [again](https://a.com/docs)."

	links := ExtractLinks(md)
	// Normalized, http(s) only, first occurrence wins.
	assert.Equal(t, []string{"https://a.com/docs", "https://a.com/api"}, links)
}

func TestExtractLinksNone(t *testing.T) {
	assert.Nil(t, ExtractLinks("no links in this text"))
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *FirecrawlClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewFirecrawlClient(srv.URL, "test-key")
}

func TestCrawlDropsEmptyAndDuplicatePages(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/crawl", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req crawlRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, []string{"markdown"}, req.ScrapeOptions.Formats)
		assert.True(t, req.ScrapeOptions.OnlyMainContent)

		json.NewEncoder(w).Encode(crawlResponse{
			Success: true,
			Data: []crawlPage{
				{Markdown: "# Home\nWelcome", Metadata: core.PageMetadata{SourceURL: "https://a.com/", Title: "Home"}},
				{Markdown: "   \n\n  ", Metadata: core.PageMetadata{SourceURL: "https://a.com/empty"}},
				{Markdown: "About us", Metadata: core.PageMetadata{SourceURL: "https://a.com/about#team", Title: "About"}},
				{Markdown: "dup of about", Metadata: core.PageMetadata{SourceURL: "https://a.com/about/"}},
			},
		})
	})

	pages, err := client.Crawl(context.Background(), "https://a.com", 2, 10)
	require.NoError(t, err)

	// One empty page dropped, one duplicate collapsed: 2 remain.
	require.Len(t, pages, 2)
	assert.Equal(t, "https://a.com", pages[0].URL)
	assert.Equal(t, "Home", pages[0].Title)
	assert.Equal(t, "https://a.com/about", pages[1].URL)
	assert.Equal(t, "About us", pages[1].Content)
}

func TestCrawlRespectsPageBudget(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		data := make([]crawlPage, 5)
		for i := range data {
			data[i] = crawlPage{
				Markdown: "content",
				Metadata: core.PageMetadata{SourceURL: "https://a.com/p" + string(rune('0'+i))},
			}
		}
		json.NewEncoder(w).Encode(crawlResponse{Success: true, Data: data})
	})

	pages, err := client.Crawl(context.Background(), "https://a.com", 2, 3)
	require.NoError(t, err)
	assert.Len(t, pages, 3)
}

func TestCrawlProviderErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			"http 500",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			"malformed payload",
			func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
		{
			"missing data",
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"success": true})
			},
		},
		{
			"provider reported failure",
			func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(crawlResponse{Success: false, Error: "quota exceeded"})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler)
			_, err := client.Crawl(context.Background(), "https://a.com", 2, 10)
			assert.ErrorIs(t, err, core.ErrCrawlProviderUnavailable)
		})
	}
}
