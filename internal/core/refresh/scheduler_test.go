package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillbase/ingesta/internal/core"
	"github.com/quillbase/ingesta/internal/core/ingest"
	"github.com/quillbase/ingesta/internal/models"
)

// stubDB serves the two queries the scheduler makes; everything else on the
// interface is unused here.
type stubDB struct {
	core.DbClient

	sources   []models.Source
	recordsBy map[string][]models.ContentRecord
	listErr   error
}

func (s *stubDB) ListWebsiteSources(context.Context) ([]models.Source, error) {
	return s.sources, s.listErr
}

func (s *stubDB) ListContentRecordsBySource(_ context.Context, sourceID string) ([]models.ContentRecord, error) {
	return s.recordsBy[sourceID], nil
}

// stubIngestor records which (sourceID, baseURL) pairs were refreshed and
// fails the sources it is told to fail.
type stubIngestor struct {
	mu      sync.Mutex
	calls   map[string]string
	failOn  map[string]error
	stats   ingest.Stats
	started chan struct{}
	release chan struct{}
}

var _ ingest.Ingestor = (*stubIngestor)(nil)

func newStubIngestor() *stubIngestor {
	return &stubIngestor{
		calls:  make(map[string]string),
		failOn: make(map[string]error),
		stats:  ingest.Stats{PagesCrawled: 7, ChunksProcessed: 21},
	}
}

func (s *stubIngestor) Start(context.Context, int) {}
func (s *stubIngestor) Enqueue(string)             {}

func (s *stubIngestor) ProcessOne(ctx context.Context, sourceID string) (*ingest.Stats, error) {
	return s.ProcessWebsite(ctx, sourceID, "")
}

func (s *stubIngestor) ProcessWebsite(_ context.Context, sourceID, baseURL string) (*ingest.Stats, error) {
	if s.started != nil {
		s.started <- struct{}{}
		<-s.release
	}
	s.mu.Lock()
	s.calls[sourceID] = baseURL
	s.mu.Unlock()
	if err := s.failOn[sourceID]; err != nil {
		return nil, err
	}
	st := s.stats
	return &st, nil
}

func websiteSource(id, name, baseURL string) models.Source {
	return models.Source{
		ID: id, OrgID: "org-1", Name: name, OriginType: "website",
		BaseURL: baseURL, Status: "ready", CreatedAt: time.Now(),
	}
}

func TestRefreshAllRecordsPerSourceOutcomes(t *testing.T) {
	db := &stubDB{
		sources: []models.Source{
			websiteSource("a", "alpha docs", "https://a.com"),
			websiteSource("b", "beta docs", "https://b.com"),
			websiteSource("c", "gamma docs", "https://c.com"),
		},
		recordsBy: map[string][]models.ContentRecord{
			"a": {{CanonicalURL: "https://a.com/docs/intro"}},
			"c": {{CanonicalURL: "https://c.com/start"}},
		},
	}
	ing := newStubIngestor()
	ing.failOn["b"] = errors.New("crawl provider unavailable: HTTP 503")

	results, err := NewScheduler(db, ing).RefreshAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	byID := make(map[string]models.RefreshResult, len(results))
	for _, r := range results {
		byID[r.SourceID] = r
	}

	a := byID["a"]
	assert.True(t, a.Success)
	assert.Equal(t, "alpha docs", a.SourceName)
	assert.Equal(t, "a.com", a.Domain)
	assert.Equal(t, 7, a.PagesCrawled)
	assert.Equal(t, 21, a.ChunksProcessed)
	assert.Empty(t, a.Error)

	b := byID["b"]
	assert.False(t, b.Success)
	assert.Contains(t, b.Error, "crawl provider unavailable")
	assert.Zero(t, b.PagesCrawled)

	assert.True(t, byID["c"].Success)

	// The crawl base comes from each source's first record, not stored input.
	assert.Equal(t, "https://a.com", ing.calls["a"])
	assert.Equal(t, "https://c.com", ing.calls["c"])
}

func TestRefreshAllDerivedBaseFallsBackToStoredURL(t *testing.T) {
	db := &stubDB{
		sources:   []models.Source{websiteSource("fresh", "never ingested", "https://fresh.example")},
		recordsBy: map[string][]models.ContentRecord{},
	}
	ing := newStubIngestor()

	results, err := NewScheduler(db, ing).RefreshAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Success)
	assert.Equal(t, "https://fresh.example", ing.calls["fresh"])
}

func TestRefreshAllListFailureAborts(t *testing.T) {
	db := &stubDB{listErr: errors.New("connection refused")}

	_, err := NewScheduler(db, newStubIngestor()).RefreshAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list website sources")
}

func TestRefreshAllRefusesOverlappingRuns(t *testing.T) {
	db := &stubDB{
		sources:   []models.Source{websiteSource("a", "alpha", "https://a.com")},
		recordsBy: map[string][]models.ContentRecord{},
	}
	ing := newStubIngestor()
	ing.started = make(chan struct{})
	ing.release = make(chan struct{})

	sched := NewScheduler(db, ing)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = sched.RefreshAll(context.Background())
	}()

	<-ing.started
	_, err := sched.RefreshAll(context.Background())
	assert.ErrorContains(t, err, "already in progress")

	close(ing.release)
	<-done
}

func TestOriginOf(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://a.com/docs/intro", "https://a.com"},
		{"https://a.com", "https://a.com"},
		{"http://a.com:8080/x?y=1", "http://a.com:8080"},
		{"https://a.com/#frag", "https://a.com"},
		{"a.com/path", "a.com"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, originOf(tt.in), tt.in)
	}
}
