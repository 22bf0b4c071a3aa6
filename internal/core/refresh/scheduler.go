// Package refresh re-runs ingestion for every indexed website source on a
// schedule, replacing each source's corpus when the live site changed.
package refresh

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/quillbase/ingesta/internal/core"
	"github.com/quillbase/ingesta/internal/core/crawler"
	"github.com/quillbase/ingesta/internal/core/ingest"
	"github.com/quillbase/ingesta/internal/models"
)

// maxParallel bounds how many sources refresh concurrently. The per-source
// lease already serializes any single source.
const maxParallel = 3

type Scheduler struct {
	db       core.DbClient
	ingestor ingest.Ingestor
	cron     *cron.Cron

	mu      sync.Mutex
	running bool
}

func NewScheduler(db core.DbClient, ing ingest.Ingestor) *Scheduler {
	return &Scheduler{db: db, ingestor: ing, cron: cron.New()}
}

// Start registers the cron schedule and begins running it.
func (s *Scheduler) Start(ctx context.Context, schedule string) error {
	_, err := s.cron.AddFunc(schedule, func() {
		results, err := s.RefreshAll(ctx)
		if err != nil {
			log.Printf("refresh: run aborted: %v", err)
			return
		}
		ok := 0
		for _, r := range results {
			if r.Success {
				ok++
			}
		}
		log.Printf("refresh: re-crawled %d sources (%d ok)", len(results), ok)
	})
	if err != nil {
		return fmt.Errorf("invalid refresh schedule %q: %w", schedule, err)
	}
	s.cron.Start()
	return nil
}

func (s *Scheduler) Stop() {
	s.cron.Stop()
}

// RefreshAll re-ingests every website source and returns one result per
// source. A failure on one source is recorded and never stops the run; only
// the inability to list sources at all aborts. Overlapping runs are refused.
func (s *Scheduler) RefreshAll(ctx context.Context) ([]models.RefreshResult, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil, fmt.Errorf("refresh run already in progress")
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	sources, err := s.db.ListWebsiteSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list website sources: %w", err)
	}

	results := make([]models.RefreshResult, len(sources))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallel)
	for idx, src := range sources {
		g.Go(func() error {
			results[idx] = s.refreshOne(gctx, src)
			// Per-source failures live in the result list, never in the
			// group error, so every remaining source still gets its attempt.
			return nil
		})
	}
	_ = g.Wait()

	return results, nil
}

func (s *Scheduler) refreshOne(ctx context.Context, src models.Source) models.RefreshResult {
	res := models.RefreshResult{
		SourceID:   src.ID,
		SourceName: src.Name,
	}

	// Refresh runs unattended, so the crawl base comes from what was actually
	// ingested (the first record's origin), not from stored user input.
	baseURL, err := s.deriveBaseURL(ctx, src)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Domain = crawler.Domain(baseURL)

	stats, err := s.ingestor.ProcessWebsite(ctx, src.ID, baseURL)
	if err != nil {
		log.Printf("refresh: source %s (%s): %v", src.ID, res.Domain, err)
		res.Error = err.Error()
		return res
	}

	res.Success = true
	res.PagesCrawled = stats.PagesCrawled
	res.ChunksProcessed = stats.ChunksProcessed
	return res
}

// deriveBaseURL reconstructs the crawl origin from the source's first content
// record, falling back to the stored base URL for sources that have never
// completed an ingestion.
func (s *Scheduler) deriveBaseURL(ctx context.Context, src models.Source) (string, error) {
	records, err := s.db.ListContentRecordsBySource(ctx, src.ID)
	if err != nil {
		return "", fmt.Errorf("list content records: %w", err)
	}
	if len(records) == 0 {
		if src.BaseURL == "" {
			return "", fmt.Errorf("source %s has no content records and no base URL", src.ID)
		}
		return src.BaseURL, nil
	}
	return originOf(records[0].CanonicalURL), nil
}

// originOf reduces a page URL to its scheme://host origin.
func originOf(u string) string {
	scheme := ""
	rest := u
	if i := strings.Index(u, "://"); i >= 0 {
		scheme = u[:i+3]
		rest = u[i+3:]
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	return scheme + rest
}
