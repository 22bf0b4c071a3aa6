package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quillbase/ingesta/internal/core"
	"github.com/quillbase/ingesta/internal/core/chunker"
	"github.com/quillbase/ingesta/internal/models"
)

var _ Ingestor = (*SourceIngestor)(nil)

// NewSourceIngestor constructs the ingestor with a bounded job queue (64).
func NewSourceIngestor(
	db core.DbClient,
	obj core.ObjectClient,
	crawl core.Crawler,
	norm core.Normalizer,
	emb core.EmbeddingProvider,
	splitter *chunker.Chunker,
	cfg *IngestConfig,
) *SourceIngestor {
	if cfg.LeaseTTL <= 0 {
		cfg.LeaseTTL = 15 * time.Minute
	}
	return &SourceIngestor{
		db: db, obj: obj, crawler: crawl, normalizer: norm,
		embedder: emb, splitter: splitter, cfg: cfg,
		holder: uuid.NewString(),
		jobs:   make(chan string, 64),
	}
}

// Start runs numWorkers goroutines reading from the jobs channel. Sources run
// concurrently across workers; the per-source lease keeps any single source
// from being ingested twice at once.
func (i *SourceIngestor) Start(ctx context.Context, numWorkers int) {
	for w := 1; w <= numWorkers; w++ {
		go func(w int) {
			for {
				select {
				case <-ctx.Done():
					log.Printf("ingest: worker %d shutting down", w)
					return
				case sourceID := <-i.jobs:
					log.Printf("ingest: worker %d processing source %s", w, sourceID)
					if _, err := i.ProcessOne(ctx, sourceID); err != nil {
						log.Printf("ingest: source %s: %v", sourceID, err)
					}
				}
			}
		}(w)
	}
}

// Enqueue schedules a source ID for ingestion.
// If the queue is full, this call will block until space frees up.
func (i *SourceIngestor) Enqueue(sourceID string) {
	i.jobs <- sourceID
}

// ProcessOne runs a full ingestion pass for one source: fetch fresh content,
// persist the new generation, then delete the superseded one. On zero usable
// content or a provider outage nothing is deleted and the existing corpus
// stays live.
func (i *SourceIngestor) ProcessOne(ctx context.Context, sourceID string) (*Stats, error) {
	return i.process(ctx, sourceID, "")
}

// ProcessWebsite runs the same pass but crawls from the given base URL.
func (i *SourceIngestor) ProcessWebsite(ctx context.Context, sourceID, baseURL string) (*Stats, error) {
	return i.process(ctx, sourceID, baseURL)
}

func (i *SourceIngestor) process(ctx context.Context, sourceID, baseOverride string) (*Stats, error) {
	src, err := i.db.GetSourceByID(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("load source %s: %w", sourceID, err)
	}

	if err := i.db.AcquireIngestLease(ctx, sourceID, i.holder, i.cfg.LeaseTTL); err != nil {
		return nil, fmt.Errorf("source %s: %w", sourceID, err)
	}
	defer func() {
		if err := i.db.ReleaseIngestLease(context.WithoutCancel(ctx), sourceID, i.holder); err != nil {
			log.Printf("ingest: release lease for %s: %v", sourceID, err)
		}
	}()

	_ = i.db.UpdateSourceStatus(ctx, sourceID, "processing")

	// Watermark for the replace: rows inserted from here on belong to the new
	// generation, anything older is superseded once the pass succeeds.
	startedAt := time.Now().UTC()

	// Fetch happens before any destructive write: a provider outage or an
	// unreadable document leaves the existing corpus untouched.
	pages, err := i.fetch(ctx, src, baseOverride)
	if err != nil {
		_ = i.db.UpdateSourceStatus(ctx, sourceID, "failed")
		return nil, err
	}
	if len(pages) == 0 {
		// Distinct from an outage: the source genuinely had nothing usable.
		_ = i.db.UpdateSourceStatus(ctx, sourceID, "no_content")
		return nil, fmt.Errorf("source %s: %w", sourceID, core.ErrNoContent)
	}

	stats := &Stats{PagesCrawled: len(pages)}
	for _, page := range pages {
		if err := i.persistPage(ctx, src, page, startedAt, stats); err != nil {
			_ = i.db.UpdateSourceStatus(ctx, sourceID, "failed")
			return nil, err
		}
	}

	// New content is confirmed on disk; only now drop the old generation.
	if err := i.db.DeleteContentRecordsBefore(ctx, sourceID, startedAt); err != nil {
		_ = i.db.UpdateSourceStatus(ctx, sourceID, "failed")
		return nil, fmt.Errorf("delete superseded content for %s: %w", sourceID, err)
	}

	if err := i.db.UpdateSourceStatus(ctx, sourceID, "ready"); err != nil {
		return nil, err
	}
	return stats, nil
}

// fetch produces the new generation's pages for either origin type.
func (i *SourceIngestor) fetch(ctx context.Context, src *models.Source, baseOverride string) ([]core.PageRecord, error) {
	switch src.OriginType {
	case "website":
		base := src.BaseURL
		if baseOverride != "" {
			base = baseOverride
		}
		return i.crawler.Crawl(ctx, base, i.cfg.MaxDepth, i.cfg.MaxPages)

	case "document":
		bucket, key := ParseS3URL(src.BaseURL)
		raw, err := i.obj.GetFile(ctx, bucket, key)
		if err != nil {
			return nil, fmt.Errorf("fetch document %s: %w", src.ID, err)
		}
		doc, err := i.normalizer.Normalize(raw, src.Name)
		if err != nil {
			// Unsupported or corrupt: fatal to this document, not the batch.
			return nil, fmt.Errorf("normalize %s: %w", src.Name, err)
		}
		if doc.Content == "" {
			return nil, nil
		}
		return []core.PageRecord{{
			URL:     doc.Metadata.Filename,
			Title:   doc.Metadata.Filename,
			Content: doc.Content,
		}}, nil

	default:
		return nil, fmt.Errorf("source %s: unknown origin type %q", src.ID, src.OriginType)
	}
}

// persistPage writes one page's record, embeds its chunks one at a time, and
// stamps chunked_at. An embedding failure skips that chunk only; the page
// still succeeds with its surviving siblings.
func (i *SourceIngestor) persistPage(ctx context.Context, src *models.Source, page core.PageRecord, createdAt time.Time, stats *Stats) error {
	rec := &models.ContentRecord{
		ID:           uuid.NewString(),
		SourceID:     src.ID,
		CanonicalURL: page.URL,
		Title:        page.Title,
		Content:      page.Content,
		CreatedAt:    createdAt,
	}
	if err := i.db.InsertContentRecord(ctx, rec); err != nil {
		return fmt.Errorf("insert content record %s: %w", page.URL, err)
	}

	pieces := i.splitter.Split(page.URL, page.Content)

	// Embed each chunk outside any transaction, then write the survivors in
	// one batch.
	var rows []models.Chunk
	for _, piece := range pieces {
		vec, err := i.embedder.EmbedText(ctx, piece.Text)
		if err != nil {
			embErr := &core.EmbeddingError{ChunkIndex: piece.Metadata.ChunkIndex, Err: err}
			log.Printf("ingest: source %s url %s: %v (skipping chunk)", src.ID, page.URL, embErr)
			stats.ChunksSkipped++
			continue
		}
		rows = append(rows, models.Chunk{
			ID:          uuid.NewString(),
			ContentID:   rec.ID,
			Position:    piece.Metadata.ChunkIndex,
			TotalChunks: piece.Metadata.TotalChunks,
			Text:        piece.Text,
			WordCount:   piece.Metadata.WordCount,
			Embedding:   vec,
			EmbeddedAt:  time.Now().UTC(),
			CreatedAt:   createdAt,
		})
	}

	if err := i.db.InsertChunks(ctx, rows); err != nil {
		return fmt.Errorf("insert chunks for %s: %w", page.URL, err)
	}
	stats.ChunksProcessed += len(rows)

	if err := i.db.StampChunkedAt(ctx, rec.ID); err != nil {
		return fmt.Errorf("stamp chunked_at for %s: %w", page.URL, err)
	}
	return nil
}

// ParseS3URL extracts the bucket and key from a typical virtual-hosted-style
// S3 URL, e.g. https://my-bucket.s3.us-east-2.amazonaws.com/path/to/file.pdf.
// Document sources store this URL as their base_url, so both the fetch and the
// delete path recover bucket/key from it.
func ParseS3URL(u string) (bucket, key string) {
	hostPath := strings.SplitN(strings.TrimPrefix(u, "https://"), "/", 2)
	host := hostPath[0]
	if len(hostPath) == 2 {
		key = hostPath[1]
	}
	parts := strings.Split(host, ".")
	if len(parts) > 0 {
		bucket = parts[0]
	}
	return bucket, key
}
