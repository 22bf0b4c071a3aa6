package ingest

import (
	"time"

	"github.com/quillbase/ingesta/internal/core"
	"github.com/quillbase/ingesta/internal/core/chunker"
)

// IngestConfig tunes the ingestion pipeline.
//
// MaxPages:  site-wide crawl page budget.
// MaxDepth:  crawl depth budget.
// LeaseTTL:  how long a source's ingestion lease lives before takeover.
type IngestConfig struct {
	MaxPages int
	MaxDepth int
	LeaseTTL time.Duration
}

// Stats summarizes one completed ingestion pass.
type Stats struct {
	PagesCrawled    int
	ChunksProcessed int
	ChunksSkipped   int
}

// SourceIngestor drives one source through crawl/normalize -> chunk -> embed
// -> persist, with replace-not-merge semantics and a per-source lease.
//
// jobs is an in-memory queue of source IDs for asynchronous manual ingestion;
// the scheduler calls ProcessOne directly to get per-source results.
type SourceIngestor struct {
	db         core.DbClient
	obj        core.ObjectClient
	crawler    core.Crawler
	normalizer core.Normalizer
	embedder   core.EmbeddingProvider
	splitter   *chunker.Chunker
	cfg        *IngestConfig
	holder     string
	jobs       chan string
}
