package core

import (
	"errors"
	"fmt"
)

// Pipeline error taxonomy. Per-document and per-chunk failures are absorbed by
// the orchestrator; only source-level invariant violations reach callers.
var (
	// ErrUnsupportedFormat: the uploaded file's extension maps to no extractor.
	ErrUnsupportedFormat = errors.New("unsupported document format")

	// ErrDocumentCorrupt: the file claimed a supported format but could not be parsed.
	ErrDocumentCorrupt = errors.New("document corrupt or unreadable")

	// ErrCrawlProviderUnavailable: the crawl provider could not be reached or
	// returned no usable payload. The source is marked failed and its existing
	// corpus is left untouched.
	ErrCrawlProviderUnavailable = errors.New("crawl provider unavailable")

	// ErrNoContent: the source yielded zero usable pages or documents after
	// cleaning. Existing rows are left untouched.
	ErrNoContent = errors.New("no usable content found")

	// ErrIngestInProgress: another ingestion holds the source's lease.
	ErrIngestInProgress = errors.New("ingestion already in progress for source")

	// ErrSourceNotFound: the source id resolves to no row.
	ErrSourceNotFound = errors.New("source not found")
)

// EmbeddingError marks a permanent embedding failure for one chunk. Sibling
// chunks proceed; the orchestrator logs and skips the chunk.
type EmbeddingError struct {
	ChunkIndex int
	Err        error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed for chunk %d: %v", e.ChunkIndex, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }
