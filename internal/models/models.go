package models

import (
	"time"
)

// Source is an ingestion origin: a registered website or an uploaded document.
// Sources are never mutated in place; re-ingestion replaces their content
// records wholesale.
type Source struct {
	ID         string    `db:"id" json:"id"`
	OrgID      string    `db:"org_id" json:"org_id"`
	Name       string    `db:"name" json:"name"`
	OriginType string    `db:"origin_type" json:"origin_type"` // "website" or "document"
	BaseURL    string    `db:"base_url" json:"base_url"`       // base URL (websites) or S3 URL (documents)
	Status     string    `db:"status" json:"status"`           // pending | processing | ready | failed | no_content
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ContentRecord is the normalized text of one fetched page or one processed
// document. Immutable once chunked; a refresh inserts new records and deletes
// the superseded generation.
type ContentRecord struct {
	ID           string     `db:"id" json:"id"`
	SourceID     string     `db:"source_id" json:"source_id"`
	CanonicalURL string     `db:"canonical_url" json:"canonical_url"` // normalized URL or filename
	Title        string     `db:"title" json:"title"`
	Content      string     `db:"content" json:"content"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	ChunkedAt    *time.Time `db:"chunked_at" json:"chunked_at"` // nil until chunking completed
}

// Chunk is one bounded passage of a ContentRecord together with its embedding.
// A chunk row is only written after its embedding succeeded, so every persisted
// chunk is retrievable.
type Chunk struct {
	ID          string    `db:"id" json:"id"`
	ContentID   string    `db:"content_id" json:"content_id"`
	Position    int       `db:"position" json:"position"` // zero-based, contiguous per parent
	TotalChunks int       `db:"total_chunks" json:"total_chunks"`
	Text        string    `db:"text" json:"text"`
	WordCount   int       `db:"word_count" json:"word_count"`
	Embedding   []float32 `db:"embedding" json:"embedding"` // pgvector column
	EmbeddedAt  time.Time `db:"embedded_at" json:"embedded_at"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// IngestLease guards a source against concurrent re-ingestion. Held in the
// database so the exclusion spans worker processes; an expired lease may be
// taken over.
type IngestLease struct {
	SourceID   string    `db:"source_id" json:"source_id"`
	Holder     string    `db:"holder" json:"holder"`
	AcquiredAt time.Time `db:"acquired_at" json:"acquired_at"`
	ExpiresAt  time.Time `db:"expires_at" json:"expires_at"`
}

// RefreshResult is the per-source outcome of a scheduled refresh run.
type RefreshResult struct {
	SourceID        string `json:"sourceId"`
	SourceName      string `json:"sourceName"`
	Domain          string `json:"domain"`
	PagesCrawled    int    `json:"pagesCrawled"`
	ChunksProcessed int    `json:"chunksProcessed"`
	Success         bool   `json:"success"`
	Error           string `json:"error,omitempty"`
}
