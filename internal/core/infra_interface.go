package core

import (
	"context"
	"time"

	"github.com/quillbase/ingesta/internal/models"
)

// DbClient defines all persistence operations the pipeline needs.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
type DbClient interface {
	CreateSource(ctx context.Context, src *models.Source) error
	GetSourceByID(ctx context.Context, id string) (*models.Source, error)
	ListSourcesByOrg(ctx context.Context, orgID string) ([]models.Source, error)
	ListWebsiteSources(ctx context.Context) ([]models.Source, error)
	UpdateSourceStatus(ctx context.Context, id string, status string) error
	DeleteSource(ctx context.Context, id string) error

	InsertContentRecord(ctx context.Context, rec *models.ContentRecord) error
	ListContentRecordsBySource(ctx context.Context, sourceID string) ([]models.ContentRecord, error)
	// DeleteContentRecordsBefore removes a source's records created before the
	// cutoff, cascading to their chunks. This is the delete half of the
	// insert-before-delete replace.
	DeleteContentRecordsBefore(ctx context.Context, sourceID string, cutoff time.Time) error
	StampChunkedAt(ctx context.Context, contentID string) error

	InsertChunks(ctx context.Context, chunks []models.Chunk) error
	CountChunksBySource(ctx context.Context, sourceID string) (int, error)
	SearchChunks(ctx context.Context, sourceID string, queryVec []float32, limit int) ([]models.Chunk, error)

	// AcquireIngestLease claims the per-source ingestion lease. Returns
	// ErrIngestInProgress if a live lease is held by someone else.
	AcquireIngestLease(ctx context.Context, sourceID, holder string, ttl time.Duration) error
	ReleaseIngestLease(ctx context.Context, sourceID, holder string) error

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
// Abstract so AWS can be swapped for MinIO, GCP, etc.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data []byte, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}
